package models

// Stage is one position in the fixed pipeline an application moves through.
// The board renders one column per stage, in ordinal order.
type Stage string

const (
	StageBacklog   Stage = "backlog"
	StageApplied   Stage = "applied"
	StageScreening Stage = "screening"
	StageInterview Stage = "interview"
	StageFinal     Stage = "final"
	// StageClosed is terminal for both outcomes (offer and rejection).
	// The outcome itself lives in a note, not in the stage.
	StageClosed Stage = "closed"
)

var stageOrder = map[Stage]int{
	StageBacklog:   0,
	StageApplied:   1,
	StageScreening: 2,
	StageInterview: 3,
	StageFinal:     4,
	StageClosed:    5,
}

// Stages returns all pipeline stages in board order.
func Stages() []Stage {
	return []Stage{StageBacklog, StageApplied, StageScreening, StageInterview, StageFinal, StageClosed}
}

func (s Stage) Valid() bool {
	_, ok := stageOrder[s]
	return ok
}

// Ordinal returns the stage's position in the pipeline, -1 for unknown stages.
func (s Stage) Ordinal() int {
	o, ok := stageOrder[s]
	if !ok {
		return -1
	}
	return o
}

func (s Stage) Terminal() bool {
	return s == StageClosed
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Source records whether an application was created by the user or
// inferred from a classified email.
type Source string

const (
	SourceManual   Source = "manual"
	SourceInferred Source = "inferred"
)

// Trigger is the cause of a stage move.
type Trigger string

const (
	TriggerManual     Trigger = "manual"
	TriggerClassifier Trigger = "classifier"
)
