package models

import (
	"time"

	"gorm.io/gorm"
)

// Application is one tracked job pursuit. Its Stage field is the
// authoritative current position on the board; only the reconciler may
// change it, so that every change lands in stage_transitions too.
type Application struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Company and Role may be empty on stub records inferred from an
	// ambiguous email, but once set they stay non-empty.
	Company string `json:"company"`
	Role    string `json:"role"`

	Stage    Stage    `gorm:"not null;default:'backlog';index" json:"stage"`
	Priority Priority `gorm:"not null;default:'medium';index" json:"priority"`
	Source   Source   `gorm:"not null" json:"source"`

	// StageEnteredAt resets on every stage change; the board derives
	// "days in stage" from it.
	StageEnteredAt time.Time `json:"stage_entered_at"`
}

// DaysInStage is computed, never stored.
func (a *Application) DaysInStage(now time.Time) int {
	if a.StageEnteredAt.IsZero() {
		return 0
	}
	return int(now.Sub(a.StageEnteredAt).Hours() / 24)
}

// StageTransition is an append-only audit row. Transitions reference
// their application but are never deleted with it; the history outlives
// the board state. For a given application, rows ordered by OccurredAt
// form a chain: each row's ToStage equals the next row's FromStage, and
// the first row's FromStage is the initial stage (creation itself writes
// no transition row).
type StageTransition struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ApplicationID uint      `gorm:"not null;index" json:"application_id"`
	FromStage     Stage     `gorm:"not null" json:"from_stage"`
	ToStage       Stage     `gorm:"not null" json:"to_stage"`
	Trigger       Trigger   `gorm:"not null" json:"trigger"`
	OccurredAt    time.Time `gorm:"not null;index" json:"occurred_at"`
}

// Note is a free-form comment on an application. Closing an application
// records the outcome (offer vs rejection) here rather than in the stage.
type Note struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	ApplicationID uint      `gorm:"not null;index" json:"application_id"`
	NoteType      string    `gorm:"default:'general'" json:"note_type"`
	Content       string    `gorm:"type:text;not null" json:"content"`
}

// ProcessedEmail marks a Gmail message id as already handled so a sync
// cycle never classifies the same email twice.
type ProcessedEmail struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
}

// SyncState is the single-row bookmark for the Gmail watcher.
type SyncState struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Email         string    `gorm:"uniqueIndex;not null" json:"email"`
	LastHistoryID uint64    `json:"last_history_id"`
}
