package services

import "github.com/justsurfingit/jobtrack/internal/models"

// Category is the classifier's verdict on a single email.
type Category string

const (
	CategoryJobInterview   Category = "job_interview"
	CategoryJobApplication Category = "job_application"
	CategoryPromotional    Category = "promotional"
	CategoryIrrelevant     Category = "irrelevant"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryJobInterview, CategoryJobApplication, CategoryPromotional, CategoryIrrelevant:
		return true
	}
	return false
}

// JobRelated reports whether the category may justify creating a new
// application. Promotional mail from job boards never does.
func (c Category) JobRelated() bool {
	return c == CategoryJobInterview || c == CategoryJobApplication
}

// ClassificationResult is the gateway's parsed, validated output. It is
// handed to the reconciler for exactly one reconciliation call and never
// persisted; only its effects (application rows, transition rows) are.
type ClassificationResult struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Company    string   `json:"company"`
	Role       string   `json:"role"`

	// SuggestedStage is empty when the classifier has no opinion on
	// where the application should sit.
	SuggestedStage models.Stage `json:"suggested_stage"`

	InterviewScheduled bool `json:"interview_scheduled"`
}
