package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/justsurfingit/jobtrack/internal/apperr"
	"github.com/justsurfingit/jobtrack/internal/models"
	"gorm.io/gorm"
)

// MoveOutcome reports what a Move call actually did. The skip outcomes
// are deliberate no-ops, not failures: callers must branch on the kind
// instead of treating every non-mutation as an error.
type MoveOutcome string

const (
	OutcomeMoved    MoveOutcome = "moved"
	OutcomeNoChange MoveOutcome = "no_change"

	// OutcomeSkippedBackward means a classifier-triggered move pointed
	// at an earlier stage and was ignored. Classifier confidence errors
	// are expected; they must not surface as hard failures.
	OutcomeSkippedBackward MoveOutcome = "skipped_backward_classifier_move"
)

// ReconcileOutcome reports the net effect of one reconciliation call.
type ReconcileOutcome string

const (
	ReconcileCreated              ReconcileOutcome = "created"
	ReconcileMoved                ReconcileOutcome = "moved"
	ReconcileNoChange             ReconcileOutcome = "no_change"
	ReconcileSkippedLowConfidence ReconcileOutcome = "skipped_low_confidence"
	ReconcileSkippedBackward      ReconcileOutcome = "skipped_backward_classifier_move"
	ReconcileSkippedIrrelevant    ReconcileOutcome = "skipped_irrelevant"
)

// ReconcileResult pairs the outcome with the application it concerns,
// when there is one, so the email loop can log and the UI can link.
type ReconcileResult struct {
	Outcome     ReconcileOutcome
	Application *models.Application
}

// ReconcilerService is the sole authority for changing an application's
// stage. Every stage write and its transition row commit in one
// transaction; the audit chain (each transition's to_stage equals the
// next one's from_stage) depends on no other path mutating Stage.
type ReconcilerService struct {
	DB      *gorm.DB
	Store   *StoreService
	Matcher *MatcherService

	// ConfidenceThreshold gates classifier-triggered mutations; results
	// below it are surfaced to a human instead of applied.
	ConfidenceThreshold float64
}

const defaultConfidenceThreshold = 0.8

func NewReconcilerService(db *gorm.DB, store *StoreService, matcher *MatcherService, threshold float64) *ReconcilerService {
	if threshold <= 0 || threshold > 1 {
		threshold = defaultConfidenceThreshold
	}
	return &ReconcilerService{
		DB:                  db,
		Store:               store,
		Matcher:             matcher,
		ConfidenceThreshold: threshold,
	}
}

// Move transitions an application to toStage.
//
// Rules:
//   - same stage: idempotent no-op, no transition row written
//   - classifier trigger moving backward (lower ordinal): skipped, not
//     an error; users can still correct mistakes with a manual trigger
//   - otherwise: stage, stage_entered_at and the transition row are
//     written atomically
func (r *ReconcilerService) Move(appID uint, toStage models.Stage, trigger models.Trigger) (MoveOutcome, error) {
	if !toStage.Valid() {
		return "", fmt.Errorf("%w: invalid stage %q", apperr.ErrValidation, toStage)
	}

	outcome := OutcomeMoved
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var app models.Application
		if err := tx.First(&app, appID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: application %d", apperr.ErrNotFound, appID)
			}
			return err
		}

		if app.Stage == toStage {
			outcome = OutcomeNoChange
			return nil
		}
		if trigger == models.TriggerClassifier && toStage.Ordinal() < app.Stage.Ordinal() {
			log.Printf("Reconciler: ignoring backward classifier move for app %d (%s -> %s)", appID, app.Stage, toStage)
			outcome = OutcomeSkippedBackward
			return nil
		}

		fromStage := app.Stage
		now := time.Now()
		err := tx.Model(&app).Updates(map[string]interface{}{
			"stage":            toStage,
			"stage_entered_at": now,
			"updated_at":       now,
		}).Error
		if err != nil {
			return err
		}

		return tx.Create(&models.StageTransition{
			ApplicationID: app.ID,
			FromStage:     fromStage,
			ToStage:       toStage,
			Trigger:       trigger,
			OccurredAt:    now,
		}).Error
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

// ReconcileFromClassification applies one classifier result to the
// board. At most one application is created per call, and never for a
// (company, role) pair that is already tracked and open. Low-confidence
// results mutate nothing; the email loop surfaces them for review.
func (r *ReconcilerService) ReconcileFromClassification(res *ClassificationResult) (*ReconcileResult, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: nil classification result", apperr.ErrValidation)
	}
	if !res.Category.JobRelated() {
		return &ReconcileResult{Outcome: ReconcileSkippedIrrelevant}, nil
	}

	match, err := r.Matcher.FindOpenApplication(res.Company, res.Role)
	if err != nil {
		return nil, err
	}

	if res.Confidence < r.ConfidenceThreshold {
		return &ReconcileResult{Outcome: ReconcileSkippedLowConfidence, Application: match}, nil
	}

	if match != nil {
		if res.SuggestedStage == "" {
			return &ReconcileResult{Outcome: ReconcileNoChange, Application: match}, nil
		}
		outcome, err := r.Move(match.ID, res.SuggestedStage, models.TriggerClassifier)
		if err != nil {
			return nil, err
		}
		refreshed, err := r.Store.Get(match.ID)
		if err != nil {
			return nil, err
		}
		switch outcome {
		case OutcomeMoved:
			return &ReconcileResult{Outcome: ReconcileMoved, Application: refreshed}, nil
		case OutcomeSkippedBackward:
			return &ReconcileResult{Outcome: ReconcileSkippedBackward, Application: refreshed}, nil
		default:
			return &ReconcileResult{Outcome: ReconcileNoChange, Application: refreshed}, nil
		}
	}

	app, err := r.Store.Create(res.Company, res.Role, models.SourceInferred, models.PriorityMedium)
	if err != nil {
		return nil, err
	}
	if res.SuggestedStage != "" && res.SuggestedStage != app.Stage {
		if _, err := r.Move(app.ID, res.SuggestedStage, models.TriggerClassifier); err != nil {
			return nil, err
		}
		if app, err = r.Store.Get(app.ID); err != nil {
			return nil, err
		}
	}
	return &ReconcileResult{Outcome: ReconcileCreated, Application: app}, nil
}
