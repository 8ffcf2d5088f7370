package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/justsurfingit/jobtrack/internal/apperr"
	"github.com/justsurfingit/jobtrack/internal/dtos"
	"github.com/justsurfingit/jobtrack/internal/models"
	"gorm.io/gorm"
)

// StoreService is the CRUD surface over applications. It never touches
// the Stage column: stage changes must go through the ReconcilerService
// so that every change writes a transition row atomically.
type StoreService struct {
	DB *gorm.DB
}

func NewStoreService(db *gorm.DB) *StoreService {
	return &StoreService{DB: db}
}

// BoardFilter narrows List. Empty slices mean "no filter on that axis".
type BoardFilter struct {
	Stages        []models.Stage
	Priorities    []models.Priority
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// Create inserts a new application at the initial stage. Manual creates
// must carry at least one of company/role; inferred stubs may start empty.
func (s *StoreService) Create(company, role string, source models.Source, priority models.Priority) (*models.Application, error) {
	if source == models.SourceManual && company == "" && role == "" {
		return nil, fmt.Errorf("%w: manual application needs a company or a role", apperr.ErrValidation)
	}
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: invalid priority %q", apperr.ErrValidation, priority)
	}

	app := &models.Application{
		Company:        company,
		Role:           role,
		Stage:          models.StageBacklog,
		Priority:       priority,
		Source:         source,
		StageEnteredAt: time.Now(),
	}
	if err := s.DB.Create(app).Error; err != nil {
		return nil, err
	}
	return app, nil
}

func (s *StoreService) Get(id uint) (*models.Application, error) {
	var app models.Application
	if err := s.DB.First(&app, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: application %d", apperr.ErrNotFound, id)
		}
		return nil, err
	}
	return &app, nil
}

// UpdateFields applies a non-stage patch. Cleared (empty) company/role
// values are rejected: once known, those fields stay set.
func (s *StoreService) UpdateFields(id uint, patch *dtos.ApplicationPatchRequest) (*models.Application, error) {
	app, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Company != nil {
		if *patch.Company == "" {
			return nil, fmt.Errorf("%w: company cannot be cleared", apperr.ErrValidation)
		}
		updates["company"] = *patch.Company
	}
	if patch.Role != nil {
		if *patch.Role == "" {
			return nil, fmt.Errorf("%w: role cannot be cleared", apperr.ErrValidation)
		}
		updates["role"] = *patch.Role
	}
	if patch.Priority != nil {
		p := models.Priority(*patch.Priority)
		if !p.Valid() {
			return nil, fmt.Errorf("%w: invalid priority %q", apperr.ErrValidation, p)
		}
		updates["priority"] = p
	}
	if len(updates) == 0 {
		return app, nil
	}

	if err := s.DB.Model(app).Updates(updates).Error; err != nil {
		return nil, err
	}
	return app, nil
}

// List returns applications matching the filter, grouped by stage with
// the newest stage entry first within each group. The query is
// restartable: no cursor state is kept between calls.
func (s *StoreService) List(f BoardFilter) ([]models.Application, error) {
	q := s.DB.Model(&models.Application{})
	if len(f.Stages) > 0 {
		for _, st := range f.Stages {
			if !st.Valid() {
				return nil, fmt.Errorf("%w: invalid stage %q", apperr.ErrValidation, st)
			}
		}
		q = q.Where("stage IN ?", f.Stages)
	}
	if len(f.Priorities) > 0 {
		q = q.Where("priority IN ?", f.Priorities)
	}
	if f.CreatedAfter != nil {
		q = q.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		q = q.Where("created_at <= ?", *f.CreatedBefore)
	}

	var apps []models.Application
	if err := q.Order("stage").Order("stage_entered_at DESC").Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

// ListOpen returns all applications not yet closed, for matching.
func (s *StoreService) ListOpen() ([]models.Application, error) {
	var apps []models.Application
	if err := s.DB.Where("stage <> ?", models.StageClosed).Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

// CountByStage reports the board summary. Stages with no applications
// are present with a zero count so the UI always renders every column.
func (s *StoreService) CountByStage() (map[models.Stage]int64, error) {
	type row struct {
		Stage models.Stage
		N     int64
	}
	var rows []row
	err := s.DB.Model(&models.Application{}).
		Select("stage, count(*) as n").
		Group("stage").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.Stage]int64, len(models.Stages()))
	for _, st := range models.Stages() {
		counts[st] = 0
	}
	for _, r := range rows {
		counts[r.Stage] = r.N
	}
	return counts, nil
}

// ListTransitions returns the audit trail for one application, oldest first.
func (s *StoreService) ListTransitions(appID uint) ([]models.StageTransition, error) {
	if _, err := s.Get(appID); err != nil {
		return nil, err
	}
	var trs []models.StageTransition
	err := s.DB.Where("application_id = ?", appID).
		Order("occurred_at").Order("id").
		Find(&trs).Error
	if err != nil {
		return nil, err
	}
	return trs, nil
}

func (s *StoreService) AddNote(appID uint, content, noteType string) (*models.Note, error) {
	if _, err := s.Get(appID); err != nil {
		return nil, err
	}
	if noteType == "" {
		noteType = "general"
	}
	note := &models.Note{ApplicationID: appID, NoteType: noteType, Content: content}
	if err := s.DB.Create(note).Error; err != nil {
		return nil, err
	}
	return note, nil
}

func (s *StoreService) ListNotes(appID uint) ([]models.Note, error) {
	if _, err := s.Get(appID); err != nil {
		return nil, err
	}
	var notes []models.Note
	if err := s.DB.Where("application_id = ?", appID).Order("created_at").Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}
