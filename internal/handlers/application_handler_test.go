package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/jobtrack/internal/models"
	"github.com/justsurfingit/jobtrack/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRouter(t *testing.T) (*gin.Engine, *services.StoreService, *services.ReconcilerService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Application{},
		&models.StageTransition{},
		&models.Note{},
	))

	store := services.NewStoreService(db)
	matcher := services.NewMatcherService(db, 0)
	reconciler := services.NewReconcilerService(db, store, matcher, 0)
	h := NewApplicationHandler(store, reconciler)

	r := gin.New()
	r.GET("/health", HealthCheck)
	r.POST("/applications", h.CreateApplication)
	r.GET("/applications/:id", h.GetApplication)
	r.PATCH("/applications/:id", h.PatchApplication)
	r.POST("/applications/:id/move", h.MoveApplication)
	r.GET("/applications/:id/transitions", h.ListTransitions)
	r.POST("/applications/:id/notes", h.AddNote)
	r.GET("/applications/:id/notes", h.ListNotes)
	r.GET("/board", h.Board)
	r.GET("/board/summary", h.BoardSummary)
	return r, store, reconciler
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	r, _, _ := setupRouter(t)
	w := doJSON(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateAndGetApplication(t *testing.T) {
	r, _, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/applications", `{"company":"Acme","role":"Engineer","priority":"high"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var app models.Application
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &app))
	assert.Equal(t, models.StageBacklog, app.Stage)
	assert.Equal(t, models.PriorityHigh, app.Priority)
	assert.Equal(t, models.SourceManual, app.Source)

	w = doJSON(t, r, http.MethodGet, "/applications/1", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateApplicationValidation(t *testing.T) {
	r, _, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/applications", `{"company":"","role":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetApplicationNotFound(t *testing.T) {
	r, _, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodGet, "/applications/42", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/applications/banana", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMoveApplicationEndpoint(t *testing.T) {
	r, store, _ := setupRouter(t)
	_, err := store.Create("Acme", "Engineer", models.SourceManual, "")
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/applications/1/move", `{"to_stage":"applied"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Outcome     services.MoveOutcome `json:"outcome"`
		Application models.Application   `json:"application"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, services.OutcomeMoved, resp.Outcome)
	assert.Equal(t, models.StageApplied, resp.Application.Stage)

	// Invalid stage surfaces as a 400 with the message, per the manual
	// action contract.
	w = doJSON(t, r, http.MethodPost, "/applications/1/move", `{"to_stage":"limbo"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Transitions endpoint shows the audit trail.
	w = doJSON(t, r, http.MethodGet, "/applications/1/transitions", "")
	require.Equal(t, http.StatusOK, w.Code)
	var trs []models.StageTransition
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trs))
	require.Len(t, trs, 1)
	assert.Equal(t, models.StageBacklog, trs[0].FromStage)
	assert.Equal(t, models.StageApplied, trs[0].ToStage)
	assert.Equal(t, models.TriggerManual, trs[0].Trigger)
}

func TestPatchApplicationEndpoint(t *testing.T) {
	r, store, _ := setupRouter(t)
	_, err := store.Create("Acme", "Engineer", models.SourceManual, "")
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPatch, "/applications/1", `{"priority":"low"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var app models.Application
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &app))
	assert.Equal(t, models.PriorityLow, app.Priority)

	w = doJSON(t, r, http.MethodPatch, "/applications/1", `{"company":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBoardEndpoints(t *testing.T) {
	r, store, reconciler := setupRouter(t)

	a, err := store.Create("Acme", "Engineer", models.SourceManual, "high")
	require.NoError(t, err)
	_, err = store.Create("Globex", "Analyst", models.SourceManual, "low")
	require.NoError(t, err)
	_, err = reconciler.Move(a.ID, models.StageInterview, models.TriggerManual)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodGet, "/board", "")
	require.Equal(t, http.StatusOK, w.Code)

	var board map[models.Stage][]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &board))
	assert.Len(t, board, len(models.Stages()), "every column renders even when empty")
	assert.Len(t, board[models.StageInterview], 1)
	assert.Len(t, board[models.StageBacklog], 1)

	w = doJSON(t, r, http.MethodGet, "/board?priority=high", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &board))
	assert.Empty(t, board[models.StageBacklog])
	assert.Len(t, board[models.StageInterview], 1)

	w = doJSON(t, r, http.MethodGet, "/board?stage=limbo", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/board?after=not-a-time", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/board/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	var counts map[models.Stage]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &counts))
	assert.Equal(t, int64(1), counts[models.StageInterview])
	assert.Equal(t, int64(0), counts[models.StageClosed])
}

func TestNotesEndpoints(t *testing.T) {
	r, store, _ := setupRouter(t)
	_, err := store.Create("Acme", "Engineer", models.SourceManual, "")
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/applications/1/notes", `{"content":"rejected after final round","note_type":"outcome"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/applications/1/notes", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "content is required")

	w = doJSON(t, r, http.MethodGet, "/applications/1/notes", "")
	require.Equal(t, http.StatusOK, w.Code)
	var notes []models.Note
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, "outcome", notes[0].NoteType)
}
