package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/jobtrack/internal/apperr"
	"github.com/justsurfingit/jobtrack/internal/dtos"
	"github.com/justsurfingit/jobtrack/internal/models"
	"github.com/justsurfingit/jobtrack/internal/services"
)

// ApplicationHandler exposes the manual action surface (create, edit,
// move) and the board query surface over HTTP. Stage moves go through
// the reconciler, everything else through the store.
type ApplicationHandler struct {
	Store      *services.StoreService
	Reconciler *services.ReconcilerService
}

func NewApplicationHandler(store *services.StoreService, reconciler *services.ReconcilerService) *ApplicationHandler {
	return &ApplicationHandler{Store: store, Reconciler: reconciler}
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateApplication is POST /applications
func (h *ApplicationHandler) CreateApplication(c *gin.Context) {
	var req dtos.ApplicationCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}

	app, err := h.Store.Create(req.Company, req.Role, models.SourceManual, models.Priority(req.Priority))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

// GetApplication is GET /applications/:id
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	app, err := h.Store.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// PatchApplication is PATCH /applications/:id
func (h *ApplicationHandler) PatchApplication(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dtos.ApplicationPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}

	app, err := h.Store.UpdateFields(id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// MoveApplication is POST /applications/:id/move
func (h *ApplicationHandler) MoveApplication(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dtos.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}

	outcome, err := h.Reconciler.Move(id, models.Stage(req.ToStage), models.TriggerManual)
	if err != nil {
		respondError(c, err)
		return
	}
	app, err := h.Store.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": outcome, "application": app})
}

// ListTransitions is GET /applications/:id/transitions
func (h *ApplicationHandler) ListTransitions(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	trs, err := h.Store.ListTransitions(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trs)
}

// AddNote is POST /applications/:id/notes
func (h *ApplicationHandler) AddNote(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dtos.NoteCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}
	note, err := h.Store.AddNote(id, req.Content, req.NoteType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

// ListNotes is GET /applications/:id/notes
func (h *ApplicationHandler) ListNotes(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	notes, err := h.Store.ListNotes(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

// Board is GET /board — applications grouped per stage for rendering.
// Filters: ?stage=applied,interview&priority=high&after=...&before=...
func (h *ApplicationHandler) Board(c *gin.Context) {
	filter, ok := parseBoardFilter(c)
	if !ok {
		return
	}
	apps, err := h.Store.List(filter)
	if err != nil {
		respondError(c, err)
		return
	}

	now := time.Now()
	type card struct {
		models.Application
		DaysInStage int `json:"days_in_stage"`
	}
	board := make(map[models.Stage][]card, len(models.Stages()))
	for _, st := range models.Stages() {
		board[st] = []card{}
	}
	for _, app := range apps {
		board[app.Stage] = append(board[app.Stage], card{Application: app, DaysInStage: app.DaysInStage(now)})
	}
	c.JSON(http.StatusOK, board)
}

// BoardSummary is GET /board/summary — per-stage counts for dashboards.
func (h *ApplicationHandler) BoardSummary(c *gin.Context) {
	counts, err := h.Store.CountByStage()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application id"})
		return 0, false
	}
	return uint(id), true
}

func parseBoardFilter(c *gin.Context) (services.BoardFilter, bool) {
	var f services.BoardFilter
	if raw := c.Query("stage"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			f.Stages = append(f.Stages, models.Stage(s))
		}
	}
	if raw := c.Query("priority"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			f.Priorities = append(f.Priorities, models.Priority(p))
		}
	}
	for _, q := range []struct {
		key  string
		dest **time.Time
	}{{"after", &f.CreatedAfter}, {"before", &f.CreatedBefore}} {
		if raw := c.Query(q.key); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + q.key + " timestamp (want RFC3339)"})
				return f, false
			}
			*q.dest = &t
		}
	}
	return f, true
}

// respondError maps the error taxonomy to HTTP statuses. Manual actions
// surface the message directly, per the UI contract.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrGateway):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
