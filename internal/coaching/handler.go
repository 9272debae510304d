package coaching

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fitflow-backend/internal/shared/server/middleware"
	"fitflow-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches coaching routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/coaching/runs", h.start)
	rg.GET("/coaching/runs", h.list)
	rg.GET("/coaching/runs/:id", h.get)
	rg.POST("/coaching/runs/:id/feedback", h.feedback)
	rg.POST("/coaching/workout-plan", h.workoutPlan)
}

func (h *Handler) start(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	var req StartRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	run, err := h.Svc.Start(ctx, userID, req)
	if err != nil {
		writeError(c, err, "failed to start coaching run")
		return
	}
	c.Set("runId", run.ID)
	respond.JSON(c, http.StatusAccepted, toResponse(run))
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	run, err := h.Svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch coaching run")
		return
	}
	c.Set("runId", run.ID)
	respond.OK(c, toResponse(run))
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 50 {
		limit = 50
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			offset = parsed
		}
	}

	runs, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		writeError(c, err, "failed to list coaching runs")
		return
	}
	items := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		items = append(items, toResponse(run))
	}
	respond.OK(c, gin.H{"items": items, "limit": limit, "offset": offset})
}

func (h *Handler) feedback(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	run, err := h.Svc.Feedback(ctx, userID, c.Param("id"), req)
	if err != nil {
		writeError(c, err, "failed to record feedback")
		return
	}
	c.Set("runId", run.ID)
	status := http.StatusOK
	if run.Status == StatusQueued {
		status = http.StatusAccepted
	}
	respond.JSON(c, status, toResponse(run))
}

func (h *Handler) workoutPlan(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	var req WorkoutPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	result, err := h.Svc.WorkoutPlan(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err, "failed to generate workout plan")
		return
	}
	respond.OK(c, result)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "coaching run not found", nil)
	case errors.Is(err, ErrNoCheckIn):
		respond.Error(c, http.StatusConflict, "checkin_required", "record a check-in before requesting coaching", nil)
	case errors.Is(err, ErrRunNotReady):
		respond.Error(c, http.StatusConflict, "run_not_ready", "coaching run has not completed yet", nil)
	case errors.Is(err, ErrRunFinalized):
		respond.Error(c, http.StatusConflict, "run_finalized", "coaching run is already finalized", nil)
	case errors.Is(err, ErrRunChanged):
		respond.Error(c, http.StatusConflict, "run_changed", "coaching run changed, reload and retry", nil)
	case errors.Is(err, ErrQueueUnavailable):
		respond.Error(c, http.StatusServiceUnavailable, "queue_unavailable", "coaching is temporarily unavailable", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
