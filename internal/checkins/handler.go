package checkins

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fitflow-backend/internal/recovery"
	"fitflow-backend/internal/shared/server/middleware"
	"fitflow-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches check-in and scoring routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/recovery/score", h.score)
	rg.POST("/checkins", h.record)
	rg.GET("/checkins", h.list)
	rg.GET("/checkins/stats", h.stats)
	rg.GET("/checkins/:id", h.get)
}

func (h *Handler) score(c *gin.Context) {
	var req ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	ev, err := h.Svc.Evaluate(req)
	if err != nil {
		writeError(c, err, "failed to score recovery")
		return
	}
	respond.OK(c, ev)
}

func (h *Handler) record(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	checkin, err := h.Svc.Record(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err, "failed to record check-in")
		return
	}
	c.Set("checkinId", checkin.ID)
	respond.JSON(c, http.StatusCreated, toResponse(checkin))
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	checkin, err := h.Svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch check-in")
		return
	}
	respond.OK(c, toResponse(checkin))
}

func (h *Handler) stats(c *gin.Context) {
	st, err := h.Svc.Stats(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to compute stats")
		return
	}
	respond.OK(c, st)
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
	if limit > 100 {
		limit = 100
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			offset = parsed
		}
	}

	items, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		writeError(c, err, "failed to list check-ins")
		return
	}
	resp := make([]CheckInResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toResponse(item))
	}
	respond.OK(c, gin.H{"items": resp, "limit": limit, "offset": offset})
}

func writeError(c *gin.Context, err error, fallback string) {
	var invalid *recovery.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), gin.H{"field": invalid.Field})
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "check-in not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
