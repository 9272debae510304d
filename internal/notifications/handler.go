package notifications

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fitflow-backend/internal/checkins"
	"fitflow-backend/internal/shared/server/middleware"
	"fitflow-backend/internal/shared/server/respond"
)

// LatestCheckIn supplies the body weight used for meal reminders.
type LatestCheckIn interface {
	Latest(ctx context.Context, userID string) (checkins.CheckIn, error)
}

type Handler struct {
	Dispatcher *Dispatcher
	Hub        *Hub
	CheckIns   LatestCheckIn
}

func NewHandler(d *Dispatcher, hub *Hub, cs LatestCheckIn) *Handler {
	return &Handler{Dispatcher: d, Hub: hub, CheckIns: cs}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/notifications", h.list)
	rg.POST("/notifications/check", h.check)
	rg.POST("/notifications/:id/read", h.markRead)
	rg.GET("/notifications/ws", h.stream)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	opts := ListOptions{Limit: 20, UnreadOnly: c.Query("unread") == "true"}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			opts.Limit = parsed
		}
	}
	if opts.Limit < 1 {
		opts.Limit = 1
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			opts.Offset = parsed
		}
	}

	items, err := h.Dispatcher.List(c.Request.Context(), userID, opts)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list notifications", nil)
		return
	}
	respond.OK(c, gin.H{"items": items, "limit": opts.Limit, "offset": opts.Offset})
}

func (h *Handler) markRead(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if err := h.Dispatcher.MarkRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "notification not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update notification", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// check runs the reminder and motivation checks for the caller.
func (h *Handler) check(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	var bodyWeight float64
	if h.CheckIns != nil {
		if latest, err := h.CheckIns.Latest(c.Request.Context(), userID); err == nil {
			bodyWeight = latest.BodyWeight
		}
	}
	items, err := h.Dispatcher.Check(c.Request.Context(), userID, bodyWeight)
	if err != nil && !errors.Is(err, ErrDelivery) {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to run notification checks", nil)
		return
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) stream(c *gin.Context) {
	if h.Hub == nil {
		respond.Error(c, http.StatusServiceUnavailable, "unavailable", "live notifications are disabled", nil)
		return
	}
	h.Hub.Serve(c.Writer, c.Request, middleware.UserIDFromContext(c))
}
