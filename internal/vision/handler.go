package vision

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"fitflow-backend/internal/llm"
	"fitflow-backend/internal/shared/server/middleware"
	"fitflow-backend/internal/shared/server/respond"
)

// multipart overhead on top of the photo itself
const formOverhead = 1 << 20

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/vision/physique", h.analyze(ModePhysique))
	rg.POST("/vision/progress", h.analyze(ModeProgress))
	rg.POST("/vision/form", h.analyze(ModeForm))
	rg.POST("/vision/plan", h.plan)
	rg.POST("/vision/physique/plan", h.analyzeAndPlan)
}

func (h *Handler) plan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	plan, err := h.Svc.WorkoutPlan(c.Request.Context(), middleware.UserIDFromContext(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, plan)
}

func (h *Handler) analyzeAndPlan(c *gin.Context) {
	fileHeader, ok := h.photo(c)
	if !ok {
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read photo", nil)
		return
	}
	defer file.Close()

	req := PlanRequest{
		Goal:       c.PostForm("goals"),
		Experience: c.PostForm("experience"),
	}
	if v := c.PostForm("daysPerWeek"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "daysPerWeek must be a number", nil)
			return
		}
		req.DaysPerWeek = days
	}
	if v := c.PostForm("bodyWeight"); v != "" {
		weight, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "bodyWeight must be a number", nil)
			return
		}
		req.BodyWeight = weight
	}

	result, err := h.Svc.AnalyzeAndPlan(c.Request.Context(), middleware.UserIDFromContext(c), fileHeader.Filename, file, req)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, result)
}

// photo reads the multipart photo field, writing the error response itself on failure.
func (h *Handler) photo(c *gin.Context) (*multipart.FileHeader, bool) {
	limit := h.Svc.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxPhotoBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+formOverhead)

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "photo is too large", nil)
			return nil, false
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "photo is required", nil)
		return nil, false
	}
	return fileHeader, true
}

func (h *Handler) analyze(mode Mode) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserIDFromContext(c)
		fileHeader, ok := h.photo(c)
		if !ok {
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read photo", nil)
			return
		}
		defer file.Close()

		req := Request{
			Mode:     mode,
			FileName: fileHeader.Filename,
			Goals:    strings.TrimSpace(c.PostForm("goals")),
			Exercise: strings.TrimSpace(c.PostForm("exercise")),
		}
		if v := c.PostForm("weeks"); v != "" {
			weeks, err := strconv.Atoi(v)
			if err != nil {
				respond.Error(c, http.StatusBadRequest, "validation_error", "weeks must be a number", nil)
				return
			}
			req.Weeks = weeks
		}

		analysis, err := h.Svc.Analyze(c.Request.Context(), userID, file, req)
		if err != nil {
			writeError(c, err)
			return
		}
		respond.OK(c, analysis)
	}
}

func writeError(c *gin.Context, err error) {
	var httpErr *llm.HTTPError
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", err.Error(), nil)
	case errors.Is(err, llm.ErrNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, "model_unavailable", "NIM_API_KEY not found", nil)
	case errors.Is(err, llm.ErrTimeout):
		respond.Error(c, http.StatusGatewayTimeout, "model_timeout", "the vision model timed out", nil)
	case errors.Is(err, llm.ErrAuth), errors.Is(err, llm.ErrEmptyResponse), errors.As(err, &httpErr):
		respond.Error(c, http.StatusBadGateway, "model_error", "the vision model request failed", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to analyze photo", nil)
	}
}
