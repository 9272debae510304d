package vision

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"fitflow-backend/internal/llm"
	"fitflow-backend/internal/prompts"
	"fitflow-backend/internal/shared/telemetry"
)

const (
	defaultDaysPerWeek = 4
	maxAnalysisChars   = 20000
)

// PlanRequest asks for a program built around a physique analysis.
type PlanRequest struct {
	Analysis    string  `json:"analysis"`
	Goal        string  `json:"goal"`
	Experience  string  `json:"experience"`
	DaysPerWeek int     `json:"daysPerWeek"`
	BodyWeight  float64 `json:"bodyWeight"`
}

// Plan is a multi-week program derived from a physique analysis.
type Plan struct {
	ID        string    `json:"planId"`
	Program   string    `json:"program"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// PhysiquePlan pairs the photo analysis with the program generated from it.
type PhysiquePlan struct {
	Analysis Analysis `json:"analysis"`
	Plan     Plan     `json:"plan"`
}

// normalizeProfile validates everything but the analysis text.
func normalizeProfile(req *PlanRequest) error {
	req.Goal = strings.TrimSpace(req.Goal)
	req.Experience = strings.ToLower(strings.TrimSpace(req.Experience))
	if req.DaysPerWeek == 0 {
		req.DaysPerWeek = defaultDaysPerWeek
	}
	if req.DaysPerWeek < 1 || req.DaysPerWeek > 7 {
		return fmt.Errorf("%w: daysPerWeek must be between 1 and 7", ErrInvalidInput)
	}
	switch req.Experience {
	case "", "beginner", "intermediate", "advanced":
	default:
		return fmt.Errorf("%w: experience must be beginner, intermediate or advanced", ErrInvalidInput)
	}
	if req.BodyWeight < 0 || math.IsNaN(req.BodyWeight) || math.IsInf(req.BodyWeight, 0) {
		return fmt.Errorf("%w: bodyWeight must not be negative", ErrInvalidInput)
	}
	return nil
}

// WorkoutPlan turns a physique analysis into a four-week program.
func (s *Service) WorkoutPlan(ctx context.Context, userID string, req PlanRequest) (Plan, error) {
	if strings.TrimSpace(userID) == "" {
		return Plan{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	req.Analysis = strings.TrimSpace(req.Analysis)
	if req.Analysis == "" {
		return Plan{}, fmt.Errorf("%w: analysis is required", ErrInvalidInput)
	}
	if len(req.Analysis) > maxAnalysisChars {
		return Plan{}, fmt.Errorf("%w: analysis exceeds %d characters", ErrInvalidInput, maxAnalysisChars)
	}
	if err := normalizeProfile(&req); err != nil {
		return Plan{}, err
	}
	prompt, err := prompts.PhysiquePlan(req.Analysis, prompts.Profile{
		Goal:        req.Goal,
		Experience:  req.Experience,
		DaysPerWeek: req.DaysPerWeek,
		BodyWeight:  req.BodyWeight,
	})
	if err != nil {
		return Plan{}, err
	}

	client := s.LLM
	if client == nil {
		client = llm.PlaceholderClient{}
	}
	resp, err := client.Complete(ctx, llm.Request{
		System:      prompts.PhysiquePlanSystem,
		Prompt:      prompt,
		Temperature: prompts.VisionParams.Temperature,
		MaxTokens:   prompts.VisionParams.MaxTokens,
		Model:       s.Model,
	})
	if err != nil {
		telemetry.Warn("vision.plan_failed", map[string]any{"user_id": userID, "error": err.Error()})
		return Plan{}, err
	}

	plan := Plan{ID: uuid.NewString(), Program: resp.Text, Model: resp.Model, CreatedAt: s.now()}
	telemetry.Info("vision.plan_created", map[string]any{
		"user_id":       userID,
		"plan_id":       plan.ID,
		"days_per_week": req.DaysPerWeek,
	})
	return plan, nil
}

// AnalyzeAndPlan runs a physique analysis on the photo and builds a program from it.
// req.Analysis is ignored and req.Goal doubles as the analysis goal.
func (s *Service) AnalyzeAndPlan(ctx context.Context, userID, fileName string, r io.Reader, req PlanRequest) (PhysiquePlan, error) {
	if err := normalizeProfile(&req); err != nil {
		return PhysiquePlan{}, err
	}
	analysis, err := s.AnalyzePhysique(ctx, userID, fileName, r, req.Goal)
	if err != nil {
		return PhysiquePlan{}, err
	}
	req.Analysis = analysis.Feedback
	plan, err := s.WorkoutPlan(ctx, userID, req)
	if err != nil {
		return PhysiquePlan{}, err
	}
	return PhysiquePlan{Analysis: analysis, Plan: plan}, nil
}
