package coaching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fitflow-backend/internal/checkins"
	"fitflow-backend/internal/prompts"
	"fitflow-backend/internal/queue"
	"fitflow-backend/internal/shared/metrics"
	"fitflow-backend/internal/shared/telemetry"
)

// CheckIns is the check-in lookup the service coaches from.
type CheckIns interface {
	Get(ctx context.Context, userID, id string) (checkins.CheckIn, error)
	Latest(ctx context.Context, userID string) (checkins.CheckIn, error)
}

// Notifier is told when a run completes.
type Notifier interface {
	RunCompleted(ctx context.Context, run Run) error
}

// Service contains business logic for coaching runs.
type Service struct {
	Repo     Repo
	Pipeline *Pipeline
	CheckIns CheckIns
	// Queue hands runs to the worker. When nil, runs complete in-process.
	Queue    queue.Client
	Notifier Notifier
	Now      func() time.Time

	inflight sync.WaitGroup
}

// StartRequest selects the check-in to coach from. Empty CheckInID uses the latest.
type StartRequest struct {
	CheckInID string `json:"checkinId"`
}

type FeedbackRequest struct {
	Message   string `json:"message"`
	Sentiment string `json:"sentiment"`
	TooEasy   bool   `json:"tooEasy"`
}

type WorkoutPlanRequest struct {
	WorkoutType      string   `json:"workoutType"`
	AvailableMinutes int      `json:"availableMinutes"`
	EnergyLevel      string   `json:"energyLevel"`
	Equipment        []string `json:"equipment"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Start persists a queued run for the chosen check-in and dispatches it.
func (s *Service) Start(ctx context.Context, userID string, req StartRequest) (Run, error) {
	if strings.TrimSpace(userID) == "" {
		return Run{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	checkin, err := s.loadCheckIn(ctx, userID, strings.TrimSpace(req.CheckInID))
	if err != nil {
		return Run{}, err
	}

	run := Run{
		ID:        uuid.NewString(),
		UserID:    userID,
		CheckInID: checkin.ID,
		Status:    StatusQueued,
		Input:     DayFromCheckIn(checkin),
		CreatedAt: s.now(),
	}
	if err := s.Repo.Create(ctx, run); err != nil {
		return Run{}, err
	}
	telemetry.Info("coaching.status", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"run_id":     run.ID,
		"user_id":    userID,
		"checkin_id": checkin.ID,
		"status":     StatusQueued,
	})
	if err := s.dispatch(ctx, run); err != nil {
		return Run{}, err
	}
	return run, nil
}

func (s *Service) loadCheckIn(ctx context.Context, userID, id string) (checkins.CheckIn, error) {
	if s.CheckIns == nil {
		return checkins.CheckIn{}, ErrNoCheckIn
	}
	var (
		c   checkins.CheckIn
		err error
	)
	if id == "" {
		c, err = s.CheckIns.Latest(ctx, userID)
	} else {
		c, err = s.CheckIns.Get(ctx, userID, id)
	}
	if errors.Is(err, checkins.ErrNotFound) {
		return checkins.CheckIn{}, ErrNoCheckIn
	}
	return c, err
}

// dispatch enqueues run, or processes it in a goroutine when no queue is configured.
func (s *Service) dispatch(ctx context.Context, run Run) error {
	if s.Queue == nil {
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			bg := backgroundWithRequestID(ctx)
			if err := s.ProcessRun(bg, run.ID); err != nil {
				telemetry.Error("coaching.process_failed", map[string]any{
					"run_id": run.ID,
					"error":  err.Error(),
				})
			}
		}()
		return nil
	}

	msg := queue.Message{
		RunID:      run.ID,
		RequestID:  requestIDFromContext(ctx),
		EnqueuedAt: s.now().Format(time.RFC3339),
		Version:    queue.MessageVersion,
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		s.fail(ctx, run, fmt.Errorf("enqueue: %w", err), nil)
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return nil
}

// Wait blocks until in-process runs finish. Used on shutdown and in tests.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// ProcessRun claims a queued run and executes the pipeline. Runs that are not queued are skipped.
func (s *Service) ProcessRun(ctx context.Context, runID string) error {
	startedAt := s.now()
	claimed, err := s.Repo.Claim(ctx, runID, startedAt)
	if err != nil {
		return fmt.Errorf("claim run %s: %w", runID, err)
	}
	if !claimed {
		telemetry.Info("coaching.skip", map[string]any{"run_id": runID, "reason": "not queued"})
		return nil
	}
	run, err := s.Repo.GetByID(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", runID, err)
	}
	metrics.IncRunStarted()
	telemetry.Info("coaching.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"run_id":            run.ID,
		"user_id":           run.UserID,
		"status":            StatusProcessing,
		"status_transition": "queued->processing",
		"iteration":         run.Iteration + 1,
	})

	if s.Pipeline == nil {
		s.fail(ctx, run, errors.New("missing coaching pipeline"), &startedAt)
		return nil
	}
	result, err := s.Pipeline.Run(ctx, run.Input)
	if err != nil {
		s.fail(ctx, run, fmt.Errorf("pipeline: %w", err), &startedAt)
		return err
	}

	run.Insight = result.Insight
	run.Plan = result.Plan
	run.Motivation = result.Motivation
	run.StepErrors = result.StepErrors
	run.Iteration++
	if result.Failed() {
		s.fail(ctx, run, fmt.Errorf("all coaching steps failed: %s", result.StepErrors[StepInsight]), &startedAt)
		return nil
	}

	completedAt := s.now()
	run.Status = StatusCompleted
	run.ErrorMessage = ""
	run.StartedAt = &startedAt
	run.CompletedAt = &completedAt
	if err := s.Repo.Update(ctx, run); err != nil {
		s.fail(ctx, run, fmt.Errorf("save run result: %w", err), &startedAt)
		return err
	}
	metrics.IncRunCompleted()
	metrics.ObserveRunDurationMs(durationMs(startedAt, completedAt))
	telemetry.Info("coaching.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"run_id":            run.ID,
		"user_id":           run.UserID,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"iteration":         run.Iteration,
		"step_errors":       len(run.StepErrors),
		"duration_ms":       durationMs(startedAt, completedAt),
	})

	if s.Notifier != nil {
		if err := s.Notifier.RunCompleted(ctx, run); err != nil {
			telemetry.Warn("coaching.notify_failed", map[string]any{"run_id": run.ID, "error": err.Error()})
		}
	}
	return nil
}

func (s *Service) fail(ctx context.Context, run Run, cause error, startedAt *time.Time) {
	completedAt := s.now()
	run.Status = StatusFailed
	run.ErrorMessage = sanitizeError(cause)
	run.CompletedAt = &completedAt
	if startedAt != nil {
		run.StartedAt = startedAt
	}
	if err := s.Repo.Update(context.Background(), run); err != nil {
		telemetry.Error("coaching.fail_update", map[string]any{
			"run_id": run.ID,
			"error":  err.Error(),
			"cause":  cause.Error(),
		})
	}
	metrics.IncRunFailed()
	if startedAt != nil {
		metrics.ObserveRunDurationMs(durationMs(*startedAt, completedAt))
	}
	telemetry.Warn("coaching.status", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"run_id":     run.ID,
		"user_id":    run.UserID,
		"status":     StatusFailed,
		"error":      run.ErrorMessage,
	})
}

// Get returns a run owned by userID.
func (s *Service) Get(ctx context.Context, userID, runID string) (Run, error) {
	if strings.TrimSpace(runID) == "" {
		return Run{}, ErrNotFound
	}
	run, err := s.Repo.GetByID(ctx, runID)
	if err != nil {
		return Run{}, err
	}
	if run.UserID != userID {
		return Run{}, ErrNotFound
	}
	return run, nil
}

// List returns the user's runs ordered newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Run, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Feedback records the lifter's reaction to a completed run. Negative feedback, or positive
// feedback marked too easy, re-queues the run with the history in the prompt until
// MaxIterations is reached. Anything else finalizes the run.
func (s *Service) Feedback(ctx context.Context, userID, runID string, req FeedbackRequest) (Run, error) {
	req.Sentiment = strings.ToLower(strings.TrimSpace(req.Sentiment))
	req.Message = strings.TrimSpace(req.Message)
	switch req.Sentiment {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
	default:
		return Run{}, fmt.Errorf("%w: sentiment must be positive, neutral or negative", ErrInvalidInput)
	}
	if req.Message == "" {
		return Run{}, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}

	run, err := s.Get(ctx, userID, runID)
	if err != nil {
		return Run{}, err
	}
	if run.Finalized() {
		return Run{}, ErrRunFinalized
	}
	if run.Status != StatusCompleted {
		return Run{}, ErrRunNotReady
	}

	adjustment := adjustmentFor(req.Sentiment, req.TooEasy)
	prevFeedback := len(run.Feedback)
	run.Feedback = append(run.Feedback, prompts.Feedback{
		Iteration:  run.Iteration,
		Message:    req.Message,
		Sentiment:  req.Sentiment,
		Adjustment: adjustment,
	})
	rerun := adjustment != "" && run.Iteration < MaxIterations
	if rerun {
		run.Status = StatusQueued
		run.Input.Feedback = run.Feedback
		run.Input.Adjustment = adjustment
		run.StartedAt = nil
		run.CompletedAt = nil
	}
	saved, err := s.Repo.SaveFeedback(ctx, run, prevFeedback)
	if err != nil {
		return Run{}, err
	}
	if !saved {
		return Run{}, ErrRunChanged
	}
	telemetry.Info("coaching.feedback", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"run_id":     run.ID,
		"user_id":    userID,
		"sentiment":  req.Sentiment,
		"adjustment": adjustment,
		"iteration":  run.Iteration,
		"finalized":  run.Finalized(),
	})
	if rerun {
		if err := s.dispatch(ctx, run); err != nil {
			return Run{}, err
		}
	}
	return run, nil
}

// WorkoutPlan generates a session plan synchronously from the latest check-in, if any.
func (s *Service) WorkoutPlan(ctx context.Context, userID string, req WorkoutPlanRequest) (Result, error) {
	req.WorkoutType = strings.TrimSpace(req.WorkoutType)
	if req.WorkoutType == "" {
		return Result{}, fmt.Errorf("%w: workoutType is required", ErrInvalidInput)
	}
	if req.AvailableMinutes <= 0 || req.AvailableMinutes > 240 {
		return Result{}, fmt.Errorf("%w: availableMinutes must be between 1 and 240", ErrInvalidInput)
	}
	if s.Pipeline == nil {
		return Result{}, errors.New("missing coaching pipeline")
	}

	var day prompts.Day
	if checkin, err := s.loadCheckIn(ctx, userID, ""); err == nil {
		day = DayFromCheckIn(checkin)
	} else if !errors.Is(err, ErrNoCheckIn) {
		return Result{}, err
	}
	workout := prompts.Workout{
		WorkoutType:      strings.ToLower(strings.ReplaceAll(req.WorkoutType, " ", "_")),
		AvailableMinutes: req.AvailableMinutes,
		EnergyLevel:      strings.TrimSpace(req.EnergyLevel),
		Equipment:        req.Equipment,
	}
	return s.Pipeline.WorkoutPlan(ctx, day, workout)
}

// DayFromCheckIn converts a stored check-in to the agents' view of the day.
func DayFromCheckIn(c checkins.CheckIn) prompts.Day {
	advisories := make([]string, 0, len(c.Advisories))
	for _, a := range c.Advisories {
		advisories = append(advisories, a.Message)
	}
	return prompts.Day{
		Date:          c.Date,
		WorkoutDone:   c.WorkoutDone,
		WorkoutType:   c.WorkoutType,
		MaxLifts:      c.MaxLifts,
		RecentLifts:   c.RecentLifts,
		ProteinGrams:  c.ProteinGrams,
		Calories:      float64(c.Calories),
		WaterOz:       c.WaterOz,
		BodyWeight:    c.BodyWeight,
		SleepHours:    c.SleepHours,
		Soreness:      c.Soreness,
		Energy:        string(c.Energy),
		RecoveryScore: c.Score,
		Advisories:    advisories,
	}
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
