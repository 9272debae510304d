package checkins

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"fitflow-backend/internal/recovery"
	"fitflow-backend/internal/shared/metrics"
	"fitflow-backend/internal/shared/telemetry"
)

// Notifier receives every recorded check-in. Implementations turn advisories into notifications.
type Notifier interface {
	CheckInRecorded(ctx context.Context, c CheckIn) error
}

// Service contains business logic for check-ins.
type Service struct {
	Repo     Repo
	Scorers  *recovery.Provider
	Notifier Notifier
	Now      func() time.Time
}

// RecordRequest is the caller's daily data. SleepHours and Soreness are required.
type RecordRequest struct {
	Date         string             `json:"date"`
	WorkoutDone  bool               `json:"workoutDone"`
	WorkoutType  string             `json:"workoutType"`
	MaxLifts     map[string]float64 `json:"maxLifts"`
	RecentLifts  map[string]float64 `json:"recentLifts"`
	ProteinGrams float64            `json:"proteinGrams"`
	Calories     int                `json:"calories"`
	WaterOz      float64            `json:"waterOz"`
	BodyWeight   float64            `json:"bodyWeight"`
	SleepHours   *float64           `json:"sleepHours"`
	Soreness     *int               `json:"soreness"`
	Energy       string             `json:"energy"`
}

// ScoreRequest evaluates readiness without persisting anything.
type ScoreRequest struct {
	SleepHours *float64 `json:"sleepHours"`
	Soreness   *int     `json:"soreness"`
	Energy     string   `json:"energy"`
	CurrentMax *float64 `json:"currentMax,omitempty"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) scorer() *recovery.Scorer {
	if s.Scorers == nil {
		return recovery.DefaultScorer()
	}
	return s.Scorers.Scorer()
}

// Evaluate scores a readiness sample with the active scorer.
func (s *Service) Evaluate(req ScoreRequest) (recovery.Evaluation, error) {
	in, err := buildInput(req.SleepHours, req.Soreness, req.Energy)
	if err != nil {
		return recovery.Evaluation{}, err
	}
	if req.CurrentMax != nil && (*req.CurrentMax < 0 || math.IsNaN(*req.CurrentMax)) {
		return recovery.Evaluation{}, fmt.Errorf("%w: currentMax must not be negative", ErrInvalidInput)
	}
	return s.scorer().Evaluate(in, recovery.Options{CurrentMax: req.CurrentMax})
}

// Record scores, evaluates and persists a check-in, then notifies.
func (s *Service) Record(ctx context.Context, userID string, req RecordRequest) (CheckIn, error) {
	if strings.TrimSpace(userID) == "" {
		return CheckIn{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	if err := validateRecord(&req); err != nil {
		return CheckIn{}, err
	}
	in, err := buildInput(req.SleepHours, req.Soreness, req.Energy)
	if err != nil {
		return CheckIn{}, err
	}

	now := s.now()
	date := req.Date
	if date == "" {
		date = now.Format(DateLayout)
	}

	var opts recovery.Options
	if _, load, ok := HeaviestLift(req.MaxLifts); ok {
		opts.CurrentMax = &load
	}
	ev, err := s.scorer().Evaluate(in, opts)
	if err != nil {
		return CheckIn{}, err
	}

	c := CheckIn{
		ID:           uuid.NewString(),
		UserID:       userID,
		Date:         date,
		WorkoutDone:  req.WorkoutDone,
		WorkoutType:  strings.TrimSpace(req.WorkoutType),
		MaxLifts:     req.MaxLifts,
		RecentLifts:  req.RecentLifts,
		ProteinGrams: req.ProteinGrams,
		Calories:     req.Calories,
		WaterOz:      req.WaterOz,
		BodyWeight:   req.BodyWeight,
		SleepHours:   in.SleepHours,
		Soreness:     in.Soreness,
		Energy:       in.Energy,
		Score:        ev.Breakdown.Score,
		Advisories:   ev.Advisories,
		CreatedAt:    now,
	}
	if err := s.Repo.Create(ctx, c); err != nil {
		return CheckIn{}, err
	}

	metrics.IncCheckinRecorded()
	metrics.ObserveRecoveryScore(c.Score)
	for _, a := range c.Advisories {
		metrics.IncAdvisory(string(a.Kind))
	}
	telemetry.Info("checkin.recorded", map[string]any{
		"checkin_id": c.ID,
		"user_id":    userID,
		"score":      c.Score,
		"advisories": len(c.Advisories),
	})

	if s.Notifier != nil {
		if err := s.Notifier.CheckInRecorded(ctx, c); err != nil {
			telemetry.Warn("checkin.notify_failed", map[string]any{
				"checkin_id": c.ID,
				"user_id":    userID,
				"error":      err.Error(),
			})
		}
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (CheckIn, error) {
	if strings.TrimSpace(id) == "" {
		return CheckIn{}, ErrNotFound
	}
	return s.Repo.Get(ctx, userID, id)
}

// List returns the user's check-ins, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]CheckIn, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Latest returns the most recent check-in.
func (s *Service) Latest(ctx context.Context, userID string) (CheckIn, error) {
	items, err := s.List(ctx, userID, 1, 0)
	if err != nil {
		return CheckIn{}, err
	}
	if len(items) == 0 {
		return CheckIn{}, ErrNotFound
	}
	return items[0], nil
}

func buildInput(sleep *float64, soreness *int, energy string) (recovery.Input, error) {
	if sleep == nil {
		return recovery.Input{}, &recovery.InvalidInputError{Field: "sleepHours", Reason: "is required"}
	}
	if soreness == nil {
		return recovery.Input{}, &recovery.InvalidInputError{Field: "soreness", Reason: "is required"}
	}
	level, err := recovery.ParseEnergyLevel(energy)
	if err != nil {
		return recovery.Input{}, err
	}
	in := recovery.Input{SleepHours: *sleep, Soreness: *soreness, Energy: level}
	if err := in.Validate(); err != nil {
		return recovery.Input{}, err
	}
	return in, nil
}

func validateRecord(req *RecordRequest) error {
	req.Date = strings.TrimSpace(req.Date)
	if req.Date != "" {
		if _, err := time.Parse(DateLayout, req.Date); err != nil {
			return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
		}
	}
	for name, v := range map[string]float64{
		"proteinGrams": req.ProteinGrams,
		"calories":     float64(req.Calories),
		"waterOz":      req.WaterOz,
		"bodyWeight":   req.BodyWeight,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidInput, name)
		}
	}
	var err error
	if req.MaxLifts, err = normalizeLifts("maxLifts", req.MaxLifts); err != nil {
		return err
	}
	if req.RecentLifts, err = normalizeLifts("recentLifts", req.RecentLifts); err != nil {
		return err
	}
	return nil
}

// normalizeLifts lowercases names and joins words with underscores. Two names
// that normalize to the same key are rejected.
func normalizeLifts(field string, lifts map[string]float64) (map[string]float64, error) {
	if len(lifts) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(lifts))
	for name, load := range lifts {
		key := strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(name, "_", " "))), "_")
		if key == "" {
			return nil, fmt.Errorf("%w: %s has an empty lift name", ErrInvalidInput, field)
		}
		if load < 0 || math.IsNaN(load) || math.IsInf(load, 0) {
			return nil, fmt.Errorf("%w: %s.%s must not be negative", ErrInvalidInput, field, key)
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("%w: %s lists %s more than once", ErrInvalidInput, field, key)
		}
		out[key] = load
	}
	return out, nil
}
