package checkins

import (
	"time"

	"fitflow-backend/internal/recovery"
)

// CheckInResponse is the outward-facing representation of a check-in.
type CheckInResponse struct {
	CheckInID    string              `json:"checkinId"`
	Date         string              `json:"date"`
	WorkoutDone  bool                `json:"workoutDone"`
	WorkoutType  string              `json:"workoutType,omitempty"`
	MaxLifts     map[string]float64  `json:"maxLifts,omitempty"`
	RecentLifts  map[string]float64  `json:"recentLifts,omitempty"`
	ProteinGrams float64             `json:"proteinGrams"`
	Calories     int                 `json:"calories"`
	WaterOz      float64             `json:"waterOz"`
	BodyWeight   float64             `json:"bodyWeight"`
	SleepHours   float64             `json:"sleepHours"`
	Soreness     int                 `json:"soreness"`
	Energy       string              `json:"energy"`
	Score        float64             `json:"score"`
	Advisories   []recovery.Advisory `json:"advisories"`
	CreatedAt    time.Time           `json:"createdAt"`
}

func toResponse(c CheckIn) CheckInResponse {
	advisories := c.Advisories
	if advisories == nil {
		advisories = []recovery.Advisory{}
	}
	return CheckInResponse{
		CheckInID:    c.ID,
		Date:         c.Date,
		WorkoutDone:  c.WorkoutDone,
		WorkoutType:  c.WorkoutType,
		MaxLifts:     c.MaxLifts,
		RecentLifts:  c.RecentLifts,
		ProteinGrams: c.ProteinGrams,
		Calories:     c.Calories,
		WaterOz:      c.WaterOz,
		BodyWeight:   c.BodyWeight,
		SleepHours:   c.SleepHours,
		Soreness:     c.Soreness,
		Energy:       string(c.Energy),
		Score:        c.Score,
		Advisories:   advisories,
		CreatedAt:    c.CreatedAt,
	}
}
