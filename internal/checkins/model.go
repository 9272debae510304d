package checkins

import (
	"errors"
	"sort"
	"time"

	"fitflow-backend/internal/recovery"
)

var (
	ErrNotFound     = errors.New("check-in not found")
	ErrInvalidInput = errors.New("invalid check-in")
)

// DateLayout is the calendar-day format used for CheckIn.Date.
const DateLayout = "2006-01-02"

// CheckIn is one day's self-reported training, nutrition and recovery data with its evaluation.
type CheckIn struct {
	ID           string
	UserID       string
	Date         string
	WorkoutDone  bool
	WorkoutType  string
	MaxLifts     map[string]float64
	RecentLifts  map[string]float64
	ProteinGrams float64
	Calories     int
	WaterOz      float64
	BodyWeight   float64
	SleepHours   float64
	Soreness     int
	Energy       recovery.EnergyLevel
	Score        float64
	Advisories   []recovery.Advisory
	CreatedAt    time.Time
}

// RecoveryInput returns the scorer input carried by c.
func (c CheckIn) RecoveryInput() recovery.Input {
	return recovery.Input{SleepHours: c.SleepHours, Soreness: c.Soreness, Energy: c.Energy}
}

// HeaviestLift returns the lift with the largest load. Ties resolve alphabetically.
func HeaviestLift(lifts map[string]float64) (string, float64, bool) {
	names := make([]string, 0, len(lifts))
	for name := range lifts {
		names = append(names, name)
	}
	sort.Strings(names)
	var best string
	var load float64
	for _, name := range names {
		if best == "" || lifts[name] > load {
			best, load = name, lifts[name]
		}
	}
	return best, load, best != ""
}
