package recovery

import (
	"math"
	"strings"
)

// EnergyLevel is the self-reported energy for the day.
type EnergyLevel string

const (
	EnergyLow      EnergyLevel = "low"
	EnergyModerate EnergyLevel = "moderate"
	EnergyHigh     EnergyLevel = "high"
)

const (
	MinSoreness = 1
	MaxSoreness = 10
)

// ParseEnergyLevel accepts the three levels case-insensitively.
func ParseEnergyLevel(raw string) (EnergyLevel, error) {
	switch EnergyLevel(strings.ToLower(strings.TrimSpace(raw))) {
	case EnergyLow:
		return EnergyLow, nil
	case EnergyModerate:
		return EnergyModerate, nil
	case EnergyHigh:
		return EnergyHigh, nil
	default:
		return "", invalid("energy", "must be one of low, moderate, high (got %q)", raw)
	}
}

// Valid reports whether e is one of the known levels.
func (e EnergyLevel) Valid() bool {
	switch e {
	case EnergyLow, EnergyModerate, EnergyHigh:
		return true
	}
	return false
}

// Input is one readiness sample. Soreness uses 10 for most sore.
type Input struct {
	SleepHours float64     `json:"sleepHours"`
	Soreness   int         `json:"soreness"`
	Energy     EnergyLevel `json:"energy"`
}

// Validate checks every field against its domain. Values are never clamped.
func (in Input) Validate() error {
	if math.IsNaN(in.SleepHours) || math.IsInf(in.SleepHours, 0) {
		return invalid("sleepHours", "must be a finite number")
	}
	if in.SleepHours < 0 {
		return invalid("sleepHours", "must not be negative (got %g)", in.SleepHours)
	}
	if in.Soreness < MinSoreness || in.Soreness > MaxSoreness {
		return invalid("soreness", "must be between %d and %d (got %d)", MinSoreness, MaxSoreness, in.Soreness)
	}
	if !in.Energy.Valid() {
		return invalid("energy", "must be one of low, moderate, high (got %q)", string(in.Energy))
	}
	return nil
}
