package recovery

import "math"

// Breakdown holds each weighted contribution. Score is their sum rounded to hundredths.
type Breakdown struct {
	Sleep    float64 `json:"sleep"`
	Soreness float64 `json:"soreness"`
	Energy   float64 `json:"energy"`
	Score    float64 `json:"score"`
}

// sleep = min(hours/target, 1) * 100 * w.Sleep
// soreness = (10 - soreness) * 10 * w.Soreness
// energy = points[level] * w.Energy
func (c Config) breakdown(in Input) (Breakdown, error) {
	if err := in.Validate(); err != nil {
		return Breakdown{}, err
	}
	sleep := math.Min(in.SleepHours/c.SleepTargetHours, 1) * 100 * c.Weights.Sleep
	soreness := float64(MaxSoreness-in.Soreness) * 10 * c.Weights.Soreness
	energy := c.energyPoints(in.Energy) * c.Weights.Energy

	return Breakdown{
		Sleep:    sleep,
		Soreness: soreness,
		Energy:   energy,
		Score:    roundHundredths(sleep + soreness + energy),
	}, nil
}

func (c Config) energyPoints(level EnergyLevel) float64 {
	switch level {
	case EnergyLow:
		return c.EnergyPoints.Low
	case EnergyModerate:
		return c.EnergyPoints.Moderate
	default:
		return c.EnergyPoints.High
	}
}

// Rounding keeps cutoff comparisons stable against float noise such as 84.99999999999999.
func roundHundredths(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeScore scores in with DefaultConfig.
func ComputeScore(in Input) (float64, error) {
	b, err := DefaultConfig().breakdown(in)
	if err != nil {
		return 0, err
	}
	return b.Score, nil
}
