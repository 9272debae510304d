package recovery

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Weights are the share of each factor in the final score. They must sum to 1.
type Weights struct {
	Sleep    float64 `yaml:"sleep" json:"sleep"`
	Soreness float64 `yaml:"soreness" json:"soreness"`
	Energy   float64 `yaml:"energy" json:"energy"`
}

// EnergyPoints maps each energy level onto a 0-100 factor.
type EnergyPoints struct {
	Low      float64 `yaml:"low" json:"low"`
	Moderate float64 `yaml:"moderate" json:"moderate"`
	High     float64 `yaml:"high" json:"high"`
}

// Thresholds partition the score range into rest, maintain and progress.
// A score equal to a cutoff belongs to the higher bucket.
type Thresholds struct {
	RestBelow     float64 `yaml:"rest_below" json:"restBelow"`
	ProgressionAt float64 `yaml:"progression_at" json:"progressionAt"`
}

// Config is the full set of tunables for scoring and rule evaluation.
type Config struct {
	Weights          Weights      `yaml:"weights" json:"weights"`
	EnergyPoints     EnergyPoints `yaml:"energy_points" json:"energyPoints"`
	SleepTargetHours float64      `yaml:"sleep_target_hours" json:"sleepTargetHours"`
	Thresholds       Thresholds   `yaml:"thresholds" json:"thresholds"`
	LoadIncrement    float64      `yaml:"load_increment" json:"loadIncrement"`
}

const (
	DefaultSleepWeight    = 0.4
	DefaultSorenessWeight = 0.3
	DefaultEnergyWeight   = 0.3

	DefaultSleepTargetHours = 8.0
	DefaultRestBelow        = 50.0
	DefaultProgressionAt    = 85.0
	DefaultLoadIncrement    = 5.0
)

// DefaultConfig returns the stock weights and cutoffs.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Sleep:    DefaultSleepWeight,
			Soreness: DefaultSorenessWeight,
			Energy:   DefaultEnergyWeight,
		},
		EnergyPoints: EnergyPoints{
			Low:      60,
			Moderate: 80,
			High:     100,
		},
		SleepTargetHours: DefaultSleepTargetHours,
		Thresholds: Thresholds{
			RestBelow:     DefaultRestBelow,
			ProgressionAt: DefaultProgressionAt,
		},
		LoadIncrement: DefaultLoadIncrement,
	}
}

// Validate rejects configs that would break the [0,100] range or the rule partition.
func (c Config) Validate() error {
	var errs []error
	w := c.Weights
	if w.Sleep < 0 || w.Soreness < 0 || w.Energy < 0 {
		errs = append(errs, errors.New("weights must not be negative"))
	}
	if sum := w.Sleep + w.Soreness + w.Energy; math.Abs(sum-1) > 1e-9 {
		errs = append(errs, fmt.Errorf("weights must sum to 1 (got %g)", sum))
	}
	for name, v := range map[string]float64{
		"low":      c.EnergyPoints.Low,
		"moderate": c.EnergyPoints.Moderate,
		"high":     c.EnergyPoints.High,
	} {
		if v < 0 || v > 100 {
			errs = append(errs, fmt.Errorf("energy_points.%s must be within 0..100 (got %g)", name, v))
		}
	}
	if c.SleepTargetHours <= 0 {
		errs = append(errs, fmt.Errorf("sleep_target_hours must be positive (got %g)", c.SleepTargetHours))
	}
	t := c.Thresholds
	if t.RestBelow <= 0 || t.ProgressionAt > 100 || t.RestBelow >= t.ProgressionAt {
		errs = append(errs, fmt.Errorf("thresholds must satisfy 0 < rest_below < progression_at <= 100 (got %g, %g)", t.RestBelow, t.ProgressionAt))
	}
	if c.LoadIncrement < 0 {
		errs = append(errs, fmt.Errorf("load_increment must not be negative (got %g)", c.LoadIncrement))
	}
	return errors.Join(errs...)
}

// LoadConfig reads a YAML rules file. Missing keys keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("recovery: read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML on top of DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("recovery: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("recovery: %w", err)
	}
	return cfg, nil
}
