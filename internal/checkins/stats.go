package checkins

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	statsWindow     = 7
	prWindow        = 30
	statsPageSize   = 100
	statsMaxHistory = 365
	sleepPointsPerH = 12
)

// Stats summarizes a lifter's training history.
type Stats struct {
	CheckIns int `json:"checkIns"`
	// Streak counts consecutive check-ins with a workout, ending at the latest one.
	Streak int `json:"streak"`
	// PRLifts are lifts whose best load in the last 30 check-ins beats every earlier one.
	PRCount int      `json:"prCount"`
	PRLifts []string `json:"prLifts"`
	// FitnessScore blends workout consistency, recovery and sleep over the last 7 check-ins.
	FitnessScore int     `json:"fitnessScore"`
	Consistency  float64 `json:"consistency"`
	AverageScore float64 `json:"averageScore"`
	AverageSleep float64 `json:"averageSleep"`
}

// ComputeStats derives Stats from history ordered oldest first.
func ComputeStats(history []CheckIn) Stats {
	st := Stats{CheckIns: len(history), PRLifts: []string{}}
	if len(history) == 0 {
		return st
	}

	for i := len(history) - 1; i >= 0 && history[i].WorkoutDone; i-- {
		st.Streak++
	}

	recent := history[max(0, len(history)-statsWindow):]
	var done, score, sleep float64
	for _, c := range recent {
		if c.WorkoutDone {
			done++
		}
		score += c.Score
		sleep += c.SleepHours
	}
	n := float64(len(recent))
	st.Consistency = roundTenths(done / n * 100)
	st.AverageScore = roundTenths(score / n)
	st.AverageSleep = roundTenths(sleep / n)
	fitness := (done/n*100 + score/n + sleep/n*sleepPointsPerH) / 3
	st.FitnessScore = int(math.Min(100, fitness))

	st.PRLifts = personalRecords(history)
	st.PRCount = len(st.PRLifts)
	return st
}

func personalRecords(history []CheckIn) []string {
	split := max(0, len(history)-prWindow)
	recent, previous := history[split:], history[:split]
	out := []string{}
	if len(recent) < 2 {
		return out
	}
	recentBest := bestLoads(recent)
	previousBest := bestLoads(previous)
	for name, load := range recentBest {
		if load > previousBest[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// bestLoads takes the heaviest load per lift across declared maxes and logged lifts.
func bestLoads(items []CheckIn) map[string]float64 {
	best := map[string]float64{}
	for _, c := range items {
		for _, lifts := range []map[string]float64{c.MaxLifts, c.RecentLifts} {
			for name, load := range lifts {
				if load > best[name] {
					best[name] = load
				}
			}
		}
	}
	return best
}

func roundTenths(v float64) float64 {
	return math.Round(v*10) / 10
}

// Stats loads up to a year of check-ins and summarizes them.
func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	if strings.TrimSpace(userID) == "" {
		return Stats{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	var newest []CheckIn
	for offset := 0; offset < statsMaxHistory; offset += statsPageSize {
		page, err := s.Repo.ListByUser(ctx, userID, min(statsPageSize, statsMaxHistory-offset), offset)
		if err != nil {
			return Stats{}, err
		}
		newest = append(newest, page...)
		if len(page) < statsPageSize {
			break
		}
	}
	history := make([]CheckIn, len(newest))
	for i, c := range newest {
		history[len(newest)-1-i] = c
	}
	return ComputeStats(history), nil
}
