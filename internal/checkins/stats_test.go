package checkins

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"testing"
	"time"
)

func day(i int, done bool, score, sleep float64, lifts map[string]float64) CheckIn {
	created := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC).AddDate(0, 0, i)
	return CheckIn{
		ID:          fmt.Sprintf("c-%03d", i),
		UserID:      "user-1",
		Date:        created.Format(DateLayout),
		WorkoutDone: done,
		MaxLifts:    lifts,
		SleepHours:  sleep,
		Score:       score,
		CreatedAt:   created,
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	st := ComputeStats(nil)
	if st.CheckIns != 0 || st.Streak != 0 || st.FitnessScore != 0 || st.PRLifts == nil {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestComputeStatsStreakAndFitness(t *testing.T) {
	history := []CheckIn{
		day(0, true, 90, 8, nil),
		day(1, false, 40, 5, nil),
		day(2, true, 70, 7, nil),
		day(3, true, 80, 8, nil),
		day(4, true, 90, 9, nil),
	}
	st := ComputeStats(history)
	if st.Streak != 3 {
		t.Fatalf("streak = %d, want 3", st.Streak)
	}
	// consistency 80, average score 74, average sleep 7.4 h -> 88.8 points
	if st.Consistency != 80 || st.AverageScore != 74 || st.AverageSleep != 7.4 {
		t.Fatalf("averages = %+v", st)
	}
	if st.FitnessScore != 80 {
		t.Fatalf("fitness = %d, want 80", st.FitnessScore)
	}

	history = append(history, day(5, false, 60, 6, nil))
	if st := ComputeStats(history); st.Streak != 0 {
		t.Fatalf("rest day should reset the streak, got %d", st.Streak)
	}
}

func TestComputeStatsUsesLastSevenCheckIns(t *testing.T) {
	var history []CheckIn
	for i := 0; i < 3; i++ {
		history = append(history, day(i, false, 0, 0, nil))
	}
	for i := 3; i < 10; i++ {
		history = append(history, day(i, true, 100, 10, nil))
	}
	st := ComputeStats(history)
	if st.Consistency != 100 || st.Streak != 7 || st.FitnessScore != 100 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestComputeStatsPersonalRecords(t *testing.T) {
	var history []CheckIn
	for i := 0; i < 35; i++ {
		history = append(history, day(i, true, 80, 8, map[string]float64{"bench_press": 200, "squat": 300}))
	}
	history[33].MaxLifts = map[string]float64{"bench_press": 210, "squat": 300}
	history[34].RecentLifts = map[string]float64{"deadlift": 405}

	st := ComputeStats(history)
	if want := []string{"bench_press", "deadlift"}; !reflect.DeepEqual(st.PRLifts, want) || st.PRCount != 2 {
		t.Fatalf("PRs = %v (%d), want %v", st.PRLifts, st.PRCount, want)
	}

	// with no earlier history every recorded lift counts, once there are two check-ins
	if st := ComputeStats(history[:1]); st.PRCount != 0 {
		t.Fatalf("single check-in should not count PRs: %+v", st)
	}
	if st := ComputeStats(history[:2]); st.PRCount != 2 {
		t.Fatalf("expected both lifts as PRs, got %+v", st)
	}
}

func TestStatsEndpoint(t *testing.T) {
	svc := newTestService(nil)
	r := newTestRouter(svc)
	for i := 0; i < 3; i++ {
		resp := doJSON(t, r, http.MethodPost, "/api/v1/checkins",
			`{"workoutDone":true,"maxLifts":{"bench_press":225},"sleepHours":8,"soreness":3,"energy":"high"}`)
		if resp.Code != http.StatusCreated {
			t.Fatalf("record: %d %s", resp.Code, resp.Body.String())
		}
	}

	resp := doJSON(t, r, http.MethodGet, "/api/v1/checkins/stats", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var st Stats
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.CheckIns != 3 || st.Streak != 3 || st.AverageScore != 91 || st.PRCount != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestServiceStatsOrdersHistoryOldestFirst(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	for i, done := range []bool{true, true, false} {
		if err := svc.Repo.Create(ctx, day(i, done, 70, 7, nil)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	st, err := svc.Stats(ctx, "user-1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Streak != 0 || st.CheckIns != 3 {
		t.Fatalf("latest check-in was a rest day: %+v", st)
	}
}
