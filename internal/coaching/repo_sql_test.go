package coaching

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"fitflow-backend/internal/checkins"
	"fitflow-backend/internal/prompts"
	"fitflow-backend/internal/recovery"
	"fitflow-backend/internal/shared/storage/db"
)

func TestSQLRepoClaimConditional(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	repo := &SQLRepo{DB: conn, Dialect: db.Postgres}
	startedAt := time.Date(2025, 1, 20, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE coaching_runs\s+SET status = \$1, started_at = \$2\s+WHERE id = \$3 AND status = \$4`).
		WithArgs(StatusProcessing, startedAt, "run-1", StatusQueued).
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := repo.Claim(context.Background(), "run-1", startedAt)
	if err != nil || !claimed {
		t.Fatalf("Claim = %v, %v", claimed, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestSQLRepoUpdateNotFound(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	mock.ExpectExec("UPDATE coaching_runs").WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &SQLRepo{DB: conn, Dialect: db.Postgres}
	err = repo.Update(context.Background(), Run{ID: "missing", Status: StatusCompleted})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLRepoSaveFeedbackConditional(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	repo := &SQLRepo{DB: conn, Dialect: db.Postgres}
	run := Run{
		ID:        "run-1",
		Status:    StatusQueued,
		Iteration: 1,
		Feedback:  []prompts.Feedback{{Iteration: 1, Message: "too much", Sentiment: SentimentNegative, Adjustment: AdjustReduceVolume}},
	}

	mock.ExpectExec(`UPDATE coaching_runs\s+SET .*WHERE id = \$7 AND status = \$8 AND iteration = \$9 AND feedback_count = \$10`).
		WithArgs(StatusQueued, sqlmock.AnyArg(), sqlmock.AnyArg(), 1, nil, nil, "run-1", StatusCompleted, 1, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	saved, err := repo.SaveFeedback(context.Background(), run, 0)
	if err != nil || !saved {
		t.Fatalf("SaveFeedback = %v, %v", saved, err)
	}

	mock.ExpectExec("UPDATE coaching_runs").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .* FROM coaching_runs").
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "checkin_id", "status", "input", "insight", "plan", "motivation", "step_errors",
			"feedback", "iteration", "error_message", "created_at", "started_at", "completed_at",
		}).AddRow("run-1", "user-1", "c-1", StatusQueued, nil, "", "", "", nil, nil, 1, nil, time.Now(), nil, nil))
	saved, err = repo.SaveFeedback(context.Background(), run, 0)
	if err != nil || saved {
		t.Fatalf("stale SaveFeedback = %v, %v", saved, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestSQLRepoSQLiteLifecycle(t *testing.T) {
	ctx := context.Background()
	conn, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "fitflow.db"), db.DefaultSQLiteOptions())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if err := db.RunMigrations(ctx, conn, db.SQLite); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	checkinRepo := &checkins.SQLRepo{DB: conn, Dialect: db.SQLite}
	created := time.Date(2025, 1, 20, 8, 0, 0, 0, time.UTC)
	if err := checkinRepo.Create(ctx, checkins.CheckIn{
		ID: "c-1", UserID: "user-1", Date: "2025-01-20",
		SleepHours: 8, Soreness: 3, Energy: recovery.EnergyHigh, Score: 91, CreatedAt: created,
	}); err != nil {
		t.Fatalf("create check-in: %v", err)
	}

	repo := &SQLRepo{DB: conn, Dialect: db.SQLite}
	run := Run{
		ID:        "run-1",
		UserID:    "user-1",
		CheckInID: "c-1",
		Status:    StatusQueued,
		Input:     sampleDay(),
		CreatedAt: created,
	}
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create: %v", err)
	}

	claimed, err := repo.Claim(ctx, run.ID, created.Add(time.Minute))
	if err != nil || !claimed {
		t.Fatalf("first Claim = %v, %v", claimed, err)
	}
	claimed, err = repo.Claim(ctx, run.ID, created.Add(2*time.Minute))
	if err != nil || claimed {
		t.Fatalf("second Claim = %v, %v", claimed, err)
	}
	if _, err := repo.Claim(ctx, "missing", created); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	completed := created.Add(3 * time.Minute)
	run.Status = StatusCompleted
	run.Insight = "sleep is on point"
	run.Plan = "1. bench 230"
	run.Motivation = "go"
	run.Iteration = 1
	run.StepErrors = map[string]string{StepCoach: "timeout"}
	run.Feedback = []prompts.Feedback{{Iteration: 1, Message: "too much", Sentiment: SentimentNegative, Adjustment: AdjustReduceVolume}}
	run.CompletedAt = &completed
	if err := repo.Update(ctx, run); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != StatusCompleted || got.Insight != run.Insight || got.Iteration != 1 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Input.MaxLifts["bench_press"] != 225 || got.Input.RecoveryScore != 91 {
		t.Fatalf("input = %+v", got.Input)
	}
	if got.StepErrors[StepCoach] != "timeout" || len(got.Feedback) != 1 || got.Feedback[0].Adjustment != AdjustReduceVolume {
		t.Fatalf("json columns = %+v / %+v", got.StepErrors, got.Feedback)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completed) {
		t.Fatalf("completed_at = %v", got.CompletedAt)
	}

	second := Run{ID: "run-2", UserID: "user-1", CheckInID: "c-1", Status: StatusQueued, CreatedAt: created.Add(time.Hour)}
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("Create second: %v", err)
	}
	runs, err := repo.ListByUser(ctx, "user-1", 10, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" {
		t.Fatalf("unexpected order: %+v", runs)
	}
}
