package coaching

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fitflow-backend/internal/shared/storage/db"
)

// SQLRepo implements Repo on Postgres or SQLite.
type SQLRepo struct {
	DB      *sql.DB
	Dialect db.Dialect
}

const runColumns = `id, user_id, checkin_id, status, input, insight, plan, motivation, step_errors, feedback,
    iteration, error_message, created_at, started_at, completed_at`

func (r *SQLRepo) Create(ctx context.Context, run Run) error {
	const query = `
INSERT INTO coaching_runs (` + runColumns + `
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	input, stepErrors, feedback, err := encodeRunJSON(run)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(
		ctx,
		db.Rebind(r.Dialect, query),
		run.ID,
		run.UserID,
		run.CheckInID,
		run.Status,
		input,
		run.Insight,
		run.Plan,
		run.Motivation,
		stepErrors,
		feedback,
		run.Iteration,
		nullString(run.ErrorMessage),
		run.CreatedAt.UTC(),
		nullTime(run.StartedAt),
		nullTime(run.CompletedAt),
	)
	return err
}

func (r *SQLRepo) GetByID(ctx context.Context, runID string) (Run, error) {
	const query = `
SELECT ` + runColumns + `
FROM coaching_runs
WHERE id = $1`
	run, err := scanRun(r.DB.QueryRowContext(ctx, db.Rebind(r.Dialect, query), runID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, err
	}
	return run, nil
}

func (r *SQLRepo) Claim(ctx context.Context, runID string, startedAt time.Time) (bool, error) {
	const query = `
UPDATE coaching_runs
SET status = $1, started_at = $2
WHERE id = $3 AND status = $4`
	res, err := r.DB.ExecContext(ctx, db.Rebind(r.Dialect, query), StatusProcessing, startedAt.UTC(), runID, StatusQueued)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, runID); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *SQLRepo) Update(ctx context.Context, run Run) error {
	const query = `
UPDATE coaching_runs
SET status = $1,
    input = $2,
    insight = $3,
    plan = $4,
    motivation = $5,
    step_errors = $6,
    feedback = $7,
    iteration = $8,
    error_message = $9,
    started_at = $10,
    completed_at = $11,
    feedback_count = $12
WHERE id = $13`
	input, stepErrors, feedback, err := encodeRunJSON(run)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(
		ctx,
		db.Rebind(r.Dialect, query),
		run.Status,
		input,
		run.Insight,
		run.Plan,
		run.Motivation,
		stepErrors,
		feedback,
		run.Iteration,
		nullString(run.ErrorMessage),
		nullTime(run.StartedAt),
		nullTime(run.CompletedAt),
		len(run.Feedback),
		run.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepo) SaveFeedback(ctx context.Context, run Run, prevFeedback int) (bool, error) {
	const query = `
UPDATE coaching_runs
SET status = $1,
    input = $2,
    feedback = $3,
    feedback_count = $4,
    started_at = $5,
    completed_at = $6
WHERE id = $7 AND status = $8 AND iteration = $9 AND feedback_count = $10`
	input, _, feedback, err := encodeRunJSON(run)
	if err != nil {
		return false, err
	}
	res, err := r.DB.ExecContext(
		ctx,
		db.Rebind(r.Dialect, query),
		run.Status,
		input,
		feedback,
		len(run.Feedback),
		nullTime(run.StartedAt),
		nullTime(run.CompletedAt),
		run.ID,
		StatusCompleted,
		run.Iteration,
		prevFeedback,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, run.ID); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *SQLRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT ` + runColumns + `
FROM coaching_runs
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, db.Rebind(r.Dialect, query), userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var input, stepErrors, feedback, errorMessage sql.NullString
	var startedAt, completedAt sql.NullTime
	if err := row.Scan(
		&run.ID,
		&run.UserID,
		&run.CheckInID,
		&run.Status,
		&input,
		&run.Insight,
		&run.Plan,
		&run.Motivation,
		&stepErrors,
		&feedback,
		&run.Iteration,
		&errorMessage,
		&run.CreatedAt,
		&startedAt,
		&completedAt,
	); err != nil {
		return Run{}, err
	}
	run.CreatedAt = run.CreatedAt.UTC()
	run.ErrorMessage = errorMessage.String
	if startedAt.Valid {
		t := startedAt.Time.UTC()
		run.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		run.CompletedAt = &t
	}
	for name, pair := range map[string]struct {
		raw  sql.NullString
		dest any
	}{
		"input":       {input, &run.Input},
		"step_errors": {stepErrors, &run.StepErrors},
		"feedback":    {feedback, &run.Feedback},
	} {
		if !pair.raw.Valid || pair.raw.String == "" {
			continue
		}
		if err := json.Unmarshal([]byte(pair.raw.String), pair.dest); err != nil {
			return Run{}, fmt.Errorf("coaching run %s %s: %w", run.ID, name, err)
		}
	}
	return run, nil
}

func encodeRunJSON(run Run) (input, stepErrors, feedback sql.NullString, err error) {
	if input, err = jsonColumn(run.Input); err != nil {
		return
	}
	if len(run.StepErrors) > 0 {
		if stepErrors, err = jsonColumn(run.StepErrors); err != nil {
			return
		}
	}
	if len(run.Feedback) > 0 {
		feedback, err = jsonColumn(run.Feedback)
	}
	return
}

func jsonColumn(v any) (sql.NullString, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
