package checkins

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"fitflow-backend/internal/recovery"
	"fitflow-backend/internal/shared/storage/db"
)

// SQLRepo implements Repo on Postgres or SQLite.
type SQLRepo struct {
	DB      *sql.DB
	Dialect db.Dialect
}

const checkinColumns = `id, user_id, checkin_date, workout_done, workout_type, max_lifts, recent_lifts,
    protein_grams, calories, water_oz, body_weight, sleep_hours, soreness, energy, score, advisories, created_at`

func (r *SQLRepo) Create(ctx context.Context, c CheckIn) error {
	const query = `
INSERT INTO checkins (` + checkinColumns + `
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	maxLifts, err := marshalJSON(c.MaxLifts)
	if err != nil {
		return err
	}
	recentLifts, err := marshalJSON(c.RecentLifts)
	if err != nil {
		return err
	}
	advisories, err := marshalJSON(c.Advisories)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(
		ctx,
		db.Rebind(r.Dialect, query),
		c.ID,
		c.UserID,
		c.Date,
		c.WorkoutDone,
		c.WorkoutType,
		maxLifts,
		recentLifts,
		c.ProteinGrams,
		c.Calories,
		c.WaterOz,
		c.BodyWeight,
		c.SleepHours,
		c.Soreness,
		string(c.Energy),
		c.Score,
		advisories,
		c.CreatedAt.UTC(),
	)
	return err
}

func (r *SQLRepo) Get(ctx context.Context, userID, id string) (CheckIn, error) {
	const query = `
SELECT ` + checkinColumns + `
FROM checkins
WHERE user_id = $1 AND id = $2
LIMIT 1`
	c, err := scanCheckIn(r.DB.QueryRowContext(ctx, db.Rebind(r.Dialect, query), userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CheckIn{}, ErrNotFound
		}
		return CheckIn{}, err
	}
	return c, nil
}

func (r *SQLRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]CheckIn, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 50
	}
	const query = `
SELECT ` + checkinColumns + `
FROM checkins
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, db.Rebind(r.Dialect, query), userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CheckIn, 0)
	for rows.Next() {
		c, err := scanCheckIn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckIn(row rowScanner) (CheckIn, error) {
	var c CheckIn
	var maxLifts, recentLifts, advisories sql.NullString
	var energy string
	if err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Date,
		&c.WorkoutDone,
		&c.WorkoutType,
		&maxLifts,
		&recentLifts,
		&c.ProteinGrams,
		&c.Calories,
		&c.WaterOz,
		&c.BodyWeight,
		&c.SleepHours,
		&c.Soreness,
		&energy,
		&c.Score,
		&advisories,
		&c.CreatedAt,
	); err != nil {
		return CheckIn{}, err
	}
	c.Energy = recovery.EnergyLevel(energy)
	c.CreatedAt = c.CreatedAt.UTC()
	if err := unmarshalJSON(maxLifts, &c.MaxLifts); err != nil {
		return CheckIn{}, fmt.Errorf("checkin %s max_lifts: %w", c.ID, err)
	}
	if err := unmarshalJSON(recentLifts, &c.RecentLifts); err != nil {
		return CheckIn{}, fmt.Errorf("checkin %s recent_lifts: %w", c.ID, err)
	}
	if err := unmarshalJSON(advisories, &c.Advisories); err != nil {
		return CheckIn{}, fmt.Errorf("checkin %s advisories: %w", c.ID, err)
	}
	return c, nil
}

func marshalJSON(v any) (sql.NullString, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	if string(raw) == "null" {
		return sql.NullString{}, nil
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func unmarshalJSON(raw sql.NullString, dest any) error {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw.String), dest)
}
