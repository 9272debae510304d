package notifications

import (
	"context"
	"database/sql"

	"fitflow-backend/internal/shared/storage/db"
)

// SQLRepo implements Repo on Postgres or SQLite.
type SQLRepo struct {
	DB      *sql.DB
	Dialect db.Dialect
}

const notificationColumns = `id, user_id, kind, title, message, priority, action, read, created_at`

func (r *SQLRepo) Create(ctx context.Context, n Notification) error {
	const query = `
INSERT INTO notifications (` + notificationColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.DB.ExecContext(
		ctx,
		db.Rebind(r.Dialect, query),
		n.ID,
		n.UserID,
		string(n.Kind),
		n.Title,
		n.Message,
		n.Priority,
		n.Action,
		n.Read,
		n.CreatedAt.UTC(),
	)
	return err
}

func (r *SQLRepo) ListByUser(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	query := `
SELECT ` + notificationColumns + `
FROM notifications
WHERE user_id = $1`
	if opts.UnreadOnly {
		query += ` AND read = FALSE`
	}
	query += `
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, db.Rebind(r.Dialect, query), userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		var kind string
		if err := rows.Scan(&n.ID, &n.UserID, &kind, &n.Title, &n.Message, &n.Priority, &n.Action, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Kind = Kind(kind)
		n.CreatedAt = n.CreatedAt.UTC()
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *SQLRepo) MarkRead(ctx context.Context, userID, id string) error {
	const query = `
UPDATE notifications
SET read = TRUE
WHERE user_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, db.Rebind(r.Dialect, query), userID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
