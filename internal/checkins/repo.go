package checkins

import "context"

// Repo defines persistence operations for check-ins.
type Repo interface {
	Create(ctx context.Context, c CheckIn) error
	Get(ctx context.Context, userID, id string) (CheckIn, error)
	// ListByUser returns newest first.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]CheckIn, error)
}
