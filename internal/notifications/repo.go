package notifications

import "context"

// Repo is the append-only notification log. MarkRead is the only mutation.
type Repo interface {
	Create(ctx context.Context, n Notification) error
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}
