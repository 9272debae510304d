package notifications

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]Notification // userID -> notifications
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string][]Notification)}
}

func (r *MemoryRepo) Create(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[n.UserID] = append(r.data[n.UserID], n)
	return nil
}

// ListByUser returns notifications newest first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	items := make([]Notification, 0, len(r.data[userID]))
	for _, n := range r.data[userID] {
		if opts.UnreadOnly && n.Read {
			continue
		}
		items = append(items, n)
	}
	r.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []Notification{}, nil
	}
	end := len(items)
	if opts.Limit > 0 && offset+opts.Limit < end {
		end = offset + opts.Limit
	}
	return items[offset:end], nil
}

func (r *MemoryRepo) MarkRead(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.data[userID]
	for i := range items {
		if items[i].ID == id {
			items[i].Read = true
			return nil
		}
	}
	return ErrNotFound
}
