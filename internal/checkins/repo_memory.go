package checkins

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]CheckIn // userID -> check-ins
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string][]CheckIn)}
}

func (r *MemoryRepo) Create(ctx context.Context, c CheckIn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[c.UserID] = append(r.data[c.UserID], c)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, userID, id string) (CheckIn, error) {
	if err := ctx.Err(); err != nil {
		return CheckIn{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.data[userID] {
		if c.ID == id {
			return c, nil
		}
	}
	return CheckIn{}, ErrNotFound
}

// ListByUser returns check-ins for a user, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]CheckIn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	items := make([]CheckIn, len(r.data[userID]))
	copy(items, r.data[userID])
	r.mu.RUnlock()

	if offset >= len(items) {
		return []CheckIn{}, nil
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end], nil
}
