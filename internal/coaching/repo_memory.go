package coaching

import (
	"context"
	"sort"
	"sync"
	"time"

	"fitflow-backend/internal/prompts"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	runs map[string]Run
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{runs: make(map[string]Run)}
}

func (r *MemoryRepo) Create(ctx context.Context, run Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = cloneRun(run)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, runID string) (Run, error) {
	if err := ctx.Err(); err != nil {
		return Run{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[runID]
	if !ok {
		return Run{}, ErrNotFound
	}
	return cloneRun(run), nil
}

func (r *MemoryRepo) Claim(ctx context.Context, runID string, startedAt time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return false, ErrNotFound
	}
	if run.Status != StatusQueued {
		return false, nil
	}
	run.Status = StatusProcessing
	run.StartedAt = &startedAt
	r.runs[runID] = run
	return true, nil
}

func (r *MemoryRepo) Update(ctx context.Context, run Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		return ErrNotFound
	}
	r.runs[run.ID] = cloneRun(run)
	return nil
}

func (r *MemoryRepo) SaveFeedback(ctx context.Context, run Run, prevFeedback int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.runs[run.ID]
	if !ok {
		return false, ErrNotFound
	}
	if cur.Status != StatusCompleted || cur.Iteration != run.Iteration || len(cur.Feedback) != prevFeedback {
		return false, nil
	}
	r.runs[run.ID] = cloneRun(run)
	return true, nil
}

// ListByUser returns runs newest first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Run, 0)
	for _, run := range r.runs {
		if run.UserID == userID {
			out = append(out, cloneRun(run))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []Run{}, nil
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

func cloneRun(run Run) Run {
	if run.Feedback != nil {
		run.Feedback = append([]prompts.Feedback(nil), run.Feedback...)
	}
	if run.StepErrors != nil {
		steps := make(map[string]string, len(run.StepErrors))
		for k, v := range run.StepErrors {
			steps[k] = v
		}
		run.StepErrors = steps
	}
	if run.Input.Feedback != nil {
		run.Input.Feedback = append([]prompts.Feedback(nil), run.Input.Feedback...)
	}
	return run
}
