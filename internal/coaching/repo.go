package coaching

import (
	"context"
	"time"
)

// Repo defines persistence operations for coaching runs.
type Repo interface {
	Create(ctx context.Context, run Run) error
	GetByID(ctx context.Context, runID string) (Run, error)
	// Claim moves a queued run to processing. It reports false when another worker got there first.
	Claim(ctx context.Context, runID string, startedAt time.Time) (bool, error)
	Update(ctx context.Context, run Run) error
	// SaveFeedback stores run only while it is still completed at run.Iteration with
	// prevFeedback feedback entries. It reports false when another request changed it first.
	SaveFeedback(ctx context.Context, run Run, prevFeedback int) (bool, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Run, error)
}
