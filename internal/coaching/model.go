package coaching

import (
	"errors"
	"time"

	"fitflow-backend/internal/prompts"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// MaxIterations bounds how many times feedback can re-run the pipeline.
const MaxIterations = 3

const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"

	AdjustReduceVolume      = "reduce_volume"
	AdjustIncreaseIntensity = "increase_intensity"
)

var (
	ErrNotFound         = errors.New("coaching run not found")
	ErrInvalidInput     = errors.New("invalid coaching request")
	ErrNoCheckIn        = errors.New("no check-in to coach from")
	ErrRunNotReady      = errors.New("coaching run is not completed")
	ErrRunFinalized     = errors.New("coaching run is finalized")
	ErrRunChanged       = errors.New("coaching run changed while saving feedback")
	ErrQueueUnavailable = errors.New("coaching queue unavailable")
)

// Run is one execution of the coaching pipeline and its feedback iterations.
type Run struct {
	ID           string             `json:"id"`
	UserID       string             `json:"userId"`
	CheckInID    string             `json:"checkinId,omitempty"`
	Status       string             `json:"status"`
	Input        prompts.Day        `json:"input"`
	Insight      string             `json:"insight"`
	Plan         string             `json:"plan"`
	Motivation   string             `json:"motivation"`
	StepErrors   map[string]string  `json:"stepErrors,omitempty"`
	Feedback     []prompts.Feedback `json:"feedback,omitempty"`
	Iteration    int                `json:"iteration"`
	ErrorMessage string             `json:"errorMessage,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	StartedAt    *time.Time         `json:"startedAt,omitempty"`
	CompletedAt  *time.Time         `json:"completedAt,omitempty"`
}

// Finalized reports whether the latest feedback accepted the plan or the iteration budget is spent.
func (r Run) Finalized() bool {
	n := len(r.Feedback)
	if n == 0 {
		return false
	}
	last := r.Feedback[n-1]
	if last.Iteration < r.Iteration {
		return false
	}
	return last.Adjustment == "" || r.Iteration >= MaxIterations
}

// adjustmentFor maps feedback to a plan change. An empty result accepts the plan.
func adjustmentFor(sentiment string, tooEasy bool) string {
	switch {
	case sentiment == SentimentNegative:
		return AdjustReduceVolume
	case sentiment == SentimentPositive && tooEasy:
		return AdjustIncreaseIntensity
	default:
		return ""
	}
}
