package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fitflow-backend/internal/checkins"
	"fitflow-backend/internal/coaching"
	"fitflow-backend/internal/shared/metrics"
	"fitflow-backend/internal/shared/telemetry"
)

// ErrDelivery wraps sink failures. The notifications are already persisted when it is returned.
var ErrDelivery = errors.New("notification delivery failed")

// Sink delivers persisted notifications to one channel.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ns []Notification) error
}

// Dispatcher persists notifications, then fans them out to every sink.
type Dispatcher struct {
	Repo    Repo
	Sinks   []Sink
	Builder Builder
	Now     func() time.Time
	// SinkTimeout bounds each sink's delivery. Zero means 10s.
	SinkTimeout time.Duration
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

// Dispatch assigns ids, appends ns to the log and delivers them. Persistence errors abort
// before any sink runs; sink errors are logged, counted and returned wrapped in ErrDelivery.
func (d *Dispatcher) Dispatch(ctx context.Context, ns []Notification) ([]Notification, error) {
	if len(ns) == 0 {
		return nil, nil
	}
	stored := make([]Notification, 0, len(ns))
	for _, n := range ns {
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = d.now()
		}
		if d.Repo != nil {
			if err := d.Repo.Create(ctx, n); err != nil {
				return stored, fmt.Errorf("persist notification: %w", err)
			}
		}
		stored = append(stored, n)
	}

	timeout := d.SinkTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	var g errgroup.Group
	for _, sink := range d.Sinks {
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if err := sink.Deliver(sctx, stored); err != nil {
				metrics.IncNotificationFailed(sink.Name())
				telemetry.Warn("notification.delivery_failed", map[string]any{
					"sink":  sink.Name(),
					"count": len(stored),
					"error": err.Error(),
				})
				return fmt.Errorf("%w: %s: %v", ErrDelivery, sink.Name(), err)
			}
			metrics.IncNotificationDelivered(sink.Name())
			return nil
		})
	}
	err := g.Wait()
	telemetry.Info("notification.dispatched", map[string]any{
		"user_id": stored[0].UserID,
		"count":   len(stored),
		"sinks":   len(d.Sinks),
	})
	return stored, err
}

// CheckInRecorded turns a check-in's advisories and milestones into notifications.
func (d *Dispatcher) CheckInRecorded(ctx context.Context, c checkins.CheckIn) error {
	_, err := d.Dispatch(ctx, d.Builder.ForCheckIn(c))
	return err
}

// RunCompleted tells the user their coaching plan is ready.
func (d *Dispatcher) RunCompleted(ctx context.Context, run coaching.Run) error {
	n := Notification{
		UserID:   run.UserID,
		Kind:     KindCoachingReady,
		Title:    "Your Coaching Plan Is Ready",
		Message:  summary(run.Motivation, 160),
		Priority: PriorityMedium,
		Action:   ActionViewCoachingRun,
	}
	if n.Message == "" {
		n.Message = "Open the app to see today's insights and plan."
	}
	_, err := d.Dispatch(ctx, []Notification{n})
	return err
}

// Check builds the reminders and motivation due now for userID and dispatches them.
func (d *Dispatcher) Check(ctx context.Context, userID string, bodyWeight float64) ([]Notification, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	ns := d.Builder.Reminders(userID, bodyWeight)
	ns = append(ns, d.Builder.Motivation(userID))
	return d.Dispatch(ctx, ns)
}

// List returns the user's notifications newest first.
func (d *Dispatcher) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	if d.Repo == nil {
		return []Notification{}, nil
	}
	return d.Repo.ListByUser(ctx, userID, opts)
}

func (d *Dispatcher) MarkRead(ctx context.Context, userID, id string) error {
	if d.Repo == nil || strings.TrimSpace(id) == "" {
		return ErrNotFound
	}
	return d.Repo.MarkRead(ctx, userID, id)
}

func summary(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= limit {
		return text
	}
	cut := strings.LastIndex(text[:limit], " ")
	if cut <= 0 {
		cut = limit
	}
	return text[:cut] + "..."
}
