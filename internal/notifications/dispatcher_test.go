package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fitflow-backend/internal/checkins"
	"fitflow-backend/internal/coaching"
	"fitflow-backend/internal/recovery"
)

type recordingSink struct {
	name string
	err  error

	mu  sync.Mutex
	got []Notification
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(ctx context.Context, ns []Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, ns...)
	return s.err
}

type failingRepo struct{ MemoryRepo }

func (r *failingRepo) Create(ctx context.Context, n Notification) error {
	return errors.New("disk full")
}

func fixedNow() time.Time { return time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC) }

func TestDispatchPersistsThenDelivers(t *testing.T) {
	repo := NewMemoryRepo()
	ok := &recordingSink{name: "ok"}
	bad := &recordingSink{name: "bad", err: errors.New("boom")}
	d := &Dispatcher{Repo: repo, Sinks: []Sink{ok, bad}, Now: fixedNow}

	stored, err := d.Dispatch(context.Background(), []Notification{
		{UserID: "user-1", Kind: KindMotivation, Title: "a", Message: "b", Priority: PriorityLow},
	})
	if !errors.Is(err, ErrDelivery) {
		t.Fatalf("expected ErrDelivery, got %v", err)
	}
	if len(stored) != 1 || stored[0].ID == "" || !stored[0].CreatedAt.Equal(fixedNow()) {
		t.Fatalf("unexpected stored notifications: %+v", stored)
	}
	if len(ok.got) != 1 || ok.got[0].ID != stored[0].ID {
		t.Fatalf("healthy sink should still deliver: %+v", ok.got)
	}

	items, err := repo.ListByUser(context.Background(), "user-1", ListOptions{})
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("sink failure must not roll back the log: %+v", items)
	}
}

func TestDispatchPersistFailureSkipsSinks(t *testing.T) {
	sink := &recordingSink{name: "ok"}
	d := &Dispatcher{Repo: &failingRepo{}, Sinks: []Sink{sink}}
	if _, err := d.Dispatch(context.Background(), []Notification{{UserID: "user-1"}}); err == nil {
		t.Fatalf("expected persist error")
	}
	if len(sink.got) != 0 {
		t.Fatalf("sinks should not run when persistence fails")
	}
}

func TestCheckInRecordedBuildsNotifications(t *testing.T) {
	repo := NewMemoryRepo()
	d := &Dispatcher{Repo: repo, Now: fixedNow}
	err := d.CheckInRecorded(context.Background(), checkins.CheckIn{
		UserID:   "user-1",
		Score:    40,
		MaxLifts: map[string]float64{"bench_press": 235},
		Advisories: []recovery.Advisory{{
			Kind: recovery.KindRestRecommended, Priority: recovery.PriorityHigh,
		}},
	})
	if err != nil {
		t.Fatalf("CheckInRecorded: %v", err)
	}
	items, _ := repo.ListByUser(context.Background(), "user-1", ListOptions{})
	if len(items) != 2 {
		t.Fatalf("expected rest alert and milestone, got %+v", items)
	}
}

func TestRunCompletedSummarizesMotivation(t *testing.T) {
	sink := &recordingSink{name: "ok"}
	d := &Dispatcher{Repo: NewMemoryRepo(), Sinks: []Sink{sink}, Now: fixedNow}
	err := d.RunCompleted(context.Background(), coaching.Run{UserID: "user-1", Motivation: "Go  hit\nthat bench today."})
	if err != nil {
		t.Fatalf("RunCompleted: %v", err)
	}
	if len(sink.got) != 1 || sink.got[0].Kind != KindCoachingReady || sink.got[0].Message != "Go hit that bench today." {
		t.Fatalf("unexpected notification: %+v", sink.got)
	}
}

func TestCheckAddsMotivation(t *testing.T) {
	d := &Dispatcher{
		Repo:    NewMemoryRepo(),
		Now:     fixedNow,
		Builder: Builder{WorkoutHour: 18, Now: at(17, 45), Pick: func(int) int { return 0 }},
	}
	items, err := d.Check(context.Background(), "user-1", 180)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(items) != 2 || items[0].Kind != KindWorkoutReminder || items[1].Kind != KindMotivation {
		t.Fatalf("unexpected items: %+v", items)
	}
	if _, err := d.Check(context.Background(), " ", 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMarkRead(t *testing.T) {
	repo := NewMemoryRepo()
	d := &Dispatcher{Repo: repo, Now: fixedNow}
	stored, err := d.Dispatch(context.Background(), []Notification{{UserID: "user-1", Title: "x"}})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := d.MarkRead(context.Background(), "user-2", stored[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user, got %v", err)
	}
	if err := d.MarkRead(context.Background(), "user-1", stored[0].ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	unread, _ := d.List(context.Background(), "user-1", ListOptions{UnreadOnly: true})
	if len(unread) != 0 {
		t.Fatalf("expected no unread notifications, got %+v", unread)
	}
}
