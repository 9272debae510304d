package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"
)

type stubClient struct {
	mu    sync.Mutex
	calls int
	errs  []error
	resp  Response
}

func (s *stubClient) Complete(ctx context.Context, req Request) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return Response{}, s.errs[i]
	}
	resp := s.resp
	if resp.Text == "" {
		resp.Text = "reply to " + req.Prompt
	}
	return resp, nil
}

func (s *stubClient) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestPlaceholderClientNotConfigured(t *testing.T) {
	_, err := PlaceholderClient{}.Complete(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", fmt.Errorf("nim: %w", ErrTimeout), true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"5xx", &HTTPError{StatusCode: 502}, true},
		{"429", &HTTPError{StatusCode: 429}, true},
		{"4xx", &HTTPError{StatusCode: 400}, false},
		{"auth", ErrAuth, false},
		{"not configured", ErrNotConfigured, false},
		{"reset", errors.New("read tcp: connection reset by peer"), true},
		{"eof", io.ErrUnexpectedEOF, true},
		{"other", errors.New("bad prompt"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRetry(tt.err); got != tt.want {
				t.Fatalf("ShouldRetry(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryingRetriesTransientOnce(t *testing.T) {
	base := &stubClient{errs: []error{&HTTPError{StatusCode: 503}}}
	r := &Retrying{Base: base, Delay: time.Millisecond}

	resp, err := r.Complete(context.Background(), Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != "reply to p" || base.count() != 2 {
		t.Fatalf("resp=%+v calls=%d", resp, base.count())
	}
}

func TestRetryingDoesNotRetryAuth(t *testing.T) {
	base := &stubClient{errs: []error{ErrAuth}}
	r := &Retrying{Base: base, Delay: time.Millisecond}

	if _, err := r.Complete(context.Background(), Request{}); !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	if base.count() != 1 {
		t.Fatalf("calls = %d, want 1", base.count())
	}
}

func TestRetryingHonorsContext(t *testing.T) {
	base := &stubClient{errs: []error{ErrTimeout}}
	r := &Retrying{Base: base, Delay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Complete(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewRetryingNil(t *testing.T) {
	if NewRetrying(nil) != nil {
		t.Fatalf("expected nil for nil base")
	}
}

func TestCachedServesRepeatRequests(t *testing.T) {
	base := &stubClient{}
	c, err := NewCached(base, 4)
	if err != nil {
		t.Fatalf("NewCached: %v", err)
	}
	req := Request{System: "s", Prompt: "p", Temperature: 0.7, MaxTokens: 500}
	for i := 0; i < 3; i++ {
		if _, err := c.Complete(context.Background(), req); err != nil {
			t.Fatalf("Complete: %v", err)
		}
	}
	if base.count() != 1 {
		t.Fatalf("base calls = %d, want 1", base.count())
	}

	req.Temperature = 0.8
	if _, err := c.Complete(context.Background(), req); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if base.count() != 2 || c.Len() != 2 {
		t.Fatalf("calls=%d len=%d", base.count(), c.Len())
	}
}

func TestCachedSkipsFailures(t *testing.T) {
	base := &stubClient{errs: []error{ErrTimeout}}
	c, err := NewCached(base, 0)
	if err != nil {
		t.Fatalf("NewCached: %v", err)
	}
	if _, err := c.Complete(context.Background(), Request{Prompt: "p"}); err == nil {
		t.Fatalf("expected error")
	}
	if c.Len() != 0 {
		t.Fatalf("failure was cached")
	}
	if _, err := c.Complete(context.Background(), Request{Prompt: "p"}); err != nil {
		t.Fatalf("second call: %v", err)
	}
}

func TestRequestHashCoversImages(t *testing.T) {
	a := Request{Prompt: "p", Images: []Image{{MimeType: "image/jpeg", Data: []byte{1, 2}}}}
	b := Request{Prompt: "p", Images: []Image{{MimeType: "image/jpeg", Data: []byte{1, 3}}}}
	if RequestHash(a) == RequestHash(b) {
		t.Fatalf("image bytes should change the hash")
	}
	if RequestHash(a) != RequestHash(a) {
		t.Fatalf("hash not deterministic")
	}
	if RequestHash(Request{System: "ab", Prompt: "c"}) == RequestHash(Request{System: "a", Prompt: "bc"}) {
		t.Fatalf("field boundaries should affect the hash")
	}
}
