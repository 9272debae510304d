package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"fitflow-backend/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

// Retrying retries a transient failure once after a short delay.
type Retrying struct {
	Base  Client
	Delay time.Duration
}

// NewRetrying wraps base. A nil base yields nil.
func NewRetrying(base Client) Client {
	if base == nil {
		return nil
	}
	return &Retrying{Base: base, Delay: retryBaseDelay}
}

func (r *Retrying) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := r.Base.Complete(ctx, req)
	if err == nil || !ShouldRetry(err) {
		return resp, err
	}

	telemetry.Warn("llm.retry", map[string]any{
		"attempt": 1,
		"model":   req.Model,
		"error":   err.Error(),
	})
	select {
	case <-time.After(r.Delay):
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
	return r.Base.Complete(ctx, req)
}

// ShouldRetry reports whether err looks transient: timeouts, 5xx, dropped connections.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuth) || errors.Is(err, ErrNotConfigured) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == 429
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}
	return false
}
