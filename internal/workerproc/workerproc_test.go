package workerproc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"fitflow-backend/internal/coaching"
	"fitflow-backend/internal/queue"
)

type recordingProcessor struct {
	runIDs []string
	err    error
}

func (p *recordingProcessor) ProcessRun(ctx context.Context, runID string) error {
	_ = ctx
	p.runIDs = append(p.runIDs, runID)
	return p.err
}

func encode(t *testing.T, msg queue.Message) string {
	t.Helper()
	body, err := queue.EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(body)
}

func TestParseMessageErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want func(error) bool
	}{
		{"empty", "  ", func(err error) bool { _, ok := err.(ErrEmptyBody); return ok }},
		{"bad json", "{nope", func(err error) bool { _, ok := err.(ErrDecode); return ok }},
		{"missing run", `{"requestId":"req-1"}`, func(err error) bool {
			e, ok := err.(ErrMissingRunID)
			return ok && e.RequestID == "req-1"
		}},
		{"future version", `{"runId":"r1","version":99}`, func(err error) bool { _, ok := err.(ErrUnsupportedVersion); return ok }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseMessage(tt.body)
			if err == nil || !tt.want(err) {
				t.Fatalf("unexpected error %T %v", err, err)
			}
			if !Unrecoverable(err) {
				t.Fatalf("%v should be unrecoverable", err)
			}
		})
	}
}

func TestComputeMeta(t *testing.T) {
	if meta := ComputeMeta(""); meta.BodyLen != 0 || meta.BodySHA != "" {
		t.Fatalf("unexpected meta for empty body: %+v", meta)
	}
	meta := ComputeMeta("abc")
	if meta.BodyLen != 3 || len(meta.BodySHA) != 64 {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

func TestHandleMessageProcessesRun(t *testing.T) {
	p := &recordingProcessor{}
	body := encode(t, queue.Message{RunID: "run-1", RequestID: "req-1", Version: queue.MessageVersion})

	if err := HandleMessage(context.Background(), p, body); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(p.runIDs) != 1 || p.runIDs[0] != "run-1" {
		t.Fatalf("processed %v", p.runIDs)
	}
}

func TestHandleMessageReusesParsedMessage(t *testing.T) {
	p := &recordingProcessor{}
	ctx := WithParsedMessage(context.Background(), queue.Message{RunID: "from-ctx"})

	if err := HandleMessage(ctx, p, "ignored"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(p.runIDs) != 1 || p.runIDs[0] != "from-ctx" {
		t.Fatalf("processed %v", p.runIDs)
	}
}

func TestHandleMessageWrapsProcessError(t *testing.T) {
	p := &recordingProcessor{err: errors.New("model down")}
	body := encode(t, queue.Message{RunID: "run-2", RequestID: "req-2"})

	err := HandleMessage(context.Background(), p, body)
	var procErr ErrProcess
	if !errors.As(err, &procErr) {
		t.Fatalf("expected ErrProcess, got %T %v", err, err)
	}
	if procErr.RunID != "run-2" || procErr.RequestID != "req-2" {
		t.Fatalf("unexpected fields: %+v", procErr)
	}
	if Unrecoverable(err) {
		t.Fatalf("transient failure should be retried")
	}
}

func TestUnrecoverableMissingRun(t *testing.T) {
	p := &recordingProcessor{err: fmt.Errorf("claim: %w", coaching.ErrNotFound)}
	body := encode(t, queue.Message{RunID: "gone"})

	err := HandleMessage(context.Background(), p, body)
	if !Unrecoverable(err) {
		t.Fatalf("missing run should be unrecoverable: %v", err)
	}
}

func TestHandleMessageNilProcessor(t *testing.T) {
	if err := HandleMessage(context.Background(), nil, "{}"); err == nil {
		t.Fatalf("expected error")
	}
}
