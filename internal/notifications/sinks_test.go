package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-gomail/gomail"
	"github.com/gorilla/websocket"
)

func sample() []Notification {
	return []Notification{
		{ID: "n1", UserID: "user-1", Kind: KindPRAlert, Title: "PR ALERT: You're Ready!", Message: "Try 230 lbs", Priority: PriorityHigh},
		{ID: "n2", UserID: "user-1", Kind: KindMotivation, Title: "Daily Motivation", Message: "Lift", Priority: PriorityLow},
	}
}

func TestWebhookPayloads(t *testing.T) {
	tests := []struct {
		kind  string
		check func(t *testing.T, body map[string]any)
	}{
		{WebhookSlack, func(t *testing.T, body map[string]any) {
			text, _ := body["text"].(string)
			if !strings.Contains(text, "[HIGH] *PR ALERT: You're Ready!* Try 230 lbs") {
				t.Fatalf("slack text = %q", text)
			}
		}},
		{WebhookTeams, func(t *testing.T, body map[string]any) {
			if body["@type"] != "MessageCard" || body["themeColor"] != "FF4F6A" {
				t.Fatalf("teams card = %v", body)
			}
		}},
		{WebhookHTTP, func(t *testing.T, body map[string]any) {
			items, _ := body["notifications"].([]any)
			if len(items) != 2 {
				t.Fatalf("http payload = %v", body)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			var got map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Content-Type") != "application/json" {
					t.Errorf("content type = %q", r.Header.Get("Content-Type"))
				}
				_ = json.NewDecoder(r.Body).Decode(&got)
				w.WriteHeader(http.StatusNoContent)
			}))
			defer srv.Close()

			if err := NewWebhookSink(srv.URL, tt.kind).Deliver(context.Background(), sample()); err != nil {
				t.Fatalf("Deliver: %v", err)
			}
			tt.check(t, got)
		})
	}
}

func TestWebhookErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookSink(srv.URL, "").Deliver(context.Background(), sample())
	if err == nil || !strings.Contains(err.Error(), "HTTP 502") {
		t.Fatalf("expected HTTP 502 error, got %v", err)
	}
	if err := NewWebhookSink(srv.URL, "pager").Deliver(context.Background(), sample()); err == nil {
		t.Fatalf("expected unknown type error")
	}
	if err := NewWebhookSink("", WebhookSlack).Deliver(context.Background(), sample()); err != nil {
		t.Fatalf("empty URL should be a no-op, got %v", err)
	}
}

func TestEmailSendsHighPriorityOnly(t *testing.T) {
	var (
		from string
		to   []string
		raw  bytes.Buffer
	)
	sink := &EmailSink{
		From: "coach@fitflow.test",
		To:   "lifter@example.com",
		Sender: gomail.SendFunc(func(f string, t []string, msg io.WriterTo) error {
			from, to = f, t
			_, err := msg.WriteTo(&raw)
			return err
		}),
	}
	if err := sink.Deliver(context.Background(), sample()); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if from != "coach@fitflow.test" || len(to) != 1 || to[0] != "lifter@example.com" {
		t.Fatalf("envelope = %q -> %v", from, to)
	}
	body := raw.String()
	if !strings.Contains(body, "Subject: FitFlow: PR ALERT: You're Ready!") {
		t.Fatalf("subject missing: %s", body)
	}
	if strings.Contains(body, "Daily Motivation") {
		t.Fatalf("low priority notification should not be mailed")
	}
}

func TestEmailSkipsWithoutUrgentItems(t *testing.T) {
	sink := &EmailSink{}
	if err := sink.Deliver(context.Background(), sample()[1:]); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	if err := sink.Deliver(context.Background(), sample()); err == nil {
		t.Fatalf("expected missing SMTP configuration error")
	}
}

func TestHubDeliversToOwner(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, r.URL.Query().Get("user"))
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	dial := func(user string) *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?user="+user, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		t.Cleanup(func() { conn.Close() })
		return conn
	}
	owner := dial("user-1")
	other := dial("user-2")

	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Count() != 2 {
		t.Fatalf("expected 2 clients, got %d", hub.Count())
	}

	if err := hub.Deliver(context.Background(), sample()[:1]); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	owner.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := owner.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Event != "notification" || msg.Data.ID != "n1" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Fatalf("other user should not receive the notification")
	}
}
