package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	WebhookSlack = "slack"
	WebhookTeams = "teams"
	WebhookHTTP  = "http"
)

// WebhookSink posts notifications to a Slack, Teams or generic JSON endpoint.
type WebhookSink struct {
	URL    string
	Type   string
	Client *http.Client
}

func NewWebhookSink(url, kind string) *WebhookSink {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = WebhookHTTP
	}
	return &WebhookSink{
		URL:    strings.TrimSpace(url),
		Type:   kind,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Deliver(ctx context.Context, ns []Notification) error {
	if s.URL == "" || len(ns) == 0 {
		return nil
	}
	var (
		body []byte
		err  error
	)
	switch s.Type {
	case WebhookSlack:
		body, err = json.Marshal(map[string]string{"text": slackText(ns)})
	case WebhookTeams:
		body, err = json.Marshal(map[string]any{
			"@type":      "MessageCard",
			"@context":   "http://schema.org/extensions",
			"themeColor": priorityColor(highestPriority(ns)),
			"summary":    ns[0].Title,
			"title":      fmt.Sprintf("FitFlow: %s", ns[0].Title),
			"text":       teamsText(ns),
		})
	case WebhookHTTP:
		body, err = json.Marshal(map[string]any{"notifications": ns})
	default:
		return fmt.Errorf("unknown webhook type %q", s.Type)
	}
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	return s.post(ctx, body)
}

func (s *WebhookSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func slackText(ns []Notification) string {
	lines := make([]string, 0, len(ns))
	for _, n := range ns {
		lines = append(lines, fmt.Sprintf("%s *%s* %s", priorityLabel(n.Priority), n.Title, n.Message))
	}
	return strings.Join(lines, "\n")
}

func teamsText(ns []Notification) string {
	lines := make([]string, 0, len(ns))
	for _, n := range ns {
		lines = append(lines, fmt.Sprintf("**%s**: %s", n.Title, n.Message))
	}
	return strings.Join(lines, "\n\n")
}

func highestPriority(ns []Notification) string {
	best := PriorityLow
	for _, n := range ns {
		switch {
		case n.Priority == PriorityHigh:
			return PriorityHigh
		case n.Priority == PriorityMedium:
			best = PriorityMedium
		}
	}
	return best
}

func priorityLabel(p string) string {
	switch p {
	case PriorityHigh:
		return "[HIGH]"
	case PriorityMedium:
		return "[MEDIUM]"
	default:
		return "[LOW]"
	}
}

func priorityColor(p string) string {
	switch p {
	case PriorityHigh:
		return "FF4F6A"
	case PriorityMedium:
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
