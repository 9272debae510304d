package notifications

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/go-gomail/gomail"
)

// EmailSink mails high-priority notifications through SMTP.
type EmailSink struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
	// Sender overrides the SMTP dialer, mainly for tests.
	Sender gomail.Sender
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) configured() bool {
	return s.Sender != nil || (s.Host != "" && s.Username != "" && s.Password != "")
}

// Deliver sends one message listing every high-priority notification. Others are skipped.
func (s *EmailSink) Deliver(ctx context.Context, ns []Notification) error {
	urgent := make([]Notification, 0, len(ns))
	for _, n := range ns {
		if n.Priority == PriorityHigh {
			urgent = append(urgent, n)
		}
	}
	if len(urgent) == 0 {
		return nil
	}
	if !s.configured() {
		return errors.New("SMTP configuration missing")
	}
	if strings.TrimSpace(s.To) == "" {
		return errors.New("SMTP recipient missing")
	}

	m := s.buildMessage(urgent)
	done := make(chan error, 1)
	go func() {
		if s.Sender != nil {
			done <- gomail.Send(s.Sender, m)
			return
		}
		port := s.Port
		if port == 0 {
			port = 587
		}
		d := gomail.NewDialer(s.Host, port, s.Username, s.Password)
		done <- d.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send email: %w", ctx.Err())
	}
}

func (s *EmailSink) buildMessage(ns []Notification) *gomail.Message {
	from := s.From
	if from == "" {
		from = s.Username
	}
	subject := "FitFlow: " + ns[0].Title
	if len(ns) > 1 {
		subject = fmt.Sprintf("FitFlow: %d new alerts", len(ns))
	}

	var body strings.Builder
	body.WriteString(`<html><body style="font-family: Arial, sans-serif; line-height: 1.6;">`)
	for _, n := range ns {
		fmt.Fprintf(&body, "<h3>%s</h3><p>%s</p>", html.EscapeString(n.Title), html.EscapeString(n.Message))
	}
	body.WriteString("</body></html>")

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", s.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body.String())
	return m
}
