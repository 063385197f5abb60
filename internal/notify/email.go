package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier sends plain-text mail over SMTP. Staff notifications without
// a recipient go to the configured staff address.
type EmailNotifier struct {
	from       string
	staffEmail string
	sender     mailSender
}

func NewEmailNotifier(host string, port int, username, password, from, staffEmail string) *EmailNotifier {
	return &EmailNotifier{
		from:       from,
		staffEmail: staffEmail,
		sender:     gomail.NewDialer(host, port, username, password),
	}
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) Notify(ctx context.Context, n Notification) error {
	to := n.To
	if to == "" && n.Audience == AudienceStaff {
		to = e.staffEmail
	}
	if to == "" {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", n.Subject)
	m.SetBody("text/plain", n.Body)

	// gomail has no context support; give up waiting when ctx expires.
	done := make(chan error, 1)
	go func() { done <- e.sender.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
