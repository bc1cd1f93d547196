package email

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"

	"blogpp/config"
)

// Sender delivers a plain-text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EmailService sends mail over SMTP.
type EmailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService(cfg config.SMTP) *EmailService {
	return &EmailService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

func (e *EmailService) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return errors.New("no recipient provided")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	// gomail has no context support; run the dial in the background and
	// give up waiting once ctx is done.
	done := make(chan error, 1)
	go func() { done <- e.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email, %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NopSender drops every message. Used when no SMTP host is configured.
type NopSender struct{}

func (NopSender) Send(context.Context, string, string, string) error { return nil }
