// Package notify delivers customer and staff emails outside the request path.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gopkg.in/gomail.v2"

	"github.com/readers-haven/api/internal/config"
)

// Message is a single outgoing email.
type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
}

// Notifier delivers a message. Satisfied by *Mailer; narrow interface for testability.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer sends messages over SMTP. With no SMTP server configured it only logs.
type Mailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

// NewMailer builds a Mailer from SMTP settings.
func NewMailer(cfg config.SMTPConfig) *Mailer {
	if !cfg.Enabled() {
		log.Println("WARN: SMTP not configured, emails will only be logged")
		return &Mailer{from: cfg.From, fromName: cfg.FromName}
	}
	return &Mailer{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:     cfg.From,
		fromName: cfg.FromName,
	}
}

// Send delivers msg. gomail has no context support, so cancellation is only
// honoured before dialing.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("notify: recipient is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.dialer == nil {
		log.Printf("email disabled, skipped %q to %s", msg.Subject, msg.To)
		return nil
	}

	gm := gomail.NewMessage()
	gm.SetAddressHeader("From", m.from, m.fromName)
	if msg.ToName != "" {
		gm.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		gm.SetHeader("To", msg.To)
	}
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTMLBody)

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("send %q to %s: %w", msg.Subject, msg.To, err)
	}
	log.Printf("email sent: %q to %s", msg.Subject, msg.To)
	return nil
}
