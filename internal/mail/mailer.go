// Package mail delivers the temporary-code emails. The Mailer interface
// keeps the access service independent of the delivery channel; the SMTP
// implementation carries a bounded dial timeout and a small retry count so a
// flaky relay degrades into a clean Transient error instead of a hang.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Mailer sends a plain-text email to a single recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPConfig configures the SMTP mailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Timeout  time.Duration
	Attempts int
}

// SMTPMailer sends mail over SMTP with STARTTLS when the server offers it.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTP constructs an SMTPMailer, filling in defaults for port (587),
// timeout (10s), and attempts (3).
func NewSMTP(cfg SMTPConfig) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.FromName == "" {
		cfg.FromName = "LIFT Pisa"
	}
	return &SMTPMailer{cfg: cfg}
}

// Send delivers the message, retrying up to Attempts times with a short
// backoff. It returns the last error once attempts are exhausted and honors
// ctx cancellation between attempts.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := m.build(to, subject, body)

	var lastErr error
	for attempt := 1; attempt <= m.cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = m.deliver(to, msg); lastErr == nil {
			return nil
		}
		log.Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Str("host", m.cfg.Host).
			Msg("smtp delivery failed")
		if attempt < m.cfg.Attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
	}
	return fmt.Errorf("smtp: delivery to %s failed after %d attempts: %w", to, m.cfg.Attempts, lastErr)
}

func (m *SMTPMailer) build(to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", m.cfg.FromName, m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func (m *SMTPMailer) deliver(to string, msg []byte) error {
	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprintf("%d", m.cfg.Port))
	conn, err := net.DialTimeout("tcp", addr, m.cfg.Timeout)
	if err != nil {
		return err
	}
	// The deadline covers the whole SMTP conversation, not just the dial.
	_ = conn.SetDeadline(time.Now().Add(m.cfg.Timeout))

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return err
		}
	}
	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(m.cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// LogMailer writes the message to the structured log instead of sending it.
// Used when no SMTP host is configured (local development, tests).
type LogMailer struct{}

// Send logs the message and always succeeds.
func (LogMailer) Send(_ context.Context, to, subject, body string) error {
	log.Info().
		Str("to", to).
		Str("subject", subject).
		Int("body_len", len(body)).
		Msg("mail suppressed (no SMTP configured)")
	return nil
}
