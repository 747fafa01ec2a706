// Package delivery sends account messages by mail, either directly or
// through an asynq queue.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

type Mail struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Retries  int
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer retries transient failures with a linear backoff.
type SMTPMailer struct {
	cfg     SMTPConfig
	send    sendFunc
	backoff time.Duration
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail, backoff: time.Second}
}

func (m *SMTPMailer) Send(ctx context.Context, mail Mail) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	msg := m.compose(mail)

	var err error
	for attempt := 0; attempt <= m.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * m.backoff):
			}
		}
		if err = m.send(addr, auth, m.cfg.From, []string{mail.To}, msg); err == nil {
			return nil
		}
	}
	return fmt.Errorf("send mail to %s after %d attempts: %w", mail.To, m.cfg.Retries+1, err)
}

func (m *SMTPMailer) compose(mail Mail) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", mail.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mail.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(mail.Body)
	return []byte(b.String())
}

// LogMailer writes mail to the log instead of sending it. Development only.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, mail Mail) error {
	m.logger.Info("mail (log driver)", "to", mail.To, "subject", mail.Subject, "body", mail.Body)
	return nil
}
