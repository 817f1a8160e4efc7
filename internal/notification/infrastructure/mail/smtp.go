// Package mail delivers customer notifications.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dmehra2102/order-fulfillment/internal/notification/domain"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// MaxRetries bounds delivery attempts after the first one.
	MaxRetries uint64
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPSender struct {
	log     *slog.Logger
	cfg     SMTPConfig
	send    sendFunc
	backoff func() backoff.BackOff
}

func NewSMTPSender(log *slog.Logger, cfg SMTPConfig) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 4
	}
	return &SMTPSender{
		log:  log,
		cfg:  cfg,
		send: smtp.SendMail,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			return b
		},
	}
}

// Send retries transient failures with exponential backoff. Permanent SMTP
// rejections (5xx) are not retried.
func (s *SMTPSender) Send(ctx context.Context, n domain.Notification) error {
	msg := s.render(n)
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	attempt := 0
	op := func() error {
		attempt++
		err := s.send(addr, auth, s.cfg.From, []string{n.To.Email}, msg)
		if err == nil {
			return nil
		}
		var tpErr *textproto.Error
		if errors.As(err, &tpErr) && tpErr.Code >= 500 {
			return backoff.Permanent(err)
		}
		s.log.Warn("mail delivery failed", "order_id", n.OrderID, "attempt", attempt, "err", err)
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(s.backoff(), s.cfg.MaxRetries), ctx)
	return backoff.Retry(op, b)
}

func (s *SMTPSender) render(n domain.Notification) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", n.To.Email)
	fmt.Fprintf(&b, "Subject: %s\r\n", n.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	fmt.Fprintf(&b, "X-Order-ID: %s\r\n", n.OrderID)
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(n.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogSender writes notifications to the log instead of sending them. Used
// when no SMTP host is configured.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender { return &LogSender{log: log} }

func (s *LogSender) Send(_ context.Context, n domain.Notification) error {
	s.log.Info("notification", "kind", n.Kind, "order_id", n.OrderID, "to", n.To.Email, "subject", n.Subject)
	return nil
}
