package notification

import (
	"context"
	"crypto/tls"
	"errors"

	"GuardianSOS/pkg/logger"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// MailConfig SMTP 配置
type MailConfig struct {
	Host     string `env:"MAIL_HOST"`
	Username string `env:"MAIL_USERNAME"`
	Password string `env:"MAIL_PASSWORD"`
	Port     int64  `env:"MAIL_PORT"`
	From     string `env:"MAIL_FROM"`
}

// MailDialer is the part of gomail.Dialer the notifier needs, swapped out in tests.
type MailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type MailNotification struct {
	cfg    MailConfig
	dialer MailDialer
}

// NewMailNotification returns a mail sender. With no Host configured the
// sender only logs, mirroring the SMS dev mode.
func NewMailNotification(cfg MailConfig) *MailNotification {
	m := &MailNotification{cfg: cfg}
	if cfg.Host != "" {
		d := gomail.NewDialer(cfg.Host, int(cfg.Port), cfg.Username, cfg.Password)
		d.TLSConfig = &tls.Config{ServerName: cfg.Host}
		m.dialer = d
	}
	return m
}

// WithDialer replaces the SMTP dialer.
func (m *MailNotification) WithDialer(d MailDialer) *MailNotification {
	m.dialer = d
	return m
}

// SendEmail sends a plain text mail. gomail has no context support, so the
// send runs in its own goroutine and ctx only bounds how long we wait.
func (m *MailNotification) SendEmail(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return errors.New("empty recipient")
	}
	if m.dialer == nil {
		logger.Info("email (dev mode)", zap.String("to", to), zap.String("subject", subject))
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(msg) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
