package notifier

import (
	"context"
	"time"

	"GuardianSOS/pkg/logger"
	"GuardianSOS/pkg/metrics"
	"GuardianSOS/pkg/notification"

	"go.uber.org/zap"
)

const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"

	DefaultSendTimeout = 10 * time.Second
)

// Mailer is implemented by notification.MailNotification.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Notifier delivers alert messages over SMS and email. Every send is bounded
// by its own timeout so one slow provider cannot stall the fan-out.
type Notifier struct {
	sms     notification.SMSSender
	mail    Mailer
	timeout time.Duration
	metrics *metrics.Metrics
}

func New(sms notification.SMSSender, mail Mailer, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Notifier{sms: sms, mail: mail, timeout: timeout}
}

func (n *Notifier) WithMetrics(m *metrics.Metrics) *Notifier {
	n.metrics = m
	return n
}

func (n *Notifier) SendSMS(ctx context.Context, phone, message string) error {
	if n.sms == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	err := n.sms.SendSMS(ctx, phone, message)
	n.record(ChannelSMS, err)
	if err != nil {
		logger.Warn("sms send failed", zap.String("to", phone), zap.Error(err))
	}
	return err
}

func (n *Notifier) SendEmail(ctx context.Context, to, subject, body string) error {
	if n.mail == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	err := n.mail.SendEmail(ctx, to, subject, body)
	n.record(ChannelEmail, err)
	if err != nil {
		logger.Warn("email send failed", zap.String("to", to), zap.Error(err))
	}
	return err
}

func (n *Notifier) record(channel string, err error) {
	if n.metrics == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	n.metrics.RecordNotification(channel, status)
}
