package notification

import (
	"context"
	"fmt"
	"strings"

	"GuardianSOS/pkg/logger"

	"go.uber.org/zap"
)

// SMSConfig SMS 通道配置
type SMSConfig struct {
	// "log" 仅打印（开发模式），"twilio" 走 Twilio REST，"disabled" 不发送
	Provider   string `env:"SMS_PROVIDER"`
	AccountSID string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	From       string `env:"TWILIO_FROM"`
	BaseURL    string `env:"TWILIO_BASE_URL"`
}

// SMSSender delivers a text message to a single phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

// NewSMSSender builds the sender selected by cfg.Provider.
func NewSMSSender(cfg SMSConfig) (SMSSender, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "log":
		return LogSMS{}, nil
	case "disabled":
		return DisabledSMS{}, nil
	case "twilio":
		return NewTwilioSMS(cfg, nil)
	default:
		return nil, fmt.Errorf("unsupported sms provider: %s", cfg.Provider)
	}
}

// LogSMS writes the message to the log instead of sending it.
type LogSMS struct{}

func (LogSMS) SendSMS(ctx context.Context, phone, message string) error {
	logger.Info("sms (dev mode)", zap.String("to", phone), zap.String("content", message))
	return nil
}

// DisabledSMS accepts and drops every message.
type DisabledSMS struct{}

func (DisabledSMS) SendSMS(ctx context.Context, phone, message string) error {
	logger.Debug("sms disabled, message dropped", zap.String("to", phone))
	return nil
}
