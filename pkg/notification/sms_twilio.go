package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const defaultTwilioBaseURL = "https://api.twilio.com"

// TwilioSMS sends messages through the Twilio Messages REST resource.
type TwilioSMS struct {
	cfg SMSConfig
	cli *http.Client
}

func NewTwilioSMS(cfg SMSConfig, cli *http.Client) (*TwilioSMS, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return nil, errors.New("twilio sms requires account sid, auth token and from number")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultTwilioBaseURL
	}
	if cli == nil {
		cli = http.DefaultClient
	}
	return &TwilioSMS{cfg: cfg, cli: cli}, nil
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (t *TwilioSMS) SendSMS(ctx context.Context, phone, message string) error {
	form := url.Values{}
	form.Set("To", ToE164KR(phone))
	form.Set("From", t.cfg.From)
	form.Set("Body", message)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", strings.TrimRight(t.cfg.BaseURL, "/"), t.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(t.cfg.AccountSID, t.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.cli.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var te twilioError
		_ = json.NewDecoder(resp.Body).Decode(&te)
		return fmt.Errorf("twilio returned %d: code=%d %s", resp.StatusCode, te.Code, te.Message)
	}
	return nil
}

// ToE164KR converts a domestic Korean mobile number ("010-1234-5678") to
// E.164 ("+821012345678"). Numbers already starting with "+" are returned
// without dashes.
func ToE164KR(phone string) string {
	digits := strings.NewReplacer("-", "", " ", "").Replace(phone)
	if strings.HasPrefix(digits, "+") {
		return digits
	}
	if strings.HasPrefix(digits, "0") {
		return "+82" + digits[1:]
	}
	return digits
}
