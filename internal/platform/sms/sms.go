// Package sms sends text messages through Twilio.
package sms

import (
	"context"
	"log/slog"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"ptotracker/internal/domain/notifications"
	"ptotracker/internal/domain/staff"
	"ptotracker/internal/platform/config"
)

type noopSender struct{}

func (noopSender) SendSMS(ctx context.Context, to, body string) error {
	slog.Debug("sms disabled, dropping message", "to", to)
	return nil
}

type twilioSender struct {
	client *twilio.RestClient
	from   string
}

func New(cfg config.Config) notifications.SMSSender {
	if cfg.TwilioSID == "" || cfg.TwilioToken == "" || cfg.TwilioFrom == "" {
		return noopSender{}
	}
	return &twilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioSID,
			Password: cfg.TwilioToken,
		}),
		from: cfg.TwilioFrom,
	}
}

func (s *twilioSender) SendSMS(ctx context.Context, to, body string) error {
	if strings.TrimSpace(to) == "" {
		return nil
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(E164(to))
	params.SetFrom(s.from)
	params.SetBody(body)
	_, err := s.client.Api.CreateMessage(params)
	return err
}

// E164 turns a stored ten-digit US number back into +1 form.
func E164(phone string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	normalized := staff.NormalizePhone(phone)
	if len(normalized) == 10 {
		return "+1" + normalized
	}
	return normalized
}
