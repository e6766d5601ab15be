package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendGridMailer struct {
	client *sendgrid.Client
}

func NewSendGrid(apiKey string) *sendGridMailer {
	return &sendGridMailer{client: sendgrid.NewSendClient(apiKey)}
}

func (s *sendGridMailer) Send(ctx context.Context, from, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return nil
	}
	msg := mail.NewSingleEmail(mail.NewEmail("PTO Tracker", from), subject, mail.NewEmail("", to), body, "")
	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send failed: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
