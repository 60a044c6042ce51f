package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"tour-booking-api/internal/logger"
)

type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGrid sends plain text email through the SendGrid v3 API.
type SendGrid struct {
	client mailSender
	from   *mail.Email
}

func NewSendGrid(apiKey, fromName, fromAddress string) *SendGrid {
	return &SendGrid{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromAddress),
	}
}

func (s *SendGrid) Notify(ctx context.Context, recipient, subject, body string) error {
	message := mail.NewSingleEmail(s.from, subject, mail.NewEmail("", recipient), body, "")

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("email rejected with status %d: %s", response.StatusCode, response.Body)
	}

	logger.Debug("Email sent",
		zap.String("recipient", recipient),
		zap.Int("status_code", response.StatusCode),
		zap.String("event", "email_sent"),
	)
	return nil
}
