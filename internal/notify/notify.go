// Package notify delivers account emails.
package notify

import (
	"context"
	"fmt"

	"tour-booking-api/internal/config"
)

const (
	ProviderLog      = "log"
	ProviderSendGrid = "sendgrid"
)

// Notifier delivers one message to one recipient. A nil error means the
// provider accepted the message.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, body string) error
}

// New picks the provider configured in cfg.
func New(cfg config.MailConfig) (Notifier, error) {
	switch cfg.Provider {
	case ProviderSendGrid:
		return NewSendGrid(cfg.SendGridAPIKey, cfg.FromName, cfg.FromAddress), nil
	case ProviderLog, "":
		return NewLogNotifier(), nil
	default:
		return nil, fmt.Errorf("unsupported MAIL_PROVIDER %q", cfg.Provider)
	}
}
