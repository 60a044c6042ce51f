package notify

import (
	"context"

	"go.uber.org/zap"

	"tour-booking-api/internal/logger"
)

// LogNotifier writes messages to the log instead of sending them. For development.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Notify(_ context.Context, recipient, subject, body string) error {
	logger.Info("Email not sent, logged instead",
		zap.String("recipient", recipient),
		zap.String("subject", subject),
		zap.String("body", body),
		zap.String("event", "email_logged"),
	)
	return nil
}
