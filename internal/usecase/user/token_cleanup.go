package user

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tour-booking-api/internal/logger"
	"tour-booking-api/internal/metrics"
)

// StartResetTokenCleanupJob clears expired reset tokens every interval until ctx ends.
func (s *Service) StartResetTokenCleanupJob(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Reset token cleanup job started",
		zap.Duration("interval", interval),
	)

	s.cleanupExpiredResetTokens(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Reset token cleanup job stopped")
			return
		case <-ticker.C:
			s.cleanupExpiredResetTokens(ctx)
		}
	}
}

func (s *Service) cleanupExpiredResetTokens(ctx context.Context) {
	n, err := s.users.ClearExpiredResetTokens(ctx, s.now())
	if err != nil {
		logger.Error("Failed to clear expired reset tokens", zap.Error(err))
		return
	}

	metrics.RecordResetTokensCleared(n)
	logger.Debug("Expired reset tokens cleared",
		zap.Int64("cleared", n),
	)
}
