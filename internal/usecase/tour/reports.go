package tour

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tour-booking-api/internal/cache"
	domainTour "tour-booking-api/internal/domain/tour"
	"tour-booking-api/internal/logger"
	appErrors "tour-booking-api/pkg/errors"
)

const (
	statsKey         = "reports:stats"
	monthlyKeyFormat = "reports:monthly:%d"
	reportsPattern   = "reports:*"
)

// ReportService serves the tour reports through the cache. Any tour or
// review write must call Invalidate.
type ReportService struct {
	aggregator domainTour.Aggregator
	cache      *cache.Cache
}

func NewReportService(aggregator domainTour.Aggregator, c *cache.Cache) *ReportService {
	return &ReportService{aggregator: aggregator, cache: c}
}

func (s *ReportService) Stats(ctx context.Context) ([]domainTour.DifficultyStats, error) {
	var stats []domainTour.DifficultyStats
	if s.cache.Get(ctx, statsKey, &stats) {
		return stats, nil
	}

	stats, err := s.aggregator.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute tour stats: %w", err)
	}
	if stats == nil {
		stats = []domainTour.DifficultyStats{}
	}
	s.cache.Set(ctx, statsKey, stats)
	return stats, nil
}

func (s *ReportService) MonthlyPlan(ctx context.Context, year int) ([]domainTour.MonthPlan, error) {
	if year < 1 || year > 9999 {
		return nil, appErrors.NewValidationError(map[string][]string{
			"year": {"must be a year between 1 and 9999"},
		})
	}

	key := fmt.Sprintf(monthlyKeyFormat, year)
	var plan []domainTour.MonthPlan
	if s.cache.Get(ctx, key, &plan) {
		return plan, nil
	}

	plan, err := s.aggregator.MonthlyPlan(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("failed to compute monthly plan: %w", err)
	}
	if plan == nil {
		plan = []domainTour.MonthPlan{}
	}
	s.cache.Set(ctx, key, plan)
	return plan, nil
}

// Invalidate drops every cached report.
func (s *ReportService) Invalidate(ctx context.Context) {
	s.cache.DeletePattern(ctx, reportsPattern)
	logger.Debug("Tour reports invalidated", zap.String("event", "reports_invalidated"))
}
