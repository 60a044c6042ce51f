// Package tour holds the tour and review behavior layered on the generic
// resource factory: derived fields, rating upkeep and cached reports.
package tour

import (
	"context"
	"fmt"

	"github.com/gosimple/slug"

	domainReview "tour-booking-api/internal/domain/review"
	domainTour "tour-booking-api/internal/domain/tour"
)

// DeriveFields sets the slug from the name and defaults the ratings average.
func DeriveFields(_ context.Context, t *domainTour.Tour) error {
	t.Slug = slug.Make(t.Name)
	if t.RatingsAverage == 0 {
		t.RatingsAverage = domainTour.DefaultRatingsAverage
	}
	return nil
}

// InvalidateReports drops cached reports after any tour write.
func InvalidateReports(reports *ReportService) func(context.Context, *domainTour.Tour) error {
	return func(ctx context.Context, _ *domainTour.Tour) error {
		reports.Invalidate(ctx)
		return nil
	}
}

// RefreshRatings recomputes the reviewed tour's rating summary after any
// review write, then drops cached reports since they depend on it.
func RefreshRatings(ratings domainReview.RatingRecalculator, reports *ReportService) func(context.Context, *domainReview.Review) error {
	return func(ctx context.Context, r *domainReview.Review) error {
		if _, err := ratings.RecalculateRatings(ctx, r.TourID); err != nil {
			return fmt.Errorf("failed to refresh ratings of tour %s: %w", r.TourID, err)
		}
		reports.Invalidate(ctx)
		return nil
	}
}
