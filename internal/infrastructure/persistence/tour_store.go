package persistence

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tour-booking-api/internal/domain/review"
	"tour-booking-api/internal/domain/tour"
	"tour-booking-api/internal/domain/user"
	appErrors "tour-booking-api/pkg/errors"
)

// guideColumns is what a tour shows of its guides.
var guideColumns = []string{"id", "name", "email", "photo", "role"}

// authorColumns is what a review shows of its author.
var authorColumns = []string{"id", "name", "photo"}

// TourStore is the tours collection. It also keeps the tour_guides join
// table in step with Tour.Guides on every write.
type TourStore struct {
	*Collection[tour.Tour]
}

func NewTourStore(db *gorm.DB) (*TourStore, error) {
	c, err := NewCollection[tour.Tour](db,
		WithScope[tour.Tour](publicTours),
		WithRelation[tour.Tour]("Guides", guideColumns...),
		WithRelation[tour.Tour]("Reviews"),
		WithRelation[tour.Tour]("Reviews.Author", authorColumns...),
		WithCascade[tour.Tour](),
	)
	if err != nil {
		return nil, err
	}
	return &TourStore{Collection: c}, nil
}

func publicTours(db *gorm.DB) *gorm.DB {
	return db.Where("secret_tour = ?", false)
}

func (s *TourStore) Create(ctx context.Context, t *tour.Tour) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t.AssignID()
		if err := tx.Omit(clause.Associations).Create(t).Error; err != nil {
			return translate(err, "create")
		}
		return replaceGuides(tx, t)
	})
}

func (s *TourStore) Save(ctx context.Context, t *tour.Tour) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(t).Error; err != nil {
			return translate(err, "save")
		}
		return replaceGuides(tx, t)
	})
}

// replaceGuides rewrites the guide list when the tour carries one. A nil
// list leaves the stored guides alone.
func replaceGuides(tx *gorm.DB, t *tour.Tour) error {
	if t.Guides == nil {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(t.Guides))
	seen := make(map[uuid.UUID]struct{}, len(t.Guides))
	for _, g := range t.Guides {
		if _, dup := seen[g.ID]; dup {
			continue
		}
		seen[g.ID] = struct{}{}
		ids = append(ids, g.ID)
	}

	var guides []user.User
	if len(ids) > 0 {
		err := activeUsers(tx.Model(&user.User{})).
			Select(guideColumns).
			Where("id IN ?", ids).
			Find(&guides).Error
		if err != nil {
			return fmt.Errorf("failed to load guides: %w", err)
		}
		if len(guides) != len(ids) {
			return appErrors.NewValidationError(map[string][]string{
				"guides": {"every guide must be an existing user"},
			})
		}
	}

	if err := tx.Exec("DELETE FROM tour_guides WHERE tour_id = ?", t.ID).Error; err != nil {
		return fmt.Errorf("failed to clear guides: %w", err)
	}
	if len(ids) > 0 {
		rows := make([]map[string]interface{}, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, map[string]interface{}{"tour_id": t.ID, "user_id": id})
		}
		if err := tx.Table("tour_guides").Create(rows).Error; err != nil {
			return fmt.Errorf("failed to store guides: %w", err)
		}
	}

	t.Guides = guides
	return nil
}

// Stats groups the well rated public tours by difficulty, cheapest group first.
func (s *TourStore) Stats(ctx context.Context) ([]tour.DifficultyStats, error) {
	stats := make([]tour.DifficultyStats, 0)
	err := s.base(ctx).
		Select(`difficulty,
			COUNT(*) AS num_tours,
			COALESCE(SUM(ratings_quantity), 0) AS num_ratings,
			AVG(ratings_average) AS avg_rating,
			AVG(price) AS avg_price,
			MIN(price) AS min_price,
			MAX(price) AS max_price`).
		Where("ratings_average >= ?", tour.StatsMinRating).
		Group("difficulty").
		Order("avg_price ASC").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute tour stats: %w", err)
	}

	for i := range stats {
		stats[i].AvgRating = round(stats[i].AvgRating, 2)
		stats[i].AvgPrice = round(stats[i].AvgPrice, 2)
	}
	return stats, nil
}

// MonthlyPlan counts the public tour starts of each month of year, busiest month first.
func (s *TourStore) MonthlyPlan(ctx context.Context, year int) ([]tour.MonthPlan, error) {
	var tours []tour.Tour
	if err := s.base(ctx).Select("id", "name", "start_dates").Find(&tours).Error; err != nil {
		return nil, fmt.Errorf("failed to load tour dates: %w", err)
	}

	byMonth := make(map[int]*tour.MonthPlan)
	for _, t := range tours {
		for _, start := range t.StartDates {
			start = start.UTC()
			if start.Year() != year {
				continue
			}
			m := int(start.Month())
			plan, ok := byMonth[m]
			if !ok {
				plan = &tour.MonthPlan{Month: m}
				byMonth[m] = plan
			}
			plan.NumTourStarts++
			plan.Tours = append(plan.Tours, t.Name)
		}
	}

	plans := make([]tour.MonthPlan, 0, len(byMonth))
	for _, p := range byMonth {
		sort.Strings(p.Tours)
		plans = append(plans, *p)
	}
	sort.Slice(plans, func(i, j int) bool {
		if plans[i].NumTourStarts != plans[j].NumTourStarts {
			return plans[i].NumTourStarts > plans[j].NumTourStarts
		}
		return plans[i].Month < plans[j].Month
	})
	return plans, nil
}

var _ tour.Aggregator = (*TourStore)(nil)

// NewReviewCollection is the reviews table; the author is always shown.
func NewReviewCollection(db *gorm.DB) (*Collection[review.Review], error) {
	return NewCollection[review.Review](db,
		WithRelation[review.Review]("Author", authorColumns...),
		WithKeyColumns[review.Review]("tour_id", "user_id"),
	)
}

type ratingRow struct {
	Quantity int
	Average  *float64
}

// RatingStore keeps each tour's rating summary in step with its reviews.
type RatingStore struct {
	db *gorm.DB
}

func NewRatingStore(db *gorm.DB) *RatingStore {
	return &RatingStore{db: db}
}

var _ review.RatingRecalculator = (*RatingStore)(nil)

func (s *RatingStore) RecalculateRatings(ctx context.Context, tourID uuid.UUID) (*review.RatingSummary, error) {
	var row ratingRow
	err := s.db.WithContext(ctx).Model(&review.Review{}).
		Select("COUNT(*) AS quantity, AVG(rating) AS average").
		Where("tour_id = ?", tourID).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}

	summary := &review.RatingSummary{Quantity: row.Quantity, Average: tour.DefaultRatingsAverage}
	if row.Quantity > 0 && row.Average != nil {
		summary.Average = round(*row.Average, 1)
	}

	err = s.db.WithContext(ctx).Model(&tour.Tour{}).
		Where("id = ?", tourID).
		Updates(map[string]interface{}{
			"ratings_quantity": summary.Quantity,
			"ratings_average":  summary.Average,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to store ratings: %w", err)
	}
	return summary, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
