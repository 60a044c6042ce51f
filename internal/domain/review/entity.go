package review

import (
	"context"

	"github.com/google/uuid"

	"tour-booking-api/internal/domain"
	"tour-booking-api/internal/domain/user"
)

// Review is a rating one user gives one tour. A user reviews a tour at most once.
type Review struct {
	domain.Model
	Review string    `gorm:"type:text;not null" json:"review,omitempty" validate:"required"`
	Rating float64   `gorm:"not null" json:"rating,omitempty" validate:"required,min=1,max=5"`
	TourID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_tour_user;index" json:"tour" validate:"required"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_tour_user" json:"user" validate:"required"`

	Author *user.User `gorm:"foreignKey:UserID" json:"author,omitempty" validate:"-"`
}

func (Review) TableName() string {
	return "reviews"
}

// RatingSummary is the aggregate a tour keeps of its reviews.
type RatingSummary struct {
	Quantity int
	Average  float64
}

// RatingRecalculator refreshes a tour's rating summary from its reviews.
type RatingRecalculator interface {
	RecalculateRatings(ctx context.Context, tourID uuid.UUID) (*RatingSummary, error)
}
