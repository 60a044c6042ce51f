package tour

import (
	"time"

	"tour-booking-api/internal/domain"
	"tour-booking-api/internal/domain/review"
	"tour-booking-api/internal/domain/user"
)

type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyDifficult Difficulty = "difficult"
)

// DefaultRatingsAverage is the average shown for a tour nobody has reviewed yet.
const DefaultRatingsAverage = 4.5

// Location is a GeoJSON point with a short description.
type Location struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
	Address     string    `json:"address,omitempty"`
	Description string    `json:"description,omitempty"`
	Day         int       `json:"day,omitempty"`
}

type Tour struct {
	domain.Model
	Name            string      `gorm:"type:varchar(40);not null;uniqueIndex" json:"name,omitempty" validate:"required,min=10,max=40"`
	Slug            string      `gorm:"type:varchar(64);index" json:"slug,omitempty"`
	Duration        int         `gorm:"not null" json:"duration,omitempty" validate:"required,gt=0"`
	MaxGroupSize    int         `gorm:"not null" json:"maxGroupSize,omitempty" validate:"required,gt=0"`
	Difficulty      Difficulty  `gorm:"type:varchar(20);not null;index" json:"difficulty,omitempty" validate:"required,oneof=easy medium difficult"`
	RatingsAverage  float64     `gorm:"not null;default:4.5" json:"ratingsAverage,omitempty" validate:"omitempty,min=1,max=5"`
	RatingsQuantity int         `gorm:"not null;default:0" json:"ratingsQuantity"`
	Price           float64     `gorm:"not null;index" json:"price,omitempty" validate:"required,gt=0"`
	PriceDiscount   float64     `json:"priceDiscount,omitempty" validate:"omitempty,gte=0,ltfield=Price"`
	Summary         string      `gorm:"type:text;not null" json:"summary,omitempty" validate:"required"`
	Description     string      `gorm:"type:text" json:"description,omitempty"`
	ImageCover      string      `gorm:"type:varchar(255);not null" json:"imageCover,omitempty" validate:"required"`
	Images          []string    `gorm:"type:text;serializer:json" json:"images,omitempty"`
	StartDates      []time.Time `gorm:"type:text;serializer:json" json:"startDates,omitempty"`
	SecretTour      bool        `gorm:"not null;default:false" json:"secretTour,omitempty"`
	StartLocation   *Location   `gorm:"type:text;serializer:json" json:"startLocation,omitempty"`
	Locations       []Location  `gorm:"type:text;serializer:json" json:"locations,omitempty"`

	Guides  []user.User     `gorm:"many2many:tour_guides" json:"guides,omitempty" validate:"-"`
	Reviews []review.Review `gorm:"foreignKey:TourID" json:"reviews,omitempty" validate:"-"`
}

func (Tour) TableName() string {
	return "tours"
}

// DurationWeeks is the duration expressed in weeks.
func (t *Tour) DurationWeeks() float64 {
	return float64(t.Duration) / 7
}
