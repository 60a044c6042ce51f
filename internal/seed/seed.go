// Package seed loads the development data set into the database and removes it again.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	domainReview "tour-booking-api/internal/domain/review"
	domainTour "tour-booking-api/internal/domain/tour"
	domainUser "tour-booking-api/internal/domain/user"
	"tour-booking-api/internal/infrastructure/persistence"
	"tour-booking-api/internal/logger"
	"tour-booking-api/internal/usecase/tour"
	"tour-booking-api/pkg/utils"
)

const (
	UsersFile   = "users.json"
	ToursFile   = "tours.json"
	ReviewsFile = "reviews.json"
)

// userRecord carries a plain password; it is hashed on import.
type userRecord struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Photo    *string         `json:"photo"`
	Role     domainUser.Role `json:"role"`
	Password string          `json:"password"`
}

// tourRecord lists guides by id.
type tourRecord struct {
	domainTour.Tour
	Guides []uuid.UUID `json:"guides"`
}

// Counts is how many records an import stored.
type Counts struct {
	Users   int
	Tours   int
	Reviews int
}

type Seeder struct {
	db     *gorm.DB
	hasher utils.PasswordHasher
}

func New(db *gorm.DB, hasher utils.PasswordHasher) *Seeder {
	return &Seeder{db: db, hasher: hasher}
}

// Import stores users, then tours, then reviews from dir and refreshes the
// rating summary of every reviewed tour. It stops at the first failure.
func (s *Seeder) Import(ctx context.Context, dir string) (*Counts, error) {
	var users []userRecord
	var tours []tourRecord
	var reviews []domainReview.Review
	for file, dst := range map[string]any{UsersFile: &users, ToursFile: &tours, ReviewsFile: &reviews} {
		if err := readJSON(filepath.Join(dir, file), dst); err != nil {
			return nil, err
		}
	}

	counts := &Counts{}
	repo := persistence.NewUserRepository(s.db)
	for _, rec := range users {
		hash, err := s.hasher.Hash(rec.Password)
		if err != nil {
			return counts, fmt.Errorf("failed to hash password of %s: %w", rec.Email, err)
		}
		role := rec.Role
		if role == "" {
			role = domainUser.RoleUser
		}
		u := &domainUser.User{
			Name:         rec.Name,
			Email:        utils.NormalizeEmail(rec.Email),
			Photo:        rec.Photo,
			Role:         role,
			PasswordHash: hash,
		}
		u.ID = rec.ID
		if err := repo.Create(ctx, u); err != nil {
			return counts, fmt.Errorf("failed to import user %s: %w", rec.Email, err)
		}
		counts.Users++
	}

	store, err := persistence.NewTourStore(s.db)
	if err != nil {
		return counts, err
	}
	for i := range tours {
		t := tours[i].Tour
		t.Guides = make([]domainUser.User, 0, len(tours[i].Guides))
		for _, id := range tours[i].Guides {
			guide := domainUser.User{}
			guide.ID = id
			t.Guides = append(t.Guides, guide)
		}
		if err := tour.DeriveFields(ctx, &t); err != nil {
			return counts, err
		}
		if err := utils.ValidateStruct(&t); err != nil {
			return counts, fmt.Errorf("invalid tour %q: %w", t.Name, err)
		}
		if err := store.Create(ctx, &t); err != nil {
			return counts, fmt.Errorf("failed to import tour %q: %w", t.Name, err)
		}
		counts.Tours++
	}

	reviewCollection, err := persistence.NewReviewCollection(s.db)
	if err != nil {
		return counts, err
	}
	ratings := persistence.NewRatingStore(s.db)
	reviewed := make(map[uuid.UUID]struct{})
	for i := range reviews {
		if err := reviewCollection.Create(ctx, &reviews[i]); err != nil {
			return counts, fmt.Errorf("failed to import review %d: %w", i, err)
		}
		reviewed[reviews[i].TourID] = struct{}{}
		counts.Reviews++
	}
	for tourID := range reviewed {
		if _, err := ratings.RecalculateRatings(ctx, tourID); err != nil {
			return counts, err
		}
	}

	logger.Info("Development data imported",
		zap.Int("users", counts.Users),
		zap.Int("tours", counts.Tours),
		zap.Int("reviews", counts.Reviews),
		zap.String("event", "seed_imported"),
	)
	return counts, nil
}

// Delete removes every review, tour and user.
func (s *Seeder) Delete(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"reviews", "tour_guides", "tours", "users"} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		logger.Info("Development data deleted", zap.String("event", "seed_deleted"))
		return nil
	})
}

func readJSON(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
