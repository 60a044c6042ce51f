package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tour-booking-api/internal/domain/user"
)

// UserRepository is the credential store. Deactivated accounts are invisible to it.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ user.Repository = (*UserRepository)(nil)

// NewUserCollection is the admin-facing resource view of the users table.
func NewUserCollection(db *gorm.DB) (*Collection[user.User], error) {
	return NewCollection[user.User](db,
		WithScope[user.User](activeUsers),
		WithInternalColumns[user.User](user.CredentialColumns...),
		WithSoftDelete[user.User]("active"),
	)
}

func activeUsers(db *gorm.DB) *gorm.DB {
	return db.Where("active = ?", true)
}

func (r *UserRepository) active(ctx context.Context) *gorm.DB {
	return activeUsers(r.db.WithContext(ctx).Model(&user.User{}))
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	u.AssignID()
	u.Active = true

	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return user.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, userID uuid.UUID, opts ...user.LookupOption) (*user.User, error) {
	return r.first(ctx, user.ApplyLookup(opts...), "id = ?", userID)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string, opts ...user.LookupOption) (*user.User, error) {
	return r.first(ctx, user.ApplyLookup(opts...), "email = ?", email)
}

func (r *UserRepository) first(ctx context.Context, lookup user.Lookup, cond string, arg interface{}) (*user.User, error) {
	tx := r.active(ctx)
	if !lookup.WithPassword {
		tx = tx.Omit("password_hash")
	}

	var u user.User
	err := tx.Where(cond, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// Update writes the profile fields only.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	result := r.active(ctx).
		Where("id = ?", u.ID).
		Updates(map[string]interface{}{
			"name":       u.Name,
			"email":      u.Email,
			"photo":      u.Photo,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return user.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string, changedAt time.Time) error {
	result := r.active(ctx).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"password_hash":       passwordHash,
			"password_changed_at": changedAt,
			"updated_at":          time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Deactivate(ctx context.Context, userID uuid.UUID) error {
	result := r.active(ctx).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"active":     false,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to deactivate user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiry time.Time) error {
	result := r.active(ctx).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"reset_token_hash":   tokenHash,
			"reset_token_expiry": expiry,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to store reset token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ClearResetToken(ctx context.Context, userID uuid.UUID) error {
	err := r.db.WithContext(ctx).Model(&user.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"reset_token_hash":   nil,
			"reset_token_expiry": nil,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to clear reset token: %w", err)
	}
	return nil
}

// ConsumeResetToken reads the holder of tokenHash and clears its reset fields
// with an UPDATE conditioned on the hash, so concurrent redemptions have one winner.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, tokenHash string) (*user.User, error) {
	var consumed *user.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u user.User
		err := activeUsers(tx.Model(&user.User{})).
			Omit("password_hash").
			Where("reset_token_hash = ?", tokenHash).
			First(&u).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to find reset token: %w", err)
		}

		result := tx.Model(&user.User{}).
			Where("id = ? AND reset_token_hash = ?", u.ID, tokenHash).
			Updates(map[string]interface{}{
				"reset_token_hash":   nil,
				"reset_token_expiry": nil,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to consume reset token: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return user.ErrUserNotFound
		}

		consumed = &u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return consumed, nil
}

func (r *UserRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&user.User{}).
		Where("reset_token_expiry IS NOT NULL AND reset_token_expiry <= ?", now).
		Updates(map[string]interface{}{
			"reset_token_hash":   nil,
			"reset_token_expiry": nil,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clear expired reset tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}
