package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LookupOption tunes a credential store read.
type LookupOption func(*Lookup)

// Lookup is the resolved set of LookupOptions.
type Lookup struct {
	WithPassword bool
}

// WithPassword includes the password hash in the returned record.
// Without it PasswordHash is always empty.
func WithPassword() LookupOption {
	return func(l *Lookup) {
		l.WithPassword = true
	}
}

func ApplyLookup(opts ...LookupOption) Lookup {
	var l Lookup
	for _, opt := range opts {
		opt(&l)
	}
	return l
}

// Repository is the credential store: every read and write the session
// manager needs on user records. Reads only see active accounts.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID uuid.UUID, opts ...LookupOption) (*User, error)
	GetByEmail(ctx context.Context, email string, opts ...LookupOption) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string, changedAt time.Time) error
	Deactivate(ctx context.Context, userID uuid.UUID) error

	// SetResetToken stores hash and expiry together.
	SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiry time.Time) error
	// ClearResetToken clears hash and expiry together.
	ClearResetToken(ctx context.Context, userID uuid.UUID) error
	// ConsumeResetToken atomically clears the reset fields of the user holding
	// tokenHash and returns that user as it was before the clear. Only one
	// caller can consume a given hash; the rest get ErrUserNotFound.
	ConsumeResetToken(ctx context.Context, tokenHash string) (*User, error)
	// ClearExpiredResetTokens clears every reset whose expiry is not after now.
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}
