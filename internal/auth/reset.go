package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	ResetTokenBytes    = 32
	DefaultResetWindow = 10 * time.Minute
)

// ResetToken is a freshly issued reset credential. Raw goes to the user,
// only Hash and Expiry are stored.
type ResetToken struct {
	Raw    string
	Hash   string
	Expiry time.Time
}

type ResetTokens struct {
	window time.Duration
	now    func() time.Time
}

type ResetOption func(*ResetTokens)

// WithResetClock replaces time.Now, for tests.
func WithResetClock(now func() time.Time) ResetOption {
	return func(r *ResetTokens) {
		r.now = now
	}
}

func NewResetTokens(window time.Duration, opts ...ResetOption) *ResetTokens {
	if window <= 0 {
		window = DefaultResetWindow
	}
	r := &ResetTokens{
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ResetTokens) Issue() (*ResetToken, error) {
	b := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate reset token: %w", err)
	}

	raw := hex.EncodeToString(b)
	return &ResetToken{
		Raw:    raw,
		Hash:   HashResetToken(raw),
		Expiry: r.now().Add(r.window),
	}, nil
}

// Validate reports whether raw hashes to storedHash and expiry is still ahead.
func (r *ResetTokens) Validate(raw, storedHash string, expiry time.Time) bool {
	if raw == "" || storedHash == "" {
		return false
	}
	computed := HashResetToken(raw)
	if subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) != 1 {
		return false
	}
	return r.now().Before(expiry)
}

// Now is the clock the service judges expiry by.
func (r *ResetTokens) Now() time.Time {
	return r.now()
}

func HashResetToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
