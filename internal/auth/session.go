// Package auth holds the two token services behind a session: the signed
// session token a client presents on every call, and the one-time reset
// token that proves access to the account's mailbox.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	appErrors "tour-booking-api/pkg/errors"
)

// sessionClaims adds a millisecond issue time to the registered claims.
// The standard iat only carries whole seconds, too coarse to order a token
// against a password change made in the same second.
type sessionClaims struct {
	jwt.RegisteredClaims
	IssuedAtMilli int64 `json:"iat_ms"`
}

// Claims is what a verified session token asserts.
type Claims struct {
	Subject  uuid.UUID
	IssuedAt time.Time
}

type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type SessionOption func(*SessionTokens)

// WithSessionClock replaces time.Now, for tests.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionTokens) {
		s.now = now
	}
}

func NewSessionTokens(secret string, ttl time.Duration, opts ...SessionOption) *SessionTokens {
	s := &SessionTokens{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sign mints an HS256 token for subjectID, issued now.
func (s *SessionTokens) Sign(subjectID uuid.UUID) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		IssuedAtMilli: now.UnixMilli(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and lifetime. Expiry yields ErrExpiredToken,
// everything else ErrInvalidToken. IssuedAt has millisecond precision when
// the token carries iat_ms and whole seconds otherwise.
func (s *SessionTokens) Verify(tokenString string) (*Claims, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.ErrExpiredToken
		}
		return nil, appErrors.ErrInvalidToken.Wrap(err)
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil || claims.IssuedAt == nil {
		return nil, appErrors.ErrInvalidToken
	}

	issuedAt := claims.IssuedAt.Time
	if claims.IssuedAtMilli > 0 {
		issuedAt = time.UnixMilli(claims.IssuedAtMilli)
		if issuedAt.Unix() != claims.IssuedAt.Unix() {
			return nil, appErrors.ErrInvalidToken
		}
	}

	return &Claims{
		Subject:  subject,
		IssuedAt: issuedAt,
	}, nil
}
