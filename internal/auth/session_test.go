package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "tour-booking-api/pkg/errors"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSessionTokens_SignAndVerify(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tokens := NewSessionTokens("super-secret", time.Hour, WithSessionClock(fixedClock(now)))
	userID := uuid.New()

	signed, err := tokens.Sign(userID)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.Subject)
	assert.True(t, claims.IssuedAt.Equal(now))
}

func TestSessionTokens_Expired(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	signer := NewSessionTokens("secret", time.Hour, WithSessionClock(fixedClock(issued)))
	signed, err := signer.Sign(uuid.New())
	require.NoError(t, err)

	verifier := NewSessionTokens("secret", time.Hour, WithSessionClock(fixedClock(issued.Add(2*time.Hour))))
	_, err = verifier.Verify(signed)
	assert.ErrorIs(t, err, appErrors.ErrExpiredToken)
}

func TestSessionTokens_WrongSecret(t *testing.T) {
	signed, err := NewSessionTokens("right-secret", time.Hour).Sign(uuid.New())
	require.NoError(t, err)

	_, err = NewSessionTokens("wrong-secret", time.Hour).Verify(signed)
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)
}

func TestSessionTokens_Malformed(t *testing.T) {
	tokens := NewSessionTokens("k", time.Hour)

	for _, raw := range []string{"", "not.a.jwt", "abc"} {
		_, err := tokens.Verify(raw)
		assert.ErrorIs(t, err, appErrors.ErrInvalidToken, raw)
	}
}

func TestSessionTokens_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = NewSessionTokens("k", time.Hour).Verify(signed)
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)
}

func TestSessionTokens_RejectsNonUUIDSubject(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-123",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = NewSessionTokens("k", time.Hour).Verify(signed)
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)
}

func TestSessionTokens_IssuedAtKeepsMilliseconds(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 750*int(time.Millisecond), time.UTC)
	tokens := NewSessionTokens("k", time.Hour, WithSessionClock(fixedClock(now)))

	signed, err := tokens.Sign(uuid.New())
	require.NoError(t, err)

	claims, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), claims.IssuedAt.UnixMilli())
}

func TestSessionTokens_RejectsMismatchedIssueTimes(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		IssuedAtMilli: now.Add(-time.Hour).UnixMilli(),
	})
	signed, err := token.SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = NewSessionTokens("k", time.Hour, WithSessionClock(fixedClock(now))).Verify(signed)
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)
}

func TestSessionTokens_SecondPrecisionTokens(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte("k"))
	require.NoError(t, err)

	claims, err := NewSessionTokens("k", time.Hour, WithSessionClock(fixedClock(now))).Verify(signed)
	require.NoError(t, err)
	assert.True(t, claims.IssuedAt.Equal(now))
}
