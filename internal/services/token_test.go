package services

import (
	"testing"
	"time"

	chaterrors "ambassador-chat/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, userID string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestParseUserID(t *testing.T) {
	verifier := NewTokenVerifier("test-secret")
	userID := uuid.New()

	token := signToken(t, "test-secret", userID.String(), time.Now().Add(time.Hour))
	parsed, err := verifier.ParseUserID(token)
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)
}

func TestParseUserIDRejectsBadTokens(t *testing.T) {
	verifier := NewTokenVerifier("test-secret")
	userID := uuid.New()

	_, err := verifier.ParseUserID("")
	assert.ErrorIs(t, err, chaterrors.ErrUnauthorized)

	_, err = verifier.ParseUserID("not-a-jwt")
	assert.ErrorIs(t, err, chaterrors.ErrUnauthorized)

	expired := signToken(t, "test-secret", userID.String(), time.Now().Add(-time.Minute))
	_, err = verifier.ParseUserID(expired)
	assert.ErrorIs(t, err, chaterrors.ErrUnauthorized)

	wrongKey := signToken(t, "other-secret", userID.String(), time.Now().Add(time.Hour))
	_, err = verifier.ParseUserID(wrongKey)
	assert.ErrorIs(t, err, chaterrors.ErrUnauthorized)

	noUser := signToken(t, "test-secret", "not-a-uuid", time.Now().Add(time.Hour))
	_, err = verifier.ParseUserID(noUser)
	assert.ErrorIs(t, err, chaterrors.ErrUnauthorized)
}
