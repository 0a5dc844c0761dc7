package services

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	chaterrors "ambassador-chat/pkg/errors"
)

// TokenVerifier parses the access tokens minted by the identity
// collaborator. The core never issues tokens; it only extracts the
// authenticated caller id.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

type accessClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// ParseUserID validates the token signature and expiry and returns the
// caller identity.
func (v *TokenVerifier) ParseUserID(token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, chaterrors.ErrUnauthorized
	}

	var claims accessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, chaterrors.ErrUnauthorized
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, chaterrors.ErrUnauthorized
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, chaterrors.ErrUnauthorized
	}
	return userID, nil
}
