package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"athletics-registry/internal/models"
)

// Claims carries the signed-in identity inside a token.
type Claims struct {
	UserID   int         `json:"uid"`
	Username string      `json:"username"`
	Role     models.Role `json:"userType"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid session token")

// IssueToken signs id with key; the token expires after ttl.
func IssueToken(key []byte, id models.Identity, ttl time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	claims := &Claims{
		UserID:   id.ID,
		Username: id.Username,
		Role:     id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Username,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return s, expiresAt, nil
}

// ParseToken verifies signature and expiry and returns the identity inside.
func ParseToken(key []byte, token string) (models.Identity, time.Time, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return models.Identity{}, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tkn.Valid || claims.Username == "" {
		return models.Identity{}, time.Time{}, ErrInvalidToken
	}
	return models.Identity{ID: claims.UserID, Username: claims.Username, Role: claims.Role}, claims.ExpiresAt.Time, nil
}
