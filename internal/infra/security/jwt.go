package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"rentline/internal/domain/user"
)

var ErrTokenInvalid = errors.New("security: access token invalid")

// AccessTokenSigner issues and verifies short-lived HS256 access tokens.
type AccessTokenSigner struct {
	Secret []byte
	TTL    time.Duration
}

type accessClaims struct {
	UserID int64 `json:"userId"`
	jwt.RegisteredClaims
}

func (s AccessTokenSigner) Sign(userID user.ID, now time.Time) (string, error) {
	if len(s.Secret) == 0 {
		return "", errors.New("security: signing secret is empty")
	}
	if now.IsZero() {
		now = time.Now()
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	claims := accessClaims{
		UserID: int64(userID),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("security: sign access token: %w", err)
	}
	return signed, nil
}

func (s AccessTokenSigner) Verify(raw string) (user.ID, error) {
	token, err := jwt.ParseWithClaims(raw, &accessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("security: unexpected signing method %q", t.Method.Alg())
		}
		return s.Secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return 0, ErrTokenInvalid
	}
	return user.ID(claims.UserID), nil
}
