package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errNoExpiry = errors.New("token has no exp claim")

// tokenExpiry достаёт exp из access-токена без проверки подписи.
// Валидность токена решает платформа; здесь exp нужен только
// чтобы запланировать refresh
func tokenExpiry(accessToken string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}, fmt.Errorf("parse access token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errNoExpiry
	}

	return claims.ExpiresAt.Time, nil
}
