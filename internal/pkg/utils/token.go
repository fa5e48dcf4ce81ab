package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/ougirez/muniportal/internal/pkg/constants"
)

// SessionTokenWrapper: содержимое cookie сессии. Сама сессия лежит в redis,
// токен только подписывает её идентификатор.
type SessionTokenWrapper struct {
	SessionID string `json:"sid"`
	jwt.StandardClaims
}

func GenerateSessionToken(sessionID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &SessionTokenWrapper{
		SessionID: sessionID,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

func ParseSessionToken(raw, secret string) (*SessionTokenWrapper, error) {
	claims := &SessionTokenWrapper{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, constants.ErrUnauthorized.Wrap(err)
	}
	if !token.Valid || claims.SessionID == "" {
		return nil, constants.ErrUnauthorized
	}
	return claims, nil
}
