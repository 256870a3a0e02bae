package usecase

import (
	"errors"
	"time"

	"foodorder/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid token")

type SessionClaims struct {
	SessionID string     `json:"sid"`
	Role      model.Role `json:"role"`
	jwt.RegisteredClaims
}

// SessionTokenIssuer はセッションIDを載せたJWTを発行・検証する。
type SessionTokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewSessionTokenIssuer(secret string, ttl time.Duration) *SessionTokenIssuer {
	return &SessionTokenIssuer{secret: []byte(secret), ttl: ttl}
}

// jwt発行
func (i *SessionTokenIssuer) Issue(id model.Identity, sessionID string, now time.Time) (string, time.Time, error) {
	exp := now.Add(i.ttl)

	claims := SessionClaims{
		SessionID: sessionID,
		Role:      id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (i *SessionTokenIssuer) Parse(raw string) (SessionClaims, error) {
	var claims SessionClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return SessionClaims{}, ErrInvalidToken
	}
	if claims.SessionID == "" || claims.Subject == "" {
		return SessionClaims{}, ErrInvalidToken
	}
	return claims, nil
}
