package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid session token")

// Claims identify the account and carry the issue time in milliseconds.
// The registered iat claim only has second precision, which is too coarse
// to order a token against a password change made in the same second.
type Claims struct {
	AccountID         string `json:"id"`
	IssuedAtUnixMilli int64  `json:"iat_ms"`
	jwt.RegisteredClaims
}

func (c *Claims) IssuedAtTime() time.Time {
	return time.UnixMilli(c.IssuedAtUnixMilli)
}

type SessionCodec struct {
	secret []byte
	now    func() time.Time
}

func NewSessionCodec(secret string) *SessionCodec {
	return &SessionCodec{secret: []byte(secret), now: time.Now}
}

// WithClock replaces the time source. Tests only.
func (c *SessionCodec) WithClock(now func() time.Time) *SessionCodec {
	c.now = now
	return c
}

func (c *SessionCodec) Issue(accountID string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := &Claims{
		AccountID:         accountID,
		IssuedAtUnixMilli: now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (c *SessionCodec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.AccountID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
