package jwtinfra

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of the session cookie minted after a successful
// Telegram authentication.
type Claims struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	PhotoURL   string `json:"photo_url,omitempty"`
	StartParam string `json:"startParam,omitempty"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 session tokens. The signing secret is
// the Telegram bot token, which both sides of the integration already hold.
type Provider struct {
	secret []byte
	expiry time.Duration
}

func NewProvider(secret string, expiry time.Duration) (*Provider, error) {
	if secret == "" {
		return nil, errors.New("jwt: signing secret is required")
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Provider{secret: []byte(secret), expiry: expiry}, nil
}

func (p *Provider) Sign(claims Claims) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
