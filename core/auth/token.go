package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/irsalhamdi/e-learning-market/core/claims"
)

var ErrInvalidToken = errors.New("invalid token")

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func IssueToken(secret string, ttl time.Duration, clm claims.Claims) (Token, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Role: clm.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clm.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return Token{}, fmt.Errorf("signing token: %w", err)
	}

	return Token{Token: signed, ExpiresAt: exp}, nil
}

func ParseToken(secret string, raw string) (claims.Claims, error) {
	var tc tokenClaims
	_, err := jwt.ParseWithClaims(raw, &tc, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return claims.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if tc.Subject == "" || !claims.ValidRole(tc.Role) {
		return claims.Claims{}, ErrInvalidToken
	}

	return claims.Claims{UserID: tc.Subject, Role: tc.Role}, nil
}
