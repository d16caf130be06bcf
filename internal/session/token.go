package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenCodec turns a derived session key into the bearer token handed to
// clients and back. Tokens are HS256 JWTs whose subject is the derived key,
// so they carry no user data of their own.
//
// Tokens have no exp claim unless maxAge is set. Without one, the session's
// lifetime is governed entirely by the store TTL (sliding expiry).
type TokenCodec struct {
	secret []byte
	issuer string
	maxAge time.Duration
	now    func() time.Time
}

// NewTokenCodec creates a codec signing with secret. A zero maxAge disables
// the hard cap.
func NewTokenCodec(secret, issuer string, maxAge time.Duration) *TokenCodec {
	return &TokenCodec{
		secret: []byte(secret),
		issuer: issuer,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Encode signs a bearer token for the given store key.
func (c *TokenCodec) Encode(key string, issuedAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  key,
		Issuer:   c.issuer,
		IssuedAt: jwt.NewNumericDate(issuedAt),
	}
	if c.maxAge > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(issuedAt.Add(c.maxAge))
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return token, nil
}

// Decode verifies a bearer token and returns the store key it names.
// Returns ErrExpired for a well-signed token past its exp, ErrInvalidToken
// for anything else that fails verification.
func (c *TokenCodec) Decode(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpired
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
