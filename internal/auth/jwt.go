// Package auth holds the server-side pieces of authentication: signed
// cookies, provider-token parsing, credential validation, provider error
// classification and the per-request visitor state.
//
// WHO OWNS THE ACCOUNT?
// The hosted provider does. We never see a password hash. What we DO own is
// the browser's view of the provider session:
//
//  1. The browser holds a "session" cookie: a short JWT whose subject is our
//     opaque session id (an xid), signed with SESSION_SECRET.
//  2. The session id points at a row in the local session cache holding the
//     provider's access/refresh tokens (sealed, see sealer.go).
//  3. A "pending_confirmation" cookie remembers which email is waiting for a
//     confirmation link, so the resend control can be offered.
//
// Both cookies are signed by TokenService. A tampered cookie simply fails
// validation and the visitor is treated as signed out.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "movie-watchlist"

// Token purposes. A pending-confirmation token must never be accepted as a
// session token, so every token carries what it is for.
const (
	PurposeSession = "session"
	PurposePending = "pending_confirmation"
)

// TokenService signs and validates the cookies this server issues.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: SESSION_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload: standard registered claims plus a purpose.
type claims struct {
	Purpose string `json:"pur"`
	jwt.RegisteredClaims
}

// Generate signs a token for subject with the given purpose and lifetime.
func (s *TokenService) Generate(purpose, subject string, ttl time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token, checks its purpose, and returns the
// subject.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid and the algorithm is HS256 (no "none" confusion)
//   - Token is not expired, and has an expiry at all
//   - Issuer matches
//
// The purpose check is ours.
func (s *TokenService) Validate(purpose, tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}
	if c.Purpose != purpose {
		return "", fmt.Errorf("auth: token purpose %q, want %q", c.Purpose, purpose)
	}
	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}
