// ABOUTME: Client-side bearer token holder with JWT expiry inspection
// ABOUTME: Parses claims without verifying; the server is the only verifier

package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrNoToken      = errors.New("no token configured")
	ErrExpiredToken = errors.New("token expired")
)

// Token wraps the bearer token this client authenticates with. When the
// token is a JWT its claims are parsed without signature verification, so
// the client can report expiry and subject; the server remains the only
// party that verifies.
type Token struct {
	raw       string
	subject   string
	expiresAt time.Time
}

// NewToken parses raw into a Token. Non-JWT tokens are accepted as opaque
// bearers with no expiry information.
func NewToken(raw string) (*Token, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "Bearer "))
	if raw == "" {
		return nil, ErrNoToken
	}

	t := &Token{raw: raw}

	parsed, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		// Opaque token, nothing to inspect.
		return t, nil
	}
	if sub, err := parsed.Claims.GetSubject(); err == nil {
		t.subject = sub
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		t.expiresAt = exp.Time
	}
	return t, nil
}

// Raw returns the bare token string for transports that set their own headers.
func (t *Token) Raw() string {
	return t.raw
}

// Authorization returns the value for the Authorization header.
func (t *Token) Authorization() string {
	return "Bearer " + t.raw
}

// Subject returns the "sub" claim, or "" for opaque tokens.
func (t *Token) Subject() string {
	return t.subject
}

// ExpiresAt returns the "exp" claim, or the zero time when unknown.
func (t *Token) ExpiresAt() time.Time {
	return t.expiresAt
}

// Expired reports whether the token is known to be expired at now. Opaque
// tokens and JWTs without exp never report expired.
func (t *Token) Expired(now time.Time) bool {
	return !t.expiresAt.IsZero() && now.After(t.expiresAt)
}

// Check returns ErrExpiredToken when the token is known-expired, nil
// otherwise. Called before connecting so a stale token fails fast instead
// of burning the reconnect budget.
func (t *Token) Check(now time.Time) error {
	if t.Expired(now) {
		return ErrExpiredToken
	}
	return nil
}
