package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are carried by access tokens. Subject is the user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 access tokens and tracks revoked ids.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> token expiry
}

// NewTokens returns an issuer signing with secret.
func NewTokens(secret []byte, ttl time.Duration, now func() time.Time) *Tokens {
	if now == nil {
		now = time.Now
	}
	return &Tokens{secret: secret, ttl: ttl, now: now, revoked: make(map[string]time.Time)}
}

// Issue signs a token for u.
func (t *Tokens) Issue(u User) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := Claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify parses raw and rejects bad signatures, expired or revoked tokens.
func (t *Tokens) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrUnauthenticated
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}

	t.mu.Lock()
	_, revoked := t.revoked[claims.ID]
	t.mu.Unlock()
	if revoked {
		return nil, fmt.Errorf("%w: token revoked", ErrUnauthenticated)
	}
	return claims, nil
}

// Revoke blocks the token until it would have expired anyway.
func (t *Tokens) Revoke(c *Claims) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for id, exp := range t.revoked {
		if !exp.After(now) {
			delete(t.revoked, id)
		}
	}
	if c.ExpiresAt != nil {
		t.revoked[c.ID] = c.ExpiresAt.Time
	}
}
