// Package sessioncache remembers the signed-in identity in a signed cookie
// so returning visitors are recognised without a provider round trip.
package sessioncache

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// CookieName is the cookie holding the cached identity.
	CookieName = "user"
	// DefaultTTL is how long a cached identity stays valid.
	DefaultTTL = 7 * 24 * time.Hour
)

// ErrNoSession is returned when no valid cached identity is present.
var ErrNoSession = errors.New("no cached session")

// Record is the cached identity.
type Record struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type claims struct {
	Record
	jwt.RegisteredClaims
}

// Cache reads and writes the identity cookie.
type Cache struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// New returns a cache signing cookies with secret. A non-positive ttl
// means DefaultTTL.
func New(secret []byte, ttl time.Duration, secure bool) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{secret: secret, ttl: ttl, secure: secure, now: time.Now}
}

// Write stores rec for the cache's ttl.
func (c *Cache) Write(w http.ResponseWriter, rec Record) error {
	now := c.now()
	exp := now.Add(c.ttl)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Record: rec,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   rec.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}).SignedString(c.secret)
	if err != nil {
		return fmt.Errorf("sign session cookie: %w", err)
	}
	http.SetCookie(w, c.cookie(signed, exp, int(c.ttl.Seconds())))
	return nil
}

// Read returns the cached identity, or ErrNoSession when the cookie is
// missing, expired or not signed by this cache.
func (c *Cache) Read(r *http.Request) (Record, error) {
	ck, err := r.Cookie(CookieName)
	if err != nil || ck.Value == "" {
		return Record{}, ErrNoSession
	}
	var cl claims
	_, err = jwt.ParseWithClaims(ck.Value, &cl, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrNoSession, err)
	}
	if cl.Record.ID == "" {
		return Record{}, ErrNoSession
	}
	return cl.Record, nil
}

// Clear expires the cookie.
func (c *Cache) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie("", time.Unix(0, 0), -1))
}

func (c *Cache) cookie(value string, exp time.Time, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
