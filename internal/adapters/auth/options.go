package auth

import (
	"time"

	"github.com/okian/guessr/pkg/logger"
)

// Option configures a Local provider.
type Option func(*Local)

// WithTokenTTL sets how long access tokens stay valid.
func WithTokenTTL(d time.Duration) Option {
	return func(l *Local) {
		if d > 0 {
			l.ttl = d
		}
	}
}

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(l *Local) { l.bcryptCost = cost }
}

// WithClock sets the time source for token issue and expiry.
func WithClock(now func() time.Time) Option {
	return func(l *Local) {
		if now != nil {
			l.now = now
		}
	}
}

// WithOAuthProvider registers an OAuth provider under name.
func WithOAuthProvider(name string, p OAuthProvider) Option {
	return func(l *Local) { l.oauth[name] = p }
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(l *Local) {
		if log != nil {
			l.log = log
		}
	}
}
