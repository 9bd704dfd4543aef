package game

import (
	"github.com/okian/guessr/internal/domain/profile"
	"github.com/okian/guessr/internal/domain/random"
	"github.com/okian/guessr/pkg/logger"
)

// Option configures a Machine.
type Option func(*Machine)

// WithRandomSource sets the source used for targets and hint picks.
func WithRandomSource(src random.Source) Option {
	return func(m *Machine) {
		if src != nil {
			m.src = src
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(m *Machine) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithPersister sets where profile writes are sent.
func WithPersister(p Persister) Option {
	return func(m *Machine) {
		if p != nil {
			m.persist = p
		}
	}
}

// WithHintCost sets the points charged per hint.
func WithHintCost(cost int) Option {
	return func(m *Machine) {
		if cost > 0 {
			m.hintCost = cost
		}
	}
}

// WithProfile seeds the cached profile.
func WithProfile(p profile.Profile) Option {
	return func(m *Machine) {
		p.UserID = m.userID
		m.prof = p
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.log = l
		}
	}
}
