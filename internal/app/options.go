package service

import (
	"time"

	"github.com/okian/guessr/internal/adapters/auth"
	"github.com/okian/guessr/internal/adapters/repository"
	"github.com/okian/guessr/internal/domain/game"
	"github.com/okian/guessr/internal/domain/points"
	"github.com/okian/guessr/internal/domain/random"
	"github.com/okian/guessr/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the profile and account store. Defaults to an in-memory
// treap store.
func WithStore(s repository.Store) Option {
	return func(svc *Service) {
		if s != nil {
			svc.store = s
		}
	}
}

// WithAuth subscribes the service to provider's sign-in and sign-out events.
func WithAuth(p auth.Provider) Option {
	return func(svc *Service) { svc.auth = p }
}

// WithWorkerCount sets the number of profile-sync queue shards, one worker
// each.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the total profile-sync queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many purchase keys and auth event ids are kept.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithHintCost sets the points one hint costs.
func WithHintCost(cost int) Option {
	return func(s *Service) {
		if cost > 0 {
			s.hintCost = cost
		}
	}
}

// WithProfileLoadTimeout bounds each profile load.
func WithProfileLoadTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.loadTimeout = d
		}
	}
}

// WithMaxLeaderboardLimit caps leaderboard reads.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithCatalog replaces the point package catalog.
func WithCatalog(c *points.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithRandomSource sets the factory giving each new player its target source.
func WithRandomSource(fn func() random.Source) Option {
	return func(s *Service) {
		if fn != nil {
			s.newSource = fn
		}
	}
}

// WithGameClock sets the clock game sessions use for timing.
func WithGameClock(c game.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
