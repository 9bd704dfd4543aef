// Package service ties the game machines, the profile store and the auth
// provider together and implements the dependencies of the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/guessr/internal/adapters/auth"
	"github.com/okian/guessr/internal/adapters/mq/queue"
	"github.com/okian/guessr/internal/adapters/mq/worker"
	"github.com/okian/guessr/internal/adapters/repository"
	"github.com/okian/guessr/internal/domain/dedupe"
	"github.com/okian/guessr/internal/domain/game"
	"github.com/okian/guessr/internal/domain/points"
	"github.com/okian/guessr/internal/domain/random"
	"github.com/okian/guessr/pkg/logger"
	"github.com/okian/guessr/pkg/metrics"
)

const (
	defaultQueueSize   = 10000
	defaultDedupeSize  = 100000
	defaultLoadTimeout = 10 * time.Second
	defaultMaxLimit    = 100
	stopTimeout        = 30 * time.Second
)

// player is one signed-in user and their game.
type player struct {
	machine *game.Machine
	user    auth.User
	token   string
	ready   chan struct{} // closed once the first profile load finished
}

// Service implements the API dependencies for the game.
type Service struct {
	mu      sync.RWMutex
	players map[string]*player

	store     repository.Store
	auth      auth.Provider
	catalog   *points.Catalog
	purchases dedupe.Memo
	events    dedupe.Deduper
	queue     *queue.Sharded
	pool      *worker.Pool
	newSource func() random.Source
	clock     game.Clock

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	hintCost    int
	loadTimeout time.Duration
	maxLimit    int

	// State
	started     bool
	cancel      context.CancelFunc
	unsubscribe func()
	startedAt   time.Time

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		players:     make(map[string]*player),
		catalog:     points.DefaultCatalog(),
		newSource:   random.New,
		clock:       game.SystemClock{},
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		hintCost:    points.DefaultHintCost,
		loadTimeout: defaultLoadTimeout,
		maxLimit:    defaultMaxLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	if s.store == nil {
		s.store = repository.NewTreapStore()
	}
	return s
}

// Start initializes the sync pipeline and subscribes to auth events.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting game service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.purchases = dedupe.NewMemo(dedupe.WithMaxSize(s.dedupeSize))
	s.events = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewSharded(s.workerCount, s.queueSize)
	s.pool = worker.NewPool(s.queue, s.store, s.logger)
	s.pool.Start(runCtx)

	if s.auth != nil {
		s.unsubscribe = s.auth.Subscribe(s.onAuthEvent)
	}
	if n, err := s.store.Count(ctx); err == nil {
		metrics.UpdateTotalPlayers(n)
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "game service started",
		logger.Int("sync_workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
	)
	return nil
}

// Stop closes every game, drains pending profile writes and closes the
// store.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	players := s.players
	s.players = make(map[string]*player)
	unsubscribe := s.unsubscribe
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping game service...")

	if unsubscribe != nil {
		unsubscribe()
	}
	for _, p := range players {
		p.machine.Close()
	}
	metrics.UpdateActivePlayers(0)

	shutdownCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	if err := s.pool.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "profile sync did not drain", logger.Error(err))
	}
	s.cancel()

	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "error closing store", logger.Error(err))
	}
	s.logger.Info(ctx, "game service stopped")
}

// Activate makes user a signed-in player, creating their game and loading
// their profile on first use. It is idempotent: later calls return the
// existing game without reloading.
func (s *Service) Activate(ctx context.Context, user auth.User, token string) (*game.Machine, error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil, ErrNotStarted
	}
	if p, ok := s.players[user.ID]; ok {
		if token != "" {
			p.token = token
		}
		s.mu.Unlock()
		select {
		case <-p.ready:
		case <-ctx.Done():
		}
		return p.machine, nil
	}

	p := &player{
		user:  user,
		token: token,
		ready: make(chan struct{}),
		machine: game.NewMachine(user.ID,
			game.WithRandomSource(s.newSource()),
			game.WithClock(s.clock),
			game.WithPersister(s),
			game.WithHintCost(s.hintCost),
			game.WithLogger(s.logger.Named("game")),
		),
	}
	s.players[user.ID] = p
	active := len(s.players)
	s.mu.Unlock()
	metrics.UpdateActivePlayers(active)

	res, err := s.Load(ctx, user)
	p.machine.LoadProfile(res.Profile)
	close(p.ready)
	if err != nil {
		return p.machine, err
	}
	s.logger.Info(ctx, "player signed in", logger.UserID(user.ID), logger.Bool("created", res.Created))
	return p.machine, nil
}

// Deactivate resets and removes the user's game. A non-empty token only
// matches the session it was issued to, so a late sign-out for an older
// session leaves a newer one alone.
func (s *Service) Deactivate(ctx context.Context, userID, token string) bool {
	s.mu.Lock()
	p, ok := s.players[userID]
	if !ok || (token != "" && p.token != "" && token != p.token) {
		s.mu.Unlock()
		return false
	}
	delete(s.players, userID)
	active := len(s.players)
	s.mu.Unlock()

	p.machine.Reset()
	p.machine.Close()
	metrics.UpdateActivePlayers(active)
	s.logger.Info(ctx, "player signed out", logger.UserID(userID))
	return true
}

// Player returns the active game of userID.
func (s *Service) Player(userID string) (*game.Machine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPlayer, userID)
	}
	return p.machine, nil
}

// onAuthEvent keeps players in step with the auth provider. Duplicate
// events are dropped by id.
func (s *Service) onAuthEvent(ctx context.Context, e auth.Event) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return
	}
	if e.ID != "" && s.events.SeenAndRecord(ctx, e.ID) {
		s.logger.Debug(ctx, "duplicate auth event", logger.String("event_id", e.ID))
		return
	}

	switch e.Type {
	case auth.SignedIn:
		if _, err := s.Activate(ctx, e.Session.User, e.Session.AccessToken); err != nil {
			s.logger.Warn(ctx, "profile load on sign-in failed",
				logger.UserID(e.Session.User.ID), logger.Error(err))
		}
	case auth.SignedOut:
		s.Deactivate(ctx, e.Session.User.ID, e.Session.AccessToken)
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"syncWorkers": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"hintCost":    s.hintCost,
	}
	if !s.started {
		return stats
	}

	stats["activePlayers"] = len(s.players)
	stats["queueLength"] = s.queue.Len(ctx)
	stats["syncApplied"] = s.pool.Processed()
	stats["syncFailed"] = s.pool.Failed()
	stats["uptimeSeconds"] = int(time.Since(s.startedAt).Seconds())
	if n, err := s.store.Count(ctx); err == nil {
		stats["totalPlayers"] = n
		metrics.UpdateTotalPlayers(n)
	}
	metrics.UpdateActivePlayers(len(s.players))
	return stats
}
