package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/guessr/internal/adapters/auth"
	"github.com/okian/guessr/internal/adapters/http/api"
	"github.com/okian/guessr/internal/adapters/http/swagger"
	"github.com/okian/guessr/internal/adapters/repository"
	"github.com/okian/guessr/internal/adapters/repository/postgres"
	"github.com/okian/guessr/internal/adapters/repository/sqlite"
	"github.com/okian/guessr/internal/adapters/sessioncache"
	app "github.com/okian/guessr/internal/app"
	"github.com/okian/guessr/internal/config"
	"github.com/okian/guessr/pkg/logger"
	"github.com/okian/guessr/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 15 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	opts, err := metricsOptions(cfg)
	if err != nil {
		log.Fatal(ctx, "invalid metrics config", logger.Error(err))
	}
	metrics.Configure(opts...)

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "guessr stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

// metricsOptions maps the metrics keys of cfg onto collector options.
func metricsOptions(cfg *config.Config) ([]metrics.Option, error) {
	buckets, err := cfg.LatencyBuckets()
	if err != nil {
		return nil, err
	}
	return []metrics.Option{
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithMetricPrefix(cfg.MetricsPrefix),
		metrics.WithCustomLabels(cfg.MetricsLabels()),
		metrics.WithHistogramBuckets(buckets),
		metrics.WithRefreshInterval(cfg.MetricsRefresh()),
	}, nil
}

// run serves until ctx is done, then shuts down in reverse start order.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	provider, err := newAuth(store, cfg, log)
	if err != nil {
		_ = store.Close()
		return err
	}
	defer provider.Close()

	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithStore(store),
		app.WithAuth(provider),
		app.WithWorkerCount(cfg.SyncWorkers),
		app.WithQueueSize(cfg.SyncQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithHintCost(cfg.HintCost),
		app.WithProfileLoadTimeout(cfg.ProfileLoadTimeout()),
		app.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
	)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go metrics.RunSystemCollector(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc, provider, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// openStore opens the configured profile and account store.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	case config.DriverMemory, "":
		return repository.NewTreapStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown store_driver %q", config.ErrInvalidConfig, cfg.StoreDriver)
	}
}

// newAuth builds the local identity provider, with Google sign-in when
// credentials are configured.
func newAuth(accounts repository.AccountStore, cfg *config.Config, log logger.Logger) (*auth.Local, error) {
	opts := []auth.Option{
		auth.WithTokenTTL(cfg.AccessTokenTTL()),
		auth.WithLogger(log.Named("auth")),
	}
	if cfg.OAuthEnabled() {
		opts = append(opts, auth.WithOAuthProvider(auth.GoogleProvider,
			auth.Google(cfg.OAuthGoogleClientID, cfg.OAuthGoogleClientSecret, cfg.OAuthGoogleRedirectURL)))
	}
	provider, err := auth.NewLocal(accounts, []byte(cfg.JWTSecret), opts...)
	if err != nil {
		return nil, fmt.Errorf("create auth provider: %w", err)
	}
	return provider, nil
}

// newHandler registers the docs and API routes behind the CORS policy.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service, provider auth.Provider, log logger.Logger) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)

	cache := sessioncache.New([]byte(cfg.JWTSecret), cfg.SessionCacheTTL(), cfg.SecureCookies)
	server := api.NewServer(svc, provider, cache,
		api.WithAllowedOrigins(cfg.AllowedOrigins()),
		api.WithSecureCookies(cfg.SecureCookies),
		api.WithLogger(log.Named("api")),
	)
	server.Register(ctx, mux)
	return server.Handler(mux)
}
