package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/okian/guessr/internal/adapters/repository"
	app "github.com/okian/guessr/internal/app"
	"github.com/okian/guessr/internal/config"
	"github.com/okian/guessr/pkg/logger"
	"github.com/okian/guessr/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	convey.Convey("Given metrics settings in the config", t, func() {
		cfg := config.New()
		cfg.MetricsPrefix = "play"
		cfg.MetricsEnv = "staging"
		cfg.MetricsBucketsMS = "5, 50,500"

		convey.Convey("When a manager is built from them", func() {
			opts, err := metricsOptions(cfg)
			convey.So(err, convey.ShouldBeNil)
			reg := prometheus.NewRegistry()
			metrics.NewManager(append(opts, metrics.WithPrometheusRegistry(reg))...)
			families, err := reg.Gather()
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then series carry the prefix and the env label", func() {
				var found bool
				for _, f := range families {
					if f.GetName() != "guessr_game_play_total_players" {
						continue
					}
					found = true
					labels := f.GetMetric()[0].GetLabel()
					convey.So(len(labels), convey.ShouldEqual, 1)
					convey.So(labels[0].GetName(), convey.ShouldEqual, "env")
					convey.So(labels[0].GetValue(), convey.ShouldEqual, "staging")
				}
				convey.So(found, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the buckets are not increasing", func() {
			cfg.MetricsBucketsMS = "50,5"
			_, err := metricsOptions(cfg)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestOpenStore(t *testing.T) {
	convey.Convey("Given a configuration", t, func() {
		ctx := context.Background()
		cfg := config.New()

		convey.Convey("The memory driver gives a treap store", func() {
			s, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			_, ok := s.(*repository.TreapStore)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(s.Close(), convey.ShouldBeNil)
		})

		convey.Convey("The sqlite driver opens the configured file", func() {
			cfg.StoreDriver = config.DriverSQLite
			cfg.SQLitePath = filepath.Join(t.TempDir(), "guessr.db")
			s, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(s.Close(), convey.ShouldBeNil)
		})

		convey.Convey("The postgres driver needs a DSN", func() {
			cfg.StoreDriver = config.DriverPostgres
			_, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("An unknown driver is rejected", func() {
			cfg.StoreDriver = "mongo"
			_, err := openStore(ctx, cfg)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestHandlerWiring(t *testing.T) {
	convey.Convey("Given the wired handler", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.OAuthGoogleClientID = "client"
		cfg.OAuthGoogleClientSecret = "secret"
		cfg.OAuthGoogleRedirectURL = "http://localhost:9080/auth/callback/google"

		store := repository.NewTreapStore()
		provider, err := newAuth(store, cfg, logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		convey.Reset(provider.Close)

		svc := app.New(app.WithStore(store), app.WithAuth(provider))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		convey.Reset(svc.Stop)

		h := newHandler(ctx, cfg, svc, provider, logger.Nop())

		for _, path := range []string{"/healthz", "/stats", "/api-docs", "/openapi.yaml", "/leaderboard", "/points/packages"} {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
		}

		convey.Convey("Google sign-in redirects to the consent page", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/oauth/google", http.NoBody))
			convey.So(w.Code, convey.ShouldEqual, http.StatusFound)
			convey.So(w.Header().Get("Location"), convey.ShouldStartWith, "https://accounts.google.com/")
		})
	})
}
