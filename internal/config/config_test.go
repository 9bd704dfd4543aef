package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/guessr/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverMemory)
			convey.So(cfg.SyncWorkers, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.HintCost, convey.ShouldEqual, 100)
			convey.So(cfg.ProfileLoadTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.SessionCacheTTL(), convey.ShouldEqual, 7*24*time.Hour)
			convey.So(cfg.AccessTokenTTL(), convey.ShouldEqual, time.Hour)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
			convey.So(cfg.OAuthEnabled(), convey.ShouldBeFalse)
		})
	})
}

func TestConfig_Metrics(t *testing.T) {
	convey.Convey("Given the default metrics settings", t, func() {
		cfg := config.New()

		convey.Convey("Then buckets parse in order and no env label is set", func() {
			b, err := cfg.LatencyBuckets()
			convey.So(err, convey.ShouldBeNil)
			convey.So(b[0], convey.ShouldEqual, 1)
			convey.So(b[len(b)-1], convey.ShouldEqual, 10000)
			convey.So(cfg.MetricsLabels(), convey.ShouldBeNil)
			convey.So(cfg.MetricsRefresh(), convey.ShouldEqual, 10*time.Second)
		})

		convey.Convey("When an environment is named", func() {
			cfg.MetricsEnv = "prod"
			convey.So(cfg.MetricsLabels(), convey.ShouldResemble, map[string]string{"env": "prod"})
		})
	})
}

func TestConfig_AllowedOrigins(t *testing.T) {
	convey.Convey("Given a comma separated origin list", t, func() {
		cfg := config.New()
		cfg.CORSAllowedOrigins = " https://a.example , ,https://b.example"

		convey.So(cfg.AllowedOrigins(), convey.ShouldResemble, []string{"https://a.example", "https://b.example"})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid configurations", t, func() {
		cases := []struct {
			name   string
			mutate func(c *config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"zero hint cost", func(c *config.Config) { c.HintCost = 0 }},
			{"empty secret", func(c *config.Config) { c.JWTSecret = "" }},
			{"zero workers", func(c *config.Config) { c.SyncWorkers = 0 }},
			{"zero limit", func(c *config.Config) { c.MaxLeaderboardLimit = 0 }},
			{"zero load timeout", func(c *config.Config) { c.ProfileLoadTimeoutMS = 0 }},
			{"unknown driver", func(c *config.Config) { c.StoreDriver = "redis" }},
			{"sqlite without path", func(c *config.Config) { c.StoreDriver = config.DriverSQLite; c.SQLitePath = "" }},
			{"postgres without dsn", func(c *config.Config) { c.StoreDriver = config.DriverPostgres }},
			{"zero metrics refresh", func(c *config.Config) { c.MetricsRefreshSeconds = 0 }},
			{"unparsable buckets", func(c *config.Config) { c.MetricsBucketsMS = "1,fast" }},
			{"negative bucket", func(c *config.Config) { c.MetricsBucketsMS = "-1,5" }},
		}

		for _, tc := range cases {
			convey.Convey("When "+tc.name, func() {
				cfg := config.New()
				tc.mutate(cfg)

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					err := cfg.Validate()
					convey.So(err, convey.ShouldNotBeNil)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}
	})
}
