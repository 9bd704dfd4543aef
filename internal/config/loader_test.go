package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/guessr/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.SyncQueueSize, convey.ShouldEqual, 10_000)
				convey.So(cfg.HintCost, convey.ShouldEqual, 100)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("GUESSR_ADDR", ":8080")
			_ = os.Setenv("GUESSR_SYNC_QUEUE_SIZE", "500")
			_ = os.Setenv("GUESSR_HINT_COST", "150")
			_ = os.Setenv("GUESSR_SECURE_COOKIES", "true")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.SyncQueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.HintCost, convey.ShouldEqual, 150)
				convey.So(cfg.SecureCookies, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":9090"
store_driver: sqlite
sqlite_path: /tmp/guessr-test.db
sync_workers: 3
max_leaderboard_limit: 25
`)
			_ = os.Setenv("GUESSR_CONFIG", tmpFile)
			_ = os.Setenv("GUESSR_SYNC_WORKERS", "6")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then env overrides the file and the file overrides defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverSQLite)
				convey.So(cfg.SQLitePath, convey.ShouldEqual, "/tmp/guessr-test.db")
				convey.So(cfg.SyncWorkers, convey.ShouldEqual, 6)
				convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 25)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 100_000)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(t, `invalid: yaml: content: [`)
			_ = os.Setenv("GUESSR_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("GUESSR_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("GUESSR_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
			})
		})

		convey.Convey("When selecting postgres without a DSN", func() {
			_ = os.Setenv("GUESSR_STORE_DRIVER", "postgres")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should fail validation", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "guessr-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()
	return f.Name()
}

func clearConfigEnvVars() {
	for _, k := range []string{
		"GUESSR_CONFIG",
		"GUESSR_ADDR",
		"GUESSR_SYNC_QUEUE_SIZE",
		"GUESSR_SYNC_WORKERS",
		"GUESSR_HINT_COST",
		"GUESSR_SECURE_COOKIES",
		"GUESSR_STORE_DRIVER",
	} {
		_ = os.Unsetenv(k)
	}
}
