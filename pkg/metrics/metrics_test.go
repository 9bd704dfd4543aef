package metrics

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithMetricPrefix("x"),
				WithHistogramBuckets([]float64{1, 2, 3}),
				WithRefreshInterval(time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the custom names", func() {
				So(m, ShouldNotBeNil)
				m.guesses.WithLabelValues("too_low").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_x_guesses_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
				So(m.refreshInterval, ShouldEqual, time.Second)
			})
		})

		Convey("When empty options are passed", func() {
			m := NewManager(WithNamespace(""), WithSubsystem(""), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(m.namespace, ShouldEqual, "guessr")
				So(m.subsystem, ShouldEqual, "game")
			})
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given the package manager rebuilt with a prefix", t, func() {
		Configure(WithMetricPrefix("cfg"))
		Reset(func() { Configure() })
		RecordGuess("too_high")

		Convey("Then the exported registry serves the renamed series", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			found := false
			for _, f := range families {
				if f.GetName() == "guessr_game_cfg_guesses_total" {
					found = true
				}
			}
			So(found, ShouldBeTrue)
		})
	})
}

func TestRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording gameplay metrics", func() {
			before := testutil.ToFloat64(globalManager.guesses.WithLabelValues("correct"))
			RecordGuess("correct")
			RecordGameFinished("won")
			RecordPointsAwarded(1650)
			RecordHint("served")
			RecordPurchase("1", OutcomeOK)
			RecordAuthEvent("SIGNED_IN")

			Convey("Then counters advance", func() {
				So(testutil.ToFloat64(globalManager.guesses.WithLabelValues("correct")), ShouldEqual, before+1)
			})
		})

		Convey("When recording gauges", func() {
			UpdateActivePlayers(3)
			UpdateTotalPlayers(7)
			UpdateQueueSize(5)
			UpdateQueueCapacity(10)
			UpdateQueueUtilization(0.5)
			UpdateWorkerActiveCount(2)

			Convey("Then gauges hold the latest value", func() {
				So(testutil.ToFloat64(globalManager.activePlayers), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.totalPlayers), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.queueUtilization), ShouldEqual, 0.5)
				So(testutil.ToFloat64(globalManager.workerActive), ShouldEqual, 2)
			})
		})

		Convey("When recording persistence and http metrics", func() {
			So(func() {
				RecordProfileLoad(OutcomeTimeout, 10000)
				RecordProfileSync(3)
				RecordProfileSyncError()
				RecordStoreQueryLatency("memory", "get_profile", 0.1)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordHTTPRequest("/game/guess", "POST", "200", 1.5)
				RecordErrorByComponent("sync", "persistence")
				RecordErrorByEndpoint("/game/guess", "POST", "client_error")
			}, ShouldNotPanic)
		})

		Convey("When the system collector runs", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				RunSystemCollector(ctx)
				close(done)
			}()
			cancel()
			<-done

			Convey("Then goroutine count was sampled", func() {
				So(testutil.ToFloat64(globalManager.systemGoroutineCount), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		RecordGuess("too_high")
		families, err := GetRegistry().Gather()

		Convey("Then it exposes guessr metrics only", func() {
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
			for _, f := range families {
				So(strings.HasPrefix(f.GetName(), "guessr_"), ShouldBeTrue)
			}
		})
	})
}
