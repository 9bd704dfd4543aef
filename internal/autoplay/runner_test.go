package autoplay_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/guessr/internal/adapters/auth"
	"github.com/okian/guessr/internal/adapters/http/api"
	"github.com/okian/guessr/internal/adapters/repository"
	"github.com/okian/guessr/internal/adapters/sessioncache"
	service "github.com/okian/guessr/internal/app"
	"github.com/okian/guessr/internal/autoplay"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRun(t *testing.T) {
	Convey("Given a running game server", t, func() {
		ctx := context.Background()
		secret := []byte("autoplay-test")
		store := repository.NewTreapStore()
		provider, err := auth.NewLocal(store, secret, auth.WithBcryptCost(4))
		So(err, ShouldBeNil)
		svc := service.New(service.WithStore(store), service.WithAuth(provider), service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)

		server := api.NewServer(svc, provider, sessioncache.New(secret, 0, false))
		mux := http.NewServeMux()
		server.Register(ctx, mux)
		ts := httptest.NewServer(server.Handler(mux))
		Reset(func() {
			ts.Close()
			svc.Stop()
			provider.Close()
		})

		Convey("When bots play", func() {
			stats, err := autoplay.Run(ctx, autoplay.Config{
				BaseURL: ts.URL,
				Bots:    3,
				Games:   2,
				Workers: 2,
				Settle:  5 * time.Second,
			}, nil)

			Convey("Then every game is won and the leaderboard agrees", func() {
				So(err, ShouldBeNil)
				So(stats.BotsRegistered.Load(), ShouldEqual, int64(3))
				So(stats.GamesPlayed.Load(), ShouldEqual, int64(6))
				So(stats.GamesWon.Load(), ShouldEqual, int64(6))
				So(stats.Failures.Load(), ShouldEqual, int64(0))
			})
		})

		Convey("When the server is unreachable", func() {
			_, err := autoplay.Run(ctx, autoplay.Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, nil)
			So(err, ShouldNotBeNil)
		})
	})
}
