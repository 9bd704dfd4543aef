package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/okian/guessr/internal/adapters/auth"
	"github.com/okian/guessr/internal/adapters/repository/sqlite"
	service "github.com/okian/guessr/internal/app"
	"github.com/okian/guessr/internal/domain/game"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service on SQLite with local auth", t, func() {
		ctx := context.Background()
		store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "guessr.db"))
		So(err, ShouldBeNil)

		provider, err := auth.NewLocal(store, []byte("integration-secret"))
		So(err, ShouldBeNil)
		Reset(provider.Close)

		svc := newService(service.WithStore(store), service.WithAuth(provider))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		Convey("When a user signs up", func() {
			sess, err := provider.SignUp(ctx, "alice@example.com", "secret-pw", map[string]string{"username": "alice"})
			So(err, ShouldBeNil)
			id := sess.User.ID

			Convey("Then the sign-in event activates a player with a stored profile", func() {
				So(eventually(func() bool {
					_, err := svc.Player(id)
					return err == nil
				}), ShouldBeTrue)
				So(eventually(func() bool {
					rec, err := store.GetProfile(ctx, id)
					return err == nil && rec.Username == "alice"
				}), ShouldBeTrue)
			})

			Convey("And a won game reaches the leaderboard", func() {
				So(eventually(func() bool {
					_, err := svc.Player(id)
					return err == nil
				}), ShouldBeTrue)
				res, err := svc.Guess(ctx, id, "42")
				So(err, ShouldBeNil)
				So(res.Status, ShouldEqual, game.Won)

				So(eventually(func() bool {
					top, err := svc.Leaderboard(ctx, 1, "desc")
					return err == nil && len(top) == 1 && top[0].UserID == id && top[0].Score == res.Awarded
				}), ShouldBeTrue)
			})

			Convey("And signing out removes the player", func() {
				So(eventually(func() bool {
					_, err := svc.Player(id)
					return err == nil
				}), ShouldBeTrue)
				So(provider.SignOut(ctx, sess.AccessToken), ShouldBeNil)
				So(eventually(func() bool {
					_, err := svc.Player(id)
					return errors.Is(err, service.ErrNoPlayer)
				}), ShouldBeTrue)
			})
		})
	})
}
