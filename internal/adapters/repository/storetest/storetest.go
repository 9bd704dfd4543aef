// Package storetest holds behaviour checks every repository.Store backend
// must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/guessr/internal/adapters/repository"
	"github.com/okian/guessr/internal/domain/model"
	"github.com/okian/guessr/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// Factory returns an empty store. It is called once per leaf scenario.
type Factory func(t *testing.T) repository.Store

// Run exercises s against the store contract.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	runProfiles(t, newStore)
	runLeaderboard(t, newStore)
	runAccounts(t, newStore)
}

func runProfiles(t *testing.T, newStore Factory) {
	Convey("Given an empty profile store", t, func() {
		ctx := context.Background()
		s := newStore(t)
		Reset(func() { _ = s.Close() })

		Convey("When reading an unknown profile", func() {
			_, err := s.GetProfile(ctx, "ghost")

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When a profile is inserted twice", func() {
			created, err := s.InsertProfileIfAbsent(ctx, model.ProfileRecord{UserID: "u1", Username: "ann", PurchasedPoints: 0})
			So(err, ShouldBeNil)
			So(created, ShouldBeTrue)

			again, err := s.InsertProfileIfAbsent(ctx, model.ProfileRecord{UserID: "u1", Username: "other", Score: 99})

			Convey("Then the second insert is a no-op", func() {
				So(err, ShouldBeNil)
				So(again, ShouldBeFalse)
				rec, err := s.GetProfile(ctx, "u1")
				So(err, ShouldBeNil)
				So(rec.Username, ShouldEqual, "ann")
				So(rec.Score, ShouldEqual, 0)
				So(rec.LastWin, ShouldBeNil)
				n, err := s.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})

			Convey("And a partial update is applied", func() {
				win := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
				err := s.UpdateProfile(ctx, model.ProfileUpdate{
					UserID:        "u1",
					Score:         model.Int(1650),
					PersonalBest:  model.Int(1650),
					CurrentStreak: model.Int(1),
					HighestStreak: model.Int(1),
					LastWin:       model.Time(win),
				})
				So(err, ShouldBeNil)

				Convey("Then only those fields change", func() {
					rec, err := s.GetProfile(ctx, "u1")
					So(err, ShouldBeNil)
					So(rec.Score, ShouldEqual, 1650)
					So(rec.PersonalBest, ShouldEqual, 1650)
					So(rec.CurrentStreak, ShouldEqual, 1)
					So(rec.HighestStreak, ShouldEqual, 1)
					So(rec.Username, ShouldEqual, "ann")
					So(rec.LastWin, ShouldNotBeNil)
					So(rec.LastWin.Equal(win), ShouldBeTrue)
				})

				Convey("And a later update touches only points", func() {
					_, err := s.AddPoints(ctx, "u1", 150)
					So(err, ShouldBeNil)
					So(s.UpdateProfile(ctx, model.ProfileUpdate{UserID: "u1", PointsDelta: -100}), ShouldBeNil)
					rec, _ := s.GetProfile(ctx, "u1")
					So(rec.PurchasedPoints, ShouldEqual, 50)
					So(rec.Score, ShouldEqual, 1650)
					So(rec.LastWin.Equal(win), ShouldBeTrue)

					Convey("Then a spend larger than the balance stops at zero", func() {
						So(s.UpdateProfile(ctx, model.ProfileUpdate{UserID: "u1", PointsDelta: -500}), ShouldBeNil)
						rec, _ := s.GetProfile(ctx, "u1")
						So(rec.PurchasedPoints, ShouldEqual, 0)
					})
				})
			})

			Convey("And points are added", func() {
				res, err := s.AddPoints(ctx, "u1", 500)
				So(err, ShouldBeNil)
				res2, err := s.AddPoints(ctx, "u1", 1200)

				Convey("Then the running total is returned", func() {
					So(err, ShouldBeNil)
					So(res.Success, ShouldBeTrue)
					So(res.NewPoints, ShouldEqual, 500)
					So(res2.NewPoints, ShouldEqual, 1700)
				})
			})
		})

		Convey("When updating an unknown profile", func() {
			err := s.UpdateProfile(ctx, model.ProfileUpdate{UserID: "ghost", Score: model.Int(1)})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When adding points to an unknown profile", func() {
			res, err := s.AddPoints(ctx, "ghost", 500)
			So(err, ShouldNotBeNil)
			So(res.Success, ShouldBeFalse)
			So(res.Error, ShouldNotBeEmpty)
		})

		Convey("When adding a non-positive amount", func() {
			_, _ = s.InsertProfileIfAbsent(ctx, model.ProfileRecord{UserID: "u2"})
			res, err := s.AddPoints(ctx, "u2", 0)
			So(errors.Is(err, repository.ErrInvalidInput), ShouldBeTrue)
			So(res.Success, ShouldBeFalse)
		})
	})
}

func runLeaderboard(t *testing.T, newStore Factory) {
	Convey("Given a store with four players", t, func() {
		ctx := context.Background()
		s := newStore(t)
		Reset(func() { _ = s.Close() })

		for _, p := range []struct {
			id    string
			score int
		}{{"b", 500}, {"a", 500}, {"c", 2000}, {"d", 0}} {
			_, err := s.InsertProfileIfAbsent(ctx, model.ProfileRecord{UserID: p.id, Username: "name-" + p.id})
			So(err, ShouldBeNil)
			So(s.UpdateProfile(ctx, model.ProfileUpdate{UserID: p.id, Score: model.Int(p.score)}), ShouldBeNil)
		}

		Convey("When the top three are read in descending order", func() {
			top, err := s.TopN(ctx, 3, types.OrderDesc)

			Convey("Then ties break by id and ranks are positions", func() {
				So(err, ShouldBeNil)
				So(top, ShouldResemble, []types.Entry{
					{Rank: 1, UserID: "c", Username: "name-c", Score: 2000},
					{Rank: 2, UserID: "a", Username: "name-a", Score: 500},
					{Rank: 3, UserID: "b", Username: "name-b", Score: 500},
				})
			})
		})

		Convey("When read in ascending order", func() {
			top, err := s.TopN(ctx, 10, types.OrderAsc)

			Convey("Then the lowest score comes first", func() {
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 4)
				So(top[0].UserID, ShouldEqual, "d")
				So(top[0].Rank, ShouldEqual, 1)
				So(top[3].UserID, ShouldEqual, "c")
			})
		})

		Convey("When the limit is not positive", func() {
			_, err := s.TopN(ctx, 0, types.OrderDesc)
			So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
		})
	})
}

func runAccounts(t *testing.T, newStore Factory) {
	Convey("Given an account store", t, func() {
		ctx := context.Background()
		s := newStore(t)
		Reset(func() { _ = s.Close() })

		acct := model.Account{
			ID:           "acc-1",
			Email:        "Ann@Example.com",
			PasswordHash: "hash",
			Metadata:     map[string]string{"username": "ann"},
		}
		So(s.CreateAccount(ctx, acct), ShouldBeNil)

		Convey("When looking it up by email in another case", func() {
			got, err := s.AccountByEmail(ctx, "ann@example.com")

			Convey("Then the account is found with its metadata", func() {
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, "acc-1")
				So(got.PasswordHash, ShouldEqual, "hash")
				So(got.Metadata["username"], ShouldEqual, "ann")
				So(got.CreatedAt.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When looking it up by id", func() {
			got, err := s.AccountByID(ctx, "acc-1")
			So(err, ShouldBeNil)
			So(got.Email, ShouldEqual, "Ann@Example.com")
		})

		Convey("When registering the same email again", func() {
			err := s.CreateAccount(ctx, model.Account{ID: "acc-2", Email: "ANN@example.com"})
			So(errors.Is(err, repository.ErrDuplicate), ShouldBeTrue)
		})

		Convey("When looking up unknown accounts", func() {
			_, err := s.AccountByEmail(ctx, "nobody@example.com")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = s.AccountByID(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}
