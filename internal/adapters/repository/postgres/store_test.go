package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/guessr/internal/adapters/repository"
	"github.com/okian/guessr/internal/adapters/repository/storetest"
	"github.com/okian/guessr/internal/domain/model"
	"github.com/okian/guessr/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// dsnEnv points the contract run at a disposable database.
const dsnEnv = "GUESSR_TEST_POSTGRES_DSN"

func TestQueries(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	Convey("Given the postgres query builders", t, func() {
		Convey("When a partial update is built", func() {
			query, args, err := updateProfileQuery(model.ProfileUpdate{UserID: "u1", Score: model.Int(1650)}, now)

			Convey("Then only the set columns and updated_at are written", func() {
				So(err, ShouldBeNil)
				So(query, ShouldEqual, "UPDATE profiles SET score = $1, updated_at = $2 WHERE user_id = $3")
				So(args, ShouldResemble, []any{1650, now, "u1"})
			})
		})

		Convey("When a hint spend is written", func() {
			query, args, err := updateProfileQuery(model.ProfileUpdate{UserID: "u1", PointsDelta: -100}, now)

			Convey("Then the balance moves relative to the stored value", func() {
				So(err, ShouldBeNil)
				So(query, ShouldEqual,
					"UPDATE profiles SET purchased_points = GREATEST(purchased_points + $1, 0), updated_at = $2 WHERE user_id = $3")
				So(args, ShouldResemble, []any{-100, now, "u1"})
			})
		})

		Convey("When points are added", func() {
			query, args, err := addPointsQuery("u1", 500, now)

			Convey("Then the increment happens in SQL and returns the total", func() {
				So(err, ShouldBeNil)
				So(query, ShouldEqual,
					"UPDATE profiles SET purchased_points = purchased_points + $1, updated_at = $2 WHERE user_id = $3 RETURNING purchased_points")
				So(args, ShouldResemble, []any{500, now, "u1"})
			})
		})

		Convey("When the leaderboard is read", func() {
			desc, _, err := topQuery(10, types.OrderDesc)
			So(err, ShouldBeNil)
			asc, _, err := topQuery(3, types.OrderAsc)
			So(err, ShouldBeNil)

			Convey("Then ordering and limit follow the request", func() {
				So(desc, ShouldEqual, "SELECT user_id, username, score FROM profiles ORDER BY score DESC, user_id ASC LIMIT 10")
				So(asc, ShouldEqual, "SELECT user_id, username, score FROM profiles ORDER BY score ASC, user_id DESC LIMIT 3")
			})
		})

		Convey("When a profile insert is built", func() {
			query, args, err := insertProfileQuery(model.ProfileRecord{UserID: "u1", Username: "ann"}, now)

			Convey("Then it never overwrites an existing row", func() {
				So(err, ShouldBeNil)
				So(query, ShouldEndWith, "ON CONFLICT (user_id) DO NOTHING")
				So(len(args), ShouldEqual, len(profileColumns))
			})
		})
	})
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), "")
	if !errors.Is(err, repository.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestStoreContract(t *testing.T) {
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}
	storetest.Run(t, func(t *testing.T) repository.Store {
		ctx := context.Background()
		s, err := Open(ctx, dsn)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if _, err := s.pool.Exec(ctx, "TRUNCATE "+profilesTable+", "+accountsTable); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return s
	})
}
