package points_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/okian/guessr/internal/domain/points"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLedger(t *testing.T) {
	Convey("Given a ledger with 150 points", t, func() {
		l := points.NewLedger(150)

		Convey("When a hint is bought", func() {
			bal, err := l.Spend(points.DefaultHintCost)

			Convey("Then 50 points remain", func() {
				So(err, ShouldBeNil)
				So(bal, ShouldEqual, 50)
				So(l.Balance(), ShouldEqual, 50)
			})

			Convey("And another is attempted", func() {
				bal, err := l.Spend(points.DefaultHintCost)

				Convey("Then it is rejected and nothing is deducted", func() {
					So(errors.Is(err, points.ErrInsufficientPoints), ShouldBeTrue)
					So(bal, ShouldEqual, 50)
					So(l.Balance(), ShouldEqual, 50)
				})
			})
		})

		Convey("When points are credited", func() {
			bal, err := l.Credit(500)
			So(err, ShouldBeNil)
			So(bal, ShouldEqual, 650)
		})

		Convey("When negative amounts are used", func() {
			_, err := l.Credit(-1)
			So(errors.Is(err, points.ErrInvalidAmount), ShouldBeTrue)
			_, err = l.Spend(-1)
			So(errors.Is(err, points.ErrInvalidAmount), ShouldBeTrue)
			So(l.Balance(), ShouldEqual, 150)
		})

		Convey("When set to a negative balance", func() {
			l.Set(-20)
			So(l.Balance(), ShouldEqual, 0)
		})
	})

	Convey("Given concurrent spenders on a ledger of 1000", t, func() {
		l := points.NewLedger(1000)
		var wg sync.WaitGroup
		var mu sync.Mutex
		ok := 0
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := l.Spend(100); err == nil {
					mu.Lock()
					ok++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly ten succeed and the balance never goes negative", func() {
			So(ok, ShouldEqual, 10)
			So(l.Balance(), ShouldEqual, 0)
		})
	})
}

func TestCatalog(t *testing.T) {
	Convey("Given the default catalog", t, func() {
		c := points.DefaultCatalog()

		Convey("Then it lists three packages in order", func() {
			list := c.List()
			So(len(list), ShouldEqual, 3)
			So(list[0], ShouldResemble, points.Package{ID: 1, Points: 500, PriceCents: 100, Price: "$1.00"})
			So(list[1].Points, ShouldEqual, 1200)
			So(list[2].Price, ShouldEqual, "$4.00")
		})

		Convey("When looking up an unknown package", func() {
			_, err := c.Lookup(9)
			So(errors.Is(err, points.ErrUnknownPackage), ShouldBeTrue)
		})
	})
}
