package hint_test

import (
	"testing"

	"github.com/okian/guessr/internal/domain/hint"
	"github.com/okian/guessr/internal/domain/random"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCandidates(t *testing.T) {
	Convey("Given target 50", t, func() {
		c := hint.Candidates(50)

		Convey("Then it is even, not greater than 50, a multiple of 5 and in 26..50", func() {
			So(c, ShouldResemble, []string{
				"The number is even",
				"The number is less than 50",
				"The number is a multiple of 5",
				"The number is between 26 and 50",
			})
		})
	})

	Convey("Given target 97", t, func() {
		c := hint.Candidates(97)

		Convey("Then it is odd, greater than 50, prime and in 76..100", func() {
			So(c, ShouldResemble, []string{
				"The number is odd",
				"The number is greater than 50",
				"The number is prime",
				"The number is between 76 and 100",
			})
		})
	})

	Convey("Given target 5", t, func() {
		Convey("Then both conditional clues appear", func() {
			So(len(hint.Candidates(5)), ShouldEqual, 5)
		})
	})

	Convey("Given every target in range", t, func() {
		Convey("Then the range clue always contains the target", func() {
			for n := random.MinNumber; n <= random.MaxNumber; n++ {
				lo, hi := hint.RangeFor(n)
				So(n, ShouldBeBetweenOrEqual, lo, hi)
				So(hi-lo, ShouldEqual, 24)
			}
		})

		Convey("Then there are exactly 25 primes", func() {
			count := 0
			for n := random.MinNumber; n <= random.MaxNumber; n++ {
				if hint.IsPrime(n) {
					count++
				}
			}
			So(count, ShouldEqual, 25)
		})
	})
}

func TestEngine(t *testing.T) {
	Convey("Given an engine with scripted picks", t, func() {
		src := random.Fixed()
		src.Picks = []int{0, 3}
		e := hint.NewEngine(src)

		Convey("Then picks index into the candidates", func() {
			So(e.Hint(50), ShouldEqual, "The number is even")
			So(e.Hint(50), ShouldEqual, "The number is between 26 and 50")
		})
	})

	Convey("Given a random engine", t, func() {
		e := hint.NewEngine(random.New())

		Convey("Then every hint is a true candidate", func() {
			for i := 0; i < 200; i++ {
				So(hint.Candidates(42), ShouldContain, e.Hint(42))
			}
		})
	})
}
