package types_test

import (
	"errors"
	"testing"

	"github.com/okian/guessr/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseOrder(t *testing.T) {
	Convey("Given order strings", t, func() {
		Convey("When empty or desc", func() {
			for _, s := range []string{"", "desc", "DESC", " desc "} {
				o, err := types.ParseOrder(s)
				So(err, ShouldBeNil)
				So(o, ShouldEqual, types.OrderDesc)
			}
		})

		Convey("When asc", func() {
			o, err := types.ParseOrder("Asc")
			So(err, ShouldBeNil)
			So(o, ShouldEqual, types.OrderAsc)
		})

		Convey("When unknown", func() {
			_, err := types.ParseOrder("sideways")
			So(errors.Is(err, types.ErrInvalidOrder), ShouldBeTrue)
		})
	})
}
