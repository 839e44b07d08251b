package types_test

import (
	"encoding/json"
	"testing"
	"time"

	types "github.com/okian/matchengine/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func day(s string) time.Time {
	t, err := types.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestWeeks(t *testing.T) {
	Convey("Given dates across a week", t, func() {
		Convey("Then weeks start on Monday", func() {
			// 2025-03-05 is a Wednesday
			So(types.FormatDate(types.WeekStart(day("2025-03-05"))), ShouldEqual, "2025-03-03")
			So(types.FormatDate(types.WeekEnd(day("2025-03-05"))), ShouldEqual, "2025-03-09")
			So(types.FormatDate(types.WeekStart(day("2025-03-09"))), ShouldEqual, "2025-03-03")
			So(types.FormatDate(types.WeekStart(day("2025-03-03"))), ShouldEqual, "2025-03-03")
		})

		Convey("Then non-UTC instants are normalized", func() {
			loc := time.FixedZone("east", 10*3600)
			at := time.Date(2025, 3, 3, 5, 0, 0, 0, loc) // Sunday 19:00 UTC
			So(types.FormatDate(types.WeekStart(at)), ShouldEqual, "2025-02-24")
		})
	})
}

func TestRanges(t *testing.T) {
	Convey("Given inclusive day ranges", t, func() {
		So(types.DaysOverlap(day("2025-03-03"), day("2025-03-09"), day("2025-03-08"), day("2025-03-20")), ShouldEqual, 2)
		So(types.DaysOverlap(day("2025-03-03"), day("2025-03-09"), day("2025-03-01"), day("2025-03-31")), ShouldEqual, 7)
		So(types.DaysOverlap(day("2025-03-03"), day("2025-03-09"), day("2025-03-10"), day("2025-03-11")), ShouldEqual, 0)

		So(types.Overlaps(day("2025-03-03"), day("2025-03-09"), time.Time{}, time.Time{}), ShouldBeTrue)
		So(types.Overlaps(day("2025-03-03"), day("2025-03-09"), day("2025-03-10"), time.Time{}), ShouldBeFalse)
		So(types.Overlaps(day("2025-03-03"), day("2025-03-09"), time.Time{}, day("2025-03-03")), ShouldBeTrue)

		So(types.Within(day("2025-03-05"), day("2025-03-05"), day("2025-03-05")), ShouldBeTrue)
		So(types.Within(day("2025-03-04"), day("2025-03-05"), time.Time{}), ShouldBeFalse)
	})
}

func TestDateJSON(t *testing.T) {
	Convey("Given a Date", t, func() {
		Convey("When marshaled", func() {
			b, err := json.Marshal(struct {
				D types.Date `json:"d"`
				Z types.Date `json:"z"`
			}{D: types.NewDate(day("2025-01-31"))})
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `{"d":"2025-01-31","z":null}`)
		})

		Convey("When unmarshaled", func() {
			var v struct {
				D types.Date `json:"d"`
			}
			So(json.Unmarshal([]byte(`{"d":"2025-02-01"}`), &v), ShouldBeNil)
			So(types.FormatDate(v.D.Time), ShouldEqual, "2025-02-01")
			So(json.Unmarshal([]byte(`{"d":"02/01/2025"}`), &v), ShouldNotBeNil)
		})
	})
}

func TestClock(t *testing.T) {
	Convey("Given clocks", t, func() {
		at := day("2025-06-01")
		So(types.FixedClock{At: at}.Now(), ShouldEqual, at)
		So(types.SystemClock{}.Now().Location(), ShouldEqual, time.UTC)
	})
}
