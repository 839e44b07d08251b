package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get returns a usable logger", func() {
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized with the json format", func() {
			var buf bytes.Buffer
			So(InitWithFormat("json", &buf), ShouldBeNil)

			Get().Info(context.Background(), "score computed",
				StudentID("stu-1"),
				ListingID("lst-1"),
				Float64("score", 72.5),
				Error(errors.New("boom")),
			)

			Convey("Then each line is a JSON object with the fields", func() {
				var line map[string]any
				So(json.Unmarshal(buf.Bytes(), &line), ShouldBeNil)
				So(line["msg"], ShouldEqual, "score computed")
				So(line["studentId"], ShouldEqual, "stu-1")
				So(line["listingId"], ShouldEqual, "lst-1")
				So(line["score"], ShouldEqual, 72.5)
				So(line["error"], ShouldEqual, "boom")
				So(line["source"], ShouldContainSubstring, "logger_test.go")
			})
		})
	})
}

func TestLoggerNamed(t *testing.T) {
	Convey("Given a named logger", t, func() {
		var buf bytes.Buffer
		So(InitWithFormat("json", &buf), ShouldBeNil)

		Named("worker").Warn(context.Background(), "item failed", QueueItemID("q-1"))

		Convey("Then the component is attached", func() {
			var line map[string]any
			So(json.Unmarshal(buf.Bytes(), &line), ShouldBeNil)
			So(line["component"], ShouldEqual, "worker")
			So(line["queueItemId"], ShouldEqual, "q-1")
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		var buf bytes.Buffer
		So(InitWithFormat("text", &buf), ShouldBeNil)

		Convey("Known levels are accepted", func() {
			for _, lvl := range []string{"debug", "info", "warn", "warning", "error", ""} {
				So(SetLevelString(lvl), ShouldBeNil)
			}
		})

		Convey("Unknown levels are rejected", func() {
			So(SetLevelString("verbose"), ShouldNotBeNil)
		})

		Convey("Debug lines are dropped at error level", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Debug(context.Background(), "hidden")
			So(buf.Len(), ShouldEqual, 0)
		})
	})
}
