package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/matchengine/internal/domain/apperr"
	. "github.com/smartystreets/goconvey/convey"
)

func TestKinds(t *testing.T) {
	Convey("Given kinded errors", t, func() {
		cause := errors.New("no rows")
		err := apperr.WrapKind("store.get_student", apperr.ErrNotFound, cause)

		Convey("Then both the kind and the cause match", func() {
			So(errors.Is(err, apperr.ErrNotFound), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(errors.Is(err, apperr.ErrForbidden), ShouldBeFalse)
			So(err.Error(), ShouldEqual, "store.get_student: not found: no rows")
			So(apperr.Code(err), ShouldEqual, "not_found")
		})

		Convey("Then wrapping survives fmt.Errorf", func() {
			outer := fmt.Errorf("compute: %w", apperr.NewKind("op", apperr.ErrForbidden))
			So(apperr.KindOf(outer), ShouldEqual, apperr.ErrForbidden)
		})

		Convey("Then WrapKind of nil is nil", func() {
			So(apperr.WrapKind("op", apperr.ErrInternal, nil), ShouldBeNil)
		})

		Convey("Then unknown errors are internal", func() {
			So(apperr.KindOf(errors.New("boom")), ShouldEqual, apperr.ErrInternal)
			So(apperr.Code(errors.New("boom")), ShouldEqual, "internal_error")
		})
	})
}

func TestValidationError(t *testing.T) {
	Convey("Given a validation error with two fields", t, func() {
		v := &apperr.ValidationError{}
		So(v.OrNil(), ShouldBeNil)

		v.Add("kind", "is required")
		v.Add("blocks[0].end", "must be after %s", "start")
		err := v.OrNil()

		Convey("Then it matches ErrValidation and lists fields", func() {
			So(errors.Is(err, apperr.ErrValidation), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "kind: is required, blocks[0].end: must be after start")

			var target *apperr.ValidationError
			So(errors.As(apperr.WrapKind("api", apperr.ErrValidation, err), &target), ShouldBeTrue)
			So(len(target.Fields), ShouldEqual, 2)
		})
	})
}
