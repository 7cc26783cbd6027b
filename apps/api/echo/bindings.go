package echoapi

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/masomo-lms/visibility/core"
	"github.com/masomo-lms/visibility/core/visibility"
)

const (
	scopeParam          = "scope"
	scopeValidationTag  = "visibility_scope"
	scopeValidationText = "{0} must be a known visibility scope"
)

func init() {
	_ = core.Validate.RegisterValidation(scopeValidationTag, func(fl validator.FieldLevel) bool {
		_, ok := visibility.PlanFor(visibility.Scope(fl.Field().String()))
		return ok
	})
	core.RegisterCustomTranslation(scopeValidationTag, scopeValidationText)
}

// visibilityQuery holds the query params of a visibility lookup.
// Ids may be repeated (course_id=1&course_id=2) or comma separated (course_id=1,2);
// a param present without value (course_id=) restricts to nothing.
type visibilityQuery struct {
	CourseIDs visibility.IDs
	UserIDs   visibility.IDs
	ObjectIDs visibility.IDs
	Scope     string `query:"scope" validate:"omitempty,visibility_scope"`
}

func (q *visibilityQuery) Bind(ctx echo.Context, kind visibility.Kind) error {
	data := ctx.QueryParams()

	fldErrs := make([]core.FieldError, 0)
	parse := func(param string) visibility.IDs {
		ids, err := parseIDs(data[param])
		if err != nil {
			fldErrs = append(fldErrs, core.FieldError{Field: param, Error: err.Error()})
		}
		return ids
	}
	q.CourseIDs = parse("course_id")
	q.UserIDs = parse("user_id")
	q.ObjectIDs = parse(kind.IDColumn)
	q.Scope = core.CleanString(data.Get(scopeParam), true)

	if len(fldErrs) > 0 {
		return core.NewValidationError(core.NewArgumentError("invalid ids"), fldErrs...)
	}
	if err := core.Validate.Struct(q); err != nil {
		return errors.Wrap(err, "validating visibility query")
	}
	return nil
}

func (q visibilityQuery) scope() visibility.Scope {
	if q.Scope == "" {
		return visibility.ScopeFull
	}
	return visibility.Scope(q.Scope)
}

func (q visibilityQuery) filter() visibility.Filter {
	return visibility.Filter{CourseIDs: q.CourseIDs, UserIDs: q.UserIDs, ObjectIDs: q.ObjectIDs}
}

// parseIDs returns nil when the param is absent.
func parseIDs(values []string) (visibility.IDs, error) {
	if values == nil {
		return nil, nil
	}
	ids := make(visibility.IDs, 0, len(values))
	for _, val := range values {
		for _, s := range strings.Split(val, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil || id <= 0 {
				return nil, errors.Errorf("%q is not a valid id", s)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
