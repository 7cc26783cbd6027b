package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/masomo-lms/visibility/core"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")

	errInvalidAudience = echo.NewHTTPError(http.StatusUnauthorized, "invalid token audience")
)

// newAppHTTPErrorHandler maps visibility lookup errors to responses:
// bad filters and scopes are 400 with a field map, store failures are a logged 500.
// A store failure caused by a core shutdown error also stops the Server.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message := errorResponse(err)
		if code == http.StatusInternalServerError {
			logServerError(logger, err, ctx)
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead { // Issue #608
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, message)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}

func errorResponse(err error) (int, interface{}) {
	switch origErr := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if origErr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, origErr.Message
		}
		if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
			origErr = herr
		}
		return origErr.Code, origErr.Message
	case validator.ValidationErrors: // query binding
		fldErrs := make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
		}
		return http.StatusBadRequest, fldErrs
	case *core.ValidationError: // ids and limiting filter
		if origErr.Fields == nil {
			return http.StatusBadRequest, origErr.Error()
		}
		fldErrs := make(map[string]string, len(origErr.Fields))
		for _, fErr := range origErr.Fields {
			fldErrs[fErr.Field] = fErr.Error
		}
		return http.StatusBadRequest, fldErrs
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

// logServerError reports err with the staff member and request that hit it.
func logServerError(logger core.Logger, err error, ctx echo.Context) {
	msg := http.StatusText(http.StatusInternalServerError)

	var person core.Person
	if claims, cErr := getContextClaims(ctx); cErr == nil {
		person = claims.person()
	}
	logger.Error(msg, errors.Wrap(err, msg), person, map[string]interface{}{
		"request_id": ctx.Response().Header().Get(echo.HeaderXRequestID),
		"uri":        ctx.Request().RequestURI,
	})
}
