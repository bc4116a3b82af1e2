package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/forecast"
	"github.com/trezcool/eduadmin/core/store"
	"github.com/trezcool/eduadmin/core/tablesync"
)

var (
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errCollectionNotFound   = echo.NewHTTPError(http.StatusNotFound, "collection not found")
	errDeleteNotConfirmed   = echo.NewHTTPError(http.StatusBadRequest, "deletion must be confirmed with confirm=true")
	errInvalidRequestBody   = echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON object")
	errPrimaryKeyMismatch   = echo.NewHTTPError(http.StatusBadRequest, "primary key in body does not match the URL")
	errNoForecastForStudent = echo.NewHTTPError(http.StatusNotFound, "no forecast for this student yet")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message := resolveError(err)

		if code >= http.StatusInternalServerError {
			msg := http.StatusText(code)
			logger.Error(msg, "error", err, "method", ctx.Request().Method, "path", ctx.Path())

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
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
}

// resolveError maps an error to a status code and a response message.
// Forecast kinds come first: an invalid forecast wraps a validation error but is not the client's fault.
func resolveError(err error) (int, interface{}) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
			httpErr = herr
		}
		return httpErr.Code, httpErr.Message
	}

	switch {
	case errors.Is(err, forecast.ErrInFlight):
		return http.StatusConflict, forecast.ErrInFlight.Error()
	case errors.Is(err, forecast.ErrStudentNotFound):
		return http.StatusNotFound, forecast.ErrStudentNotFound.Error()
	case errors.Is(err, forecast.ErrInvalidResponse):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, forecast.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, forecast.ErrServiceUnavailable.Error()
	case tablesync.IsFatal(err), store.IsConnection(err):
		return http.StatusServiceUnavailable, "remote store unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "remote store timed out"
	case errors.Is(err, tablesync.ErrUnknownCollection):
		return http.StatusNotFound, tablesync.ErrUnknownCollection.Error()
	case store.IsNoRows(err):
		return http.StatusNotFound, "record not found"
	case errors.Is(err, tablesync.ErrMissingPrimaryKey):
		return http.StatusBadRequest, tablesync.ErrMissingPrimaryKey.Error()
	}

	var vErr *core.ValidationError
	if errors.As(err, &vErr) {
		if len(vErr.Fields) > 0 {
			return http.StatusBadRequest, vErr.FieldMap()
		}
		return http.StatusBadRequest, vErr.Error()
	}

	var qErr *store.QueryError
	if errors.As(err, &qErr) {
		return http.StatusBadGateway, qErr.Error()
	}

	// any other error is a server error
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}
