// Package apperr defines the API error contract: every failure body is
// {code, message, detail} so clients switch on a stable code instead of
// parsing prose.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Error is an API-visible failure.
type Error struct {
	Status  int         `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// WithDetail returns a copy carrying structured detail.
func (e *Error) WithDetail(detail interface{}) *Error {
	out := *e
	out.Detail = detail
	return &out
}

// Common failures across the API surface.
var (
	ErrAuthExpired = New(http.StatusUnauthorized, "auth_expired", "session expired, sign in again")
	ErrForbidden   = New(http.StatusForbidden, "forbidden", "not allowed for this visit")
	ErrNotFound    = New(http.StatusNotFound, "not_found", "record not found")
	ErrExternal    = New(http.StatusBadGateway, "external_error", "upstream data temporarily unavailable")
)

// VersionConflict builds the 409 body carrying the server's version, so
// the client can offer a reload.
func VersionConflict(currentVersion int) *Error {
	return New(http.StatusConflict, "version_conflict", "record was changed by someone else").
		WithDetail(map[string]interface{}{"current_version": currentVersion})
}

// ValidationFailed builds the 422 body carrying the field errors.
func ValidationFailed(fieldErrors interface{}) *Error {
	return New(http.StatusUnprocessableEntity, "validation_failed", "record failed admission checks").
		WithDetail(map[string]interface{}{"errors": fieldErrors})
}

// codeForStatus maps bare HTTP errors onto envelope codes.
func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "auth_expired"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "version_conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	default:
		return "internal_error"
	}
}

// EchoHandler returns an echo error handler that renders every error as
// the envelope and logs server-side failures.
func EchoHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var appErr *Error
		if !errors.As(err, &appErr) {
			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				appErr = New(httpErr.Code, codeForStatus(httpErr.Code), fmt.Sprintf("%v", httpErr.Message))
			} else {
				appErr = New(http.StatusInternalServerError, "internal_error", "internal server error")
			}
		}

		if appErr.Status >= http.StatusInternalServerError {
			logger.Error().Err(err).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(appErr.Status)
			return
		}
		_ = c.JSON(appErr.Status, appErr)
	}
}
