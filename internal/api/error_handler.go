package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/orgstack/tenant-auth/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// errorStatus binds a domain error to its HTTP rendering. An empty message
// means the error text itself is safe to show.
type errorStatus struct {
	target error
	code   int
	msg    string
}

// Order matters: the first match wins. Every token rejection renders as
// "unauthorized" whatever its cause.
var errorStatuses = []errorStatus{
	{domain.ErrValidation, http.StatusBadRequest, ""},
	{domain.ErrDuplicateEmail, http.StatusConflict, "email already registered"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
	{domain.ErrMissingToken, http.StatusUnauthorized, "missing token"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{domain.ErrUserNotFound, http.StatusNotFound, "user not found"},
}

// NewHTTPErrorHandler renders every error as {"error": "<message>"}.
// Errors outside the domain taxonomy become a logged 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg, known := statusFor(err)
		if !known {
			log.Error().
				Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msg("unhandled error")
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func statusFor(err error) (int, string, bool) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprint(he.Message), true
	}

	for _, s := range errorStatuses {
		if !errors.Is(err, s.target) {
			continue
		}
		if s.msg == "" {
			return s.code, err.Error(), true
		}
		return s.code, s.msg, true
	}
	return http.StatusInternalServerError, "internal server error", false
}
