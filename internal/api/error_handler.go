package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vidhub/account-service/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain sentinels to their HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders {"statusCode", "message", "success": false, "errors"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg, details := resolveError(err, log, c)
		if details == nil {
			details = []string{}
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{
			StatusCode: code,
			Message:    msg,
			Success:    false,
			Errors:     details,
		})
	}
}

var statusBySentinel = []struct {
	sentinel error
	code     int
}{
	{domain.ErrValidation, http.StatusBadRequest},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrAccountNotFound, http.StatusNotFound},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string, []string) {
	// Echo's own errors (bind failures, 404 from router, middleware rejections).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message), nil
	}

	for _, m := range statusBySentinel {
		if errors.Is(err, m.sentinel) {
			msg := detail(err, m.sentinel)
			var details []string
			if m.code == http.StatusBadRequest {
				details = strings.Split(msg, "; ")
			}
			return m.code, msg, details
		}
	}

	if errors.Is(err, domain.ErrInternal) {
		log.Error().
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("internal error")
		return http.StatusInternalServerError, detail(err, domain.ErrInternal), nil
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error", nil
}

// detail returns the text following "<sentinel>: " in err's message, even
// when callers added their own prefixes. Errors without a detail fall back to
// the sentinel text.
func detail(err, sentinel error) string {
	prefix := sentinel.Error() + ": "
	msg := err.Error()
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return sentinel.Error()
}
