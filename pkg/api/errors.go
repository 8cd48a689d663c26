package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/optics-run/optics/pkg/session"

	"github.com/optics-run/optics/pkg/opticserr"
)

// mapError maps a domain error to an HTTP response. Keyword-execution
// failures carry an *opticserr.Error and are rendered as the structured
// error payload spec §6.2 calls for; everything else falls back to a
// plain message, mirroring the teacher's mapServiceError split.
func mapError(err error) *echo.HTTPError {
	if oe, ok := opticserr.As(err); ok {
		return echo.NewHTTPError(oe.HTTPStatus(), ErrorPayload{
			Code:      oe.Code(),
			Category:  string(oe.Category()),
			Message:   oe.Message(),
			Retryable: oe.Retryable(),
			Details:   oe.Details,
		})
	}
	if errors.Is(err, session.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	slog.Error("unexpected api error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
