package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dukerupert/terrazzo/internal/domain"
)

// RequestLogger emits one structured line per request. It runs after the
// auth middlewares so the principal kind can be included.
func RequestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			req := c.Request()
			evt := logger.Info()
			status := c.Response().Status
			if err != nil {
				status = statusForError(err)
				if status >= 500 {
					evt = logger.Error().Err(err)
				} else {
					evt = logger.Warn().Str("error", domain.ErrorMessage(err))
				}
			}
			evt = evt.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID))
			if p := GetPrincipal(c); p != nil {
				evt = evt.Str("actor", p.ActorLabel())
			}
			evt.Msg("request")
			return err
		}
	}
}

func statusForError(err error) int {
	switch domain.ErrorCode(err) {
	case domain.EINVALID:
		return 400
	case domain.EUNAUTHENTICATED:
		return 401
	case domain.EFORBIDDEN:
		return 403
	case domain.ENOTFOUND:
		return 404
	case domain.ECONFLICT:
		return 409
	case domain.ERATELIMIT:
		return 429
	case domain.EUPSTREAM:
		return 502
	default:
		return 500
	}
}

// StatusForError is the error-to-HTTP mapping shared with the handler
// package's error responder.
func StatusForError(err error) int { return statusForError(err) }
