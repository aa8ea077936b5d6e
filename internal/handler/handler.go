// Package handler maps the HTTP surface onto the service layer. Handlers
// bind and validate payloads, call exactly one service operation, and
// render JSON; all business rules live below this package.
package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dukerupert/terrazzo/internal/auth"
	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/middleware"
	"github.com/dukerupert/terrazzo/internal/order"
	"github.com/dukerupert/terrazzo/internal/payments"
	"github.com/dukerupert/terrazzo/internal/postgres"
	"github.com/dukerupert/terrazzo/internal/purchase"
	"github.com/dukerupert/terrazzo/internal/quote"
	"github.com/dukerupert/terrazzo/internal/scraper"
	"github.com/dukerupert/terrazzo/internal/shipping"
	"github.com/dukerupert/terrazzo/internal/trade"
	"github.com/dukerupert/terrazzo/internal/webhook"
)

// Handler carries every service the HTTP surface dispatches to.
type Handler struct {
	Store     *postgres.Store
	Auth      *auth.Service
	Orders    *order.Service
	Payments  *payments.Service
	Purchase  *purchase.Service
	Quotes    *quote.Service
	Scraper   *scraper.Service
	Webhooks  *webhook.Service
	TradeDocs *trade.DocumentService
	Rater     *shipping.Rater

	validate *validator.Validate
	logger   zerolog.Logger
}

func New(logger zerolog.Logger) *Handler {
	return &Handler{
		validate: validator.New(),
		logger:   logger.With().Str("component", "http").Logger(),
	}
}

// bind decodes the JSON body into v and runs struct validation.
func (h *Handler) bind(c echo.Context, v any) error {
	const op = "handler.bind"
	if err := c.Bind(v); err != nil {
		return domain.Invalid(op, "malformed request body")
	}
	if err := h.validate.Struct(v); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			f := errs[0]
			return domain.Invalid(op, "invalid field "+f.Field())
		}
		return domain.Invalid(op, "invalid request body")
	}
	return nil
}

// ErrorHandler renders domain errors as {"error": message} with the
// status code derived from the error taxonomy. Echo's own HTTP errors
// (404 on unknown routes and the like) pass through unchanged.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if he, ok := err.(*echo.HTTPError); ok {
			msg, _ := he.Message.(string)
			if msg == "" {
				msg = http.StatusText(he.Code)
			}
			_ = c.JSON(he.Code, map[string]string{"error": msg})
			return
		}
		status := middleware.StatusForError(err)
		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}
		_ = c.JSON(status, map[string]string{"error": domain.ErrorMessage(err)})
	}
}

func actor(c echo.Context) string {
	return middleware.GetPrincipal(c).ActorLabel()
}
