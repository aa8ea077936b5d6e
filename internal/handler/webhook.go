package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dukerupert/terrazzo/internal/domain"
)

// StripeWebhook verifies and dispatches gateway events. The raw body is
// needed for signature verification, so this handler never uses bind.
func (h *Handler) StripeWebhook(c echo.Context) error {
	const op = "handler.webhook.stripe"
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return domain.Invalid(op, "could not read body")
	}
	sig := c.Request().Header.Get("Stripe-Signature")
	if err := h.Webhooks.HandleEvent(c.Request().Context(), payload, sig); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"received": true})
}
