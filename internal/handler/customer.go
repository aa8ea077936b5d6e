package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/middleware"
	"github.com/dukerupert/terrazzo/internal/postgres"
)

// ListCustomerOrders lists the retail account's orders.
func (h *Handler) ListCustomerOrders(c echo.Context) error {
	p := middleware.GetPrincipal(c)
	customerID := p.ID
	orders, err := h.Store.ListOrders(c.Request().Context(), postgres.OrderListFilter{
		CustomerID: &customerID,
		Limit:      100,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"orders": orders})
}

// GetCustomerOrder returns one of the account's orders with its lines.
// Ownership mismatches read as not-found.
func (h *Handler) GetCustomerOrder(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p := middleware.GetPrincipal(c)
	ctx := c.Request().Context()

	o, err := h.Store.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	if o.CustomerID == nil || *o.CustomerID != p.ID {
		return domain.NotFound("handler.customer.order", "order")
	}
	items, err := h.Store.ListOrderItems(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"order": o, "items": items})
}
