package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/order"
	"github.com/dukerupert/terrazzo/internal/postgres"
)

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, domain.Invalid("handler.path", "invalid "+name)
	}
	return id, nil
}

// ListOrders returns orders newest-first with optional status, email, and
// paging filters.
func (h *Handler) ListOrders(c echo.Context) error {
	f := postgres.OrderListFilter{Limit: 50}
	if s := c.QueryParam("status"); s != "" {
		st := domain.OrderStatus(s)
		f.Status = &st
	}
	if e := c.QueryParam("email"); e != "" {
		f.Email = &e
	}
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			f.Limit = n
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			f.Offset = n
		}
	}
	orders, err := h.Store.ListOrders(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"orders": orders})
}

// GetOrder returns the full admin view: order, lines, payments ledger,
// derived purchase orders, and the activity log.
func (h *Handler) GetOrder(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	o, err := h.Store.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	items, err := h.Store.ListOrderItems(ctx, id)
	if err != nil {
		return err
	}
	ledger, err := h.Payments.GetLedger(ctx, id)
	if err != nil {
		return err
	}
	pos, err := h.Store.ListPurchaseOrdersByOrder(ctx, id)
	if err != nil {
		return err
	}
	activity, err := h.Store.ListOrderActivity(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"order":           o,
		"items":           items,
		"ledger":          ledger,
		"purchase_orders": pos,
		"activity":        activity,
	})
}

type statusRequest struct {
	Status         string  `json:"status" validate:"required"`
	TrackingNumber *string `json:"tracking_number"`
	TrackingURL    *string `json:"tracking_url"`
	CancelReason   *string `json:"cancel_reason"`
}

// UpdateOrderStatus drives the order state machine.
func (h *Handler) UpdateOrderStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req statusRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	o, err := h.Orders.Transition(c.Request().Context(), id, order.TransitionInput{
		To:             domain.OrderStatus(req.Status),
		TrackingNumber: req.TrackingNumber,
		TrackingURL:    req.TrackingURL,
		CancelReason:   req.CancelReason,
	}, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

type refundRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Reason *string          `json:"reason"`
}

// RefundOrder issues a full or partial refund against the original
// payment intent. Omitting amount refunds the whole remaining balance,
// which requires a cancelled order.
func (h *Handler) RefundOrder(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req refundRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	o, err := h.Orders.Refund(c.Request().Context(), id, order.RefundInput{
		Amount: req.Amount,
		Reason: req.Reason,
	}, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

type paymentRequestRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description string          `json:"description"`
}

// CreatePaymentRequest opens a checkout-session link for an additional
// charge on the order.
func (h *Handler) CreatePaymentRequest(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req paymentRequestRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	pr, err := h.Payments.RequestPayment(c.Request().Context(), id, req.Amount, req.Description, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, pr)
}

// GetOrderLedger returns the payments ledger on its own.
func (h *Handler) GetOrderLedger(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ledger, err := h.Payments.GetLedger(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ledger)
}

type addItemRequest struct {
	SkuID       *uuid.UUID      `json:"sku_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VendorID    *uuid.UUID      `json:"vendor_id"`
	NumBoxes    int             `json:"num_boxes" validate:"min=0"`
	PriceTier   *string         `json:"price_tier"`
	IsSample    bool            `json:"is_sample"`
}

func (r addItemRequest) quickItem() order.QuickItem {
	return order.QuickItem{
		SkuID:       r.SkuID,
		ProductName: r.ProductName,
		UnitPrice:   r.UnitPrice,
		VendorID:    r.VendorID,
		NumBoxes:    r.NumBoxes,
		PriceTier:   r.PriceTier,
		IsSample:    r.IsSample,
	}
}

// AddOrderItem appends a line to a pending or confirmed order. Confirmed
// orders get their vendor PO synced in the same transaction.
func (h *Handler) AddOrderItem(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req addItemRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	it, err := h.Orders.AddItem(c.Request().Context(), id, req.quickItem(), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, it)
}

// RemoveOrderItem deletes a line, cascading into draft PO lines.
func (h *Handler) RemoveOrderItem(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	itemID, err := pathID(c, "itemId")
	if err != nil {
		return err
	}
	if err := h.Orders.RemoveItem(c.Request().Context(), id, itemID, actor(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type adjustPriceRequest struct {
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required"`
	Reason    *string         `json:"reason"`
}

// AdjustItemPrice overrides a line price and writes the audit row.
func (h *Handler) AdjustItemPrice(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	itemID, err := pathID(c, "itemId")
	if err != nil {
		return err
	}
	var req adjustPriceRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	it, err := h.Orders.AdjustPrice(c.Request().Context(), id, itemID, req.UnitPrice, req.Reason, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, it)
}

// SwitchOrderToPickup drops the shipping leg and reprices.
func (h *Handler) SwitchOrderToPickup(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	o, err := h.Orders.SwitchToPickup(c.Request().Context(), id, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

type orderShippingOptionsRequest struct {
	Address domain.Address `json:"address" validate:"required"`
}

// OrderShippingOptions rates the order's lines to a new destination
// without mutating the order.
func (h *Handler) OrderShippingOptions(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req orderShippingOptionsRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	opts, err := h.Orders.ShippingOptions(c.Request().Context(), id, &req.Address)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"options": opts})
}

type switchShippingRequest struct {
	Address domain.Address `json:"address" validate:"required"`
	Option  selectedRate   `json:"option" validate:"required"`
}

// SwitchOrderToShipping snapshots the chosen rate onto the order.
func (h *Handler) SwitchOrderToShipping(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req switchShippingRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	o, err := h.Orders.SwitchToShipping(c.Request().Context(), id, &req.Address, shippingOption(req.Option), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}
