package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/middleware"
	"github.com/dukerupert/terrazzo/internal/order"
	"github.com/dukerupert/terrazzo/internal/shipping"
)

type selectedRate struct {
	Carrier     string          `json:"carrier" validate:"required"`
	Service     string          `json:"service" validate:"required"`
	Cost        decimal.Decimal `json:"cost"`
	TransitDays int             `json:"transit_days"`
	IsFallback  bool            `json:"is_fallback"`
}

func shippingOption(r selectedRate) shipping.Option {
	return shipping.Option{
		Carrier:     r.Carrier,
		Service:     r.Service,
		Cost:        r.Cost,
		TransitDays: r.TransitDays,
		IsFallback:  r.IsFallback,
	}
}

type checkoutRequest struct {
	SessionID       string          `json:"session_id" validate:"required"`
	Email           string          `json:"email" validate:"required,email"`
	DeliveryMethod  string          `json:"delivery_method" validate:"required,oneof=pickup shipping"`
	ShippingAddress *domain.Address `json:"shipping_address"`
	ShippingOption  *selectedRate   `json:"shipping_option"`
	PromoCode       string          `json:"promo_code"`

	// place-order only
	PaymentIntentID       string `json:"payment_intent_id"`
	CreateAccountPassword string `json:"create_account_password"`
}

func (h *Handler) checkoutInput(c echo.Context, req checkoutRequest) order.CheckoutInput {
	in := order.CheckoutInput{
		SessionID:             req.SessionID,
		Email:                 req.Email,
		DeliveryMethod:        req.DeliveryMethod,
		ShippingAddress:       req.ShippingAddress,
		PromoCode:             req.PromoCode,
		PaymentIntentID:       req.PaymentIntentID,
		CreateAccountPassword: req.CreateAccountPassword,
	}
	if req.ShippingOption != nil {
		in.ShippingOption = &order.SelectedRate{
			Carrier:     req.ShippingOption.Carrier,
			Service:     req.ShippingOption.Service,
			Cost:        req.ShippingOption.Cost,
			TransitDays: req.ShippingOption.TransitDays,
			IsFallback:  req.ShippingOption.IsFallback,
		}
	}
	if p := middleware.GetPrincipal(c); p != nil {
		switch p.Kind {
		case domain.PrincipalCustomer:
			id := p.ID
			in.CustomerID = &id
		case domain.PrincipalTrade:
			id := p.ID
			in.TradeCustomerID = &id
		}
	}
	return in
}

// CreateCheckoutIntent prices the cart and opens a payment intent.
func (h *Handler) CreateCheckoutIntent(c echo.Context) error {
	var req checkoutRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	quote, err := h.Orders.CreateCheckoutIntent(c.Request().Context(), h.checkoutInput(c, req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, quote)
}

// PlaceOrder drains the cart into a durable order.
func (h *Handler) PlaceOrder(c echo.Context) error {
	var req checkoutRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	if req.PaymentIntentID == "" {
		return domain.Invalid("handler.checkout", "payment_intent_id is required")
	}
	res, err := h.Orders.PlaceOrder(c.Request().Context(), h.checkoutInput(c, req))
	if err != nil {
		return err
	}
	out := map[string]any{"order": res.Order}
	if res.CustomerToken != "" {
		out["customer_token"] = res.CustomerToken
	}
	return c.JSON(http.StatusCreated, out)
}
