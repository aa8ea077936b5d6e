package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/middleware"
	"github.com/dukerupert/terrazzo/internal/order"
	"github.com/dukerupert/terrazzo/internal/postgres"
	"github.com/dukerupert/terrazzo/internal/quote"
)

type quoteLineRequest struct {
	SkuID       *uuid.UUID       `json:"sku_id"`
	ProductName string           `json:"product_name"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	VendorID    *uuid.UUID       `json:"vendor_id"`
	NumBoxes    int              `json:"num_boxes" validate:"min=0"`
	SqftNeeded  *decimal.Decimal `json:"sqft_needed"`
	PriceTier   *string          `json:"price_tier"`
	IsSample    bool             `json:"is_sample"`
}

type createQuoteRequest struct {
	Email           string             `json:"email" validate:"required,email"`
	CustomerID      *uuid.UUID         `json:"customer_id"`
	TradeCustomerID *uuid.UUID         `json:"trade_customer_id"`
	DeliveryMethod  string             `json:"delivery_method" validate:"required,oneof=pickup shipping"`
	ShippingAddress *domain.Address    `json:"shipping_address"`
	Shipping        decimal.Decimal    `json:"shipping"`
	SampleShipping  decimal.Decimal    `json:"sample_shipping"`
	PromoCode       string             `json:"promo_code"`
	Lines           []quoteLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (r createQuoteRequest) input(salesRepID uuid.UUID) quote.CreateInput {
	in := quote.CreateInput{
		SalesRepID:      salesRepID,
		Email:           r.Email,
		CustomerID:      r.CustomerID,
		TradeCustomerID: r.TradeCustomerID,
		DeliveryMethod:  r.DeliveryMethod,
		ShippingAddress: r.ShippingAddress,
		Shipping:        r.Shipping,
		SampleShipping:  r.SampleShipping,
		PromoCode:       r.PromoCode,
	}
	for _, l := range r.Lines {
		in.Lines = append(in.Lines, quote.Line{
			SkuID:       l.SkuID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice,
			VendorID:    l.VendorID,
			NumBoxes:    l.NumBoxes,
			SqftNeeded:  l.SqftNeeded,
			PriceTier:   l.PriceTier,
			IsSample:    l.IsSample,
		})
	}
	return in
}

// CreateQuote authors a draft quote owned by the calling rep.
func (h *Handler) CreateQuote(c echo.Context) error {
	var req createQuoteRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	p := middleware.GetPrincipal(c)
	q, err := h.Quotes.Create(c.Request().Context(), req.input(p.ID))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, q)
}

// UpdateQuote replaces the lines of a draft quote.
func (h *Handler) UpdateQuote(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req createQuoteRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	p := middleware.GetPrincipal(c)
	q, err := h.Quotes.Update(c.Request().Context(), id, req.input(p.ID))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, q)
}

// GetQuote returns a quote with its lines.
func (h *Handler) GetQuote(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	q, items, err := h.Quotes.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"quote": q, "items": items})
}

// SendQuote emails the quote and starts its expiry clock.
func (h *Handler) SendQuote(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	q, err := h.Quotes.Send(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, q)
}

type convertQuoteRequest struct {
	Payment string `json:"payment" validate:"omitempty,oneof=offline stripe"`
}

// ConvertQuote copies a quote into a new order.
func (h *Handler) ConvertQuote(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req convertQuoteRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	o, err := h.Orders.ConvertQuote(c.Request().Context(), id, req.Payment, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, o)
}

type quickOrderRequest struct {
	Email           string           `json:"email" validate:"required,email"`
	Items           []addItemRequest `json:"items" validate:"required,min=1,dive"`
	DeliveryMethod  string           `json:"delivery_method" validate:"required,oneof=pickup shipping"`
	ShippingAddress *domain.Address  `json:"shipping_address"`
	Payment         string           `json:"payment" validate:"required,oneof=offline stripe"`
}

// CreateQuickOrder is the rep phone-order flow. Offline payment confirms
// immediately; stripe returns a client secret to collect against.
func (h *Handler) CreateQuickOrder(c echo.Context) error {
	var req quickOrderRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	p := middleware.GetPrincipal(c)

	in := order.QuickInput{
		SalesRepID:      p.ID,
		Email:           req.Email,
		DeliveryMethod:  req.DeliveryMethod,
		ShippingAddress: req.ShippingAddress,
		Payment:         req.Payment,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, it.quickItem())
	}
	res, err := h.Orders.CreateQuick(c.Request().Context(), in)
	if err != nil {
		return err
	}
	out := map[string]any{"order": res.Order}
	if res.ClientSecret != "" {
		out["client_secret"] = res.ClientSecret
	}
	return c.JSON(http.StatusCreated, out)
}

// ListRepOrders lists orders assigned to the calling rep.
func (h *Handler) ListRepOrders(c echo.Context) error {
	p := middleware.GetPrincipal(c)
	repID := p.ID
	orders, err := h.Store.ListOrders(c.Request().Context(), postgres.OrderListFilter{
		SalesRepID: &repID,
		Limit:      100,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"orders": orders})
}

// GetRepCommission returns the commission row for one of the rep's orders.
func (h *Handler) GetRepCommission(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p := middleware.GetPrincipal(c)

	comm, err := h.Store.GetCommissionByOrder(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if comm.SalesRepID != p.ID {
		return domain.NotFound("handler.rep.commission", "commission")
	}
	return c.JSON(http.StatusOK, comm)
}
