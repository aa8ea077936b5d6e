package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/domain"
)

type createPromoRequest struct {
	Code               string           `json:"code" validate:"required"`
	Type               string           `json:"type" validate:"required,oneof=percent fixed"`
	Value              decimal.Decimal  `json:"value" validate:"required"`
	MinOrderAmount     *decimal.Decimal `json:"min_order_amount"`
	MaxUses            *int             `json:"max_uses"`
	MaxUsesPerCustomer *int             `json:"max_uses_per_customer"`
	CategoryIDs        []uuid.UUID      `json:"category_ids"`
	ProductIDs         []uuid.UUID      `json:"product_ids"`
	ExpiresAt          *time.Time       `json:"expires_at"`
}

// CreatePromo registers a new promo code, active immediately.
func (h *Handler) CreatePromo(c echo.Context) error {
	const op = "handler.promo.create"
	var req createPromoRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	if req.Value.LessThanOrEqual(decimal.Zero) {
		return domain.Invalid(op, "value must be positive")
	}
	if req.Type == domain.PromoPercent && req.Value.GreaterThan(decimal.NewFromInt(100)) {
		return domain.Invalid(op, "percent value cannot exceed 100")
	}
	p := &domain.PromoCode{
		Code:               req.Code,
		Type:               req.Type,
		Value:              req.Value,
		MinOrderAmount:     req.MinOrderAmount,
		MaxUses:            req.MaxUses,
		MaxUsesPerCustomer: req.MaxUsesPerCustomer,
		CategoryIDs:        req.CategoryIDs,
		ProductIDs:         req.ProductIDs,
		Active:             true,
		ExpiresAt:          req.ExpiresAt,
	}
	if err := h.Store.CreatePromo(c.Request().Context(), p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

// ListPromos returns every promo code, newest first.
func (h *Handler) ListPromos(c echo.Context) error {
	promos, err := h.Store.ListPromos(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"promo_codes": promos})
}

type updatePromoRequest struct {
	Value              *decimal.Decimal `json:"value"`
	MinOrderAmount     *decimal.Decimal `json:"min_order_amount"`
	MaxUses            *int             `json:"max_uses"`
	MaxUsesPerCustomer *int             `json:"max_uses_per_customer"`
	CategoryIDs        []uuid.UUID      `json:"category_ids"`
	ProductIDs         []uuid.UUID      `json:"product_ids"`
	Active             *bool            `json:"active"`
	ExpiresAt          *time.Time       `json:"expires_at"`
}

// UpdatePromo patches a promo code. The code string itself is immutable
// so usage history stays attributable.
func (h *Handler) UpdatePromo(c echo.Context) error {
	const op = "handler.promo.update"
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updatePromoRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	p, err := h.Store.GetPromo(ctx, id)
	if err != nil {
		return err
	}
	if req.Value != nil {
		if req.Value.LessThanOrEqual(decimal.Zero) {
			return domain.Invalid(op, "value must be positive")
		}
		p.Value = *req.Value
	}
	if req.MinOrderAmount != nil {
		p.MinOrderAmount = req.MinOrderAmount
	}
	if req.MaxUses != nil {
		p.MaxUses = req.MaxUses
	}
	if req.MaxUsesPerCustomer != nil {
		p.MaxUsesPerCustomer = req.MaxUsesPerCustomer
	}
	if req.CategoryIDs != nil {
		p.CategoryIDs = req.CategoryIDs
	}
	if req.ProductIDs != nil {
		p.ProductIDs = req.ProductIDs
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	if req.ExpiresAt != nil {
		p.ExpiresAt = req.ExpiresAt
	}
	if err := h.Store.UpdatePromo(ctx, p); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}
