package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/middleware"
	"github.com/dukerupert/terrazzo/internal/pricing"
)

type addCartItemRequest struct {
	SessionID  string           `json:"session_id" validate:"required"`
	SkuID      uuid.UUID        `json:"sku_id" validate:"required"`
	NumBoxes   int              `json:"num_boxes" validate:"required,min=1"`
	SqftNeeded *decimal.Decimal `json:"sqft_needed"`
	IsSample   bool             `json:"is_sample"`
}

// AddCartItem appends a line to the anonymous cart. Unit price is always
// resolved server-side: retail, or the tier price for approved trade
// callers.
func (h *Handler) AddCartItem(c echo.Context) error {
	var req addCartItemRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	sku, err := h.Store.GetSku(ctx, req.SkuID)
	if err != nil {
		return err
	}
	prod, err := h.Store.GetProduct(ctx, sku.ProductID)
	if err != nil {
		return err
	}

	price := sku.RetailPrice
	var priceTier *string
	if tier, err := h.tradeTier(c); err != nil {
		return err
	} else if tier != nil {
		price = pricing.TierPrice(sku.RetailPrice, tier)
		priceTier = &tier.Name
	}
	if req.IsSample {
		price = decimal.Zero
	}

	it := &domain.CartItem{
		ID:         uuid.New(),
		SessionID:  req.SessionID,
		ProductID:  &sku.ProductID,
		SkuID:      &sku.ID,
		VendorID:   &sku.VendorID,
		Name:       prod.Name,
		NumBoxes:   req.NumBoxes,
		SqftNeeded: req.SqftNeeded,
		UnitPrice:  price,
		SellBy:     sku.SellBy,
		PriceTier:  priceTier,
		IsSample:   req.IsSample,
	}
	if err := h.Store.AddCartItem(ctx, it); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, it)
}

// tradeTier resolves the caller's tier when a trade principal is present.
func (h *Handler) tradeTier(c echo.Context) (*domain.TradeTier, error) {
	p := middleware.GetPrincipal(c)
	if p == nil || p.Kind != domain.PrincipalTrade {
		return nil, nil
	}
	ctx := c.Request().Context()
	tc, err := h.Store.GetTradeCustomer(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if tc.TierID == nil {
		return nil, nil
	}
	return h.Store.GetTradeTier(ctx, *tc.TierID)
}

func (h *Handler) ListCartItems(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return domain.Invalid("handler.cart.list", "session_id is required")
	}
	items, err := h.Store.ListCartItems(c.Request().Context(), sessionID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) RemoveCartItem(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return domain.Invalid("handler.cart.remove", "session_id is required")
	}
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		return domain.Invalid("handler.cart.remove", "invalid item id")
	}
	if err := h.Store.RemoveCartItem(c.Request().Context(), sessionID, itemID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type shippingEstimateRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Zip       string `json:"zip" validate:"required"`
}

// EstimateShipping rates the cart to a destination zip.
func (h *Handler) EstimateShipping(c echo.Context) error {
	var req shippingEstimateRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	opts, err := h.Rater.EstimateForCart(c.Request().Context(), req.SessionID, req.Zip)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"options": opts})
}

type validatePromoRequest struct {
	Code      string `json:"code" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
	Email     string `json:"email"`
}

// ValidatePromo dry-runs a promo code against the cart without recording
// usage.
func (h *Handler) ValidatePromo(c echo.Context) error {
	var req validatePromoRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	cart, err := h.Store.ListCartItems(ctx, req.SessionID)
	if err != nil {
		return err
	}
	items := make([]pricing.Item, 0, len(cart))
	for _, it := range cart {
		pi := pricing.Item{ProductID: it.ProductID, IsSample: it.IsSample, Subtotal: it.Subtotal()}
		if it.ProductID != nil {
			prod, err := h.Store.GetProduct(ctx, *it.ProductID)
			if err != nil {
				return err
			}
			pi.CategoryID = prod.CategoryID
		}
		items = append(items, pi)
	}

	res, err := pricing.ValidatePromo(ctx, h.Store, req.Code, items, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"valid":             true,
		"code":              res.Promo.Code,
		"discount_amount":   res.DiscountAmount,
		"eligible_subtotal": res.EligibleSubtotal,
	})
}

type stockAlertRequest struct {
	SkuID uuid.UUID `json:"sku_id" validate:"required"`
	Email string    `json:"email" validate:"required,email"`
}

// SubscribeStockAlert registers an email for a back-in-stock notice.
// Duplicate subscriptions are absorbed by the unique constraint.
func (h *Handler) SubscribeStockAlert(c echo.Context) error {
	var req stockAlertRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.Store.GetSku(ctx, req.SkuID); err != nil {
		return err
	}
	if err := h.Store.CreateStockAlert(ctx, req.SkuID, req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"subscribed": true})
}
