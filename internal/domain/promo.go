package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Promo code types.
const (
	PromoPercent = "percent"
	PromoFixed   = "fixed"
)

// PromoCode is a storefront discount code. Restriction sets are empty when
// the code applies to all non-sample products.
type PromoCode struct {
	ID                 uuid.UUID        `json:"id"`
	Code               string           `json:"code"`
	Type               string           `json:"type"`
	Value              decimal.Decimal  `json:"value"`
	MinOrderAmount     *decimal.Decimal `json:"min_order_amount,omitempty"`
	MaxUses            *int             `json:"max_uses,omitempty"`
	MaxUsesPerCustomer *int             `json:"max_uses_per_customer,omitempty"`
	CategoryIDs        []uuid.UUID      `json:"category_ids,omitempty"`
	ProductIDs         []uuid.UUID      `json:"product_ids,omitempty"`
	Active             bool             `json:"active"`
	ExpiresAt          *time.Time       `json:"expires_at,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

// Expired reports whether the code has passed its expiry.
func (p *PromoCode) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

// Restricted reports whether the code limits eligibility to specific
// categories or products.
func (p *PromoCode) Restricted() bool {
	return len(p.CategoryIDs) > 0 || len(p.ProductIDs) > 0
}

// PromoCodeUsage records one application of a promo code. OrderID is nil
// for quote-only usages, which never consume the global max_uses counter.
type PromoCodeUsage struct {
	ID             uuid.UUID
	PromoCodeID    uuid.UUID
	OrderID        *uuid.UUID
	QuoteID        *uuid.UUID
	CustomerEmail  string
	DiscountAmount decimal.Decimal
	CreatedAt      time.Time
}
