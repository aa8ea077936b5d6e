package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Quote statuses.
type QuoteStatus string

const (
	QuoteDraft     QuoteStatus = "draft"
	QuoteSent      QuoteStatus = "sent"
	QuoteConverted QuoteStatus = "converted"
	QuoteExpired   QuoteStatus = "expired"
)

// Quote mirrors the buyer/shipping/totals shape of an Order. A converted
// quote is immutable.
type Quote struct {
	ID          uuid.UUID `json:"id"`
	QuoteNumber string    `json:"quote_number"`

	Email           string     `json:"email"`
	CustomerID      *uuid.UUID `json:"customer_id,omitempty"`
	TradeCustomerID *uuid.UUID `json:"trade_customer_id,omitempty"`
	SalesRepID      *uuid.UUID `json:"sales_rep_id,omitempty"`

	DeliveryMethod  string   `json:"delivery_method"`
	ShippingAddress *Address `json:"shipping_address,omitempty"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	Shipping       decimal.Decimal `json:"shipping"`
	SampleShipping decimal.Decimal `json:"sample_shipping"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`

	PromoCodeID *uuid.UUID `json:"promo_code_id,omitempty"`

	Status           QuoteStatus `json:"status"`
	ExpiresAt        *time.Time  `json:"expires_at,omitempty"`
	ConvertedOrderID *uuid.UUID  `json:"converted_order_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuoteItem is a line on a quote, shaped like OrderItem without ownership.
type QuoteItem struct {
	ID         uuid.UUID        `json:"id"`
	QuoteID    uuid.UUID        `json:"quote_id"`
	ProductID  *uuid.UUID       `json:"product_id,omitempty"`
	SkuID      *uuid.UUID       `json:"sku_id,omitempty"`
	VendorID   *uuid.UUID       `json:"vendor_id,omitempty"`
	Name       string           `json:"name"`
	NumBoxes   int              `json:"num_boxes"`
	SqftNeeded *decimal.Decimal `json:"sqft_needed,omitempty"`
	UnitPrice  decimal.Decimal  `json:"unit_price"`
	Subtotal   decimal.Decimal  `json:"subtotal"`
	SellBy     string           `json:"sell_by"`
	PriceTier  *string          `json:"price_tier,omitempty"`
	IsSample   bool             `json:"is_sample"`
}

// Cart items are keyed by the anonymous session and drained at checkout.
type CartItem struct {
	ID         uuid.UUID        `json:"id"`
	SessionID  string           `json:"session_id"`
	ProductID  *uuid.UUID       `json:"product_id,omitempty"`
	SkuID      *uuid.UUID       `json:"sku_id,omitempty"`
	VendorID   *uuid.UUID       `json:"vendor_id,omitempty"`
	Name       string           `json:"name"`
	NumBoxes   int              `json:"num_boxes"`
	SqftNeeded *decimal.Decimal `json:"sqft_needed,omitempty"`
	UnitPrice  decimal.Decimal  `json:"unit_price"`
	SellBy     string           `json:"sell_by"`
	PriceTier  *string          `json:"price_tier,omitempty"`
	IsSample   bool             `json:"is_sample"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Subtotal is the line total for a cart item.
func (c *CartItem) Subtotal() decimal.Decimal {
	return c.UnitPrice.Mul(decimal.NewFromInt(int64(c.NumBoxes)))
}
