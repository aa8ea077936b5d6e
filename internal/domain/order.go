package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order statuses.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
)

// orderStageRank orders the forward stages so that reverting a transition
// knows which downstream timestamps to clear. Cancelled and refunded are
// off the ladder.
var orderStageRank = map[OrderStatus]int{
	OrderPending:   0,
	OrderConfirmed: 1,
	OrderShipped:   2,
	OrderDelivered: 3,
}

// StageRank returns the forward-ladder rank of s, or -1 for terminal states.
func (s OrderStatus) StageRank() int {
	if r, ok := orderStageRank[s]; ok {
		return r
	}
	return -1
}

// Delivery methods.
const (
	DeliveryPickup   = "pickup"
	DeliveryShipping = "shipping"
)

// Sell-by units for order lines.
const (
	SellBySqft = "sqft"
	SellByUnit = "unit"
)

// Carpet price tiers.
const (
	PriceTierCut  = "cut"
	PriceTierRoll = "roll"
)

// Order is a durable commerce order. Orders are never deleted, only
// transitioned.
type Order struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber string    `json:"order_number"`

	Email           string     `json:"email"`
	CustomerID      *uuid.UUID `json:"customer_id,omitempty"`
	TradeCustomerID *uuid.UUID `json:"trade_customer_id,omitempty"`
	SalesRepID      *uuid.UUID `json:"sales_rep_id,omitempty"`
	ProjectID       *uuid.UUID `json:"project_id,omitempty"`

	DeliveryMethod  string   `json:"delivery_method"`
	ShippingAddress *Address `json:"shipping_address,omitempty"`
	ShippingCarrier *string  `json:"shipping_carrier,omitempty"`
	ShippingService *string  `json:"shipping_service,omitempty"`
	TransitDays     *int     `json:"transit_days,omitempty"`
	Residential     bool     `json:"residential"`
	Liftgate        bool     `json:"liftgate"`
	IsFallbackRate  bool     `json:"is_fallback_rate"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	Shipping       decimal.Decimal `json:"shipping"`
	SampleShipping decimal.Decimal `json:"sample_shipping"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	RefundAmount   decimal.Decimal `json:"refund_amount"`

	PromoCodeID *uuid.UUID `json:"promo_code_id,omitempty"`

	Status         OrderStatus `json:"status"`
	CancelReason   *string     `json:"cancel_reason,omitempty"`
	TrackingNumber *string     `json:"tracking_number,omitempty"`
	TrackingURL    *string     `json:"tracking_url,omitempty"`

	StripePaymentIntentID *string `json:"stripe_payment_intent_id,omitempty"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	RefundedAt  *time.Time `json:"refunded_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BalanceStatus derives the paid/credit/balance_due classification.
func (o *Order) BalanceStatus() BalanceStatus {
	return BalanceOf(o.AmountPaid, o.Total)
}

// RecalculateTotal applies the order total invariant:
// total = subtotal + shipping + sample_shipping - discount.
func (o *Order) RecalculateTotal() {
	o.Total = o.Subtotal.Add(o.Shipping).Add(o.SampleShipping).Sub(o.DiscountAmount)
}

// Address is a shipping destination snapshot stored on orders and quotes.
type Address struct {
	Name    string `json:"name"`
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Phone   string `json:"phone,omitempty"`
	Country string `json:"country,omitempty"`
}

// OrderItem is a line on an order. ProductID and SkuID are nil for custom
// rep-authored lines; name/collection/description are point-of-sale
// snapshots, never live joins.
type OrderItem struct {
	ID          uuid.UUID        `json:"id"`
	OrderID     uuid.UUID        `json:"order_id"`
	ProductID   *uuid.UUID       `json:"product_id,omitempty"`
	SkuID       *uuid.UUID       `json:"sku_id,omitempty"`
	VendorID    *uuid.UUID       `json:"vendor_id,omitempty"`
	Name        string           `json:"name"`
	Collection  *string          `json:"collection,omitempty"`
	Description *string          `json:"description,omitempty"`
	NumBoxes    int              `json:"num_boxes"`
	SqftNeeded  *decimal.Decimal `json:"sqft_needed,omitempty"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	Subtotal    decimal.Decimal  `json:"subtotal"`
	SellBy      string           `json:"sell_by"`
	PriceTier   *string          `json:"price_tier,omitempty"`
	IsSample    bool             `json:"is_sample"`
	CreatedAt   time.Time        `json:"created_at"`
}

// ActivityEntry is one row in an order or PO activity log. Detail carries
// a {from, to, ...} map for transitions.
type ActivityEntry struct {
	ID        uuid.UUID      `json:"id"`
	Action    string         `json:"action"`
	Actor     string         `json:"actor"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// PriceAdjustment is the audit row written when a rep overrides a line price.
type PriceAdjustment struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"order_id"`
	OrderItemID uuid.UUID       `json:"order_item_id"`
	OldPrice    decimal.Decimal `json:"old_price"`
	NewPrice    decimal.Decimal `json:"new_price"`
	Reason      *string         `json:"reason,omitempty"`
	AdjustedBy  string          `json:"adjusted_by"`
	CreatedAt   time.Time       `json:"created_at"`
}
