package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase order statuses (vendor-facing).
type POStatus string

const (
	PODraft        POStatus = "draft"
	POSent         POStatus = "sent"
	POAcknowledged POStatus = "acknowledged"
	POFulfilled    POStatus = "fulfilled"
	POCancelled    POStatus = "cancelled"
)

// Per-item purchase statuses.
type POItemStatus string

const (
	POItemPending   POItemStatus = "pending"
	POItemOrdered   POItemStatus = "ordered"
	POItemShipped   POItemStatus = "shipped"
	POItemReceived  POItemStatus = "received"
	POItemCancelled POItemStatus = "cancelled"
)

// poTransitions is the explicit PO state machine. Derived transitions from
// item roll-up (all received -> fulfilled, all cancelled -> cancelled)
// supplement this table.
var poTransitions = map[POStatus][]POStatus{
	PODraft:        {POSent, POCancelled},
	POSent:         {POAcknowledged, PODraft, POCancelled},
	POAcknowledged: {POFulfilled, POCancelled},
}

// CanTransitionTo reports whether the explicit transition s -> to is allowed.
func (s POStatus) CanTransitionTo(to POStatus) bool {
	for _, t := range poTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// PurchaseOrder is a per-vendor purchase derived from an order.
type PurchaseOrder struct {
	ID       uuid.UUID `json:"id"`
	PONumber string    `json:"po_number"`
	OrderID  uuid.UUID `json:"order_id"`
	VendorID uuid.UUID `json:"vendor_id"`

	Status    POStatus        `json:"status"`
	Revision  int             `json:"revision"`
	IsRevised bool            `json:"is_revised"`
	Subtotal  decimal.Decimal `json:"subtotal"`

	ApprovedBy *string    `json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`

	EDIInterchangeID *string `json:"edi_interchange_id,omitempty"`
	Notes            *string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PurchaseOrderItem is one line on a PO. CostPerBox is always normalised to
// per-box regardless of the vendor pricing basis.
type PurchaseOrderItem struct {
	ID              uuid.UUID       `json:"id"`
	PurchaseOrderID uuid.UUID       `json:"purchase_order_id"`
	OrderItemID     *uuid.UUID      `json:"order_item_id,omitempty"`
	ProductName     string          `json:"product_name"`
	VendorSku       *string         `json:"vendor_sku,omitempty"`
	Qty             int             `json:"qty"`
	CostPerBox      decimal.Decimal `json:"cost_per_box"`
	OriginalCost    decimal.Decimal `json:"original_cost"`
	RetailPrice     decimal.Decimal `json:"retail_price"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	SellBy          string          `json:"sell_by"`
	Status          POItemStatus    `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// DerivePOStatus computes the roll-up status from item statuses.
// Returns ("", false) when no derived transition applies.
func DerivePOStatus(items []PurchaseOrderItem) (POStatus, bool) {
	if len(items) == 0 {
		return "", false
	}
	allReceived, allCancelled := true, true
	for _, it := range items {
		if it.Status != POItemReceived {
			allReceived = false
		}
		if it.Status != POItemCancelled {
			allCancelled = false
		}
	}
	if allReceived {
		return POFulfilled, true
	}
	if allCancelled {
		return POCancelled, true
	}
	return "", false
}

// EDITransaction records one outbound or inbound EDI document.
type EDITransaction struct {
	ID                 uuid.UUID
	PurchaseOrderID    *uuid.UUID
	VendorID           uuid.UUID
	DocumentType       string // "850", "855", "856", "810"
	Direction          string // "outbound", "inbound"
	InterchangeControl string
	Status             string // "pending", "sent", "failed", "received"
	Payload            []byte
	Error              *string
	CreatedAt          time.Time
}

// VendorEDIConfig is the per-vendor EDI dispatch configuration.
type VendorEDIConfig struct {
	Enabled      bool   `json:"enabled"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	InboxDir     string `json:"inbox_dir"`
	ReceiverID   string `json:"receiver_id"`
	ReceiverQual string `json:"receiver_qual"`
}

// Vendor is a flooring supplier.
type Vendor struct {
	ID        uuid.UUID
	Name      string
	Code      string // short code used in PO numbers
	Email     *string
	EDIConfig *VendorEDIConfig
	CreatedAt time.Time
}
