package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment ledger entry types. Refund rows carry negative amounts.
type PaymentType string

const (
	PaymentCharge           PaymentType = "charge"
	PaymentAdditionalCharge PaymentType = "additional_charge"
	PaymentRefund           PaymentType = "refund"
)

// Ledger entry statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// OrderPayment is an append-only payments ledger row. Rows are never
// updated after reaching a terminal status and never deleted.
type OrderPayment struct {
	ID      uuid.UUID `json:"id"`
	OrderID uuid.UUID `json:"order_id"`

	PaymentType PaymentType     `json:"payment_type"`
	Amount      decimal.Decimal `json:"amount"`

	StripePaymentIntentID   *string `json:"stripe_payment_intent_id,omitempty"`
	StripeChargeID          *string `json:"stripe_charge_id,omitempty"`
	StripeRefundID          *string `json:"stripe_refund_id,omitempty"`
	StripeCheckoutSessionID *string `json:"stripe_checkout_session_id,omitempty"`

	Description *string   `json:"description,omitempty"`
	Status      string    `json:"status"`
	InitiatedBy string    `json:"initiated_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// LedgerBalance folds completed ledger rows into the cached amount_paid:
// completed charges and additional charges add, completed refunds subtract
// (refund amounts are stored negative, so a plain signed sum suffices).
func LedgerBalance(entries []OrderPayment) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		if e.Status != PaymentStatusCompleted {
			continue
		}
		sum = sum.Add(e.Amount)
	}
	return sum
}

// MaxRefundable sums completed charges minus completed refunds. Only rows
// tied to the original payment intent are refundable through this path;
// additional charges are reversed through the gateway directly.
func MaxRefundable(entries []OrderPayment) decimal.Decimal {
	refundable := decimal.Zero
	for _, e := range entries {
		if e.Status != PaymentStatusCompleted {
			continue
		}
		switch e.PaymentType {
		case PaymentCharge:
			refundable = refundable.Add(e.Amount)
		case PaymentRefund:
			refundable = refundable.Add(e.Amount) // negative
		}
	}
	return refundable
}

// PaymentRequest is a pending checkout link for an order balance.
type PaymentRequest struct {
	ID                      uuid.UUID       `json:"id"`
	OrderID                 uuid.UUID       `json:"order_id"`
	Amount                  decimal.Decimal `json:"amount"`
	Email                   string          `json:"email"`
	StripeCheckoutSessionID *string         `json:"stripe_checkout_session_id,omitempty"`
	CheckoutURL             *string         `json:"checkout_url,omitempty"`
	Status                  string          `json:"status"` // pending, paid, expired, cancelled
	ExpiresAt               time.Time       `json:"expires_at"`
	CreatedAt               time.Time       `json:"created_at"`
}

// Payment request statuses.
const (
	PaymentRequestPending   = "pending"
	PaymentRequestPaid      = "paid"
	PaymentRequestExpired   = "expired"
	PaymentRequestCancelled = "cancelled"
)
