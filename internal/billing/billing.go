// Package billing wraps the payment gateway. The Provider interface keeps
// the order and webhook planes testable without network calls.
package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
)

// Provider defines the gateway operations the platform uses.
type Provider interface {
	// CreatePaymentIntent creates an intent for the checkout charge.
	CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error)

	// GetPaymentIntent retrieves an intent to verify payment state before
	// committing an order.
	GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)

	// RefundPayment refunds part or all of a captured intent.
	RefundPayment(ctx context.Context, params RefundParams) (*Refund, error)

	// CreateCheckoutSession opens a hosted payment page for an additional
	// charge (the payment-request flow).
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error)

	// CancelSubscription cancels a trade membership subscription.
	CancelSubscription(ctx context.Context, subscriptionID string) error

	// ConstructWebhookEvent verifies a webhook signature and parses the event.
	ConstructWebhookEvent(payload []byte, signature string) (stripe.Event, error)
}

// CreatePaymentIntentParams are the checkout charge parameters.
type CreatePaymentIntentParams struct {
	AmountCents    int64
	Currency       string
	CustomerEmail  string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

// PaymentIntent is the provider-neutral view of a gateway intent.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountCents  int64
}

// Succeeded reports whether the intent has captured funds.
func (p *PaymentIntent) Succeeded() bool {
	return p.Status == string(stripe.PaymentIntentStatusSucceeded)
}

// RefundParams identify the charge to reverse.
type RefundParams struct {
	PaymentIntentID string
	AmountCents     int64
	Reason          string
	Metadata        map[string]string
}

// Refund is the gateway's refund record.
type Refund struct {
	ID          string
	Status      string
	AmountCents int64
}

// CheckoutSessionParams configure a hosted additional-charge page.
type CheckoutSessionParams struct {
	AmountCents   int64
	Currency      string
	Description   string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// CheckoutSession is the hosted page handle stored on the payment request.
type CheckoutSession struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}

var hundred = decimal.NewFromInt(100)

// Cents converts a decimal dollar amount to gateway cents.
func Cents(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// Dollars converts gateway cents back to a decimal dollar amount.
func Dollars(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(hundred)
}
