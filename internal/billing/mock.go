package billing

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/stripe/stripe-go/v82"
)

// MockProvider implements Provider in memory. Function fields override
// individual operations; the defaults succeed.
type MockProvider struct {
	seq int64

	CreatePaymentIntentFn   func(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error)
	GetPaymentIntentFn      func(ctx context.Context, id string) (*PaymentIntent, error)
	RefundPaymentFn         func(ctx context.Context, params RefundParams) (*Refund, error)
	CreateCheckoutSessionFn func(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error)
	CancelSubscriptionFn    func(ctx context.Context, subscriptionID string) error
}

func (m *MockProvider) next(prefix string) string {
	return fmt.Sprintf("%s_mock_%d", prefix, atomic.AddInt64(&m.seq, 1))
}

func (m *MockProvider) CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error) {
	if m.CreatePaymentIntentFn != nil {
		return m.CreatePaymentIntentFn(ctx, params)
	}
	return &PaymentIntent{
		ID:           m.next("pi"),
		ClientSecret: m.next("secret"),
		Status:       string(stripe.PaymentIntentStatusRequiresPaymentMethod),
		AmountCents:  params.AmountCents,
	}, nil
}

func (m *MockProvider) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	if m.GetPaymentIntentFn != nil {
		return m.GetPaymentIntentFn(ctx, id)
	}
	return &PaymentIntent{ID: id, Status: string(stripe.PaymentIntentStatusSucceeded)}, nil
}

func (m *MockProvider) RefundPayment(ctx context.Context, params RefundParams) (*Refund, error) {
	if m.RefundPaymentFn != nil {
		return m.RefundPaymentFn(ctx, params)
	}
	return &Refund{ID: m.next("re"), Status: "succeeded", AmountCents: params.AmountCents}, nil
}

func (m *MockProvider) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	if m.CreateCheckoutSessionFn != nil {
		return m.CreateCheckoutSessionFn(ctx, params)
	}
	id := m.next("cs")
	return &CheckoutSession{
		ID:        id,
		URL:       "https://checkout.example.com/" + id,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

func (m *MockProvider) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if m.CancelSubscriptionFn != nil {
		return m.CancelSubscriptionFn(ctx, subscriptionID)
	}
	return nil
}

func (m *MockProvider) ConstructWebhookEvent(payload []byte, signature string) (stripe.Event, error) {
	return stripe.Event{}, fmt.Errorf("mock provider does not verify webhooks")
}
