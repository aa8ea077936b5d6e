package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeProvider implements Provider against the Stripe API.
type StripeProvider struct {
	webhookSecret string
}

// NewStripeProvider configures the Stripe SDK and returns the provider.
func NewStripeProvider(apiKey, webhookSecret string) (*StripeProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("stripe: API key is required")
	}
	stripe.Key = apiKey
	return &StripeProvider{webhookSecret: webhookSecret}, nil
}

func (s *StripeProvider) CreatePaymentIntent(ctx context.Context, p CreatePaymentIntentParams) (*PaymentIntent, error) {
	currency := p.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(p.AmountCents),
		Currency:     stripe.String(currency),
		Description:  stripe.String(p.Description),
		ReceiptEmail: stripe.String(p.CustomerEmail),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}
	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	return toPaymentIntent(pi), nil
}

func (s *StripeProvider) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := paymentintent.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get payment intent: %w", err)
	}
	return toPaymentIntent(pi), nil
}

func (s *StripeProvider) RefundPayment(ctx context.Context, p RefundParams) (*Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(p.PaymentIntentID),
		Amount:        stripe.Int64(p.AmountCents),
	}
	params.Context = ctx
	if p.Reason != "" {
		params.Reason = stripe.String(p.Reason)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	r, err := refund.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: refund: %w", err)
	}
	return &Refund{ID: r.ID, Status: string(r.Status), AmountCents: r.Amount}, nil
}

func (s *StripeProvider) CreateCheckoutSession(ctx context.Context, p CheckoutSessionParams) (*CheckoutSession, error) {
	currency := p.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(p.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(p.Description),
				},
			},
		}},
	}
	params.Context = ctx
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	sess, err := checkoutsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return &CheckoutSession{
		ID:        sess.ID,
		URL:       sess.URL,
		ExpiresAt: time.Unix(sess.ExpiresAt, 0),
	}, nil
}

func (s *StripeProvider) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := subscription.Cancel(subscriptionID, params); err != nil {
		return fmt.Errorf("stripe: cancel subscription: %w", err)
	}
	return nil
}

func (s *StripeProvider) ConstructWebhookEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signature, s.webhookSecret)
}

func toPaymentIntent(pi *stripe.PaymentIntent) *PaymentIntent {
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountCents:  pi.Amount,
	}
}
