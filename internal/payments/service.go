// Package payments owns the per-order payments ledger and the
// payment-request flow for collecting an outstanding balance through a
// hosted checkout page.
package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/billing"
	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/postgres"
)

type Service struct {
	store    *postgres.Store
	provider billing.Provider
	baseURL  string
	logger   zerolog.Logger
}

// NewService wires the ledger service. baseURL is the storefront origin
// used to build the hosted page return links.
func NewService(store *postgres.Store, provider billing.Provider, baseURL string, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		provider: provider,
		baseURL:  baseURL,
		logger:   logger.With().Str("component", "payments").Logger(),
	}
}

// Ledger is the order's payment history plus the derived balance facts.
type Ledger struct {
	Entries       []domain.OrderPayment `json:"entries"`
	AmountPaid    decimal.Decimal       `json:"amount_paid"`
	MaxRefundable decimal.Decimal       `json:"max_refundable"`
	Balance       domain.BalanceStatus  `json:"balance_status"`
}

// GetLedger lists an order's ledger rows with the balance derivations.
func (s *Service) GetLedger(ctx context.Context, orderID uuid.UUID) (*Ledger, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListPayments(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &Ledger{
		Entries:       entries,
		AmountPaid:    domain.LedgerBalance(entries),
		MaxRefundable: domain.MaxRefundable(entries),
		Balance:       o.BalanceStatus(),
	}, nil
}

// RequestPayment opens a hosted checkout session for an additional
// charge on an order and records it as a pending payment request. The
// webhook plane completes the request when the session is paid.
func (s *Service) RequestPayment(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal, description, actor string) (*domain.PaymentRequest, error) {
	const op = "payments.request"
	if !amount.IsPositive() {
		return nil, domain.Invalid(op, "amount must be positive")
	}
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch o.Status {
	case domain.OrderCancelled, domain.OrderRefunded:
		return nil, domain.Invalid(op, "cannot request payment on a "+string(o.Status)+" order")
	}
	if description == "" {
		description = "Additional charge for order " + o.OrderNumber
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, billing.CheckoutSessionParams{
		AmountCents:   billing.Cents(amount),
		Description:   description,
		CustomerEmail: o.Email,
		SuccessURL:    s.baseURL + "/orders/" + o.OrderNumber + "/payment/success",
		CancelURL:     s.baseURL + "/orders/" + o.OrderNumber + "/payment/cancelled",
		Metadata: map[string]string{
			"order_id":     o.ID.String(),
			"order_number": o.OrderNumber,
		},
	})
	if err != nil {
		return nil, domain.Upstream(err, op, "failed to open checkout session")
	}

	pr := &domain.PaymentRequest{
		OrderID:                 o.ID,
		Amount:                  amount,
		Email:                   o.Email,
		StripeCheckoutSessionID: &sess.ID,
		CheckoutURL:             &sess.URL,
		Status:                  domain.PaymentRequestPending,
		ExpiresAt:               sess.ExpiresAt,
	}
	err = s.store.WithTx(ctx, func(tx *postgres.Store) error {
		if err := tx.CreatePaymentRequest(ctx, pr); err != nil {
			return err
		}
		return tx.AppendOrderActivity(ctx, o.ID, "payment_requested", actor, map[string]any{
			"amount": amount.StringFixed(2),
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("order", o.OrderNumber).Str("amount", amount.StringFixed(2)).Msg("payment request created")
	return pr, nil
}
