// Package order implements the order lifecycle: the four creation flows,
// the status state machine, item mutation with PO sync, delivery-method
// changes, and refunds.
package order

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/billing"
	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/postgres"
	"github.com/dukerupert/terrazzo/internal/pricing"
	"github.com/dukerupert/terrazzo/internal/shipping"
	"github.com/dukerupert/terrazzo/internal/tasks"
)

// SampleShippingFee is the flat charge applied when an order includes
// sample items.
var SampleShippingFee = decimal.NewFromInt(10)

// Notifier sends order lifecycle email. Failures never block the flows
// that schedule them.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order *domain.Order, items []domain.OrderItem) error
	SendRepOrderNotification(ctx context.Context, repEmail string, order *domain.Order) error
	SendRefundNotice(ctx context.Context, order *domain.Order, amount decimal.Decimal) error
}

// CommissionEngine recomputes the per-order commission row.
type CommissionEngine interface {
	Recompute(ctx context.Context, orderID uuid.UUID) error
}

// Service owns all order mutations.
type Service struct {
	store       *postgres.Store
	provider    billing.Provider
	rater       *shipping.Rater
	runner      *tasks.Runner
	commissions CommissionEngine
	notifier    Notifier
	logger      zerolog.Logger
}

func NewService(store *postgres.Store, provider billing.Provider, rater *shipping.Rater, runner *tasks.Runner, commissions CommissionEngine, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		store:       store,
		provider:    provider,
		rater:       rater,
		runner:      runner,
		commissions: commissions,
		notifier:    notifier,
		logger:      logger.With().Str("component", "order").Logger(),
	}
}

func newOrderNumber() string {
	b := make([]byte, 2)
	_, _ = rand.Read(b)
	return postgres.GenerateOrderNumber(time.Now(), hex.EncodeToString(b))
}

// scheduleCommission queues a post-commit commission recompute for orders
// with an assigned rep.
func (s *Service) scheduleCommission(orderID uuid.UUID, repID *uuid.UUID) {
	if repID == nil {
		return
	}
	s.runner.Go("commission.recompute", func(ctx context.Context) error {
		return s.commissions.Recompute(ctx, orderID)
	})
}

// promoItemsFromCart maps cart lines into the promo validator's view,
// resolving each product's category through the catalog.
func (s *Service) promoItemsFromCart(ctx context.Context, items []domain.CartItem) ([]pricing.Item, error) {
	out := make([]pricing.Item, 0, len(items))
	for _, it := range items {
		p := pricing.Item{ProductID: it.ProductID, IsSample: it.IsSample, Subtotal: it.Subtotal()}
		if it.ProductID != nil {
			prod, err := s.store.GetProduct(ctx, *it.ProductID)
			if err != nil {
				return nil, err
			}
			p.CategoryID = prod.CategoryID
		}
		out = append(out, p)
	}
	return out, nil
}

// cartTotals folds cart lines into the order monetary invariant inputs:
// subtotal over non-sample lines and the flat sample-shipping fee.
func cartTotals(items []domain.CartItem) (subtotal, sampleShipping decimal.Decimal) {
	hasSamples := false
	for _, it := range items {
		if it.IsSample {
			hasSamples = true
			continue
		}
		subtotal = subtotal.Add(it.Subtotal())
	}
	if hasSamples {
		sampleShipping = SampleShippingFee
	}
	return subtotal, sampleShipping
}
