// Package commission recomputes per-order rep commissions after every
// order mutation.
package commission

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/postgres"
)

// DefaultCostRatio estimates vendor cost as a share of the order total
// when no purchase orders exist yet.
var DefaultCostRatio = decimal.RequireFromString("0.6")

// Service derives and upserts commission rows. The store's conditional
// upsert keeps rows that already reached paid untouched.
type Service struct {
	store  *postgres.Store
	ratio  decimal.Decimal
	logger zerolog.Logger
}

func NewService(store *postgres.Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		ratio:  DefaultCostRatio,
		logger: logger.With().Str("component", "commission").Logger(),
	}
}

// Recompute rebuilds the commission row for an order. Orders without an
// assigned rep are skipped.
func (s *Service) Recompute(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.SalesRepID == nil {
		return nil
	}
	rep, err := s.store.GetSalesRep(ctx, *order.SalesRepID)
	if err != nil {
		return err
	}

	cost, err := s.store.SumNonCancelledPOCost(ctx, orderID)
	if err != nil {
		return err
	}
	vendorCost := cost.Sum
	if cost.POCount == 0 {
		vendorCost = domain.RoundCents(order.Total.Mul(s.ratio))
	}

	margin := decimal.Max(decimal.Zero, order.Total.Sub(vendorCost))
	amount := domain.RoundCents(margin.Mul(rep.CommissionRate))

	row := &domain.RepCommission{
		OrderID:    order.ID,
		SalesRepID: rep.ID,
		Rate:       rep.CommissionRate,
		OrderTotal: order.Total,
		VendorCost: vendorCost,
		Margin:     margin,
		Amount:     amount,
		Status:     deriveStatus(order),
	}
	if err := s.store.UpsertCommission(ctx, row); err != nil {
		return err
	}
	s.logger.Debug().
		Str("order", order.OrderNumber).
		Str("amount", amount.StringFixed(2)).
		Str("status", string(row.Status)).
		Msg("commission recomputed")
	return nil
}

// deriveStatus classifies the commission from order state: forfeited for
// cancelled or refunded orders, earned once delivered and fully paid,
// pending otherwise.
func deriveStatus(order *domain.Order) domain.CommissionStatus {
	switch order.Status {
	case domain.OrderCancelled, domain.OrderRefunded:
		return domain.CommissionForfeited
	case domain.OrderDelivered:
		if order.AmountPaid.GreaterThanOrEqual(order.Total) {
			return domain.CommissionEarned
		}
	}
	return domain.CommissionPending
}
