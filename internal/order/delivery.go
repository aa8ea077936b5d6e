package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/postgres"
	"github.com/dukerupert/terrazzo/internal/shipping"
)

// SwitchToPickup drops the shipping leg from an order: the address and
// carrier snapshot are cleared, the shipping charge zeroed, and the
// total recomputed.
func (s *Service) SwitchToPickup(ctx context.Context, orderID uuid.UUID, actor string) (*domain.Order, error) {
	const op = "order.delivery.pickup"
	var (
		out   *domain.Order
		repID *uuid.UUID
	)
	err := s.store.WithTx(ctx, func(tx *postgres.Store) error {
		o, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := mutableOrder(op, o); err != nil {
			return err
		}
		if o.DeliveryMethod == domain.DeliveryPickup {
			return domain.Invalid(op, "order is already pickup")
		}
		o.DeliveryMethod = domain.DeliveryPickup
		o.ShippingAddress = nil
		o.ShippingCarrier = nil
		o.ShippingService = nil
		o.TransitDays = nil
		o.Shipping = decimal.Zero
		o.IsFallbackRate = false
		o.RecalculateTotal()
		if err := tx.UpdateOrderDelivery(ctx, o); err != nil {
			return err
		}
		if err := tx.AppendOrderActivity(ctx, o.ID, "delivery_changed", actor, map[string]any{
			"to": domain.DeliveryPickup,
		}); err != nil {
			return err
		}
		out = o
		repID = o.SalesRepID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.scheduleCommission(orderID, repID)
	return out, nil
}

// ShippingOptions is phase one of a switch to shipping: it rates the
// order against the destination without touching the row. The caller
// picks an option and commits it with SwitchToShipping.
func (s *Service) ShippingOptions(ctx context.Context, orderID uuid.UUID, addr *domain.Address) ([]shipping.Option, error) {
	const op = "order.delivery.options"
	if addr == nil || addr.Zip == "" {
		return nil, domain.Invalid(op, "a shipping address with a zip code is required")
	}
	return s.rater.EstimateForOrder(ctx, orderID, addr.Zip)
}

// SwitchToShipping commits phase two: the chosen option's carrier,
// service, cost, and transit time are snapshotted onto the order.
func (s *Service) SwitchToShipping(ctx context.Context, orderID uuid.UUID, addr *domain.Address, opt shipping.Option, actor string) (*domain.Order, error) {
	const op = "order.delivery.shipping"
	if addr == nil || addr.Zip == "" {
		return nil, domain.Invalid(op, "a shipping address with a zip code is required")
	}
	var (
		out   *domain.Order
		repID *uuid.UUID
	)
	err := s.store.WithTx(ctx, func(tx *postgres.Store) error {
		o, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := mutableOrder(op, o); err != nil {
			return err
		}
		o.DeliveryMethod = domain.DeliveryShipping
		o.ShippingAddress = addr
		o.ShippingCarrier = &opt.Carrier
		o.ShippingService = &opt.Service
		o.TransitDays = &opt.TransitDays
		o.Shipping = opt.Cost
		o.IsFallbackRate = opt.IsFallback
		o.Residential = true
		o.Liftgate = true
		o.RecalculateTotal()
		if err := tx.UpdateOrderDelivery(ctx, o); err != nil {
			return err
		}
		if err := tx.AppendOrderActivity(ctx, o.ID, "delivery_changed", actor, map[string]any{
			"to":      domain.DeliveryShipping,
			"carrier": opt.Carrier,
			"service": opt.Service,
			"cost":    opt.Cost.StringFixed(2),
		}); err != nil {
			return err
		}
		out = o
		repID = o.SalesRepID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.scheduleCommission(orderID, repID)
	return out, nil
}
