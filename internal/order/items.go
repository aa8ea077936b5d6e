package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/postgres"
	"github.com/dukerupert/terrazzo/internal/purchase"
)

// mutableOrder rejects item edits once an order is past confirmed.
func mutableOrder(op string, o *domain.Order) error {
	switch o.Status {
	case domain.OrderPending, domain.OrderConfirmed:
		return nil
	}
	return domain.Invalid(op, "items can only be changed on pending or confirmed orders")
}

// AddItem appends a line to an order and recomputes the totals. On
// confirmed orders the line is also synced into the vendor's draft PO.
func (s *Service) AddItem(ctx context.Context, orderID uuid.UUID, q QuickItem, actor string) (*domain.OrderItem, error) {
	const op = "order.item.add"
	var (
		out   *domain.OrderItem
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
		it, err := quickLine(ctx, tx, q)
		if err != nil {
			return err
		}
		it.OrderID = o.ID
		if err := tx.InsertOrderItem(ctx, it); err != nil {
			return err
		}
		if !it.IsSample {
			o.Subtotal = o.Subtotal.Add(it.Subtotal)
		}
		o.RecalculateTotal()
		if err := tx.UpdateOrderTotals(ctx, o); err != nil {
			return err
		}
		if o.ConfirmedAt != nil {
			if err := purchase.SyncItemAdded(ctx, tx, o, *it, actor); err != nil {
				return err
			}
		}
		if err := tx.AppendOrderActivity(ctx, o.ID, "item_added", actor, map[string]any{
			"item": it.Name,
			"qty":  it.NumBoxes,
		}); err != nil {
			return err
		}
		out = it
		repID = o.SalesRepID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.scheduleCommission(orderID, repID)
	return out, nil
}

// RemoveItem deletes a line, recomputes the totals, and removes its PO
// lines. A PO left empty by the removal is deleted with it.
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID, actor string) error {
	const op = "order.item.remove"
	var repID *uuid.UUID
	err := s.store.WithTx(ctx, func(tx *postgres.Store) error {
		o, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := mutableOrder(op, o); err != nil {
			return err
		}
		it, err := tx.GetOrderItem(ctx, itemID)
		if err != nil {
			return err
		}
		if it.OrderID != o.ID {
			return domain.NotFound(op, "order item not found")
		}
		if err := purchase.SyncItemRemoved(ctx, tx, it.ID); err != nil {
			return err
		}
		if err := tx.DeleteOrderItem(ctx, it.ID); err != nil {
			return err
		}
		if !it.IsSample {
			o.Subtotal = o.Subtotal.Sub(it.Subtotal)
		}
		o.RecalculateTotal()
		if err := tx.UpdateOrderTotals(ctx, o); err != nil {
			return err
		}
		if err := tx.AppendOrderActivity(ctx, o.ID, "item_removed", actor, map[string]any{
			"item": it.Name,
		}); err != nil {
			return err
		}
		repID = o.SalesRepID
		return nil
	})
	if err != nil {
		return err
	}
	s.scheduleCommission(orderID, repID)
	return nil
}

// AdjustPrice overrides a line's unit price, keeping an audit row with
// the old and new values.
func (s *Service) AdjustPrice(ctx context.Context, orderID, itemID uuid.UUID, newPrice decimal.Decimal, reason *string, actor string) (*domain.OrderItem, error) {
	const op = "order.item.adjust_price"
	if newPrice.IsNegative() {
		return nil, domain.Invalid(op, "price cannot be negative")
	}
	var (
		out   *domain.OrderItem
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
		it, err := tx.GetOrderItem(ctx, itemID)
		if err != nil {
			return err
		}
		if it.OrderID != o.ID {
			return domain.NotFound(op, "order item not found")
		}

		old := it.UnitPrice
		oldSubtotal := it.Subtotal
		it.UnitPrice = newPrice
		it.Subtotal = newPrice.Mul(decimal.NewFromInt(int64(it.NumBoxes)))
		if err := tx.UpdateOrderItemPrice(ctx, it); err != nil {
			return err
		}
		if err := tx.InsertPriceAdjustment(ctx, &domain.PriceAdjustment{
			OrderID:     o.ID,
			OrderItemID: it.ID,
			OldPrice:    old,
			NewPrice:    newPrice,
			Reason:      reason,
			AdjustedBy:  actor,
		}); err != nil {
			return err
		}
		if !it.IsSample {
			o.Subtotal = o.Subtotal.Sub(oldSubtotal).Add(it.Subtotal)
		}
		o.RecalculateTotal()
		if err := tx.UpdateOrderTotals(ctx, o); err != nil {
			return err
		}
		if err := tx.AppendOrderActivity(ctx, o.ID, "price_adjusted", actor, map[string]any{
			"item": it.Name,
			"from": old.StringFixed(2),
			"to":   newPrice.StringFixed(2),
		}); err != nil {
			return err
		}
		out = it
		repID = o.SalesRepID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.scheduleCommission(orderID, repID)
	return out, nil
}
