package order

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/postgres"
	"github.com/dukerupert/terrazzo/internal/purchase"
)

// TransitionInput carries the optional fields a status change may need.
type TransitionInput struct {
	To             domain.OrderStatus
	TrackingNumber *string
	TrackingURL    *string
	CancelReason   *string
}

// Transition moves an order through the state machine.
//
// Cancelling cascades open POs to cancelled. Un-cancelling deletes the
// cancelled POs so a fresh set regenerates, and is refused once a refund
// has been issued. Moving to an earlier stage clears downstream
// timestamps and tracking. Entering confirmed generates POs once.
// Refunded is never writable here; the refund endpoint owns it.
func (s *Service) Transition(ctx context.Context, orderID uuid.UUID, in TransitionInput, actor string) (*domain.Order, error) {
	const op = "order.transition"
	switch in.To {
	case domain.OrderPending, domain.OrderConfirmed, domain.OrderShipped,
		domain.OrderDelivered, domain.OrderCancelled:
	case domain.OrderRefunded:
		return nil, domain.Invalid(op, "refunded is set by the refund endpoint, not the status endpoint")
	default:
		return nil, domain.Invalid(op, "unknown order status")
	}

	var out *domain.Order
	err := s.store.WithTx(ctx, func(tx *postgres.Store) error {
		o, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		from := o.Status
		if from == in.To {
			return domain.Invalid(op, "order is already "+string(from))
		}
		if from == domain.OrderRefunded {
			return domain.Invalid(op, "refunded orders cannot change status")
		}

		var needPOs bool
		switch {
		case in.To == domain.OrderCancelled:
			o.Status = domain.OrderCancelled
			o.CancelReason = in.CancelReason
			reason := ""
			if in.CancelReason != nil {
				reason = *in.CancelReason
			}
			if err := purchase.CancelOpenPOs(ctx, tx, o.ID, actor, reason); err != nil {
				return err
			}

		case from == domain.OrderCancelled:
			if o.RefundAmount.IsPositive() || o.RefundedAt != nil {
				return domain.Invalid(op, "a refunded cancellation cannot be reopened")
			}
			if err := purchase.DeleteCancelledPOs(ctx, tx, o.ID); err != nil {
				return err
			}
			o.CancelReason = nil
			needPOs, err = applyStage(o, in, time.Now())
			if err != nil {
				return err
			}

		default:
			needPOs, err = applyStage(o, in, time.Now())
			if err != nil {
				return err
			}
		}
		if needPOs {
			if err := purchase.GeneratePOs(ctx, tx, o, actor); err != nil {
				return err
			}
		}

		if err := tx.UpdateOrderStatus(ctx, o); err != nil {
			return err
		}
		if err := tx.AppendOrderActivity(ctx, o.ID, "status_changed", actor, map[string]any{
			"from": string(from),
			"to":   string(o.Status),
		}); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.scheduleCommission(out.ID, out.SalesRepID)
	return out, nil
}

// applyStage moves an order onto the forward ladder, reconciling
// lifecycle timestamps with the target stage. It reports whether the
// caller must ensure a PO set exists: true for any confirmed-or-later
// result, so an uncancelled order whose POs were purged regenerates
// them. GeneratePOs skips orders that still carry POs, so the extra
// calls on forward transitions are no-ops.
func applyStage(o *domain.Order, in TransitionInput, now time.Time) (needPOs bool, err error) {
	const op = "order.transition"
	target := in.To.StageRank()
	if target < 0 {
		return false, domain.Invalid(op, "unknown order status")
	}

	if in.TrackingNumber != nil {
		o.TrackingNumber = in.TrackingNumber
	}
	if in.TrackingURL != nil {
		o.TrackingURL = in.TrackingURL
	}
	if in.To == domain.OrderShipped && o.DeliveryMethod == domain.DeliveryShipping {
		if o.TrackingNumber == nil || *o.TrackingNumber == "" {
			return false, domain.Invalid(op, "a tracking number is required to mark a delivery order shipped")
		}
	}

	// Stamp stages up to the target, clear everything past it.
	if target >= domain.OrderConfirmed.StageRank() {
		if o.ConfirmedAt == nil {
			o.ConfirmedAt = &now
		}
	} else {
		o.ConfirmedAt = nil
	}
	if target >= domain.OrderShipped.StageRank() {
		if o.ShippedAt == nil {
			o.ShippedAt = &now
		}
	} else {
		o.ShippedAt = nil
		o.TrackingNumber = nil
		o.TrackingURL = nil
	}
	if target >= domain.OrderDelivered.StageRank() {
		if o.DeliveredAt == nil {
			o.DeliveredAt = &now
		}
	} else {
		o.DeliveredAt = nil
	}

	o.Status = in.To
	return o.ConfirmedAt != nil, nil
}
