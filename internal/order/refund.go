package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/billing"
	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/postgres"
)

// RefundInput requests a refund against the order's original payment
// intent. A nil Amount refunds the remaining refundable balance, which
// is only allowed on cancelled orders.
type RefundInput struct {
	Amount *decimal.Decimal
	Reason *string
}

// refundAmountFor resolves the requested amount against the refundable
// balance. A nil amount asks for the full remainder, which is only
// allowed on a cancelled order.
func refundAmountFor(o *domain.Order, refundable decimal.Decimal, in RefundInput) (decimal.Decimal, error) {
	const op = "order.refund"
	if o.StripePaymentIntentID == nil || *o.StripePaymentIntentID == "" {
		return decimal.Zero, domain.Invalid(op, "order has no payment intent to refund against")
	}
	if !refundable.IsPositive() {
		return decimal.Zero, domain.Invalid(op, "nothing left to refund")
	}
	if in.Amount == nil {
		if o.Status != domain.OrderCancelled {
			return decimal.Zero, domain.Invalid(op, "a full refund of the remainder requires a cancelled order")
		}
		return refundable, nil
	}
	amount := *in.Amount
	if !amount.IsPositive() {
		return decimal.Zero, domain.Invalid(op, "refund amount must be positive")
	}
	if amount.GreaterThan(refundable) {
		return decimal.Zero, domain.Invalid(op, "refund exceeds the refundable balance of $"+refundable.StringFixed(2))
	}
	return amount, nil
}

// Refund issues a gateway refund and records it as a negative ledger
// row. When the cumulative refund reaches the amount paid, the order
// moves to refunded, which is terminal.
func (s *Service) Refund(ctx context.Context, orderID uuid.UUID, in RefundInput, actor string) (*domain.Order, error) {
	const op = "order.refund"

	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListPayments(ctx, orderID)
	if err != nil {
		return nil, err
	}
	refundable := domain.MaxRefundable(entries)
	amount, err := refundAmountFor(o, refundable, in)
	if err != nil {
		return nil, err
	}

	reason := ""
	if in.Reason != nil {
		reason = *in.Reason
	}
	ref, err := s.provider.RefundPayment(ctx, billing.RefundParams{
		PaymentIntentID: *o.StripePaymentIntentID,
		AmountCents:     billing.Cents(amount),
		Reason:          reason,
		Metadata:        map[string]string{"order_number": o.OrderNumber},
	})
	if err != nil {
		return nil, domain.Upstream(err, op, "gateway refund failed")
	}

	var out *domain.Order
	err = s.store.WithTx(ctx, func(tx *postgres.Store) error {
		locked, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		desc := "refund"
		if reason != "" {
			desc = "refund: " + reason
		}
		if err := tx.AppendPayment(ctx, &domain.OrderPayment{
			OrderID:               locked.ID,
			PaymentType:           domain.PaymentRefund,
			Amount:                amount.Neg(),
			StripePaymentIntentID: locked.StripePaymentIntentID,
			StripeRefundID:        &ref.ID,
			Description:           &desc,
			Status:                domain.PaymentStatusCompleted,
			InitiatedBy:           actor,
		}); err != nil {
			return err
		}
		if err := tx.AddOrderPaid(ctx, locked.ID, amount.Neg()); err != nil {
			return err
		}
		if err := tx.AddOrderRefunded(ctx, locked.ID, amount); err != nil {
			return err
		}
		locked.AmountPaid = locked.AmountPaid.Sub(amount)
		locked.RefundAmount = locked.RefundAmount.Add(amount)

		if !refundable.Sub(amount).IsPositive() {
			now := time.Now()
			locked.Status = domain.OrderRefunded
			locked.RefundedAt = &now
			if err := tx.UpdateOrderStatus(ctx, locked); err != nil {
				return err
			}
		}
		if err := tx.AppendOrderActivity(ctx, locked.ID, "refund_issued", actor, map[string]any{
			"amount": amount.StringFixed(2),
			"refund": ref.ID,
		}); err != nil {
			return err
		}
		out = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.scheduleCommission(out.ID, out.SalesRepID)
	if s.notifier != nil {
		o := out
		s.runner.Go("order.refund_notice", func(ctx context.Context) error {
			return s.notifier.SendRefundNotice(ctx, o, amount)
		})
	}
	return out, nil
}
