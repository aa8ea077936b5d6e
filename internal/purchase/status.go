package purchase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/postgres"
)

// Transition moves a PO through the explicit vendor-facing state machine.
// Reverting to draft clears the approval stamp. The draft->sent revision
// bump happens in Send, which is the only writer of sent.
func (s *Service) Transition(ctx context.Context, poID uuid.UUID, to domain.POStatus, actor string) (*domain.PurchaseOrder, error) {
	const op = "purchase.transition"
	if to == domain.POSent {
		return nil, domain.Invalid(op, "use the send endpoint to dispatch a purchase order")
	}

	var out *domain.PurchaseOrder
	err := s.store.WithTx(ctx, func(tx *postgres.Store) error {
		po, err := tx.GetPurchaseOrderForUpdate(ctx, poID)
		if err != nil {
			return err
		}
		if !po.Status.CanTransitionTo(to) {
			return domain.Invalid(op, "cannot move purchase order from "+string(po.Status)+" to "+string(to))
		}
		from := po.Status
		po.Status = to
		if to == domain.PODraft {
			po.ApprovedBy = nil
			po.ApprovedAt = nil
		}
		if err := tx.UpdatePurchaseOrder(ctx, po); err != nil {
			return err
		}
		kind := "status_changed"
		if from == domain.POSent && to == domain.PODraft {
			kind = "reverted"
		}
		if err := tx.AppendPOActivity(ctx, po.ID, kind, actor, map[string]any{
			"from": string(from),
			"to":   string(to),
		}); err != nil {
			return err
		}
		out = po
		return nil
	})
	return out, err
}

// UpdateItemStatus advances one PO line and applies the derived roll-up:
// all lines received makes the PO fulfilled, all cancelled makes it
// cancelled.
func (s *Service) UpdateItemStatus(ctx context.Context, itemID uuid.UUID, to domain.POItemStatus, actor string) (*domain.PurchaseOrder, error) {
	const op = "purchase.item_status"

	var out *domain.PurchaseOrder
	err := s.store.WithTx(ctx, func(tx *postgres.Store) error {
		item, err := tx.GetPOItem(ctx, itemID)
		if err != nil {
			return err
		}
		po, err := tx.GetPurchaseOrderForUpdate(ctx, item.PurchaseOrderID)
		if err != nil {
			return err
		}
		if po.Status == domain.PODraft {
			return domain.Invalid(op, "draft purchase orders have no item fulfilment")
		}

		from := item.Status
		item.Status = to
		if err := tx.UpdatePOItem(ctx, item); err != nil {
			return err
		}
		if err := tx.AppendPOActivity(ctx, po.ID, "item_status_changed", actor, map[string]any{
			"item": item.ProductName,
			"from": string(from),
			"to":   string(to),
		}); err != nil {
			return err
		}

		items, err := tx.ListPOItems(ctx, po.ID)
		if err != nil {
			return err
		}
		if derived, ok := domain.DerivePOStatus(items); ok && derived != po.Status {
			prev := po.Status
			po.Status = derived
			if err := tx.UpdatePurchaseOrder(ctx, po); err != nil {
				return err
			}
			if err := tx.AppendPOActivity(ctx, po.ID, "status_derived", actor, map[string]any{
				"from": string(prev),
				"to":   string(derived),
			}); err != nil {
				return err
			}
		}
		out = po
		return nil
	})
	return out, err
}

// ItemEdit carries a draft-PO line edit.
type ItemEdit struct {
	Qty        *int
	CostPerBox *decimal.Decimal
}

// EditDraftItem changes cost or quantity on a draft PO line. Non-draft POs
// are read-only for content.
func (s *Service) EditDraftItem(ctx context.Context, itemID uuid.UUID, edit ItemEdit, actor string) error {
	const op = "purchase.edit_item"
	return s.store.WithTx(ctx, func(tx *postgres.Store) error {
		item, err := tx.GetPOItem(ctx, itemID)
		if err != nil {
			return err
		}
		po, err := tx.GetPurchaseOrderForUpdate(ctx, item.PurchaseOrderID)
		if err != nil {
			return err
		}
		if po.Status != domain.PODraft {
			return domain.Invalid(op, "only draft purchase orders can be edited")
		}
		if edit.Qty != nil {
			if *edit.Qty < 1 {
				return domain.Invalid(op, "quantity must be at least 1")
			}
			item.Qty = *edit.Qty
		}
		if edit.CostPerBox != nil {
			if edit.CostPerBox.IsNegative() {
				return domain.Invalid(op, "cost cannot be negative")
			}
			item.CostPerBox = *edit.CostPerBox
		}
		item.Subtotal = item.CostPerBox.Mul(decimal.NewFromInt(int64(item.Qty)))
		if err := tx.UpdatePOItem(ctx, item); err != nil {
			return err
		}
		if _, err := tx.RecalcPOSubtotal(ctx, po.ID); err != nil {
			return err
		}
		return tx.AppendPOActivity(ctx, po.ID, "item_edited", actor, map[string]any{
			"item": item.ProductName,
			"qty":  item.Qty,
			"cost": item.CostPerBox.StringFixed(2),
		})
	})
}

// Approve stamps a PO with approver identity. Approval is cleared when the
// PO reverts to draft.
func (s *Service) Approve(ctx context.Context, poID uuid.UUID, actor string) error {
	return s.store.WithTx(ctx, func(tx *postgres.Store) error {
		po, err := tx.GetPurchaseOrderForUpdate(ctx, poID)
		if err != nil {
			return err
		}
		now := time.Now()
		po.ApprovedBy = &actor
		po.ApprovedAt = &now
		if err := tx.UpdatePurchaseOrder(ctx, po); err != nil {
			return err
		}
		return tx.AppendPOActivity(ctx, po.ID, "approved", actor, nil)
	})
}
