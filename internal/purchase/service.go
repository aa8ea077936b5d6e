// Package purchase implements the per-vendor purchase order engine:
// generation from confirmed orders, the vendor-facing status machine,
// item-level roll-up, and EDI or email dispatch.
package purchase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/edi"
	"github.com/dukerupert/terrazzo/internal/postgres"
)

// POMailer emails a purchase order to a vendor. The attachment is a PDF
// when rendering succeeds and raw HTML when it does not.
type POMailer interface {
	SendPurchaseOrder(ctx context.Context, to string, po *domain.PurchaseOrder, items []domain.PurchaseOrderItem, attachment []byte, attachmentName string) error
}

// Renderer converts PO HTML into a PDF through the headless-browser
// collaborator.
type Renderer interface {
	RenderPDF(ctx context.Context, html []byte) ([]byte, error)
}

// Service owns the PO endpoints. Generation and cascade helpers are
// package functions so order transactions can call them on their own tx.
type Service struct {
	store    *postgres.Store
	uploader edi.Uploader
	mailer   POMailer
	renderer Renderer
	logger   zerolog.Logger
}

func NewService(store *postgres.Store, uploader edi.Uploader, mailer POMailer, renderer Renderer, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		uploader: uploader,
		mailer:   mailer,
		renderer: renderer,
		logger:   logger.With().Str("component", "purchase").Logger(),
	}
}

// GeneratePONumber builds PO-<VENDORCODE>-<ts>-<rand>.
func GeneratePONumber(vendorCode string) string {
	b := make([]byte, 2)
	_, _ = rand.Read(b)
	return fmt.Sprintf("PO-%s-%s-%s", vendorCode, time.Now().Format("20060102150405"), hex.EncodeToString(b))
}

// GeneratePOs creates one draft PO per vendor from the order's non-sample,
// product-backed items. It runs on the caller's transaction and is
// idempotent: if the order already has POs, nothing happens.
func GeneratePOs(ctx context.Context, tx *postgres.Store, order *domain.Order, actor string) error {
	existing, err := tx.ListPurchaseOrdersByOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	items, err := tx.ListOrderItems(ctx, order.ID)
	if err != nil {
		return err
	}

	byVendor := make(map[uuid.UUID][]domain.OrderItem)
	var vendorOrder []uuid.UUID
	for _, it := range items {
		if it.IsSample || it.VendorID == nil || it.SkuID == nil {
			continue
		}
		if _, seen := byVendor[*it.VendorID]; !seen {
			vendorOrder = append(vendorOrder, *it.VendorID)
		}
		byVendor[*it.VendorID] = append(byVendor[*it.VendorID], it)
	}

	for _, vendorID := range vendorOrder {
		vendor, err := tx.GetVendor(ctx, vendorID)
		if err != nil {
			return err
		}
		po := &domain.PurchaseOrder{
			PONumber: GeneratePONumber(vendor.Code),
			OrderID:  order.ID,
			VendorID: vendorID,
			Status:   domain.PODraft,
		}
		if err := tx.CreatePurchaseOrder(ctx, po); err != nil {
			return err
		}

		subtotal := decimal.Zero
		for _, oi := range byVendor[vendorID] {
			line, err := poLineFor(ctx, tx, po.ID, oi)
			if err != nil {
				return err
			}
			if err := tx.InsertPOItem(ctx, line); err != nil {
				return err
			}
			subtotal = subtotal.Add(line.Subtotal)
		}
		po.Subtotal = subtotal
		if err := tx.UpdatePurchaseOrder(ctx, po); err != nil {
			return err
		}
		if err := tx.AppendPOActivity(ctx, po.ID, "created", actor, map[string]any{
			"order_id": order.ID.String(),
			"items":    len(byVendor[vendorID]),
		}); err != nil {
			return err
		}
	}
	return nil
}

// poLineFor maps an order item onto a PO line with the cost normalised to
// per-box.
func poLineFor(ctx context.Context, tx *postgres.Store, poID uuid.UUID, oi domain.OrderItem) (*domain.PurchaseOrderItem, error) {
	sku, err := tx.GetSku(ctx, *oi.SkuID)
	if err != nil {
		return nil, err
	}
	cost := sku.CostPerBox(oi.PriceTier)
	qty := oi.NumBoxes
	if qty < 1 {
		qty = 1
	}
	return &domain.PurchaseOrderItem{
		PurchaseOrderID: poID,
		OrderItemID:     &oi.ID,
		ProductName:     oi.Name,
		VendorSku:       &sku.VendorSku,
		Qty:             qty,
		CostPerBox:      cost,
		OriginalCost:    sku.Cost,
		RetailPrice:     oi.UnitPrice,
		Subtotal:        cost.Mul(decimal.NewFromInt(int64(qty))),
		SellBy:          oi.SellBy,
		Status:          domain.POItemPending,
	}, nil
}

// CancelOpenPOs cascades an order cancellation into its POs. POs already
// fulfilled or cancelled are untouched.
func CancelOpenPOs(ctx context.Context, tx *postgres.Store, orderID uuid.UUID, actor, reason string) error {
	pos, err := tx.ListPurchaseOrdersByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	for i := range pos {
		po := &pos[i]
		if po.Status == domain.POFulfilled || po.Status == domain.POCancelled {
			continue
		}
		from := po.Status
		po.Status = domain.POCancelled
		if err := tx.UpdatePurchaseOrder(ctx, po); err != nil {
			return err
		}
		if err := tx.AppendPOActivity(ctx, po.ID, "cancelled", actor, map[string]any{
			"from":   string(from),
			"to":     string(domain.POCancelled),
			"reason": reason,
		}); err != nil {
			return err
		}
	}
	return nil
}

// DeleteCancelledPOs removes an order's cancelled POs so a fresh set is
// generated on the next confirmation. Used by un-cancel.
func DeleteCancelledPOs(ctx context.Context, tx *postgres.Store, orderID uuid.UUID) error {
	pos, err := tx.ListPurchaseOrdersByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	for _, po := range pos {
		if po.Status != domain.POCancelled {
			continue
		}
		if err := tx.DeletePurchaseOrder(ctx, po.ID); err != nil {
			return err
		}
	}
	return nil
}

// SyncItemAdded links a newly added order item into the vendor's draft PO,
// creating one if none exists, and recomputes the PO subtotal.
func SyncItemAdded(ctx context.Context, tx *postgres.Store, order *domain.Order, oi domain.OrderItem, actor string) error {
	if oi.IsSample || oi.VendorID == nil || oi.SkuID == nil {
		return nil
	}
	po, err := tx.FindDraftPOForVendor(ctx, order.ID, *oi.VendorID)
	if err != nil {
		if !domain.IsCode(err, domain.ENOTFOUND) {
			return err
		}
		vendor, verr := tx.GetVendor(ctx, *oi.VendorID)
		if verr != nil {
			return verr
		}
		po = &domain.PurchaseOrder{
			PONumber: GeneratePONumber(vendor.Code),
			OrderID:  order.ID,
			VendorID: *oi.VendorID,
			Status:   domain.PODraft,
		}
		if err := tx.CreatePurchaseOrder(ctx, po); err != nil {
			return err
		}
		if err := tx.AppendPOActivity(ctx, po.ID, "created", actor, map[string]any{
			"order_id": order.ID.String(),
			"reason":   "item added after confirmation",
		}); err != nil {
			return err
		}
	}

	line, err := poLineFor(ctx, tx, po.ID, oi)
	if err != nil {
		return err
	}
	if err := tx.InsertPOItem(ctx, line); err != nil {
		return err
	}
	if _, err := tx.RecalcPOSubtotal(ctx, po.ID); err != nil {
		return err
	}
	return tx.AppendPOActivity(ctx, po.ID, "item_added", actor, map[string]any{
		"product": oi.Name,
		"qty":     line.Qty,
	})
}

// SyncItemRemoved deletes the PO lines backed by an order item, recomputes
// affected PO subtotals, and drops POs left with no lines.
func SyncItemRemoved(ctx context.Context, tx *postgres.Store, orderItemID uuid.UUID) error {
	poIDs, err := tx.DeletePOItemsByOrderItem(ctx, orderItemID)
	if err != nil {
		return err
	}
	seen := make(map[uuid.UUID]bool)
	for _, poID := range poIDs {
		if seen[poID] {
			continue
		}
		seen[poID] = true
		n, err := tx.CountPOItems(ctx, poID)
		if err != nil {
			return err
		}
		if n == 0 {
			if err := tx.DeletePurchaseOrder(ctx, poID); err != nil {
				return err
			}
			continue
		}
		if _, err := tx.RecalcPOSubtotal(ctx, poID); err != nil {
			return err
		}
	}
	return nil
}
