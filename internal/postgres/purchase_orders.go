package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/domain"
)

const poColumns = `
	id, po_number, order_id, vendor_id, status, revision, is_revised,
	subtotal, approved_by, approved_at, edi_interchange_id, notes,
	created_at, updated_at`

func scanPO(row pgx.Row) (*domain.PurchaseOrder, error) {
	var po domain.PurchaseOrder
	err := row.Scan(
		&po.ID, &po.PONumber, &po.OrderID, &po.VendorID, &po.Status,
		&po.Revision, &po.IsRevised, &po.Subtotal, &po.ApprovedBy,
		&po.ApprovedAt, &po.EDIInterchangeID, &po.Notes, &po.CreatedAt,
		&po.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &po, nil
}

// CreatePurchaseOrder inserts a draft PO.
func (s *Store) CreatePurchaseOrder(ctx context.Context, po *domain.PurchaseOrder) error {
	const op = "store.po.create"
	if po.ID == uuid.Nil {
		po.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO purchase_orders
			(id, po_number, order_id, vendor_id, status, revision, is_revised,
			 subtotal, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		po.ID, po.PONumber, po.OrderID, po.VendorID, po.Status, po.Revision,
		po.IsRevised, po.Subtotal, po.Notes,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to create purchase order")
	}
	return nil
}

// GetPurchaseOrder fetches a PO by id.
func (s *Store) GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*domain.PurchaseOrder, error) {
	po, err := scanPO(s.db.QueryRow(ctx,
		`SELECT `+poColumns+` FROM purchase_orders WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "store.po.get", "purchase order")
	}
	return po, nil
}

// GetPurchaseOrderForUpdate fetches a PO and takes a row lock.
func (s *Store) GetPurchaseOrderForUpdate(ctx context.Context, id uuid.UUID) (*domain.PurchaseOrder, error) {
	po, err := scanPO(s.db.QueryRow(ctx,
		`SELECT `+poColumns+` FROM purchase_orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "store.po.lock", "purchase order")
	}
	return po, nil
}

// ListPurchaseOrdersByOrder returns all POs derived from an order.
func (s *Store) ListPurchaseOrdersByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.PurchaseOrder, error) {
	const op = "store.po.list_by_order"
	rows, err := s.db.Query(ctx,
		`SELECT `+poColumns+` FROM purchase_orders WHERE order_id = $1 ORDER BY created_at, id`,
		orderID,
	)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list purchase orders")
	}
	defer rows.Close()

	var out []domain.PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan purchase order")
		}
		out = append(out, *po)
	}
	return out, rows.Err()
}

// FindDraftPOForVendor returns the order's draft PO for a vendor, if any.
func (s *Store) FindDraftPOForVendor(ctx context.Context, orderID, vendorID uuid.UUID) (*domain.PurchaseOrder, error) {
	po, err := scanPO(s.db.QueryRow(ctx, `
		SELECT `+poColumns+` FROM purchase_orders
		WHERE order_id = $1 AND vendor_id = $2 AND status = $3
		ORDER BY created_at LIMIT 1`,
		orderID, vendorID, domain.PODraft))
	if err != nil {
		return nil, notFound(err, "store.po.find_draft", "purchase order")
	}
	return po, nil
}

// UpdatePurchaseOrder persists status, revision, approval, and interchange
// fields.
func (s *Store) UpdatePurchaseOrder(ctx context.Context, po *domain.PurchaseOrder) error {
	const op = "store.po.update"
	_, err := s.db.Exec(ctx, `
		UPDATE purchase_orders SET
			status = $2, revision = $3, is_revised = $4, subtotal = $5,
			approved_by = $6, approved_at = $7, edi_interchange_id = $8,
			notes = $9, updated_at = now()
		WHERE id = $1`,
		po.ID, po.Status, po.Revision, po.IsRevised, po.Subtotal,
		po.ApprovedBy, po.ApprovedAt, po.EDIInterchangeID, po.Notes,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to update purchase order")
	}
	return nil
}

// RecalcPOSubtotal recomputes the PO subtotal from its items and returns
// the new value.
func (s *Store) RecalcPOSubtotal(ctx context.Context, poID uuid.UUID) (decimal.Decimal, error) {
	const op = "store.po.recalc_subtotal"
	var subtotal decimal.Decimal
	err := s.db.QueryRow(ctx, `
		UPDATE purchase_orders SET
			subtotal = COALESCE(
				(SELECT SUM(subtotal) FROM purchase_order_items WHERE purchase_order_id = $1), 0),
			updated_at = now()
		WHERE id = $1
		RETURNING subtotal`, poID).Scan(&subtotal)
	if err != nil {
		return decimal.Zero, domain.Internal(err, op, "failed to recalc po subtotal")
	}
	return subtotal, nil
}

// DeletePurchaseOrder removes a PO with its items and activity rows.
// Only used when un-cancelling an order so a fresh PO set regenerates.
func (s *Store) DeletePurchaseOrder(ctx context.Context, poID uuid.UUID) error {
	const op = "store.po.delete"
	if _, err := s.db.Exec(ctx, `DELETE FROM purchase_order_items WHERE purchase_order_id = $1`, poID); err != nil {
		return domain.Internal(err, op, "failed to delete po items")
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM po_activity_log WHERE purchase_order_id = $1`, poID); err != nil {
		return domain.Internal(err, op, "failed to delete po activity")
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM purchase_orders WHERE id = $1`, poID); err != nil {
		return domain.Internal(err, op, "failed to delete purchase order")
	}
	return nil
}

const poItemColumns = `
	id, purchase_order_id, order_item_id, product_name, vendor_sku, qty,
	cost_per_box, original_cost, retail_price, subtotal, sell_by, status,
	created_at`

func scanPOItem(row pgx.Row) (*domain.PurchaseOrderItem, error) {
	var it domain.PurchaseOrderItem
	err := row.Scan(
		&it.ID, &it.PurchaseOrderID, &it.OrderItemID, &it.ProductName,
		&it.VendorSku, &it.Qty, &it.CostPerBox, &it.OriginalCost,
		&it.RetailPrice, &it.Subtotal, &it.SellBy, &it.Status, &it.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// InsertPOItem adds a line to a PO.
func (s *Store) InsertPOItem(ctx context.Context, it *domain.PurchaseOrderItem) error {
	const op = "store.po_item.insert"
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO purchase_order_items
			(id, purchase_order_id, order_item_id, product_name, vendor_sku,
			 qty, cost_per_box, original_cost, retail_price, subtotal,
			 sell_by, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		it.ID, it.PurchaseOrderID, it.OrderItemID, it.ProductName,
		it.VendorSku, it.Qty, it.CostPerBox, it.OriginalCost, it.RetailPrice,
		it.Subtotal, it.SellBy, it.Status,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to insert po item")
	}
	return nil
}

// ListPOItems returns a PO's lines.
func (s *Store) ListPOItems(ctx context.Context, poID uuid.UUID) ([]domain.PurchaseOrderItem, error) {
	const op = "store.po_item.list"
	rows, err := s.db.Query(ctx,
		`SELECT `+poItemColumns+` FROM purchase_order_items WHERE purchase_order_id = $1 ORDER BY created_at, id`,
		poID,
	)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list po items")
	}
	defer rows.Close()

	var out []domain.PurchaseOrderItem
	for rows.Next() {
		it, err := scanPOItem(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan po item")
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

// GetPOItem fetches one PO line.
func (s *Store) GetPOItem(ctx context.Context, id uuid.UUID) (*domain.PurchaseOrderItem, error) {
	it, err := scanPOItem(s.db.QueryRow(ctx,
		`SELECT `+poItemColumns+` FROM purchase_order_items WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "store.po_item.get", "purchase order item")
	}
	return it, nil
}

// UpdatePOItem persists edits to a draft PO line.
func (s *Store) UpdatePOItem(ctx context.Context, it *domain.PurchaseOrderItem) error {
	const op = "store.po_item.update"
	_, err := s.db.Exec(ctx, `
		UPDATE purchase_order_items SET
			qty = $2, cost_per_box = $3, subtotal = $4, status = $5
		WHERE id = $1`,
		it.ID, it.Qty, it.CostPerBox, it.Subtotal, it.Status,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to update po item")
	}
	return nil
}

// DeletePOItemsByOrderItem removes the PO lines referencing an order line
// and returns the ids of the affected POs.
func (s *Store) DeletePOItemsByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]uuid.UUID, error) {
	const op = "store.po_item.delete_by_order_item"
	rows, err := s.db.Query(ctx, `
		DELETE FROM purchase_order_items WHERE order_item_id = $1
		RETURNING purchase_order_id`, orderItemID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to delete po items")
	}
	defer rows.Close()

	var poIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, domain.Internal(err, op, "failed to scan po id")
		}
		poIDs = append(poIDs, id)
	}
	return poIDs, rows.Err()
}

// CountPOItems returns how many lines a PO has.
func (s *Store) CountPOItems(ctx context.Context, poID uuid.UUID) (int, error) {
	const op = "store.po_item.count"
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM purchase_order_items WHERE purchase_order_id = $1`, poID).Scan(&n)
	if err != nil {
		return 0, domain.Internal(err, op, "failed to count po items")
	}
	return n, nil
}

// AppendPOActivity writes a PO activity-log entry.
func (s *Store) AppendPOActivity(ctx context.Context, poID uuid.UUID, action, actor string, detail map[string]any) error {
	const op = "store.po.activity"
	var d []byte
	if detail != nil {
		var err error
		if d, err = json.Marshal(detail); err != nil {
			return domain.Internal(err, op, "failed to encode activity detail")
		}
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO po_activity_log (id, purchase_order_id, action, actor, detail)
		VALUES ($1,$2,$3,$4,$5)`,
		uuid.New(), poID, action, actor, d,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to append po activity")
	}
	return nil
}

// ListPOActivity returns the PO activity log oldest-first.
func (s *Store) ListPOActivity(ctx context.Context, poID uuid.UUID) ([]domain.ActivityEntry, error) {
	const op = "store.po.activity_list"
	rows, err := s.db.Query(ctx, `
		SELECT id, action, actor, detail, created_at
		FROM po_activity_log WHERE purchase_order_id = $1 ORDER BY created_at`,
		poID,
	)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list po activity")
	}
	defer rows.Close()

	var out []domain.ActivityEntry
	for rows.Next() {
		var e domain.ActivityEntry
		var d []byte
		if err := rows.Scan(&e.ID, &e.Action, &e.Actor, &d, &e.CreatedAt); err != nil {
			return nil, domain.Internal(err, op, "failed to scan po activity")
		}
		if len(d) > 0 {
			_ = json.Unmarshal(d, &e.Detail)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// InsertEDITransaction records an EDI document send or receive.
func (s *Store) InsertEDITransaction(ctx context.Context, t *domain.EDITransaction) error {
	const op = "store.edi.insert"
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO edi_transactions
			(id, purchase_order_id, vendor_id, document_type, direction,
			 interchange_control, status, payload, error)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		t.ID, t.PurchaseOrderID, t.VendorID, t.DocumentType, t.Direction,
		t.InterchangeControl, t.Status, t.Payload, t.Error,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to insert edi transaction")
	}
	return nil
}

// UpdateEDITransactionStatus moves an EDI transaction between states.
func (s *Store) UpdateEDITransactionStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string) error {
	const op = "store.edi.update_status"
	_, err := s.db.Exec(ctx,
		`UPDATE edi_transactions SET status = $2, error = $3 WHERE id = $1`,
		id, status, errMsg,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to update edi transaction")
	}
	return nil
}

// NextInterchangeControl returns the next X12 interchange control number
// from a database sequence so numbers are unique across processes.
func (s *Store) NextInterchangeControl(ctx context.Context) (int64, error) {
	const op = "store.edi.next_icn"
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT nextval('edi_interchange_control_seq')`).Scan(&n); err != nil {
		return 0, domain.Internal(err, op, "failed to get interchange control number")
	}
	return n, nil
}
