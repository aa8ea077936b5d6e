package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/terrazzo/internal/domain"
)

const orderItemColumns = `
	id, order_id, product_id, sku_id, vendor_id, name, collection,
	description, num_boxes, sqft_needed, unit_price, subtotal, sell_by,
	price_tier, is_sample, created_at`

func scanOrderItem(row pgx.Row) (*domain.OrderItem, error) {
	var it domain.OrderItem
	err := row.Scan(
		&it.ID, &it.OrderID, &it.ProductID, &it.SkuID, &it.VendorID,
		&it.Name, &it.Collection, &it.Description, &it.NumBoxes,
		&it.SqftNeeded, &it.UnitPrice, &it.Subtotal, &it.SellBy,
		&it.PriceTier, &it.IsSample, &it.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// InsertOrderItem adds a line to an order.
func (s *Store) InsertOrderItem(ctx context.Context, it *domain.OrderItem) error {
	const op = "store.order_item.insert"
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO order_items (
			id, order_id, product_id, sku_id, vendor_id, name, collection,
			description, num_boxes, sqft_needed, unit_price, subtotal,
			sell_by, price_tier, is_sample
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		it.ID, it.OrderID, it.ProductID, it.SkuID, it.VendorID, it.Name,
		it.Collection, it.Description, it.NumBoxes, it.SqftNeeded,
		it.UnitPrice, it.Subtotal, it.SellBy, it.PriceTier, it.IsSample,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to insert order item")
	}
	return nil
}

// GetOrderItem fetches a single line.
func (s *Store) GetOrderItem(ctx context.Context, id uuid.UUID) (*domain.OrderItem, error) {
	it, err := scanOrderItem(s.db.QueryRow(ctx,
		`SELECT `+orderItemColumns+` FROM order_items WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "store.order_item.get", "order item")
	}
	return it, nil
}

// ListOrderItems returns an order's lines in insertion order.
func (s *Store) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	const op = "store.order_item.list"
	rows, err := s.db.Query(ctx,
		`SELECT `+orderItemColumns+` FROM order_items WHERE order_id = $1 ORDER BY created_at, id`,
		orderID,
	)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list order items")
	}
	defer rows.Close()

	var out []domain.OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan order item")
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

// DeleteOrderItem removes a line. Linked PO items must be deleted first
// (FK order).
func (s *Store) DeleteOrderItem(ctx context.Context, id uuid.UUID) error {
	const op = "store.order_item.delete"
	tag, err := s.db.Exec(ctx, `DELETE FROM order_items WHERE id = $1`, id)
	if err != nil {
		return domain.Internal(err, op, "failed to delete order item")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound(op, "order item")
	}
	return nil
}

// UpdateOrderItemPrice applies a rep price override to a line and its
// subtotal.
func (s *Store) UpdateOrderItemPrice(ctx context.Context, it *domain.OrderItem) error {
	const op = "store.order_item.update_price"
	_, err := s.db.Exec(ctx,
		`UPDATE order_items SET unit_price = $2, subtotal = $3 WHERE id = $1`,
		it.ID, it.UnitPrice, it.Subtotal,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to update order item price")
	}
	return nil
}
