package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/terrazzo/internal/domain"
)

const cartItemColumns = `
	id, session_id, product_id, sku_id, vendor_id, name, num_boxes,
	sqft_needed, unit_price, sell_by, price_tier, is_sample, created_at`

func scanCartItem(row pgx.Row) (*domain.CartItem, error) {
	var it domain.CartItem
	err := row.Scan(
		&it.ID, &it.SessionID, &it.ProductID, &it.SkuID, &it.VendorID,
		&it.Name, &it.NumBoxes, &it.SqftNeeded, &it.UnitPrice, &it.SellBy,
		&it.PriceTier, &it.IsSample, &it.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// AddCartItem inserts a cart line for an anonymous session.
func (s *Store) AddCartItem(ctx context.Context, it *domain.CartItem) error {
	const op = "store.cart.add"
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO cart_items
			(id, session_id, product_id, sku_id, vendor_id, name, num_boxes,
			 sqft_needed, unit_price, sell_by, price_tier, is_sample)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		it.ID, it.SessionID, it.ProductID, it.SkuID, it.VendorID, it.Name,
		it.NumBoxes, it.SqftNeeded, it.UnitPrice, it.SellBy, it.PriceTier,
		it.IsSample,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to add cart item")
	}
	return nil
}

// ListCartItems returns a session's cart lines.
func (s *Store) ListCartItems(ctx context.Context, sessionID string) ([]domain.CartItem, error) {
	const op = "store.cart.list"
	rows, err := s.db.Query(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE session_id = $1 ORDER BY created_at, id`,
		sessionID,
	)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list cart items")
	}
	defer rows.Close()

	var out []domain.CartItem
	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan cart item")
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

// RemoveCartItem deletes one cart line scoped to its session.
func (s *Store) RemoveCartItem(ctx context.Context, sessionID string, itemID uuid.UUID) error {
	const op = "store.cart.remove"
	tag, err := s.db.Exec(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND session_id = $2`, itemID, sessionID)
	if err != nil {
		return domain.Internal(err, op, "failed to remove cart item")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound(op, "cart item")
	}
	return nil
}

// DrainCart deletes all of a session's cart lines. Called inside the
// checkout transaction after the order is written.
func (s *Store) DrainCart(ctx context.Context, sessionID string) error {
	const op = "store.cart.drain"
	if _, err := s.db.Exec(ctx, `DELETE FROM cart_items WHERE session_id = $1`, sessionID); err != nil {
		return domain.Internal(err, op, "failed to drain cart")
	}
	return nil
}
