package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/terrazzo/internal/domain"
)

const quoteColumns = `
	id, quote_number, email, customer_id, trade_customer_id, sales_rep_id,
	delivery_method, shipping_address, subtotal, shipping, sample_shipping,
	discount_amount, total, promo_code_id, status, expires_at,
	converted_order_id, created_at, updated_at`

func scanQuote(row pgx.Row) (*domain.Quote, error) {
	var q domain.Quote
	var addr []byte
	err := row.Scan(
		&q.ID, &q.QuoteNumber, &q.Email, &q.CustomerID, &q.TradeCustomerID,
		&q.SalesRepID, &q.DeliveryMethod, &addr, &q.Subtotal, &q.Shipping,
		&q.SampleShipping, &q.DiscountAmount, &q.Total, &q.PromoCodeID,
		&q.Status, &q.ExpiresAt, &q.ConvertedOrderID, &q.CreatedAt,
		&q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(addr) > 0 {
		var a domain.Address
		if err := json.Unmarshal(addr, &a); err != nil {
			return nil, fmt.Errorf("decode quote address: %w", err)
		}
		q.ShippingAddress = &a
	}
	return &q, nil
}

// CreateQuote inserts a draft quote.
func (s *Store) CreateQuote(ctx context.Context, q *domain.Quote) error {
	const op = "store.quote.create"
	addr, err := marshalAddress(q.ShippingAddress)
	if err != nil {
		return domain.Internal(err, op, "failed to encode quote")
	}
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO quotes
			(id, quote_number, email, customer_id, trade_customer_id,
			 sales_rep_id, delivery_method, shipping_address, subtotal,
			 shipping, sample_shipping, discount_amount, total, promo_code_id,
			 status, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		q.ID, q.QuoteNumber, q.Email, q.CustomerID, q.TradeCustomerID,
		q.SalesRepID, q.DeliveryMethod, addr, q.Subtotal, q.Shipping,
		q.SampleShipping, q.DiscountAmount, q.Total, q.PromoCodeID,
		q.Status, q.ExpiresAt,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to create quote")
	}
	return nil
}

// GetQuoteForUpdate fetches a quote with a row lock for conversion.
func (s *Store) GetQuoteForUpdate(ctx context.Context, id uuid.UUID) (*domain.Quote, error) {
	q, err := scanQuote(s.db.QueryRow(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "store.quote.lock", "quote")
	}
	return q, nil
}

// GetQuote fetches a quote by id.
func (s *Store) GetQuote(ctx context.Context, id uuid.UUID) (*domain.Quote, error) {
	q, err := scanQuote(s.db.QueryRow(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "store.quote.get", "quote")
	}
	return q, nil
}

// UpdateQuoteStatus moves a quote between states; conversion also records
// the resulting order.
func (s *Store) UpdateQuoteStatus(ctx context.Context, q *domain.Quote) error {
	const op = "store.quote.update_status"
	_, err := s.db.Exec(ctx, `
		UPDATE quotes SET
			status = $2, expires_at = $3, converted_order_id = $4,
			updated_at = now()
		WHERE id = $1`,
		q.ID, q.Status, q.ExpiresAt, q.ConvertedOrderID,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to update quote")
	}
	return nil
}

// UpdateQuoteContent rewrites the editable fields of a draft quote.
func (s *Store) UpdateQuoteContent(ctx context.Context, q *domain.Quote) error {
	const op = "store.quote.update_content"
	addr, err := marshalAddress(q.ShippingAddress)
	if err != nil {
		return domain.Internal(err, op, "failed to encode shipping address")
	}
	_, err = s.db.Exec(ctx, `
		UPDATE quotes SET
			email = $2, delivery_method = $3, shipping_address = $4,
			subtotal = $5, shipping = $6, sample_shipping = $7,
			promo_code_id = $8, discount_amount = $9, total = $10,
			updated_at = now()
		WHERE id = $1`,
		q.ID, q.Email, q.DeliveryMethod, addr, q.Subtotal, q.Shipping,
		q.SampleShipping, q.PromoCodeID, q.DiscountAmount, q.Total,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to update quote")
	}
	return nil
}

// DeleteQuoteItems removes every line on a quote.
func (s *Store) DeleteQuoteItems(ctx context.Context, quoteID uuid.UUID) error {
	const op = "store.quote_item.delete_all"
	if _, err := s.db.Exec(ctx, `DELETE FROM quote_items WHERE quote_id = $1`, quoteID); err != nil {
		return domain.Internal(err, op, "failed to delete quote items")
	}
	return nil
}

// InsertQuoteItem adds a line to a quote.
func (s *Store) InsertQuoteItem(ctx context.Context, it *domain.QuoteItem) error {
	const op = "store.quote_item.insert"
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO quote_items
			(id, quote_id, product_id, sku_id, vendor_id, name, num_boxes,
			 sqft_needed, unit_price, subtotal, sell_by, price_tier, is_sample)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		it.ID, it.QuoteID, it.ProductID, it.SkuID, it.VendorID, it.Name,
		it.NumBoxes, it.SqftNeeded, it.UnitPrice, it.Subtotal, it.SellBy,
		it.PriceTier, it.IsSample,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to insert quote item")
	}
	return nil
}

// ListQuoteItems returns a quote's lines.
func (s *Store) ListQuoteItems(ctx context.Context, quoteID uuid.UUID) ([]domain.QuoteItem, error) {
	const op = "store.quote_item.list"
	rows, err := s.db.Query(ctx, `
		SELECT id, quote_id, product_id, sku_id, vendor_id, name, num_boxes,
		       sqft_needed, unit_price, subtotal, sell_by, price_tier, is_sample
		FROM quote_items WHERE quote_id = $1 ORDER BY id`, quoteID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list quote items")
	}
	defer rows.Close()

	var out []domain.QuoteItem
	for rows.Next() {
		var it domain.QuoteItem
		err := rows.Scan(
			&it.ID, &it.QuoteID, &it.ProductID, &it.SkuID, &it.VendorID,
			&it.Name, &it.NumBoxes, &it.SqftNeeded, &it.UnitPrice,
			&it.Subtotal, &it.SellBy, &it.PriceTier, &it.IsSample,
		)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan quote item")
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ExpireQuotes marks sent quotes past their expiry as expired. Returns the
// number expired; used by the daily timer.
func (s *Store) ExpireQuotes(ctx context.Context) (int64, error) {
	const op = "store.quote.expire"
	tag, err := s.db.Exec(ctx, `
		UPDATE quotes SET status = $1, updated_at = now()
		WHERE status = $2 AND expires_at IS NOT NULL AND expires_at < now()`,
		domain.QuoteExpired, domain.QuoteSent,
	)
	if err != nil {
		return 0, domain.Internal(err, op, "failed to expire quotes")
	}
	return tag.RowsAffected(), nil
}
