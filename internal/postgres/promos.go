package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/terrazzo/internal/domain"
)

const promoColumns = `
	id, code, type, value, min_order_amount, max_uses, max_uses_per_customer,
	category_ids, product_ids, active, expires_at, created_at`

func scanPromo(row pgx.Row) (*domain.PromoCode, error) {
	var p domain.PromoCode
	var cats, prods []byte
	err := row.Scan(
		&p.ID, &p.Code, &p.Type, &p.Value, &p.MinOrderAmount, &p.MaxUses,
		&p.MaxUsesPerCustomer, &cats, &prods, &p.Active, &p.ExpiresAt,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(cats) > 0 {
		_ = json.Unmarshal(cats, &p.CategoryIDs)
	}
	if len(prods) > 0 {
		_ = json.Unmarshal(prods, &p.ProductIDs)
	}
	return &p, nil
}

// CreatePromo inserts a new promo code. Restriction sets are stored as
// jsonb arrays.
func (s *Store) CreatePromo(ctx context.Context, p *domain.PromoCode) error {
	const op = "store.promo.create"
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cats, _ := json.Marshal(p.CategoryIDs)
	prods, _ := json.Marshal(p.ProductIDs)
	_, err := s.db.Exec(ctx, `
		INSERT INTO promo_codes
			(id, code, type, value, min_order_amount, max_uses,
			 max_uses_per_customer, category_ids, product_ids, active, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.Code, p.Type, p.Value, p.MinOrderAmount, p.MaxUses,
		p.MaxUsesPerCustomer, cats, prods, p.Active, p.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict(op, "a promo code with that code already exists")
		}
		return domain.Internal(err, op, "failed to create promo code")
	}
	return nil
}

// GetPromo fetches a promo code by id.
func (s *Store) GetPromo(ctx context.Context, id uuid.UUID) (*domain.PromoCode, error) {
	p, err := scanPromo(s.db.QueryRow(ctx,
		`SELECT `+promoColumns+` FROM promo_codes WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "store.promo.get", "promo code")
	}
	return p, nil
}

// ListPromos returns all promo codes, newest first.
func (s *Store) ListPromos(ctx context.Context) ([]domain.PromoCode, error) {
	const op = "store.promo.list"
	rows, err := s.db.Query(ctx,
		`SELECT `+promoColumns+` FROM promo_codes ORDER BY created_at DESC`)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list promo codes")
	}
	defer rows.Close()
	var out []domain.PromoCode
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan promo code")
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpdatePromo rewrites the editable fields of a promo code.
func (s *Store) UpdatePromo(ctx context.Context, p *domain.PromoCode) error {
	const op = "store.promo.update"
	cats, _ := json.Marshal(p.CategoryIDs)
	prods, _ := json.Marshal(p.ProductIDs)
	tag, err := s.db.Exec(ctx, `
		UPDATE promo_codes SET
			type = $2, value = $3, min_order_amount = $4, max_uses = $5,
			max_uses_per_customer = $6, category_ids = $7, product_ids = $8,
			active = $9, expires_at = $10
		WHERE id = $1`,
		p.ID, p.Type, p.Value, p.MinOrderAmount, p.MaxUses,
		p.MaxUsesPerCustomer, cats, prods, p.Active, p.ExpiresAt,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to update promo code")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound(op, "promo code")
	}
	return nil
}

// GetPromoForUpdate locks a promo row for the duration of the calling
// transaction. Checkout commits take this lock before recounting usages
// so concurrent orders racing a max_uses budget serialize.
func (s *Store) GetPromoForUpdate(ctx context.Context, id uuid.UUID) (*domain.PromoCode, error) {
	p, err := scanPromo(s.db.QueryRow(ctx,
		`SELECT `+promoColumns+` FROM promo_codes WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "store.promo.get_for_update", "promo code")
	}
	return p, nil
}

// GetPromoByCode looks a promo code up case-insensitively.
func (s *Store) GetPromoByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	p, err := scanPromo(s.db.QueryRow(ctx,
		`SELECT `+promoColumns+` FROM promo_codes WHERE lower(code) = lower($1)`, code))
	if err != nil {
		return nil, notFound(err, "store.promo.get_by_code", "promo code")
	}
	return p, nil
}

// CountPromoOrderUsages counts usages backed by an order. Quote-only
// usages never consume the global counter.
func (s *Store) CountPromoOrderUsages(ctx context.Context, promoID uuid.UUID) (int, error) {
	const op = "store.promo.count_order_usages"
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM promo_code_usages WHERE promo_code_id = $1 AND order_id IS NOT NULL`,
		promoID).Scan(&n)
	if err != nil {
		return 0, domain.Internal(err, op, "failed to count promo usages")
	}
	return n, nil
}

// CountPromoCustomerUsages counts order-backed usages for one email.
func (s *Store) CountPromoCustomerUsages(ctx context.Context, promoID uuid.UUID, email string) (int, error) {
	const op = "store.promo.count_customer_usages"
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM promo_code_usages
		WHERE promo_code_id = $1 AND order_id IS NOT NULL AND lower(customer_email) = lower($2)`,
		promoID, email).Scan(&n)
	if err != nil {
		return 0, domain.Internal(err, op, "failed to count promo usages")
	}
	return n, nil
}

// InsertPromoUsage records a promo application.
func (s *Store) InsertPromoUsage(ctx context.Context, u *domain.PromoCodeUsage) error {
	const op = "store.promo.insert_usage"
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO promo_code_usages
			(id, promo_code_id, order_id, quote_id, customer_email, discount_amount)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.PromoCodeID, u.OrderID, u.QuoteID, u.CustomerEmail, u.DiscountAmount,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to record promo usage")
	}
	return nil
}
