package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/domain"
)

// POCostSummary carries the vendor-cost aggregate: the summed item cost and
// how many POs contributed (zero means fall back to the default cost ratio).
type POCostSummary struct {
	Sum     decimal.Decimal
	POCount int
}

// UpsertCommission writes the per-order commission row. Unique on
// order_id; a row that has already reached paid keeps its status and
// amount no matter what recomputation produced.
func (s *Store) UpsertCommission(ctx context.Context, c *domain.RepCommission) error {
	const op = "store.commission.upsert"
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO rep_commissions
			(id, order_id, sales_rep_id, rate, order_total, vendor_cost,
			 margin, amount, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (order_id) DO UPDATE SET
			rate = EXCLUDED.rate,
			order_total = EXCLUDED.order_total,
			vendor_cost = EXCLUDED.vendor_cost,
			margin = EXCLUDED.margin,
			amount = EXCLUDED.amount,
			status = EXCLUDED.status,
			updated_at = now()
		WHERE rep_commissions.status <> 'paid'`,
		c.ID, c.OrderID, c.SalesRepID, c.Rate, c.OrderTotal, c.VendorCost,
		c.Margin, c.Amount, c.Status,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to upsert commission")
	}
	return nil
}

// GetCommissionByOrder fetches the commission row for an order.
func (s *Store) GetCommissionByOrder(ctx context.Context, orderID uuid.UUID) (*domain.RepCommission, error) {
	var c domain.RepCommission
	err := s.db.QueryRow(ctx, `
		SELECT id, order_id, sales_rep_id, rate, order_total, vendor_cost,
		       margin, amount, status, created_at, updated_at
		FROM rep_commissions WHERE order_id = $1`, orderID,
	).Scan(
		&c.ID, &c.OrderID, &c.SalesRepID, &c.Rate, &c.OrderTotal,
		&c.VendorCost, &c.Margin, &c.Amount, &c.Status, &c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "store.commission.get", "commission")
	}
	return &c, nil
}

// SumNonCancelledPOCost totals non-cancelled PO item subtotals for an
// order; the commission engine's vendor-cost input.
func (s *Store) SumNonCancelledPOCost(ctx context.Context, orderID uuid.UUID) (POCostSummary, error) {
	const op = "store.commission.vendor_cost"
	var r POCostSummary
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(i.subtotal), 0), COUNT(DISTINCT p.id)
		FROM purchase_orders p
		JOIN purchase_order_items i ON i.purchase_order_id = p.id
		WHERE p.order_id = $1 AND p.status <> 'cancelled' AND i.status <> 'cancelled'`, orderID,
	).Scan(&r.Sum, &r.POCount)
	if err != nil {
		return r, domain.Internal(err, op, "failed to sum vendor cost")
	}
	return r, nil
}
