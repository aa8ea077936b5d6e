package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/domain"
)

const orderColumns = `
	id, order_number, email, customer_id, trade_customer_id, sales_rep_id,
	project_id, delivery_method, shipping_address, shipping_carrier,
	shipping_service, transit_days, residential, liftgate, is_fallback_rate,
	subtotal, shipping, sample_shipping, discount_amount, total, amount_paid,
	refund_amount, promo_code_id, status, cancel_reason, tracking_number,
	tracking_url, stripe_payment_intent_id, confirmed_at, shipped_at,
	delivered_at, refunded_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var addr []byte
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.Email, &o.CustomerID, &o.TradeCustomerID,
		&o.SalesRepID, &o.ProjectID, &o.DeliveryMethod, &addr,
		&o.ShippingCarrier, &o.ShippingService, &o.TransitDays,
		&o.Residential, &o.Liftgate, &o.IsFallbackRate,
		&o.Subtotal, &o.Shipping, &o.SampleShipping, &o.DiscountAmount,
		&o.Total, &o.AmountPaid, &o.RefundAmount, &o.PromoCodeID,
		&o.Status, &o.CancelReason, &o.TrackingNumber, &o.TrackingURL,
		&o.StripePaymentIntentID, &o.ConfirmedAt, &o.ShippedAt,
		&o.DeliveredAt, &o.RefundedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(addr) > 0 {
		var a domain.Address
		if err := json.Unmarshal(addr, &a); err != nil {
			return nil, fmt.Errorf("decode shipping address: %w", err)
		}
		o.ShippingAddress = &a
	}
	return &o, nil
}

func marshalAddress(a *domain.Address) (any, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode shipping address: %w", err)
	}
	return b, nil
}

// CreateOrder inserts a new order row.
func (s *Store) CreateOrder(ctx context.Context, o *domain.Order) error {
	const op = "store.order.create"
	addr, err := marshalAddress(o.ShippingAddress)
	if err != nil {
		return domain.Internal(err, op, "failed to encode order")
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO orders (
			id, order_number, email, customer_id, trade_customer_id,
			sales_rep_id, project_id, delivery_method, shipping_address,
			shipping_carrier, shipping_service, transit_days, residential,
			liftgate, is_fallback_rate, subtotal, shipping, sample_shipping,
			discount_amount, total, amount_paid, refund_amount, promo_code_id,
			status, stripe_payment_intent_id, confirmed_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,
			$19,$20,$21,$22,$23,$24,$25,$26
		)`,
		o.ID, o.OrderNumber, o.Email, o.CustomerID, o.TradeCustomerID,
		o.SalesRepID, o.ProjectID, o.DeliveryMethod, addr,
		o.ShippingCarrier, o.ShippingService, o.TransitDays, o.Residential,
		o.Liftgate, o.IsFallbackRate, o.Subtotal, o.Shipping,
		o.SampleShipping, o.DiscountAmount, o.Total, o.AmountPaid,
		o.RefundAmount, o.PromoCodeID, o.Status, o.StripePaymentIntentID,
		o.ConfirmedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict(op, "order number already exists")
		}
		return domain.Internal(err, op, "failed to create order")
	}
	return nil
}

// GetOrder fetches an order by id.
func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, err := scanOrder(s.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "store.order.get", "order")
	}
	return o, nil
}

// GetOrderForUpdate fetches an order and takes a row lock. Every mutation
// that changes totals, status, or payments starts here.
func (s *Store) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, err := scanOrder(s.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "store.order.lock", "order")
	}
	return o, nil
}

// GetOrderByNumber fetches an order by its human-readable number.
func (s *Store) GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	o, err := scanOrder(s.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number))
	if err != nil {
		return nil, notFound(err, "store.order.get_by_number", "order")
	}
	return o, nil
}

// GetOrderByPaymentIntent fetches an order by its Stripe payment intent id.
// Used as the checkout idempotency check.
func (s *Store) GetOrderByPaymentIntent(ctx context.Context, intentID string) (*domain.Order, error) {
	o, err := scanOrder(s.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE stripe_payment_intent_id = $1`, intentID))
	if err != nil {
		return nil, notFound(err, "store.order.get_by_intent", "order")
	}
	return o, nil
}

// OrderListFilter narrows ListOrders.
type OrderListFilter struct {
	Status          *domain.OrderStatus
	SalesRepID      *uuid.UUID
	TradeCustomerID *uuid.UUID
	CustomerID      *uuid.UUID
	Email           *string
	Limit           int
	Offset          int
}

// ListOrders returns orders newest-first.
func (s *Store) ListOrders(ctx context.Context, f OrderListFilter) ([]domain.Order, error) {
	const op = "store.order.list"
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::uuid IS NULL OR sales_rep_id = $2)
		  AND ($3::uuid IS NULL OR trade_customer_id = $3)
		  AND ($4::uuid IS NULL OR customer_id = $4)
		  AND ($5::text IS NULL OR email = $5)
		ORDER BY created_at DESC
		LIMIT $6 OFFSET $7`,
		f.Status, f.SalesRepID, f.TradeCustomerID, f.CustomerID, f.Email,
		f.Limit, f.Offset,
	)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list orders")
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan order")
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// UpdateOrderStatus writes the status plus its lifecycle timestamps,
// tracking fields, and cancel reason in one statement.
func (s *Store) UpdateOrderStatus(ctx context.Context, o *domain.Order) error {
	const op = "store.order.update_status"
	_, err := s.db.Exec(ctx, `
		UPDATE orders SET
			status = $2, cancel_reason = $3, tracking_number = $4,
			tracking_url = $5, confirmed_at = $6, shipped_at = $7,
			delivered_at = $8, refunded_at = $9, updated_at = now()
		WHERE id = $1`,
		o.ID, o.Status, o.CancelReason, o.TrackingNumber, o.TrackingURL,
		o.ConfirmedAt, o.ShippedAt, o.DeliveredAt, o.RefundedAt,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to update order status")
	}
	return nil
}

// UpdateOrderTotals persists the monetary fields after recalculation.
func (s *Store) UpdateOrderTotals(ctx context.Context, o *domain.Order) error {
	const op = "store.order.update_totals"
	_, err := s.db.Exec(ctx, `
		UPDATE orders SET
			subtotal = $2, shipping = $3, sample_shipping = $4,
			discount_amount = $5, total = $6, amount_paid = $7,
			refund_amount = $8, updated_at = now()
		WHERE id = $1`,
		o.ID, o.Subtotal, o.Shipping, o.SampleShipping, o.DiscountAmount,
		o.Total, o.AmountPaid, o.RefundAmount,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to update order totals")
	}
	return nil
}

// UpdateOrderDelivery persists a delivery-method change.
func (s *Store) UpdateOrderDelivery(ctx context.Context, o *domain.Order) error {
	const op = "store.order.update_delivery"
	addr, err := marshalAddress(o.ShippingAddress)
	if err != nil {
		return domain.Internal(err, op, "failed to encode order")
	}
	_, err = s.db.Exec(ctx, `
		UPDATE orders SET
			delivery_method = $2, shipping_address = $3, shipping_carrier = $4,
			shipping_service = $5, transit_days = $6, residential = $7,
			liftgate = $8, is_fallback_rate = $9, shipping = $10,
			sample_shipping = $11, total = $12, updated_at = now()
		WHERE id = $1`,
		o.ID, o.DeliveryMethod, addr, o.ShippingCarrier, o.ShippingService,
		o.TransitDays, o.Residential, o.Liftgate, o.IsFallbackRate,
		o.Shipping, o.SampleShipping, o.Total,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to update order delivery")
	}
	return nil
}

// AppendOrderActivity writes an activity-log entry in the caller's
// transaction so the log and the change it describes commit together.
func (s *Store) AppendOrderActivity(ctx context.Context, orderID uuid.UUID, action, actor string, detail map[string]any) error {
	const op = "store.order.activity"
	var d []byte
	if detail != nil {
		var err error
		if d, err = json.Marshal(detail); err != nil {
			return domain.Internal(err, op, "failed to encode activity detail")
		}
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO order_activity_log (id, order_id, action, actor, detail)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), orderID, action, actor, d,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to append order activity")
	}
	return nil
}

// ListOrderActivity returns the activity log oldest-first.
func (s *Store) ListOrderActivity(ctx context.Context, orderID uuid.UUID) ([]domain.ActivityEntry, error) {
	const op = "store.order.activity_list"
	rows, err := s.db.Query(ctx, `
		SELECT id, action, actor, detail, created_at
		FROM order_activity_log WHERE order_id = $1 ORDER BY created_at`,
		orderID,
	)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list order activity")
	}
	defer rows.Close()

	var out []domain.ActivityEntry
	for rows.Next() {
		var e domain.ActivityEntry
		var d []byte
		if err := rows.Scan(&e.ID, &e.Action, &e.Actor, &d, &e.CreatedAt); err != nil {
			return nil, domain.Internal(err, op, "failed to scan activity")
		}
		if len(d) > 0 {
			_ = json.Unmarshal(d, &e.Detail)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// InsertPriceAdjustment writes the rep price-override audit row.
func (s *Store) InsertPriceAdjustment(ctx context.Context, a *domain.PriceAdjustment) error {
	const op = "store.order.price_adjustment"
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO order_price_adjustments
			(id, order_id, order_item_id, old_price, new_price, reason, adjusted_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.OrderID, a.OrderItemID, a.OldPrice, a.NewPrice, a.Reason, a.AdjustedBy,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to record price adjustment")
	}
	return nil
}

// SetOrderPaymentIntent stores the gateway intent id on an order created
// before the intent existed.
func (s *Store) SetOrderPaymentIntent(ctx context.Context, orderID uuid.UUID, intentID string) error {
	const op = "store.order.set_intent"
	_, err := s.db.Exec(ctx,
		`UPDATE orders SET stripe_payment_intent_id = $2, updated_at = now() WHERE id = $1`,
		orderID, intentID,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to set payment intent")
	}
	return nil
}

// AddOrderPaid adjusts the cached amount_paid aggregate. The matching
// ledger append must already be in the same transaction.
func (s *Store) AddOrderPaid(ctx context.Context, orderID uuid.UUID, delta decimal.Decimal) error {
	const op = "store.order.add_paid"
	_, err := s.db.Exec(ctx,
		`UPDATE orders SET amount_paid = amount_paid + $2, updated_at = now() WHERE id = $1`,
		orderID, delta,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to update amount paid")
	}
	return nil
}

// AddOrderRefunded bumps the cached refund_amount aggregate.
func (s *Store) AddOrderRefunded(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal) error {
	const op = "store.order.add_refunded"
	_, err := s.db.Exec(ctx,
		`UPDATE orders SET refund_amount = refund_amount + $2, updated_at = now() WHERE id = $1`,
		orderID, amount,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to update refund amount")
	}
	return nil
}

// GenerateOrderNumber produces a human-readable unique order number.
func GenerateOrderNumber(now time.Time, rand4 string) string {
	return fmt.Sprintf("TZ-%s-%s", now.Format("20060102"), rand4)
}
