package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/terrazzo/internal/domain"
)

const paymentColumns = `
	id, order_id, payment_type, amount, stripe_payment_intent_id,
	stripe_charge_id, stripe_refund_id, stripe_checkout_session_id,
	description, status, initiated_by, created_at`

func scanPayment(row pgx.Row) (*domain.OrderPayment, error) {
	var p domain.OrderPayment
	err := row.Scan(
		&p.ID, &p.OrderID, &p.PaymentType, &p.Amount,
		&p.StripePaymentIntentID, &p.StripeChargeID, &p.StripeRefundID,
		&p.StripeCheckoutSessionID, &p.Description, &p.Status,
		&p.InitiatedBy, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// AppendPayment inserts a ledger row. The ledger is append-only; rows are
// never updated past a terminal status and never deleted.
func (s *Store) AppendPayment(ctx context.Context, p *domain.OrderPayment) error {
	const op = "store.payment.append"
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO order_payments (
			id, order_id, payment_type, amount, stripe_payment_intent_id,
			stripe_charge_id, stripe_refund_id, stripe_checkout_session_id,
			description, status, initiated_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.OrderID, p.PaymentType, p.Amount, p.StripePaymentIntentID,
		p.StripeChargeID, p.StripeRefundID, p.StripeCheckoutSessionID,
		p.Description, p.Status, p.InitiatedBy,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to append payment")
	}
	return nil
}

// ListPayments returns an order's ledger oldest-first.
func (s *Store) ListPayments(ctx context.Context, orderID uuid.UUID) ([]domain.OrderPayment, error) {
	const op = "store.payment.list"
	rows, err := s.db.Query(ctx,
		`SELECT `+paymentColumns+` FROM order_payments WHERE order_id = $1 ORDER BY created_at, id`,
		orderID,
	)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list payments")
	}
	defer rows.Close()

	var out []domain.OrderPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan payment")
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// MarkPaymentCompleted transitions a pending ledger row to completed.
// Used by the webhook plane for additional charges.
func (s *Store) MarkPaymentCompleted(ctx context.Context, id uuid.UUID) error {
	const op = "store.payment.complete"
	tag, err := s.db.Exec(ctx,
		`UPDATE order_payments SET status = $2 WHERE id = $1 AND status = $3`,
		id, domain.PaymentStatusCompleted, domain.PaymentStatusPending,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to complete payment")
	}
	if tag.RowsAffected() == 0 {
		return domain.Conflict(op, "payment is not pending")
	}
	return nil
}

const paymentRequestColumns = `
	id, order_id, amount, email, stripe_checkout_session_id, checkout_url,
	status, expires_at, created_at`

func scanPaymentRequest(row pgx.Row) (*domain.PaymentRequest, error) {
	var pr domain.PaymentRequest
	err := row.Scan(
		&pr.ID, &pr.OrderID, &pr.Amount, &pr.Email,
		&pr.StripeCheckoutSessionID, &pr.CheckoutURL, &pr.Status,
		&pr.ExpiresAt, &pr.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

// CreatePaymentRequest inserts a pending balance-link row.
func (s *Store) CreatePaymentRequest(ctx context.Context, pr *domain.PaymentRequest) error {
	const op = "store.payment_request.create"
	if pr.ID == uuid.Nil {
		pr.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO payment_requests
			(id, order_id, amount, email, stripe_checkout_session_id,
			 checkout_url, status, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		pr.ID, pr.OrderID, pr.Amount, pr.Email, pr.StripeCheckoutSessionID,
		pr.CheckoutURL, pr.Status, pr.ExpiresAt,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to create payment request")
	}
	return nil
}

// GetPaymentRequestBySession looks a payment request up by its Stripe
// checkout session, for webhook completion.
func (s *Store) GetPaymentRequestBySession(ctx context.Context, sessionID string) (*domain.PaymentRequest, error) {
	pr, err := scanPaymentRequest(s.db.QueryRow(ctx,
		`SELECT `+paymentRequestColumns+` FROM payment_requests WHERE stripe_checkout_session_id = $1`,
		sessionID))
	if err != nil {
		return nil, notFound(err, "store.payment_request.get_by_session", "payment request")
	}
	return pr, nil
}

// UpdatePaymentRequestStatus moves a payment request between states.
func (s *Store) UpdatePaymentRequestStatus(ctx context.Context, id uuid.UUID, status string) error {
	const op = "store.payment_request.update_status"
	_, err := s.db.Exec(ctx,
		`UPDATE payment_requests SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return domain.Internal(err, op, "failed to update payment request")
	}
	return nil
}
