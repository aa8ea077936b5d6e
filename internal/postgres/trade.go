package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/domain"
)

const tradeCustomerColumns = `
	id, email, company_name, password_hash, status, tier_id, sales_rep_id,
	total_spend, subscription, subscription_id, expires_at, created_at`

func scanTradeCustomer(row pgx.Row) (*domain.TradeCustomer, error) {
	var t domain.TradeCustomer
	err := row.Scan(
		&t.ID, &t.Email, &t.CompanyName, &t.PasswordHash, &t.Status,
		&t.TierID, &t.SalesRepID, &t.TotalSpend, &t.Subscription,
		&t.SubscriptionID, &t.ExpiresAt, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTradeCustomer fetches a trade account by id.
func (s *Store) GetTradeCustomer(ctx context.Context, id uuid.UUID) (*domain.TradeCustomer, error) {
	t, err := scanTradeCustomer(s.db.QueryRow(ctx,
		`SELECT `+tradeCustomerColumns+` FROM trade_customers WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "store.trade.get", "trade customer")
	}
	return t, nil
}

// GetTradeCustomerByEmail fetches a trade account by email.
func (s *Store) GetTradeCustomerByEmail(ctx context.Context, email string) (*domain.TradeCustomer, error) {
	t, err := scanTradeCustomer(s.db.QueryRow(ctx,
		`SELECT `+tradeCustomerColumns+` FROM trade_customers WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, notFound(err, "store.trade.get_by_email", "trade customer")
	}
	return t, nil
}

// GetTradeCustomerBySubscription resolves a gateway subscription id.
func (s *Store) GetTradeCustomerBySubscription(ctx context.Context, subscriptionID string) (*domain.TradeCustomer, error) {
	t, err := scanTradeCustomer(s.db.QueryRow(ctx,
		`SELECT `+tradeCustomerColumns+` FROM trade_customers WHERE subscription_id = $1`, subscriptionID))
	if err != nil {
		return nil, notFound(err, "store.trade.get_by_subscription", "trade customer")
	}
	return t, nil
}

// GetTradeTier fetches one tier.
func (s *Store) GetTradeTier(ctx context.Context, id uuid.UUID) (*domain.TradeTier, error) {
	var t domain.TradeTier
	err := s.db.QueryRow(ctx,
		`SELECT id, name, discount_percent, spend_threshold FROM trade_tiers WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.DiscountPercent, &t.SpendThreshold)
	if err != nil {
		return nil, notFound(err, "store.trade_tier.get", "trade tier")
	}
	return &t, nil
}

// BumpTradeSpend adds to a trade customer's cumulative spend and promotes
// to the highest tier whose threshold the new total clears. Promotion is
// one-way: the tier only changes when the new tier's threshold exceeds the
// current one's.
func (s *Store) BumpTradeSpend(ctx context.Context, tradeID uuid.UUID, delta decimal.Decimal) error {
	const op = "store.trade.bump_spend"
	_, err := s.db.Exec(ctx, `
		UPDATE trade_customers SET total_spend = total_spend + $2 WHERE id = $1`,
		tradeID, delta)
	if err != nil {
		return domain.Internal(err, op, "failed to bump trade spend")
	}
	_, err = s.db.Exec(ctx, `
		UPDATE trade_customers tc SET tier_id = best.id
		FROM (
			SELECT t.id, t.spend_threshold
			FROM trade_tiers t, trade_customers c
			WHERE c.id = $1 AND t.spend_threshold <= c.total_spend
			ORDER BY t.spend_threshold DESC LIMIT 1
		) best
		WHERE tc.id = $1
		  AND (tc.tier_id IS NULL OR best.spend_threshold > (
			SELECT spend_threshold FROM trade_tiers WHERE id = tc.tier_id))`,
		tradeID)
	if err != nil {
		return domain.Internal(err, op, "failed to evaluate tier promotion")
	}
	return nil
}

// UpdateTradeSubscription writes subscription state from webhook events.
func (s *Store) UpdateTradeSubscription(ctx context.Context, tradeID uuid.UUID, status string, expiresAt *time.Time) error {
	const op = "store.trade.update_subscription"
	_, err := s.db.Exec(ctx, `
		UPDATE trade_customers SET subscription = $2, expires_at = COALESCE($3, expires_at)
		WHERE id = $1`,
		tradeID, status, expiresAt)
	if err != nil {
		return domain.Internal(err, op, "failed to update trade subscription")
	}
	return nil
}

// DeactivateTradeCustomer suspends a lapsed trade account.
func (s *Store) DeactivateTradeCustomer(ctx context.Context, tradeID uuid.UUID) error {
	const op = "store.trade.deactivate"
	_, err := s.db.Exec(ctx,
		`UPDATE trade_customers SET status = 'suspended', subscription = 'cancelled' WHERE id = $1`,
		tradeID)
	if err != nil {
		return domain.Internal(err, op, "failed to deactivate trade customer")
	}
	return nil
}

// ListLapsingTradeCustomers returns active subscriptions expiring within
// the window, for renewal reminders.
func (s *Store) ListLapsingTradeCustomers(ctx context.Context, within time.Duration) ([]domain.TradeCustomer, error) {
	const op = "store.trade.list_lapsing"
	rows, err := s.db.Query(ctx, `
		SELECT `+tradeCustomerColumns+` FROM trade_customers
		WHERE subscription = 'active' AND expires_at IS NOT NULL
		  AND expires_at < now() + $1::interval`,
		within.String())
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list lapsing trade customers")
	}
	defer rows.Close()

	var out []domain.TradeCustomer
	for rows.Next() {
		t, err := scanTradeCustomer(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan trade customer")
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ListExpiredTradeCustomers returns past_due accounts whose grace window
// has elapsed.
func (s *Store) ListExpiredTradeCustomers(ctx context.Context, grace time.Duration) ([]domain.TradeCustomer, error) {
	const op = "store.trade.list_expired"
	rows, err := s.db.Query(ctx, `
		SELECT `+tradeCustomerColumns+` FROM trade_customers
		WHERE subscription = 'past_due' AND expires_at IS NOT NULL
		  AND expires_at < now() - $1::interval`,
		grace.String())
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list expired trade customers")
	}
	defer rows.Close()

	var out []domain.TradeCustomer
	for rows.Next() {
		t, err := scanTradeCustomer(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan trade customer")
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// NextRoundRobinRep picks the active rep least-recently assigned a trade
// order and stamps the assignment time.
func (s *Store) NextRoundRobinRep(ctx context.Context) (*uuid.UUID, error) {
	const op = "store.trade.next_rep"
	var id uuid.UUID
	err := s.db.QueryRow(ctx, `
		UPDATE sales_reps SET last_assigned_at = now()
		WHERE id = (
			SELECT id FROM sales_reps WHERE active
			ORDER BY last_assigned_at NULLS FIRST, id LIMIT 1
			FOR UPDATE SKIP LOCKED)
		RETURNING id`,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // no active reps; leave unassigned
		}
		return nil, domain.Internal(err, op, "failed to pick rep")
	}
	return &id, nil
}

// AssignTradeRep persists a rep assignment on a trade account.
func (s *Store) AssignTradeRep(ctx context.Context, tradeID, repID uuid.UUID) error {
	const op = "store.trade.assign_rep"
	_, err := s.db.Exec(ctx,
		`UPDATE trade_customers SET sales_rep_id = $2 WHERE id = $1 AND sales_rep_id IS NULL`,
		tradeID, repID)
	if err != nil {
		return domain.Internal(err, op, "failed to assign rep")
	}
	return nil
}

// InsertTradeDocument records uploaded trade-document metadata.
func (s *Store) InsertTradeDocument(ctx context.Context, d *domain.TradeDocument) error {
	const op = "store.trade_doc.insert"
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO trade_documents
			(id, trade_customer_id, name, object_key, content_type, size_bytes, uploaded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.TradeCustomerID, d.Name, d.ObjectKey, d.ContentType,
		d.SizeBytes, d.UploadedBy,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to insert trade document")
	}
	return nil
}

// ListTradeDocuments returns a trade customer's documents.
func (s *Store) ListTradeDocuments(ctx context.Context, tradeID uuid.UUID) ([]domain.TradeDocument, error) {
	const op = "store.trade_doc.list"
	rows, err := s.db.Query(ctx, `
		SELECT id, trade_customer_id, name, object_key, content_type,
		       size_bytes, uploaded_by, created_at
		FROM trade_documents WHERE trade_customer_id = $1 ORDER BY created_at DESC`,
		tradeID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list trade documents")
	}
	defer rows.Close()

	var out []domain.TradeDocument
	for rows.Next() {
		var d domain.TradeDocument
		err := rows.Scan(&d.ID, &d.TradeCustomerID, &d.Name, &d.ObjectKey,
			&d.ContentType, &d.SizeBytes, &d.UploadedBy, &d.CreatedAt)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan trade document")
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetTradeDocument fetches one document's metadata.
func (s *Store) GetTradeDocument(ctx context.Context, id uuid.UUID) (*domain.TradeDocument, error) {
	var d domain.TradeDocument
	err := s.db.QueryRow(ctx, `
		SELECT id, trade_customer_id, name, object_key, content_type,
		       size_bytes, uploaded_by, created_at
		FROM trade_documents WHERE id = $1`, id,
	).Scan(&d.ID, &d.TradeCustomerID, &d.Name, &d.ObjectKey, &d.ContentType,
		&d.SizeBytes, &d.UploadedBy, &d.CreatedAt)
	if err != nil {
		return nil, notFound(err, "store.trade_doc.get", "trade document")
	}
	return &d, nil
}
