package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/terrazzo/internal/domain"
)

const scrapeJobColumns = `
	id, vendor_source_id, status, started_at, completed_at, products_found,
	products_saved, errors`

func scanScrapeJob(row pgx.Row) (*domain.ScrapeJob, error) {
	var j domain.ScrapeJob
	var errs []byte
	err := row.Scan(
		&j.ID, &j.VendorSourceID, &j.Status, &j.StartedAt, &j.CompletedAt,
		&j.ProductsFound, &j.ProductsSaved, &errs,
	)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		_ = json.Unmarshal(errs, &j.Errors)
	}
	return &j, nil
}

// TryStartScrapeJob inserts a running job only when no other running job
// exists for the source. The partial unique index on (vendor_source_id)
// WHERE status='running' is the job lock: the NOT EXISTS guard alone is
// not atomic under read committed, so a concurrent winner surfaces as a
// unique violation and is treated the same as losing the guard.
func (s *Store) TryStartScrapeJob(ctx context.Context, sourceID uuid.UUID) (*domain.ScrapeJob, *uuid.UUID, error) {
	const op = "store.scrape.try_start"
	id := uuid.New()
	var inserted bool
	err := s.db.QueryRow(ctx, `
		INSERT INTO scrape_jobs (id, vendor_source_id, status, started_at)
		SELECT $1, $2, $3, now()
		WHERE NOT EXISTS (
			SELECT 1 FROM scrape_jobs WHERE vendor_source_id = $2 AND status = $3)
		RETURNING true`,
		id, sourceID, domain.ScrapeRunning,
	).Scan(&inserted)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) && !isUniqueViolation(err) {
			return nil, nil, domain.Internal(err, op, "failed to start scrape job")
		}
		// Lost the race: surface the running job instead.
		var existing uuid.UUID
		err = s.db.QueryRow(ctx,
			`SELECT id FROM scrape_jobs WHERE vendor_source_id = $1 AND status = $2 LIMIT 1`,
			sourceID, domain.ScrapeRunning).Scan(&existing)
		if err != nil {
			return nil, nil, domain.Internal(err, op, "failed to find running job")
		}
		return nil, &existing, nil
	}
	job, err := scanScrapeJob(s.db.QueryRow(ctx,
		`SELECT `+scrapeJobColumns+` FROM scrape_jobs WHERE id = $1`, id))
	if err != nil {
		return nil, nil, domain.Internal(err, op, "failed to read scrape job")
	}
	return job, nil, nil
}

// GetScrapeJob fetches a job by id.
func (s *Store) GetScrapeJob(ctx context.Context, id uuid.UUID) (*domain.ScrapeJob, error) {
	j, err := scanScrapeJob(s.db.QueryRow(ctx,
		`SELECT `+scrapeJobColumns+` FROM scrape_jobs WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "store.scrape.get", "scrape job")
	}
	return j, nil
}

// FinishScrapeJob writes the terminal status, counters, and completion time.
func (s *Store) FinishScrapeJob(ctx context.Context, j *domain.ScrapeJob) error {
	const op = "store.scrape.finish"
	errs, err := json.Marshal(j.Errors)
	if err != nil {
		return domain.Internal(err, op, "failed to encode job errors")
	}
	_, err = s.db.Exec(ctx, `
		UPDATE scrape_jobs SET
			status = $2, completed_at = $3, products_found = $4,
			products_saved = $5, errors = $6
		WHERE id = $1`,
		j.ID, j.Status, j.CompletedAt, j.ProductsFound, j.ProductsSaved, errs,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to finish scrape job")
	}
	return nil
}

// AppendScrapeJobError appends one error to a job's error list.
func (s *Store) AppendScrapeJobError(ctx context.Context, id uuid.UUID, msg string) error {
	const op = "store.scrape.append_error"
	_, err := s.db.Exec(ctx, `
		UPDATE scrape_jobs SET errors = COALESCE(errors, '[]'::jsonb) || to_jsonb($2::text)
		WHERE id = $1`, id, msg)
	if err != nil {
		return domain.Internal(err, op, "failed to append job error")
	}
	return nil
}

// ReapStaleScrapeJobs fails running jobs older than the threshold. Handles
// crash recovery when in-memory controllers are lost. Returns the reaped
// jobs so the caller can email failures.
func (s *Store) ReapStaleScrapeJobs(ctx context.Context, olderThan time.Duration) ([]domain.ScrapeJob, error) {
	const op = "store.scrape.reap"
	rows, err := s.db.Query(ctx, `
		UPDATE scrape_jobs SET
			status = $1, completed_at = now(),
			errors = COALESCE(errors, '[]'::jsonb) || to_jsonb('reaped: job exceeded stale threshold'::text)
		WHERE status = $2 AND started_at < now() - $3::interval
		RETURNING `+scrapeJobColumns,
		domain.ScrapeFailed, domain.ScrapeRunning, olderThan.String(),
	)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to reap stale jobs")
	}
	defer rows.Close()

	var out []domain.ScrapeJob
	for rows.Next() {
		j, err := scanScrapeJob(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan reaped job")
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

const vendorSourceColumns = `
	id, vendor_id, name, scraper_key, cron_schedule, active, config,
	last_scraped_at, created_at`

func scanVendorSource(row pgx.Row) (*domain.VendorSource, error) {
	var v domain.VendorSource
	var cfg []byte
	err := row.Scan(
		&v.ID, &v.VendorID, &v.Name, &v.ScraperKey, &v.CronSchedule,
		&v.Active, &cfg, &v.LastScrapedAt, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(cfg) > 0 {
		_ = json.Unmarshal(cfg, &v.Config)
	}
	return &v, nil
}

// GetVendorSource fetches one scrape target.
func (s *Store) GetVendorSource(ctx context.Context, id uuid.UUID) (*domain.VendorSource, error) {
	v, err := scanVendorSource(s.db.QueryRow(ctx,
		`SELECT `+vendorSourceColumns+` FROM vendor_sources WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "store.vendor_source.get", "vendor source")
	}
	return v, nil
}

// ListActiveVendorSources returns all active scrape targets for scheduling.
func (s *Store) ListActiveVendorSources(ctx context.Context) ([]domain.VendorSource, error) {
	const op = "store.vendor_source.list_active"
	rows, err := s.db.Query(ctx,
		`SELECT `+vendorSourceColumns+` FROM vendor_sources WHERE active ORDER BY name`)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list vendor sources")
	}
	defer rows.Close()

	var out []domain.VendorSource
	for rows.Next() {
		v, err := scanVendorSource(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan vendor source")
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// TouchVendorSourceScraped stamps last_scraped_at.
func (s *Store) TouchVendorSourceScraped(ctx context.Context, id uuid.UUID) error {
	const op = "store.vendor_source.touch"
	_, err := s.db.Exec(ctx,
		`UPDATE vendor_sources SET last_scraped_at = now() WHERE id = $1`, id)
	if err != nil {
		return domain.Internal(err, op, "failed to touch vendor source")
	}
	return nil
}

// UpsertInventorySnapshot records the latest scraped stock level for a SKU.
func (s *Store) UpsertInventorySnapshot(ctx context.Context, skuID uuid.UUID, qty int) error {
	const op = "store.inventory.upsert"
	_, err := s.db.Exec(ctx, `
		INSERT INTO inventory_snapshots (id, sku_id, qty_on_hand, scraped_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (sku_id) DO UPDATE SET qty_on_hand = $3, scraped_at = now()`,
		uuid.New(), skuID, qty,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to upsert inventory")
	}
	return nil
}

// ListFirableStockAlerts returns active alerts whose SKU's latest snapshot
// is fresh and positive.
func (s *Store) ListFirableStockAlerts(ctx context.Context, freshWithin time.Duration) ([]domain.StockAlert, error) {
	const op = "store.stock_alert.list_firable"
	rows, err := s.db.Query(ctx, `
		SELECT a.id, a.sku_id, a.email, a.status, a.created_at, a.notified_at
		FROM stock_alerts a
		JOIN inventory_snapshots i ON i.sku_id = a.sku_id
		WHERE a.status = 'active'
		  AND i.qty_on_hand > 0
		  AND i.scraped_at > now() - $1::interval`,
		freshWithin.String(),
	)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list stock alerts")
	}
	defer rows.Close()

	var out []domain.StockAlert
	for rows.Next() {
		var a domain.StockAlert
		if err := rows.Scan(&a.ID, &a.SkuID, &a.Email, &a.Status, &a.CreatedAt, &a.NotifiedAt); err != nil {
			return nil, domain.Internal(err, op, "failed to scan stock alert")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateStockAlert subscribes a (sku, email) pair.
func (s *Store) CreateStockAlert(ctx context.Context, skuID uuid.UUID, email string) error {
	const op = "store.stock_alert.create"
	_, err := s.db.Exec(ctx, `
		INSERT INTO stock_alerts (id, sku_id, email, status)
		VALUES ($1, $2, $3, 'active')
		ON CONFLICT (sku_id, email) DO NOTHING`,
		uuid.New(), skuID, email,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to create stock alert")
	}
	return nil
}

// MarkStockAlertNotified transitions an alert to notified.
func (s *Store) MarkStockAlertNotified(ctx context.Context, id uuid.UUID) error {
	const op = "store.stock_alert.notify"
	_, err := s.db.Exec(ctx,
		`UPDATE stock_alerts SET status = 'notified', notified_at = now() WHERE id = $1`, id)
	if err != nil {
		return domain.Internal(err, op, "failed to mark stock alert notified")
	}
	return nil
}
