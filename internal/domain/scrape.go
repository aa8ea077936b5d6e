package domain

import (
	"time"

	"github.com/google/uuid"
)

// Scrape job statuses.
type ScrapeJobStatus string

const (
	ScrapeRunning   ScrapeJobStatus = "running"
	ScrapeCompleted ScrapeJobStatus = "completed"
	ScrapeFailed    ScrapeJobStatus = "failed"
	ScrapeCancelled ScrapeJobStatus = "cancelled"
)

// ScrapeJob tracks one run of a vendor scraper. At most one running job
// exists per source, enforced by a conditional insert in the store.
type ScrapeJob struct {
	ID             uuid.UUID       `json:"id"`
	VendorSourceID uuid.UUID       `json:"vendor_source_id"`
	Status         ScrapeJobStatus `json:"status"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	ProductsFound  int             `json:"products_found"`
	ProductsSaved  int             `json:"products_saved"`
	Errors         []string        `json:"errors,omitempty"`
}

// ScrapeStats is what a scraper module reports on success.
type ScrapeStats struct {
	ProductsFound int
	ProductsSaved int
}

// Scraper kinds decide which concurrency pool a run competes for.
type ScraperKind string

const (
	// ScraperCatalog covers catalog, pricing, and inventory scrapers.
	ScraperCatalog ScraperKind = "catalog"
	// ScraperEnrichment covers brand-enrichment scrapers.
	ScraperEnrichment ScraperKind = "enrichment"
	// ScraperLightweight scrapers pass through without taking a slot.
	ScraperLightweight ScraperKind = "lightweight"
)

// VendorSource is a configured scrape target.
type VendorSource struct {
	ID            uuid.UUID
	VendorID      uuid.UUID
	Name          string
	ScraperKey    string
	CronSchedule  *string
	Active        bool
	Config        map[string]any
	LastScrapedAt *time.Time
	CreatedAt     time.Time
}

// StockAlert is a (sku, email) back-in-stock subscription.
type StockAlert struct {
	ID         uuid.UUID
	SkuID      uuid.UUID
	Email      string
	Status     string // "active", "notified"
	CreatedAt  time.Time
	NotifiedAt *time.Time
}
