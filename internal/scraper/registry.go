// Package scraper dispatches vendor scraper modules: job locking via a
// conditional insert, two concurrency pools, per-job cancellation and
// timeout, cron scheduling, and a stale-job reaper.
package scraper

import (
	"context"
	"sync"

	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/postgres"
)

// Scraper is a pluggable scrape module. The orchestrator calls exactly
// one Run per job and records the outcome on the job row.
type Scraper interface {
	Key() string
	Kind() domain.ScraperKind
	Run(ctx context.Context, store *postgres.Store, job *domain.ScrapeJob, source *domain.VendorSource) (domain.ScrapeStats, error)
}

// Registry maps scraper keys to modules.
type Registry struct {
	mu    sync.RWMutex
	byKey map[string]Scraper
}

func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]Scraper)}
}

func (r *Registry) Register(s Scraper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[s.Key()] = s
}

func (r *Registry) Get(key string) (Scraper, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byKey[key]
	return s, ok
}
