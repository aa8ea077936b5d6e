package scraper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/postgres"
)

// Defaults for the two pools and the per-job deadline.
const (
	DefaultCatalogSlots    = 2
	DefaultEnrichmentSlots = 3
	DefaultJobTimeout      = 4 * time.Hour
	DefaultStaleThreshold  = 4 * time.Hour
)

// FailureMailer emails scrape failures. Nil disables the mail.
type FailureMailer interface {
	SendScrapeFailure(ctx context.Context, source *domain.VendorSource, job *domain.ScrapeJob, reason string) error
}

// Service is the orchestrator: one controller per running job, slot
// pools keyed by scraper kind, and the stale reaper.
type Service struct {
	store    *postgres.Store
	registry *Registry
	mailer   FailureMailer
	logger   zerolog.Logger

	catalog    *Pool
	enrichment *Pool

	timeout time.Duration
	stale   time.Duration

	mu      sync.Mutex
	running map[uuid.UUID]context.CancelFunc
	wg      sync.WaitGroup
}

type Options struct {
	CatalogSlots    int
	EnrichmentSlots int
	JobTimeout      time.Duration
	StaleThreshold  time.Duration
}

func NewService(store *postgres.Store, registry *Registry, mailer FailureMailer, opts Options, logger zerolog.Logger) *Service {
	if opts.CatalogSlots < 1 {
		opts.CatalogSlots = DefaultCatalogSlots
	}
	if opts.EnrichmentSlots < 1 {
		opts.EnrichmentSlots = DefaultEnrichmentSlots
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = DefaultJobTimeout
	}
	if opts.StaleThreshold <= 0 {
		opts.StaleThreshold = DefaultStaleThreshold
	}
	return &Service{
		store:      store,
		registry:   registry,
		mailer:     mailer,
		logger:     logger.With().Str("component", "scraper").Logger(),
		catalog:    NewPool(opts.CatalogSlots),
		enrichment: NewPool(opts.EnrichmentSlots),
		timeout:    opts.JobTimeout,
		stale:      opts.StaleThreshold,
		running:    make(map[uuid.UUID]context.CancelFunc),
	}
}

// TriggerResult reports either the started job or the lock conflict.
type TriggerResult struct {
	Skipped       bool              `json:"skipped"`
	Reason        string            `json:"reason,omitempty"`
	ExistingJobID *uuid.UUID        `json:"existing_job_id,omitempty"`
	Job           *domain.ScrapeJob `json:"job,omitempty"`
}

// Trigger starts a scrape for a source. The conditional job insert is
// the lock: a concurrent trigger gets the running job's id back instead
// of a second job.
func (s *Service) Trigger(ctx context.Context, sourceID uuid.UUID) (*TriggerResult, error) {
	const op = "scraper.trigger"
	source, err := s.store.GetVendorSource(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	mod, ok := s.registry.Get(source.ScraperKey)
	if !ok {
		return nil, domain.Invalid(op, "no scraper registered for key "+source.ScraperKey)
	}

	job, existing, err := s.store.TryStartScrapeJob(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &TriggerResult{Skipped: true, Reason: "already_running", ExistingJobID: existing}, nil
	}

	runCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
	s.mu.Lock()
	s.running[job.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(runCtx, cancel, mod, job, source)

	s.logger.Info().Str("source", source.Name).Str("job", job.ID.String()).Msg("scrape started")
	return &TriggerResult{Job: job}, nil
}

// run executes one job. The deferred block is the guaranteed-release
// wrapper: the pool slot and the controller entry go away on every exit
// path, panics included.
func (s *Service) run(ctx context.Context, cancel context.CancelFunc, mod Scraper, job *domain.ScrapeJob, source *domain.VendorSource) {
	pool := s.poolFor(mod.Kind())
	acquired := false
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("job", job.ID.String()).Msg("scraper panicked")
			s.finish(job, domain.ScrapeFailed, domain.ScrapeStats{}, "scraper panicked")
		}
		if acquired {
			pool.Release()
		}
		s.mu.Lock()
		delete(s.running, job.ID)
		s.mu.Unlock()
		cancel()
		s.wg.Done()
	}()

	if pool != nil {
		if err := pool.Acquire(ctx); err != nil {
			s.finishForContext(job, err)
			return
		}
		acquired = true
	}

	stats, err := mod.Run(ctx, s.store, job, source)
	switch {
	case err == nil && ctx.Err() == nil:
		s.finish(job, domain.ScrapeCompleted, stats, "")
		if terr := s.store.TouchVendorSourceScraped(context.Background(), source.ID); terr != nil {
			s.logger.Error().Err(terr).Msg("failed to stamp last_scraped_at")
		}
	case ctx.Err() != nil:
		s.finishForContext(job, ctx.Err())
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			s.emailFailure(source, job, "job exceeded its deadline")
		}
	default:
		s.finish(job, domain.ScrapeFailed, stats, err.Error())
		s.emailFailure(source, job, err.Error())
	}
}

func (s *Service) poolFor(kind domain.ScraperKind) *Pool {
	switch kind {
	case domain.ScraperCatalog:
		return s.catalog
	case domain.ScraperEnrichment:
		return s.enrichment
	}
	return nil
}

// finishForContext maps context ends onto terminal statuses: cancel is
// a clean stop, deadline is a failure.
func (s *Service) finishForContext(job *domain.ScrapeJob, err error) {
	if errors.Is(err, context.Canceled) {
		s.finish(job, domain.ScrapeCancelled, domain.ScrapeStats{}, "")
		return
	}
	s.finish(job, domain.ScrapeFailed, domain.ScrapeStats{}, "job exceeded its deadline")
}

func (s *Service) finish(job *domain.ScrapeJob, status domain.ScrapeJobStatus, stats domain.ScrapeStats, errMsg string) {
	now := time.Now()
	job.Status = status
	job.CompletedAt = &now
	job.ProductsFound = stats.ProductsFound
	job.ProductsSaved = stats.ProductsSaved
	if errMsg != "" {
		job.Errors = append(job.Errors, errMsg)
	}
	// The run context may already be dead; the status write must not be.
	if err := s.store.FinishScrapeJob(context.Background(), job); err != nil {
		s.logger.Error().Err(err).Str("job", job.ID.String()).Msg("failed to finish scrape job")
	}
	s.logger.Info().Str("job", job.ID.String()).Str("status", string(status)).
		Int("found", stats.ProductsFound).Int("saved", stats.ProductsSaved).Msg("scrape finished")
}

func (s *Service) emailFailure(source *domain.VendorSource, job *domain.ScrapeJob, reason string) {
	if s.mailer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.mailer.SendScrapeFailure(ctx, source, job, reason); err != nil {
		s.logger.Error().Err(err).Msg("failed to send scrape failure email")
	}
}

// Stop cancels a running job owned by this process.
func (s *Service) Stop(ctx context.Context, jobID uuid.UUID) error {
	const op = "scraper.stop"
	s.mu.Lock()
	cancel, ok := s.running[jobID]
	s.mu.Unlock()
	if !ok {
		job, err := s.store.GetScrapeJob(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status != domain.ScrapeRunning {
			return domain.Invalid(op, "job is not running")
		}
		// Running in the DB but unowned here: a lost controller. The
		// stale reaper will fail it; nothing to signal.
		return domain.Conflict(op, "job has no live controller in this process")
	}
	cancel()
	return nil
}

// ReapStale fails running jobs older than the stale threshold and emails
// each failure.
func (s *Service) ReapStale(ctx context.Context) error {
	reaped, err := s.store.ReapStaleScrapeJobs(ctx, s.stale)
	if err != nil {
		return err
	}
	for i := range reaped {
		job := &reaped[i]
		s.logger.Warn().Str("job", job.ID.String()).Msg("reaped stale scrape job")
		source, err := s.store.GetVendorSource(ctx, job.VendorSourceID)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to load source for reaped job")
			continue
		}
		s.emailFailure(source, job, "job exceeded stale threshold")
	}
	return nil
}

// Wait blocks until all running jobs drain. Shutdown only.
func (s *Service) Wait() {
	s.wg.Wait()
}
