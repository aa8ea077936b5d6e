package scraper

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/dukerupert/terrazzo/internal/domain"
)

// Scheduler registers each active source's cron expression and the
// 15-minute stale reaper. Updating a source re-schedules it; removing
// or deactivating one cancels its entry.
type Scheduler struct {
	svc    *Service
	cron   *cron.Cron
	logger zerolog.Logger

	mu      sync.Mutex
	entries map[uuid.UUID]cron.EntryID
}

func NewScheduler(svc *Service, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		svc:     svc,
		cron:    cron.New(),
		logger:  logger.With().Str("component", "scraper.scheduler").Logger(),
		entries: make(map[uuid.UUID]cron.EntryID),
	}
}

// Start loads every active source, schedules those with a valid cron
// expression, registers the reaper, and starts the clock.
func (s *Scheduler) Start(ctx context.Context) error {
	sources, err := s.svc.store.ListActiveVendorSources(ctx)
	if err != nil {
		return err
	}
	for i := range sources {
		s.Reschedule(&sources[i])
	}
	if _, err := s.cron.AddFunc("@every 15m", func() {
		if err := s.svc.ReapStale(context.Background()); err != nil {
			s.logger.Error().Err(err).Msg("stale reaper failed")
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info().Int("sources", len(sources)).Msg("scrape scheduler started")
	return nil
}

// Reschedule replaces a source's cron entry with its current schedule.
// Inactive sources and sources without a schedule just lose their entry.
func (s *Scheduler) Reschedule(source *domain.VendorSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[source.ID]; ok {
		s.cron.Remove(id)
		delete(s.entries, source.ID)
	}
	if !source.Active || source.CronSchedule == nil || *source.CronSchedule == "" {
		return
	}
	sourceID := source.ID
	entryID, err := s.cron.AddFunc(*source.CronSchedule, func() {
		if _, err := s.svc.Trigger(context.Background(), sourceID); err != nil {
			s.logger.Error().Err(err).Str("source", sourceID.String()).Msg("scheduled scrape failed to start")
		}
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("source", source.Name).Msg("invalid cron schedule, source not scheduled")
		return
	}
	s.entries[source.ID] = entryID
}

// Unschedule drops a source's cron entry, if any.
func (s *Scheduler) Unschedule(sourceID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[sourceID]; ok {
		s.cron.Remove(id)
		delete(s.entries, sourceID)
	}
}

// Stop halts the clock without touching running jobs.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
