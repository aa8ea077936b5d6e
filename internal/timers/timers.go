// Package timers runs the scheduled maintenance plane: the daily trade
// membership sweep and the 30-minute stock-alert notifier.
package timers

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/dukerupert/terrazzo/internal/billing"
	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/postgres"
)

// Windows for the daily membership sweep.
const (
	RenewalReminderDays = 30
	LapseWarningDays    = 15
	GraceDays           = 30
	snapshotFreshness   = 24 * time.Hour
)

// Mailer sends the timer plane's notifications.
type Mailer interface {
	SendRenewalReminder(ctx context.Context, tc *domain.TradeCustomer, daysLeft int) error
	SendTradeLapseWarning(ctx context.Context, tc *domain.TradeCustomer) error
	SendMembershipExpired(ctx context.Context, tc *domain.TradeCustomer) error
	SendStockAlert(ctx context.Context, email string, sku *domain.Sku, product *domain.Product) error
}

type Service struct {
	store    *postgres.Store
	provider billing.Provider
	mailer   Mailer
	logger   zerolog.Logger
	cron     *cron.Cron
}

func NewService(store *postgres.Store, provider billing.Provider, mailer Mailer, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		provider: provider,
		mailer:   mailer,
		logger:   logger.With().Str("component", "timers").Logger(),
		cron:     cron.New(cron.WithLocation(time.UTC)),
	}
}

// Start registers the daily 6 AM UTC sweep and the 30-minute stock
// alert pass, then starts the clock.
func (s *Service) Start() error {
	if _, err := s.cron.AddFunc("0 6 * * *", func() {
		if err := s.RunDaily(context.Background()); err != nil {
			s.logger.Error().Err(err).Msg("daily sweep failed")
		}
	}); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@every 30m", func() {
		if err := s.RunStockAlerts(context.Background()); err != nil {
			s.logger.Error().Err(err).Msg("stock alert pass failed")
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info().Msg("timers started")
	return nil
}

func (s *Service) Stop() {
	s.cron.Stop()
}

// RunDaily is the 6 AM sweep: renewal reminders, lapse warnings, grace
// expiry, and session cleanup. Each step logs and continues on failure
// so one bad account never stalls the rest.
func (s *Service) RunDaily(ctx context.Context) error {
	s.remindRenewals(ctx)
	s.expireLapsed(ctx)
	if err := s.store.CleanupExpiredSessions(ctx); err != nil {
		s.logger.Error().Err(err).Msg("session cleanup failed")
	}
	if n, err := s.store.ExpireQuotes(ctx); err != nil {
		s.logger.Error().Err(err).Msg("quote expiry failed")
	} else if n > 0 {
		s.logger.Info().Int64("quotes", n).Msg("expired stale quotes")
	}
	return nil
}

// remindRenewals emails accounts whose membership expires in exactly 30
// or 15 days. Matching on the exact day keeps the daily run from
// re-sending the same reminder.
func (s *Service) remindRenewals(ctx context.Context) {
	lapsing, err := s.store.ListLapsingTradeCustomers(ctx, RenewalReminderDays*24*time.Hour)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list lapsing trade customers")
		return
	}
	for i := range lapsing {
		tc := &lapsing[i]
		if tc.ExpiresAt == nil {
			continue
		}
		daysLeft := int(time.Until(*tc.ExpiresAt).Hours() / 24)
		switch daysLeft {
		case RenewalReminderDays:
			if s.mailer != nil {
				if err := s.mailer.SendRenewalReminder(ctx, tc, daysLeft); err != nil {
					s.logger.Error().Err(err).Str("trade", tc.Email).Msg("renewal reminder failed")
				}
			}
		case LapseWarningDays:
			if s.mailer != nil {
				if err := s.mailer.SendTradeLapseWarning(ctx, tc); err != nil {
					s.logger.Error().Err(err).Str("trade", tc.Email).Msg("lapse warning failed")
				}
			}
		}
	}
}

// expireLapsed closes out past_due accounts whose 30-day grace window
// has elapsed: the gateway subscription is cancelled and the account
// deactivated.
func (s *Service) expireLapsed(ctx context.Context) {
	expired, err := s.store.ListExpiredTradeCustomers(ctx, GraceDays*24*time.Hour)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list expired trade customers")
		return
	}
	for i := range expired {
		tc := &expired[i]
		if tc.SubscriptionID != nil && *tc.SubscriptionID != "" {
			if err := s.provider.CancelSubscription(ctx, *tc.SubscriptionID); err != nil {
				s.logger.Error().Err(err).Str("trade", tc.Email).Msg("gateway subscription cancel failed")
			}
		}
		if err := s.store.DeactivateTradeCustomer(ctx, tc.ID); err != nil {
			s.logger.Error().Err(err).Str("trade", tc.Email).Msg("trade deactivation failed")
			continue
		}
		s.logger.Info().Str("trade", tc.Email).Msg("trade membership expired after grace")
		if s.mailer != nil {
			if err := s.mailer.SendMembershipExpired(ctx, tc); err != nil {
				s.logger.Error().Err(err).Str("trade", tc.Email).Msg("expiry notice failed")
			}
		}
	}
}

// RunStockAlerts fires active (sku, email) alerts whose latest fresh
// inventory snapshot shows stock, then marks them notified.
func (s *Service) RunStockAlerts(ctx context.Context) error {
	alerts, err := s.store.ListFirableStockAlerts(ctx, snapshotFreshness)
	if err != nil {
		return err
	}
	for i := range alerts {
		a := &alerts[i]
		sku, err := s.store.GetSku(ctx, a.SkuID)
		if err != nil {
			s.logger.Error().Err(err).Str("alert", a.ID.String()).Msg("stock alert sku lookup failed")
			continue
		}
		product, err := s.store.GetProduct(ctx, sku.ProductID)
		if err != nil {
			s.logger.Error().Err(err).Str("alert", a.ID.String()).Msg("stock alert product lookup failed")
			continue
		}
		if s.mailer != nil {
			if err := s.mailer.SendStockAlert(ctx, a.Email, sku, product); err != nil {
				s.logger.Error().Err(err).Str("alert", a.ID.String()).Msg("stock alert email failed")
				continue
			}
		}
		if err := s.store.MarkStockAlertNotified(ctx, a.ID); err != nil {
			s.logger.Error().Err(err).Str("alert", a.ID.String()).Msg("failed to mark alert notified")
		}
	}
	return nil
}
