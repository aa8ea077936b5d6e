package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/labstack/echo/v4"

	"github.com/dukerupert/terrazzo/internal"
	"github.com/dukerupert/terrazzo/internal/auth"
	"github.com/dukerupert/terrazzo/internal/billing"
	"github.com/dukerupert/terrazzo/internal/commission"
	"github.com/dukerupert/terrazzo/internal/edi"
	"github.com/dukerupert/terrazzo/internal/email"
	"github.com/dukerupert/terrazzo/internal/handler"
	"github.com/dukerupert/terrazzo/internal/middleware"
	"github.com/dukerupert/terrazzo/internal/order"
	"github.com/dukerupert/terrazzo/internal/payments"
	"github.com/dukerupert/terrazzo/internal/postgres"
	"github.com/dukerupert/terrazzo/internal/purchase"
	"github.com/dukerupert/terrazzo/internal/quote"
	"github.com/dukerupert/terrazzo/internal/routes"
	"github.com/dukerupert/terrazzo/internal/scraper"
	"github.com/dukerupert/terrazzo/internal/shipping"
	"github.com/dukerupert/terrazzo/internal/storage"
	"github.com/dukerupert/terrazzo/internal/tasks"
	"github.com/dukerupert/terrazzo/internal/timers"
	"github.com/dukerupert/terrazzo/internal/trade"
	"github.com/dukerupert/terrazzo/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := migrate(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	store := postgres.NewStore(pool)

	provider, err := billing.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
	if err != nil {
		return err
	}

	mailer := email.NewMailer(email.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
		AdminTo:  cfg.SMTP.AdminTo,
	}, logger)

	// Without SMTP the auth service skips 2FA (dev mode) instead of
	// failing every staff login.
	var codes auth.CodeSender
	if cfg.SMTP.Host != "" {
		codes = mailer
	}
	authSvc := auth.NewService(store, codes, logger)

	runner := tasks.NewRunner(8, 2*time.Minute, logger)

	parcel := shipping.NewShippoClient("", cfg.Shippo.APIKey)
	freight := shipping.NewFreightviewClient("https://api.freightview.com", cfg.Freight.ClientID, cfg.Freight.ClientSecret)
	rater := shipping.NewRater(store, parcel, freight, logger)

	commissions := commission.NewService(store, logger)
	orders := order.NewService(store, provider, rater, runner, commissions, mailer, logger)
	purchaseSvc := purchase.NewService(store, edi.NewSFTPUploader(), mailer, nil, logger)
	paymentsSvc := payments.NewService(store, provider, cfg.FrontendURL, logger)
	quotes := quote.NewService(store, mailer, logger)
	webhooks := webhook.NewService(store, provider, runner, mailer, logger)

	docs, err := storage.NewS3Store(storage.S3Config{
		Endpoint:    cfg.S3.Endpoint,
		Region:      cfg.S3.Region,
		AccessKeyID: cfg.S3.AccessKeyID,
		SecretKey:   cfg.S3.SecretKey,
		Bucket:      cfg.S3.Bucket,
	})
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	tradeDocs := trade.NewDocumentService(store, docs, logger)

	registry := scraper.NewRegistry()
	scraperSvc := scraper.NewService(store, registry, mailer, scraper.Options{
		CatalogSlots:    cfg.Scraper.CatalogSlots,
		EnrichmentSlots: cfg.Scraper.EnrichmentSlots,
		JobTimeout:      cfg.Scraper.Timeout,
		StaleThreshold:  cfg.Scraper.StaleThreshold,
	}, logger)
	scheduler := scraper.NewScheduler(scraperSvc, logger)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("scrape scheduler: %w", err)
	}
	defer scheduler.Stop()

	timersSvc := timers.NewService(store, provider, mailer, logger)
	if err := timersSvc.Start(); err != nil {
		return fmt.Errorf("timers: %w", err)
	}
	defer timersSvc.Stop()

	h := handler.New(logger)
	h.Store = store
	h.Auth = authSvc
	h.Orders = orders
	h.Payments = paymentsSvc
	h.Purchase = purchaseSvc
	h.Quotes = quotes
	h.Scraper = scraperSvc
	h.Webhooks = webhooks
	h.TradeDocs = tradeDocs
	h.Rater = rater

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	routes.Register(e, h, authSvc, middleware.NewMetrics("terrazzo"), logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	go func() {
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	scraperSvc.Wait()
	runner.Wait()
	return nil
}

// migrate runs goose over a short-lived database/sql connection; the
// pgx pool is opened after the schema settles.
func migrate(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	return internal.RunMigrations(db)
}
