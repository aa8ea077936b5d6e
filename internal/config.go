package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config carries every tunable the server reads at startup. Values come
// from the environment, with a .env file loaded first in development.
type Config struct {
	Env         string
	LogLevel    string
	Port        int
	DatabaseURL string
	FrontendURL string

	Stripe  StripeConfig
	SMTP    SMTPConfig
	Shippo  ShippoConfig
	Freight FreightConfig
	S3      S3Config
	Scraper ScraperConfig
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	AdminTo  string
}

type ShippoConfig struct {
	APIKey string
}

type FreightConfig struct {
	ClientID     string
	ClientSecret string
}

type S3Config struct {
	Endpoint    string
	Region      string
	AccessKeyID string
	SecretKey   string
	Bucket      string
}

type ScraperConfig struct {
	Timeout         time.Duration
	StaleThreshold  time.Duration
	CatalogSlots    int
	EnrichmentSlots int
}

// LoadConfig reads the environment into a Config. A missing .env file
// is fine; a missing DATABASE_URL is not.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", 8080)
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SCRAPER_TIMEOUT_MS", int64(4*time.Hour/time.Millisecond))
	v.SetDefault("STALE_JOB_HOURS", 4)
	v.SetDefault("SCRAPER_CATALOG_SLOTS", 2)
	v.SetDefault("SCRAPER_ENRICHMENT_SLOTS", 3)
	v.SetDefault("S3_REGION", "auto")

	cfg := &Config{
		Env:         v.GetString("ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		Port:        v.GetInt("PORT"),
		DatabaseURL: v.GetString("DATABASE_URL"),
		FrontendURL: v.GetString("FRONTEND_URL"),
		Stripe: StripeConfig{
			SecretKey:     v.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
			FromName: v.GetString("SMTP_FROM_NAME"),
			AdminTo:  v.GetString("ADMIN_EMAIL"),
		},
		Shippo: ShippoConfig{
			APIKey: v.GetString("SHIPPO_API_KEY"),
		},
		Freight: FreightConfig{
			ClientID:     v.GetString("FREIGHTVIEW_CLIENT_ID"),
			ClientSecret: v.GetString("FREIGHTVIEW_CLIENT_SECRET"),
		},
		S3: S3Config{
			Endpoint:    v.GetString("S3_ENDPOINT"),
			Region:      v.GetString("S3_REGION"),
			AccessKeyID: v.GetString("S3_ACCESS_KEY_ID"),
			SecretKey:   v.GetString("S3_SECRET_KEY"),
			Bucket:      v.GetString("S3_BUCKET"),
		},
		Scraper: ScraperConfig{
			Timeout:         time.Duration(v.GetInt64("SCRAPER_TIMEOUT_MS")) * time.Millisecond,
			StaleThreshold:  time.Duration(v.GetInt("STALE_JOB_HOURS")) * time.Hour,
			CatalogSlots:    v.GetInt("SCRAPER_CATALOG_SLOTS"),
			EnrichmentSlots: v.GetInt("SCRAPER_ENRICHMENT_SLOTS"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

// IsDev reports whether the server runs in development mode. Dev mode
// relaxes staff 2FA and uses the console log writer.
func (c *Config) IsDev() bool {
	return c.Env != "prod"
}
