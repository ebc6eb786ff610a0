// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort    int    `envconfig:"PORT" default:"8080"`

	// Telegram. Optional: without a token the process serves only the
	// health surface.
	BotToken string `envconfig:"BOT_TOKEN"`
	AdminID  int64  `envconfig:"ADMIN_ID"`

	// Ledger webhook. Optional: submissions are skipped when unset.
	SheetsWebhook string `envconfig:"SHEETS_WEBHOOK"`

	// Public-facing
	WebsiteURL     string `envconfig:"WEBSITE_URL" default:"https://harmonikprzmalibu.netlify.app"`
	PublicDomain   string `envconfig:"RAILWAY_PUBLIC_DOMAIN"`
	PaymentAddress string `envconfig:"PAYMENT_ADDRESS" default:"TKUvYuzdZvkq6ksgPxfDRsUQE4vYjnEcnL"`

	// Optional catalog / storage overrides
	PlansFile     string `envconfig:"PLANS_FILE"`
	PendingDBPath string `envconfig:"PENDING_DB_PATH"`

	// Tunables
	PollTimeout time.Duration `envconfig:"POLL_TIMEOUT" default:"30s"`
	SessionTTL  time.Duration `envconfig:"SESSION_TTL" default:"600s"`
}

// BotEnabled returns true if a Telegram bot token is configured.
func (c *Config) BotEnabled() bool {
	return c.BotToken != ""
}

// SheetsEnabled returns true if the ledger webhook URL is configured.
func (c *Config) SheetsEnabled() bool {
	return c.SheetsWebhook != ""
}

// AdminEnabled returns true if an administrator id is configured.
func (c *Config) AdminEnabled() bool {
	return c.AdminID != 0
}

// KeepAliveURL returns the self-ping target: the public domain when deployed,
// localhost otherwise.
func (c *Config) KeepAliveURL() string {
	if c.PublicDomain != "" {
		return fmt.Sprintf("https://%s/ping", c.PublicDomain)
	}
	return fmt.Sprintf("http://localhost:%d/ping", c.HTTPPort)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}
