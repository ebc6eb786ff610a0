package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/harmonikprz/malibu-bot/internal/admin"
	"github.com/harmonikprz/malibu-bot/internal/config"
	"github.com/harmonikprz/malibu-bot/internal/health"
	"github.com/harmonikprz/malibu-bot/internal/intake"
	"github.com/harmonikprz/malibu-bot/internal/keepalive"
	"github.com/harmonikprz/malibu-bot/internal/metrics"
	"github.com/harmonikprz/malibu-bot/internal/plan"
	"github.com/harmonikprz/malibu-bot/internal/sheets"
	"github.com/harmonikprz/malibu-bot/internal/status"
	"github.com/harmonikprz/malibu-bot/internal/store"
	"github.com/harmonikprz/malibu-bot/internal/supervisor"
	"github.com/harmonikprz/malibu-bot/internal/telegram"
)

func main() {
	// Local development convenience; in production the environment is real.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := setupLogger(cfg)
	logger.Info().
		Str("environment", cfg.Environment).
		Str("version", health.Version).
		Bool("bot", cfg.BotEnabled()).
		Bool("sheets", cfg.SheetsEnabled()).
		Bool("admin", cfg.AdminEnabled()).
		Msg("starting malibu-bot")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("exited with error")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := status.New()
	m := metrics.New()

	healthSrv := health.New(st, m, strconv.Itoa(cfg.HTTPPort), logger)
	healthErr := make(chan error, 1)
	go func() { healthErr <- healthSrv.Listen() }()
	defer func() {
		if err := healthSrv.Shutdown(); err != nil {
			logger.Warn().Err(err).Msg("health server shutdown failed")
		}
	}()

	if !cfg.BotEnabled() {
		// Degraded mode: keep the health surface up so the deployment stays
		// alive while the operator fixes the environment.
		logger.Warn().Msg("BOT_TOKEN not set, serving health endpoints only")
		select {
		case <-ctx.Done():
			return nil
		case err := <-healthErr:
			return fmt.Errorf("health server: %w", err)
		}
	}

	catalog, err := loadCatalog(cfg, logger)
	if err != nil {
		return err
	}

	pending, closePending, err := openPendingStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closePending()

	var ledger *sheets.Client
	if cfg.SheetsEnabled() {
		ledger = sheets.NewClient(cfg.SheetsWebhook, logger)
	} else {
		logger.Warn().Msg("SHEETS_WEBHOOK not set, records will not be mirrored")
	}
	if !cfg.AdminEnabled() {
		logger.Warn().Msg("ADMIN_ID not set, requests will pile up unapproved")
	}

	tg := telegram.NewClient(cfg.BotToken, logger)
	sessions := intake.NewSessions(cfg.SessionTTL)

	engine := intake.New(tg, pending, ledgerOrNil(ledger), sessions, catalog, intake.Config{
		AdminID:        cfg.AdminID,
		PaymentAddress: cfg.PaymentAddress,
	}, m, logger)
	defer engine.Wait()

	adminHandler := admin.New(tg, pending, fetcherOrNil(ledger), st, m, admin.Config{
		AdminID:    cfg.AdminID,
		WebsiteURL: cfg.WebsiteURL,
	}, logger)

	router := supervisor.NewRouter(engine, adminHandler, m)
	dispatcher := supervisor.NewDispatcher(router, st, m, logger, 0, 0)
	dispatcher.Start(ctx)
	defer dispatcher.Close()

	sup := supervisor.New(tg, dispatcher, st, m, supervisor.Config{
		PollTimeout: cfg.PollTimeout,
	}, logger)

	pinger := keepalive.New(cfg.KeepAliveURL(), logger)
	go pinger.Run(ctx)

	supErr := make(chan error, 1)
	go func() { supErr <- sup.Run(ctx) }()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
		// Let the supervisor finish its current iteration before the lanes
		// close underneath it.
		<-supErr
		return nil
	case err := <-healthErr:
		return fmt.Errorf("health server: %w", err)
	case err := <-supErr:
		return fmt.Errorf("supervisor: %w", err)
	}
}

func setupLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if cfg.Environment == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return logger
}

func loadCatalog(cfg *config.Config, logger zerolog.Logger) (plan.Catalog, error) {
	if cfg.PlansFile == "" {
		return plan.Default(), nil
	}
	catalog, err := plan.LoadFile(cfg.PlansFile)
	if err != nil {
		return plan.Catalog{}, fmt.Errorf("loading plan catalog: %w", err)
	}
	logger.Info().Str("file", cfg.PlansFile).Int("plans", catalog.Len()).Msg("plan catalog loaded")
	return catalog, nil
}

func openPendingStore(cfg *config.Config, logger zerolog.Logger) (store.Pending, func(), error) {
	if cfg.PendingDBPath == "" {
		return store.NewMemoryStore(), func() {}, nil
	}
	s, err := store.NewSQLiteStore(cfg.PendingDBPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening pending store: %w", err)
	}
	logger.Info().Str("path", cfg.PendingDBPath).Msg("durable pending store opened")
	return s, func() {
		if err := s.Close(); err != nil {
			logger.Warn().Err(err).Msg("pending store close failed")
		}
	}, nil
}

// ledgerOrNil avoids the classic non-nil interface around a nil pointer.
func ledgerOrNil(c *sheets.Client) intake.Ledger {
	if c == nil {
		return nil
	}
	return c
}

func fetcherOrNil(c *sheets.Client) admin.ExpiryFetcher {
	if c == nil {
		return nil
	}
	return c
}
