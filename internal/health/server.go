// Package health exposes the HTTP surface: liveness for the platform, a
// /ping target for the keep-alive loop and Prometheus metrics.
package health

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/harmonikprz/malibu-bot/internal/metrics"
	"github.com/harmonikprz/malibu-bot/internal/status"
)

// Version is reported by the health endpoints.
const Version = "1.0"

// Server is the HTTP sidecar next to the delivery loop. It stays up even when
// the bot itself is degraded, so the platform never kills a recovering
// process.
type Server struct {
	app    *fiber.App
	status *status.Status
	port   string
	logger zerolog.Logger
}

// New creates the server and registers its routes.
func New(st *status.Status, m *metrics.Metrics, port string, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})
	app.Use(recover.New())

	s := &Server{
		app:    app,
		status: st,
		port:   port,
		logger: logger.With().Str("component", "health").Logger(),
	}

	app.Get("/", s.handleHealth)
	app.Get("/health", s.handleHealth)
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	return s
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	snap := s.status.Snapshot()
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": Version,
		"uptime":  snap.UptimeSeconds,
		"bot": fiber.Map{
			"running":  snap.Running,
			"errors":   snap.Errors,
			"restarts": snap.Restarts,
		},
	})
}

// Listen serves until Shutdown is called.
func (s *Server) Listen() error {
	s.logger.Info().Str("port", s.port).Msg("health server listening")
	return s.app.Listen(":" + s.port)
}

// Shutdown stops the server, waiting briefly for in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(5 * time.Second)
}
