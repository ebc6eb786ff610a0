// Package supervisor owns update delivery: a supervised long-poll loop that
// classifies raw updates, advances the cursor and hands events to per-user
// lanes. The outer loop restarts the inner one on any failure, so the process
// keeps serving as long as it is alive.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	berrors "github.com/harmonikprz/malibu-bot/internal/errors"
	"github.com/harmonikprz/malibu-bot/internal/event"
	"github.com/harmonikprz/malibu-bot/internal/metrics"
	"github.com/harmonikprz/malibu-bot/internal/retry"
	"github.com/harmonikprz/malibu-bot/internal/status"
	"github.com/harmonikprz/malibu-bot/internal/telegram"
)

// Poller is the Telegram surface the supervisor needs.
type Poller interface {
	GetUpdates(ctx context.Context, offset, timeoutSec int) ([]telegram.Update, error)
	DeleteWebhook(ctx context.Context, dropPending bool) error
}

// Config tunes the loop's timings. Zero values fall back to production
// defaults; tests shrink them.
type Config struct {
	// PollTimeout is the long-poll hold time requested from Telegram.
	PollTimeout time.Duration

	// RestartCooldown is the pause before the outer loop restarts the
	// delivery loop after a failure.
	RestartCooldown time.Duration

	// ConflictBackoff is the pause after a 409, which means another process
	// is polling with the same token.
	ConflictBackoff time.Duration

	// ErrorBackoff is the pause after an unclassified poll error.
	ErrorBackoff time.Duration

	// WebhookRetryDelay spaces the webhook-clearing attempts at startup.
	WebhookRetryDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollTimeout <= 0 {
		c.PollTimeout = 30 * time.Second
	}
	if c.RestartCooldown <= 0 {
		c.RestartCooldown = 3 * time.Second
	}
	if c.ConflictBackoff <= 0 {
		c.ConflictBackoff = 30 * time.Second
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = 5 * time.Second
	}
	if c.WebhookRetryDelay <= 0 {
		c.WebhookRetryDelay = 2 * time.Second
	}
	return c
}

// Supervisor runs the delivery loop.
type Supervisor struct {
	tg         Poller
	dispatcher *Dispatcher
	status     *status.Status
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	cfg        Config

	offset int
}

// New creates a Supervisor.
func New(tg Poller, dispatcher *Dispatcher, st *status.Status, m *metrics.Metrics, cfg Config, logger zerolog.Logger) *Supervisor {
	return &Supervisor{
		tg:         tg,
		dispatcher: dispatcher,
		status:     st,
		metrics:    m,
		logger:     logger.With().Str("component", "supervisor").Logger(),
		cfg:        cfg.withDefaults(),
	}
}

// Run blocks until ctx is cancelled. Every delivery-loop exit short of
// cancellation is logged, counted and followed by a cooldown and a restart;
// there is no give-up threshold.
func (s *Supervisor) Run(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.status.IncRestarts()
		s.metrics.RestartsTotal.Inc()
		s.logger.Info().Int("attempt", attempt).Msg("starting delivery loop")

		err := s.runOnce(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		s.logger.Error().Err(err).Dur("cooldown", s.cfg.RestartCooldown).Msg("delivery loop exited, restarting")
		if !s.sleep(ctx, s.cfg.RestartCooldown) {
			return ctx.Err()
		}
	}
}

// runOnce drives one life of the delivery loop. It returns only on failure
// or cancellation; a panic anywhere inside surfaces as an error so the outer
// loop can restart.
func (s *Supervisor) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delivery loop panic: %v", r)
		}
	}()

	// A registered webhook blocks getUpdates, so clear it first.
	clear := func(ctx context.Context) error { return s.tg.DeleteWebhook(ctx, true) }
	if err := retry.Do(ctx, retry.Fixed(3, s.cfg.WebhookRetryDelay), clear); err != nil {
		return fmt.Errorf("clearing webhook: %w", err)
	}

	s.status.SetRunning(true)
	defer s.status.SetRunning(false)

	timeoutSec := int(s.cfg.PollTimeout.Seconds())
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		updates, err := s.tg.GetUpdates(ctx, s.offset, timeoutSec)
		if err != nil {
			if !s.handlePollError(ctx, err) {
				return err
			}
			continue
		}

		for _, upd := range updates {
			// Advance the cursor before handing off so a crashing handler
			// never causes a redelivery loop.
			if upd.UpdateID >= s.offset {
				s.offset = upd.UpdateID + 1
			}
			s.dispatcher.Dispatch(ctx, event.Classify(upd))
		}
	}
}

// handlePollError applies the per-class reaction to a getUpdates failure.
// It returns false when the loop should exit instead of continuing.
func (s *Supervisor) handlePollError(ctx context.Context, err error) bool {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return false

	case errors.Is(err, berrors.ErrTimeout):
		// An empty long poll. Not an error, not worth a log line.
		return true

	case errors.Is(err, berrors.ErrRateLimit):
		wait := berrors.RetryAfterOf(err) + time.Second
		s.logger.Warn().Dur("wait", wait).Msg("poll rate limited")
		return s.sleep(ctx, wait)

	case errors.Is(err, berrors.ErrConflict):
		s.logger.Error().Err(err).Msg("another instance is polling with this token")
		s.metrics.RecordError("telegram", "conflict")
		return s.sleep(ctx, s.cfg.ConflictBackoff)

	default:
		s.logger.Error().Err(err).Msg("poll failed")
		s.metrics.RecordError("telegram", "poll")
		s.status.IncErrors()
		return s.sleep(ctx, s.cfg.ErrorBackoff)
	}
}

// sleep waits for d or cancellation, reporting whether the full wait elapsed.
func (s *Supervisor) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
