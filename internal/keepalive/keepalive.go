// Package keepalive pings the bot's own public URL so free-tier hosting does
// not idle the process out from under the delivery loop.
package keepalive

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultInitialDelay = 60 * time.Second
	defaultInterval     = 240 * time.Second
)

// Pinger periodically GETs a URL and discards the result. Failures are logged
// at debug level only; a missed ping is not an incident.
type Pinger struct {
	url          string
	client       *http.Client
	logger       zerolog.Logger
	initialDelay time.Duration
	interval     time.Duration
}

// Option configures a Pinger.
type Option func(*Pinger)

// WithIntervals overrides the initial delay and the ping interval.
func WithIntervals(initial, every time.Duration) Option {
	return func(p *Pinger) {
		p.initialDelay = initial
		p.interval = every
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(p *Pinger) { p.client = h }
}

// New creates a Pinger for url. An empty url disables it.
func New(url string, logger zerolog.Logger, opts ...Option) *Pinger {
	p := &Pinger{
		url:          url,
		client:       &http.Client{Timeout: 10 * time.Second},
		logger:       logger.With().Str("component", "keepalive").Logger(),
		initialDelay: defaultInitialDelay,
		interval:     defaultInterval,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run blocks until ctx is cancelled. The first ping waits out the initial
// delay so the HTTP server is up before we dial ourselves.
func (p *Pinger) Run(ctx context.Context) {
	if p.url == "" {
		p.logger.Debug().Msg("no keep-alive url, disabled")
		return
	}

	initial := time.NewTimer(p.initialDelay)
	defer initial.Stop()
	select {
	case <-ctx.Done():
		return
	case <-initial.C:
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.ping(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ping(ctx)
		}
	}
}

func (p *Pinger) ping(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		p.logger.Debug().Err(err).Msg("keep-alive request build failed")
		return
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug().Err(err).Msg("keep-alive ping failed")
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	p.logger.Debug().Int("status", resp.StatusCode).Msg("keep-alive ping")
}
