package supervisor

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/harmonikprz/malibu-bot/internal/event"
	"github.com/harmonikprz/malibu-bot/internal/metrics"
	"github.com/harmonikprz/malibu-bot/internal/status"
)

const (
	defaultLanes     = 8
	defaultLaneDepth = 64
)

// Dispatcher fans events out to a fixed set of lanes. Events for the same
// user always land on the same lane, so each user's updates are handled
// strictly in arrival order while different users proceed concurrently.
type Dispatcher struct {
	router  *Router
	status  *status.Status
	metrics *metrics.Metrics
	logger  zerolog.Logger

	lanes []chan event.Inbound
	wg    sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with laneCount worker lanes. Zero or
// negative values fall back to the defaults.
func NewDispatcher(router *Router, st *status.Status, m *metrics.Metrics, logger zerolog.Logger, laneCount, laneDepth int) *Dispatcher {
	if laneCount <= 0 {
		laneCount = defaultLanes
	}
	if laneDepth <= 0 {
		laneDepth = defaultLaneDepth
	}
	d := &Dispatcher{
		router:  router,
		status:  st,
		metrics: m,
		logger:  logger.With().Str("component", "dispatch").Logger(),
		lanes:   make([]chan event.Inbound, laneCount),
	}
	for i := range d.lanes {
		d.lanes[i] = make(chan event.Inbound, laneDepth)
	}
	return d
}

// Start launches one worker goroutine per lane. Workers exit when their lane
// is closed or ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for _, lane := range d.lanes {
		d.wg.Add(1)
		go func(lane chan event.Inbound) {
			defer d.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-lane:
					if !ok {
						return
					}
					d.handle(ctx, ev)
				}
			}
		}(lane)
	}
}

// Dispatch queues one event on its user's lane. Blocks when the lane is full,
// which backpressures the poll loop rather than dropping events.
func (d *Dispatcher) Dispatch(ctx context.Context, ev event.Inbound) {
	lane := d.lanes[uint64(ev.UserID)%uint64(len(d.lanes))]
	select {
	case lane <- ev:
	case <-ctx.Done():
	}
}

// Close drains the lanes and waits for the workers to finish.
func (d *Dispatcher) Close() {
	for _, lane := range d.lanes {
		close(lane)
	}
	d.wg.Wait()
}

// handle runs one event through the router. A panicking handler is contained
// here so one poisoned update cannot take down the lane.
func (d *Dispatcher) handle(ctx context.Context, ev event.Inbound) {
	defer func() {
		if r := recover(); r != nil {
			d.status.IncErrors()
			d.metrics.RecordError("dispatch", "panic")
			d.logger.Error().
				Interface("panic", r).
				Str("kind", string(ev.Kind)).
				Int64("user_id", ev.UserID).
				Msg("handler panicked")
		}
	}()

	if err := d.router.Route(ctx, ev); err != nil {
		d.status.IncErrors()
		d.metrics.RecordError("dispatch", "handler")
		d.logger.Error().
			Err(err).
			Str("kind", string(ev.Kind)).
			Int64("user_id", ev.UserID).
			Msg("handler failed")
	}
}
