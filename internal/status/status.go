// Package status tracks process-wide runtime state: uptime, the running flag
// and monotonic error/restart counters. Safe for concurrent use; counters are
// never reset within a process lifetime.
package status

import (
	"sync/atomic"
	"time"
)

// Status is the shared runtime state mutated by the delivery supervisor and
// read by the health surface and the /status admin command.
type Status struct {
	start    time.Time
	running  atomic.Bool
	errors   atomic.Int64
	restarts atomic.Int64
}

// Snapshot is a point-in-time copy of the runtime state.
type Snapshot struct {
	Running       bool  `json:"running"`
	Errors        int64 `json:"errors"`
	Restarts      int64 `json:"restarts"`
	UptimeSeconds int64 `json:"-"`
}

// New creates a Status anchored at the current time.
func New() *Status {
	return &Status{start: time.Now().UTC()}
}

// SetRunning flips the running flag.
func (s *Status) SetRunning(v bool) { s.running.Store(v) }

// IncErrors increments the dispatch error counter.
func (s *Status) IncErrors() { s.errors.Add(1) }

// IncRestarts increments the supervisor restart counter.
func (s *Status) IncRestarts() { s.restarts.Add(1) }

// Uptime returns time elapsed since process start.
func (s *Status) Uptime() time.Duration { return time.Since(s.start) }

// Snapshot returns the current state.
func (s *Status) Snapshot() Snapshot {
	return Snapshot{
		Running:       s.running.Load(),
		Errors:        s.errors.Load(),
		Restarts:      s.restarts.Load(),
		UptimeSeconds: int64(s.Uptime().Seconds()),
	}
}
