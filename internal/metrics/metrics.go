// Package metrics provides Prometheus metrics for the intake bot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	EventsTotal     *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	RestartsTotal   prometheus.Counter
	DecisionsTotal  *prometheus.CounterVec
	SweepSendsTotal *prometheus.CounterVec
	PendingRequests prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_events_total",
				Help: "Total inbound events by kind.",
			},
			[]string{"kind"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_errors_total",
				Help: "Total errors by component and type.",
			},
			[]string{"component", "type"},
		),
		RestartsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bot_restarts_total",
				Help: "Total delivery-loop restarts.",
			},
		),
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_admin_decisions_total",
				Help: "Total admin decisions by action and result.",
			},
			[]string{"action", "result"},
		),
		SweepSendsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_sweep_notifications_total",
				Help: "Expiry-sweep notification outcomes.",
			},
			[]string{"result"},
		),
		PendingRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bot_pending_requests",
				Help: "Number of intake requests awaiting an admin decision.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.EventsTotal)
	reg.MustRegister(m.ErrorsTotal)
	reg.MustRegister(m.RestartsTotal)
	reg.MustRegister(m.DecisionsTotal)
	reg.MustRegister(m.SweepSendsTotal)
	reg.MustRegister(m.PendingRequests)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordEvent increments the event counter.
func (m *Metrics) RecordEvent(kind string) {
	m.EventsTotal.WithLabelValues(kind).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, errType string) {
	m.ErrorsTotal.WithLabelValues(component, errType).Inc()
}

// RecordDecision increments the admin decision counter.
func (m *Metrics) RecordDecision(action, result string) {
	m.DecisionsTotal.WithLabelValues(action, result).Inc()
}

// RecordSweepSend increments the sweep outcome counter.
func (m *Metrics) RecordSweepSend(result string) {
	m.SweepSendsTotal.WithLabelValues(result).Inc()
}

// SetPending sets the pending-request gauge.
func (m *Metrics) SetPending(count float64) {
	m.PendingRequests.Set(count)
}
