// Package metrics holds the Prometheus collectors for fetch and refresh
// activity. Each [Metrics] owns a private registry so several dashboards can
// live in one process (and in one test binary).
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics provides the collectors updated by the fetcher.
type Metrics struct {
	registry *prometheus.Registry

	transportAttempts *prometheus.CounterVec
	fetchDuration     *prometheus.HistogramVec
	refreshes         *prometheus.CounterVec
	conversations     prometheus.Gauge
	students          prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transportAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashfeed_transport_attempts_total",
			Help: "Requests made per transport strategy, by outcome",
		}, []string{"transport", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashfeed_fetch_duration_seconds",
			Help:    "Time spent on a whole fetch, across all transports tried",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashfeed_refresh_total",
			Help: "Refresh cycles, by outcome",
		}, []string{"outcome"}),
		conversations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashfeed_state_conversations",
			Help: "Conversations in the current dashboard state",
		}),
		students: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashfeed_state_students",
			Help: "Students in the current dashboard state",
		}),
	}

	m.registry.MustRegister(
		m.transportAttempts,
		m.fetchDuration,
		m.refreshes,
		m.conversations,
		m.students,
	)
	return m
}

// TransportAttempt records one request made by the named strategy.
func (m *Metrics) TransportAttempt(transport string, err error) {
	if m == nil {
		return
	}
	m.transportAttempts.WithLabelValues(transport, outcome(err)).Inc()
}

// Fetch records the duration of a whole fetch.
func (m *Metrics) Fetch(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(outcome(err)).Observe(d.Seconds())
}

// Refresh records a refresh cycle.
func (m *Metrics) Refresh(err error) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome(err)).Inc()
}

// StateSize records the size of the current state.
func (m *Metrics) StateSize(conversations, students int) {
	if m == nil {
		return
	}
	m.conversations.Set(float64(conversations))
	m.students.Set(float64(students))
}

// Registry exposes the underlying registry, for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
