// Package metrics exposes service counters and histograms to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metric names.
const (
	MetricSubmissionsTotal      = "application_submissions_total"
	MetricRendersTotal          = "application_renders_total"
	MetricRenderDurationSeconds = "application_render_duration_seconds"
)

// Render outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the collectors of one service instance on a private
// registry.
type Metrics struct {
	registry       *prometheus.Registry
	submissions    *prometheus.CounterVec
	renders        *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSubmissionsTotal,
			Help: "Application forms received, by result.",
		}, []string{"result"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRendersTotal,
			Help: "PDF render attempts by engine and outcome.",
		}, []string{"engine", "outcome"}),
		renderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricRenderDurationSeconds,
			Help:    "Duration of PDF render attempts.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"engine"}),
	}
	registry.MustRegister(
		m.submissions,
		m.renders,
		m.renderDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// SubmissionReceived counts a posted form; result is "accepted" or
// "rejected".
func (m *Metrics) SubmissionReceived(result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result).Inc()
}

// ObserveRender records one render attempt.
func (m *Metrics) ObserveRender(engine string, err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.renders.WithLabelValues(engine, outcome).Inc()
	m.renderDuration.WithLabelValues(engine).Observe(d.Seconds())
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
