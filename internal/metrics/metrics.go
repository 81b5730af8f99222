// Package metrics exposes Prometheus instrumentation for render jobs.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitreel/internal/jobs"
)

// Metrics owns a private registry so tests and multiple daemons in one
// process do not collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	jobsFinished     *prometheus.CounterVec
	pipelinesRunning prometheus.Gauge
	renderDuration   *prometheus.HistogramVec
	recordsExtracted *prometheus.CounterVec
}

// New builds and registers the gitreel collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		jobsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gitreel_render_jobs_finished_total",
				Help: "Render jobs that reached a terminal status.",
			},
			[]string{"status", "error_kind"},
		),
		pipelinesRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gitreel_render_pipelines_running",
				Help: "Render pipelines currently holding an execution slot.",
			},
		),
		renderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gitreel_render_duration_seconds",
				Help:    "Wall time from renderer start to terminal status.",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 2400},
			},
			[]string{"status"},
		),
		recordsExtracted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gitreel_commit_records_extracted_total",
				Help: "Commit log records extracted per repository.",
			},
			[]string{"repository"},
		),
	}
	m.registry.MustRegister(
		m.jobsFinished,
		m.pipelinesRunning,
		m.renderDuration,
		m.recordsExtracted,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// JobTransitioned implements jobs.Observer.
func (m *Metrics) JobTransitioned(previous jobs.Status, job jobs.Job) {
	if !previous.Active() && job.Status.Active() {
		m.pipelinesRunning.Inc()
	}
	if !job.Status.Terminal() {
		return
	}
	if previous.Active() {
		m.pipelinesRunning.Dec()
	}
	m.jobsFinished.WithLabelValues(string(job.Status), job.ErrorKind).Inc()
	if d := job.Duration(); d > 0 {
		m.renderDuration.WithLabelValues(string(job.Status)).Observe(d.Seconds())
	}
}

// RecordsExtracted counts records pulled from one repository.
func (m *Metrics) RecordsExtracted(repository string, n int) {
	if n <= 0 {
		return
	}
	m.recordsExtracted.WithLabelValues(norm(repository)).Add(float64(n))
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
