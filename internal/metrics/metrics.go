// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the Prometheus instruments of the workflow.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/irca-engine/pkg/types"
)

const namespace = "irca_engine"

// Metrics holds the counters, histograms and gauges of step execution.
type Metrics struct {
	StepRuns     *prometheus.CounterVec   // labels: step, outcome={success,failure}
	Folders      *prometheus.CounterVec   // labels: step, outcome={processed,skipped,failed}
	StepDuration *prometheus.HistogramVec // labels: step
	ReportsReady prometheus.Gauge

	gatherer prometheus.Gatherer
}

func build() *Metrics {
	return &Metrics{
		StepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_runs_total",
			Help:      "Step executions by step and outcome.",
		}, []string{"step", "outcome"}),
		Folders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "folders_total",
			Help:      "City folders handled by step and outcome.",
		}, []string{"step", "outcome"}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of a step execution.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 900},
		}, []string{"step"}),
		ReportsReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reports_ready",
			Help:      "Valid generated reports available for packaging.",
		}),
	}
}

func (m *Metrics) register(r prometheus.Registerer) {
	r.MustRegister(m.StepRuns, m.Folders, m.StepDuration, m.ReportsReady)
}

// New creates the metrics and registers them with the default Prometheus
// registry. Call it once per process.
func New() *Metrics {
	m := build()
	m.register(prometheus.DefaultRegisterer)
	m.gatherer = prometheus.DefaultGatherer
	return m
}

// NewForTesting creates metrics on a fresh registry so tests can build
// as many as they like.
func NewForTesting() *Metrics {
	m := build()
	reg := prometheus.NewRegistry()
	m.register(reg)
	m.gatherer = reg
	return m
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveStep records one step execution.
func (m *Metrics) ObserveStep(res types.StepResult) {
	if m == nil {
		return
	}
	step := string(res.Step)
	outcome := "failure"
	if res.Success {
		outcome = "success"
	}
	m.StepRuns.WithLabelValues(step, outcome).Inc()
	m.StepDuration.WithLabelValues(step).Observe(res.Duration.Seconds())
	m.Folders.WithLabelValues(step, string(types.OutcomeProcessed)).Add(float64(res.Batch.Processed))
	m.Folders.WithLabelValues(step, string(types.OutcomeSkipped)).Add(float64(res.Batch.Skipped))
	m.Folders.WithLabelValues(step, string(types.OutcomeFailed)).Add(float64(res.Batch.Failed))
}

// SetReportsReady records how many reports can be packaged.
func (m *Metrics) SetReportsReady(n int) {
	if m == nil {
		return
	}
	m.ReportsReady.Set(float64(n))
}
