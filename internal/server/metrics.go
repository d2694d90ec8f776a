package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsRegistry struct {
	registry       *prometheus.Registry
	transfersTotal *prometheus.CounterVec
	continuesTotal *prometheus.CounterVec
	phaseFailures  *prometheus.CounterVec
	resumerRuns    prometheus.Counter
	pendingGauge   prometheus.Gauge
}

func newMetricsRegistry() *metricsRegistry {
	transfers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridgerail_transfers_started_total",
		Help: "Transfer start requests by outcome",
	}, []string{"status"})

	continues := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridgerail_transfers_continued_total",
		Help: "Continue invocations by outcome",
	}, []string{"status"})

	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridgerail_transfer_failures_total",
		Help: "Terminal failures by error kind",
	}, []string{"kind"})

	resumes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bridgerail_resumer_runs_total",
		Help: "Background resumer sweeps",
	})

	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bridgerail_pending_transfers",
		Help: "Transfers currently awaiting attestation or mint",
	})

	r := prometheus.NewRegistry()
	r.MustRegister(transfers, continues, failures, resumes, pending)

	return &metricsRegistry{
		registry:       r,
		transfersTotal: transfers,
		continuesTotal: continues,
		phaseFailures:  failures,
		resumerRuns:    resumes,
		pendingGauge:   pending,
	}
}

func (m *metricsRegistry) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metricsRegistry) incStart(status string) {
	m.transfersTotal.WithLabelValues(status).Inc()
}

func (m *metricsRegistry) incContinue(status string) {
	m.continuesTotal.WithLabelValues(status).Inc()
}

func (m *metricsRegistry) incFailure(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	m.phaseFailures.WithLabelValues(kind).Inc()
}

func (m *metricsRegistry) incResumerRun() {
	m.resumerRuns.Inc()
}

func (m *metricsRegistry) setPending(n int) {
	m.pendingGauge.Set(float64(n))
}
