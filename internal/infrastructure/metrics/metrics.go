package metrics

import (
	"net/http"
	"time"

	"commerce-sync-core/internal/domain"
	"commerce-sync-core/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "commerce_sync"

// SyncMetrics exports sync and webhook activity to Prometheus
type SyncMetrics struct {
	registry *prometheus.Registry

	runsStarted      *prometheus.CounterVec
	runsFinished     *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	runsActive       prometheus.Gauge
	recordsPersisted *prometheus.CounterVec
	pageDuration     *prometheus.HistogramVec
	webhooks         *prometheus.CounterVec
}

// NewSyncMetrics creates the collectors on a private registry that also
// carries the Go runtime and process collectors
func NewSyncMetrics() *SyncMetrics {
	m := &SyncMetrics{
		registry: prometheus.NewRegistry(),
		runsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Sync runs started, by type.",
		}, []string{"type"}),
		runsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Sync runs finished, by type and final state.",
		}, []string{"type", "state"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of sync runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"type"}),
		runsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Sync runs currently in progress.",
		}),
		recordsPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_persisted_total",
			Help:      "Records written by sync runs, by resource.",
		}, []string{"resource"}),
		pageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_fetch_duration_seconds",
			Help:      "Latency of remote page fetches, by resource.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_total",
			Help:      "Webhook deliveries, by topic and outcome.",
		}, []string{"topic", "outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.runsStarted,
		m.runsFinished,
		m.runDuration,
		m.runsActive,
		m.recordsPersisted,
		m.pageDuration,
		m.webhooks,
	)
	return m
}

var _ ports.SyncMetrics = (*SyncMetrics)(nil)

// Handler serves the registry in the Prometheus exposition format
func (m *SyncMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *SyncMetrics) RunStarted(syncType domain.SyncType) {
	m.runsStarted.WithLabelValues(string(syncType)).Inc()
	m.runsActive.Inc()
}

func (m *SyncMetrics) RunFinished(syncType domain.SyncType, state domain.SyncState, duration time.Duration) {
	m.runsFinished.WithLabelValues(string(syncType), string(state)).Inc()
	m.runDuration.WithLabelValues(string(syncType)).Observe(duration.Seconds())
	m.runsActive.Dec()
}

func (m *SyncMetrics) RecordsPersisted(resource domain.ResourceType, count int) {
	m.recordsPersisted.WithLabelValues(resource.String()).Add(float64(count))
}

func (m *SyncMetrics) PageFetched(resource domain.ResourceType, duration time.Duration) {
	m.pageDuration.WithLabelValues(resource.String()).Observe(duration.Seconds())
}

func (m *SyncMetrics) WebhookProcessed(topic string, outcome string) {
	m.webhooks.WithLabelValues(topic, outcome).Inc()
}
