package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service. Each instance owns
// its registry, so tests can build as many as they like. A nil *Metrics is a
// valid no-op.
type Metrics struct {
	registry *prometheus.Registry

	// Click metrics
	ClicksRecorded     *prometheus.CounterVec
	ClickRecordLatency prometheus.Histogram
	ClickQueueDepth    prometheus.Gauge

	// Redirect metrics
	Redirects     *prometheus.CounterVec
	RateLimitHits prometheus.Counter

	// Geo metrics
	GeoLookups       *prometheus.CounterVec
	GeoLookupLatency prometheus.Histogram
}

// New creates and registers all collectors under namespace.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ClicksRecorded: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "clicks_recorded_total",
				Help:      "Click recordings by result (ok, error, dropped)",
			},
			[]string{"result"},
		),
		ClickRecordLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "click_record_duration_seconds",
				Help:      "Time spent in the stats read-modify-write",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1},
			},
		),
		ClickQueueDepth: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "click_queue_depth",
				Help:      "Clicks waiting to be recorded",
			},
		),
		Redirects: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "redirects_total",
				Help:      "Redirect requests by response status",
			},
			[]string{"status"},
		),
		RateLimitHits: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by the per-IP limiter",
			},
		),
		GeoLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "geo_lookups_total",
				Help:      "Geo lookups by result (hit, miss, error)",
			},
			[]string{"result"},
		),
		GeoLookupLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "geo_lookup_duration_seconds",
				Help:      "GeoIP lookup latency in seconds",
				Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005},
			},
		),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordClick records the outcome of one click recording.
func (m *Metrics) RecordClick(result string, latency time.Duration) {
	if m == nil {
		return
	}
	m.ClicksRecorded.WithLabelValues(result).Inc()
	if latency > 0 {
		m.ClickRecordLatency.Observe(latency.Seconds())
	}
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.ClickQueueDepth.Set(float64(n))
}

// RecordRedirect records a redirect response status.
func (m *Metrics) RecordRedirect(status string) {
	if m == nil {
		return
	}
	m.Redirects.WithLabelValues(status).Inc()
}

// RecordRateLimitHit records a rejected request.
func (m *Metrics) RecordRateLimitHit() {
	if m == nil {
		return
	}
	m.RateLimitHits.Inc()
}

// RecordGeoLookup records a geo lookup.
func (m *Metrics) RecordGeoLookup(result string, latency time.Duration) {
	if m == nil {
		return
	}
	m.GeoLookups.WithLabelValues(result).Inc()
	m.GeoLookupLatency.Observe(latency.Seconds())
}
