package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes recorded per repository.
const (
	outcomeCached      = "cached"
	outcomeFetched     = "fetched"
	outcomeFailed      = "failed"
	outcomeRateLimited = "rate_limited"
	outcomeNotFound    = "not_found"
)

// Metrics are the ingestion counters exported on --metrics-addr.
type Metrics struct {
	FetchTotal         *prometheus.CounterVec
	CacheRequests      *prometheus.CounterVec
	UpstreamDuration   *prometheus.HistogramVec
	UpstreamErrors     *prometheus.CounterVec
	CommitsFetched     *prometheus.CounterVec
	RateLimitEvents    prometheus.Counter
	RateLimitRemaining prometheus.Gauge
}

// NewMetrics registers the ingestion metrics on reg.
// A nil registerer yields metrics that are tracked but never exported.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devpulse",
			Subsystem: "ingest",
			Name:      "repository_fetch_total",
			Help:      "Repository fetches by outcome.",
		}, []string{"repo", "outcome"}),
		CacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devpulse",
			Subsystem: "ingest",
			Name:      "cache_requests_total",
			Help:      "Commit cache lookups by result.",
		}, []string{"result"}),
		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "devpulse",
			Subsystem: "ingest",
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of upstream calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		UpstreamErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devpulse",
			Subsystem: "ingest",
			Name:      "upstream_errors_total",
			Help:      "Failed upstream calls.",
		}, []string{"operation"}),
		CommitsFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devpulse",
			Subsystem: "ingest",
			Name:      "commits_total",
			Help:      "Unique commits returned per repository.",
		}, []string{"repo"}),
		RateLimitEvents: f.NewCounter(prometheus.CounterOpts{
			Namespace: "devpulse",
			Subsystem: "ingest",
			Name:      "rate_limit_events_total",
			Help:      "Upstream rate-limit rejections.",
		}),
		RateLimitRemaining: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "devpulse",
			Subsystem: "ingest",
			Name:      "rate_limit_remaining",
			Help:      "Last observed remaining upstream quota.",
		}),
	}
}
