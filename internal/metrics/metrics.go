package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the feed engine and the stub server
type Metrics struct {
	// HTTP metrics (stub server)
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPActiveConnections *prometheus.GaugeVec

	// Feed engine metrics
	FeedRequestsTotal   *prometheus.CounterVec
	FeedRequestDuration *prometheus.HistogramVec
	LikeReconciliations *prometheus.CounterVec
	EventsDroppedTotal  *prometheus.CounterVec
	PostsLoadedTotal    prometheus.Counter
}

// New registers every collector with reg. Each caller passes its own
// registry so that tests and multiple servers never collide.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path", "status"},
		),
		HTTPActiveConnections: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "http_active_connections",
				Help: "Number of currently active HTTP connections",
			},
			[]string{"method", "path"},
		),

		FeedRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feed_requests_total",
				Help: "Requests issued by the feed engine, by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		FeedRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "feed_request_duration_seconds",
				Help:    "Latency of feed engine requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		LikeReconciliations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feed_like_reconciliations_total",
				Help: "Optimistic like toggles by how they settled",
			},
			[]string{"outcome"},
		),
		EventsDroppedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feed_events_dropped_total",
				Help: "Events dropped because a subscriber fell behind",
			},
			[]string{"kind"},
		),
		PostsLoadedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "feed_posts_loaded_total",
				Help: "Posts appended to feeds",
			},
		),
	}
}

// ObserveRequest records one engine request
func (m *Metrics) ObserveRequest(op, outcome string, d time.Duration) {
	m.FeedRequestsTotal.WithLabelValues(op, outcome).Inc()
	m.FeedRequestDuration.WithLabelValues(op).Observe(d.Seconds())
}

// LikeReconciled records how an optimistic toggle settled
func (m *Metrics) LikeReconciled(outcome string) {
	m.LikeReconciliations.WithLabelValues(outcome).Inc()
}

// EventDropped records an event a slow subscriber missed
func (m *Metrics) EventDropped(kind string) {
	m.EventsDroppedTotal.WithLabelValues(kind).Inc()
}

// PostsLoaded records newly appended posts
func (m *Metrics) PostsLoaded(n int) {
	m.PostsLoadedTotal.Add(float64(n))
}

// Handler serves the collectors gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
