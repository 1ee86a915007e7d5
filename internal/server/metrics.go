package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/54b3r/cafebot-go/internal/store"
)

// labelRoute partitions HTTP metrics by mux pattern rather than raw URL
// path, so collection names in the path do not explode cardinality.
const labelRoute = "route"

// Metrics holds all Prometheus metrics owned by the server. It also
// implements chatbot.Observer, so the chatbot service reports query
// outcomes into the same registry.
type Metrics struct {
	// httpRequestsTotal counts all HTTP requests by method, route and status.
	httpRequestsTotal *prometheus.CounterVec
	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
	// chatQueriesTotal counts resolved chat queries by outcome
	// (matched, no_match, error).
	chatQueriesTotal *prometheus.CounterVec
	// matchDistance records the distance of every matched question.
	matchDistance prometheus.Histogram
	// ingestTotal counts knowledge-base writes by status (ok, invalid, error).
	ingestTotal *prometheus.CounterVec
	// rateLimitedTotal counts requests rejected with 429, by route.
	rateLimitedTotal *prometheus.CounterVec
	// authRejectedTotal counts 401s on the knowledge-base routes by reason
	// (missing, invalid).
	authRejectedTotal *prometheus.CounterVec
}

// NewMetrics registers all server metrics against reg. Tests pass a fresh
// prometheus.Registry to stay hermetic.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cafebot",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, route, and status code.",
		}, []string{"method", labelRoute, "status"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cafebot",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{labelRoute}),

		chatQueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cafebot",
			Subsystem: "chat",
			Name:      "queries_total",
			Help:      "Total number of chat queries, partitioned by outcome.",
		}, []string{"outcome"}),

		matchDistance: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cafebot",
			Name:      "match_distance",
			Help:      "Cosine distance between the query and the matched question.",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.7, 1},
		}),

		ingestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cafebot",
			Name:      "ingest_total",
			Help:      "Total number of QA facts submitted for ingestion, partitioned by status.",
		}, []string{"status"}),

		rateLimitedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cafebot",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the per-client rate limiter, partitioned by route.",
		}, []string{labelRoute}),

		authRejectedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cafebot",
			Name:      "auth_rejected_total",
			Help:      "Total number of knowledge-base requests rejected for a missing or invalid API key.",
		}, []string{"reason"}),
	}
}

// ObserveQuery implements chatbot.Observer.
func (m *Metrics) ObserveQuery(outcome store.Outcome, distance *float64) {
	m.chatQueriesTotal.WithLabelValues(string(outcome)).Inc()
	if distance != nil {
		m.matchDistance.Observe(*distance)
	}
}

// instrument records request count and latency per mux route. It must wrap
// the mux directly: the mux sets r.Pattern on the request it is handed.
func (m *Metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		m.httpDurationSeconds.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
