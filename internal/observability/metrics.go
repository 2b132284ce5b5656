package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "postgate_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// DatabaseQueryLatency records database query latency by statement verb.
	DatabaseQueryLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "postgate_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// AuthEvents counts authentication outcomes such as login_success or token_revoked.
	AuthEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "postgate_auth_events_total",
		Help: "Total authentication events by outcome",
	}, []string{"event"})

	// PostAccessDenied counts post reads refused by the tier rule.
	PostAccessDenied = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "postgate_post_access_denied_total",
		Help: "Total post reads denied because the viewer's tier was too low",
	})
)

// NewRegistry returns a registry holding the process, Go runtime and
// application collectors. Every server gets its own so tests can build many.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		RedisErrors,
		DatabaseQueryLatency,
		AuthEvents,
		PostAccessDenied,
	)
	return reg
}
