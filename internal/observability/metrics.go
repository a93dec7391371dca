package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "usersvc_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "usersvc_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// CacheLookups counts cache hits and misses by key family.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "usersvc_cache_lookups_total",
		Help: "Cache lookups by key family and result",
	}, []string{"family", "result"})

	// FollowEvents counts follow graph mutations.
	FollowEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "usersvc_follow_events_total",
		Help: "Follow graph mutations by action",
	}, []string{"action"})

	// LoginAttempts counts logins by credential type and outcome.
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "usersvc_login_attempts_total",
		Help: "Login attempts by login entity and result",
	}, []string{"entity", "result"})

	// Registrations counts registration outcomes.
	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "usersvc_registrations_total",
		Help: "Registrations by result",
	}, []string{"result"})

	// MetricEventsDropped counts metric events discarded after the retry.
	MetricEventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "usersvc_metric_events_dropped_total",
		Help: "Metric events dropped after a failed retry",
	}, []string{"event_type"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
