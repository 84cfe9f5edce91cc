package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/trace"
)

var (
	// TweetMutations counts committed tweet lifecycle operations by kind.
	TweetMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_tweet_mutations_total",
		Help: "Committed tweet mutations by operation",
	}, []string{"operation"})

	// LikeToggles counts like ledger flips by resulting state.
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_like_toggles_total",
		Help: "Like toggles by resulting state",
	}, []string{"state"})

	// FollowChanges counts follow graph edges created and removed.
	FollowChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_follow_changes_total",
		Help: "Follow edges created or removed",
	}, []string{"action"})

	// CounterDrift counts denormalized counters the reconciler had to repair.
	CounterDrift = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_counter_drift_total",
		Help: "Denormalized counters found out of sync with their source rows",
	}, []string{"counter"})

	// ReconcileDuration observes full reconciler sweeps.
	ReconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chirp_reconcile_duration_seconds",
		Help:    "Duration of counter reconciliation sweeps",
		Buckets: prometheus.DefBuckets,
	})

	// RedisErrorRate tracks Redis operation failures.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_redis_error_rate_total",
		Help: "Redis operation errors by operation",
	}, []string{"operation"})

	// CacheLookups counts tweet cache hits and misses.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_cache_lookups_total",
		Help: "Tweet cache lookups by result",
	}, []string{"result"})

	// DatabaseQueryLatency tracks query latency.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chirp_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// TrackQuery starts a latency observation and returns the func that records it.
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// ExtractTraceID returns the trace ID of the span in ctx, or "" when there is none.
func ExtractTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
