// Package metrics provides Prometheus metrics for HelloBible.
// Counters, gauges and histograms for study activity, XP, achievements,
// remote sync and health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Study ──────────────────────────────────────────────────────────────────

// LessonsCompleted tracks lesson completions processed by the engine.
var LessonsCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "hellobible",
	Name:      "lessons_completed_total",
	Help:      "Total lesson completions processed.",
})

// XPAwarded tracks XP granted by source (lesson, achievement, manual).
var XPAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hellobible",
	Name:      "xp_awarded_total",
	Help:      "Total XP awarded by source.",
}, []string{"source"})

// LevelUps tracks level transitions.
var LevelUps = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "hellobible",
	Name:      "level_ups_total",
	Help:      "Total level-up events.",
})

// AchievementsUnlocked tracks unlocks per achievement id.
var AchievementsUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hellobible",
	Name:      "achievements_unlocked_total",
	Help:      "Total achievement unlocks by id.",
}, []string{"achievement"})

// SnapshotConflicts tracks compare-and-swap retries on the local snapshot.
var SnapshotConflicts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "hellobible",
	Name:      "snapshot_conflicts_total",
	Help:      "Local snapshot writes that lost a compare-and-swap race.",
})

// ─── Remote Sync ────────────────────────────────────────────────────────────

// RemoteSyncs tracks remote store calls by operation and result (ok, error).
var RemoteSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hellobible",
	Name:      "remote_sync_total",
	Help:      "Remote progress store calls by operation and result.",
}, []string{"op", "result"})

// RemoteSyncLatency tracks remote store round-trip time.
var RemoteSyncLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "hellobible",
	Name:      "remote_sync_latency_seconds",
	Help:      "Remote progress store call duration in seconds.",
	Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
}, []string{"op"})

// ResyncPending tracks users whose remote row is known to be stale.
var ResyncPending = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "hellobible",
	Name:      "resync_pending",
	Help:      "Users waiting for a background remote resync.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "hellobible",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// ─── API ────────────────────────────────────────────────────────────────────

// RateLimited tracks requests rejected by the per-client limiter.
var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "hellobible",
	Name:      "api_rate_limited_total",
	Help:      "Requests rejected by the rate limiter.",
})
