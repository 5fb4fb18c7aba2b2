package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStudyCounters(t *testing.T) {
	before := testutil.ToFloat64(LessonsCompleted)
	LessonsCompleted.Inc()
	if got := testutil.ToFloat64(LessonsCompleted); got != before+1 {
		t.Errorf("lessons_completed_total = %v, want %v", got, before+1)
	}

	XPAwarded.WithLabelValues("lesson").Add(75)
	if got := testutil.ToFloat64(XPAwarded.WithLabelValues("lesson")); got < 75 {
		t.Errorf("xp_awarded_total{source=lesson} = %v, want >= 75", got)
	}
}

func TestAllMetricsRegistered(t *testing.T) {
	// Touch the vectors so they appear in the gather output.
	XPAwarded.WithLabelValues("achievement")
	AchievementsUnlocked.WithLabelValues("first_lesson")
	RemoteSyncs.WithLabelValues("upsert_stats", "ok")
	RemoteSyncLatency.WithLabelValues("upsert_stats").Observe(0.05)
	HealthCheckStatus.WithLabelValues("sqlite").Set(1)
	ResyncPending.Set(0)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	expected := []string{
		"hellobible_lessons_completed_total",
		"hellobible_xp_awarded_total",
		"hellobible_level_ups_total",
		"hellobible_achievements_unlocked_total",
		"hellobible_snapshot_conflicts_total",
		"hellobible_remote_sync_total",
		"hellobible_remote_sync_latency_seconds",
		"hellobible_resync_pending",
		"hellobible_health_check_status",
		"hellobible_api_rate_limited_total",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %q not registered", name)
		}
	}
}
