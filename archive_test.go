package vigil

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestNewArchiveRequiresBucket(t *testing.T) {
	if _, err := NewArchive(context.Background(), ArchiveConfig{}); err == nil {
		t.Error("empty bucket accepted")
	}
}

func TestSnapshotPipeline(t *testing.T) {
	p := NewAlertPipeline(DefaultPipelineConfig(), baselineHistory(), nil)
	id := StreamID{EntityID: "web1", Metric: "latency"}
	p.Tuner(id)

	alerts := []AlertRecord{{Type: "website", SubjectID: "web1", Severity: SeverityHigh}}
	snap := SnapshotPipeline(p, alerts)

	if snap.TakenAtMs == 0 {
		t.Error("snapshot timestamp not set")
	}
	if time.Since(time.UnixMilli(snap.TakenAtMs)) > time.Minute {
		t.Errorf("snapshot timestamp stale: %d", snap.TakenAtMs)
	}
	stats, ok := snap.Baselines["web1_latency"]
	if !ok {
		t.Fatalf("snapshot missing web1_latency baseline: %v", snap.Baselines)
	}
	if !almostEqual(stats.Mean, 100.9, 1e-9) {
		t.Errorf("snapshot Mean = %v, want 100.9", stats.Mean)
	}
	if len(snap.Alerts) != 1 {
		t.Errorf("snapshot alerts = %v", snap.Alerts)
	}
}

func TestArchiveSnapshotKey(t *testing.T) {
	a := &Archive{config: ArchiveConfig{Prefix: "vigil/"}}
	key := a.snapshotKey(time.Date(2026, 8, 28, 12, 30, 45, 0, time.UTC))
	if !strings.HasPrefix(key, "vigil/snapshots/20260828T123045") {
		t.Errorf("key = %q", key)
	}
	if !strings.HasSuffix(key, ".snap") {
		t.Errorf("key = %q", key)
	}
}
