package learn

import (
	"testing"

	"github.com/shmor3/simse/internal/model"
)

func TestDisabledIsNoOp(t *testing.T) {
	var l Disabled
	l.RecordQuery([]float32{1, 0}, []string{"a"}, 1)
	if got := l.ComputeBoost("a", []float32{1, 0}); got != 1.0 {
		t.Errorf("Disabled.ComputeBoost = %v, want 1.0", got)
	}
	defaults := model.DefaultRecommendWeights
	if got := l.GetAdaptedWeights(defaults); got != defaults {
		t.Errorf("Disabled.GetAdaptedWeights = %v, want unchanged defaults", got)
	}
}

func TestEnabledComputeBoostClamped(t *testing.T) {
	e := NewEnabled(10)
	for i := 0; i < 5; i++ {
		e.RecordQuery([]float32{1, 0}, []string{"a"}, int64(i))
	}
	boost := e.ComputeBoost("a", []float32{1, 0})
	if boost < 0.5 || boost > 1.5 {
		t.Errorf("boost out of range: %v", boost)
	}
	if boost <= 1.0 {
		t.Errorf("expected boost above 1.0 for a well-aligned, frequently-returned id, got %v", boost)
	}
}

func TestEnabledRingEviction(t *testing.T) {
	e := NewEnabled(2)
	e.RecordQuery([]float32{1, 0}, []string{"a"}, 1)
	e.RecordQuery([]float32{1, 0}, []string{"b"}, 2)
	e.RecordQuery([]float32{1, 0}, []string{"c"}, 3)
	if len(e.ring) != 2 {
		t.Fatalf("expected ring capped at 2, got %d", len(e.ring))
	}
	if e.ring[0].ResultIDs[0] != "b" {
		t.Errorf("expected oldest entry evicted, got %v", e.ring[0])
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	e := NewEnabled(5)
	e.RecordQuery([]float32{1, 0}, []string{"a"}, 1)
	snap := e.Snapshot()

	restored := NewEnabled(5)
	restored.LoadSnapshot(snap)
	if restored.relevance["a"] != 1 {
		t.Errorf("relevance not restored: %v", restored.relevance)
	}
}

func TestPruneEntries(t *testing.T) {
	e := NewEnabled(5)
	e.RecordQuery([]float32{1, 0}, []string{"a", "b"}, 1)
	e.PruneEntries(map[string]struct{}{"a": {}})
	if _, ok := e.relevance["b"]; ok {
		t.Error("expected b to be pruned")
	}
	if _, ok := e.relevance["a"]; !ok {
		t.Error("expected a to survive prune")
	}
}
