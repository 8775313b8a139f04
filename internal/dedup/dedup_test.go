package dedup

import (
	"testing"

	"github.com/shmor3/simse/internal/model"
)

func TestCheckDuplicateThresholdZeroMeansNever(t *testing.T) {
	volumes := []model.Volume{{ID: "a", Embedding: []float32{1, 0, 0}}}
	_, found := CheckDuplicate([]float32{1, 0, 0}, volumes, 0)
	if found {
		t.Error("threshold 0 must mean never report a duplicate")
	}
}

func TestCheckDuplicateSelfMatch(t *testing.T) {
	v := model.Volume{ID: "a", Embedding: []float32{1, 0, 0}}
	got, found := CheckDuplicate(v.Embedding, []model.Volume{v}, 0.99)
	if !found || got.ID != "a" {
		t.Fatalf("expected self-match, got %+v, %v", got, found)
	}
}

func TestFindDuplicateGroups(t *testing.T) {
	volumes := []model.Volume{
		{ID: "a", Embedding: []float32{1, 0, 0}, Timestamp: 1},
		{ID: "b", Embedding: []float32{1, 0, 0}, Timestamp: 2},
		{ID: "c", Embedding: []float32{0, 1, 0}, Timestamp: 3},
	}
	groups := FindDuplicateGroups(volumes, 0.99)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[0]
	if g.RepresentativeID != "a" {
		t.Errorf("representative should be earliest timestamp: got %s", g.RepresentativeID)
	}
	if len(g.MemberIDs) != 2 {
		t.Errorf("expected 2 members, got %v", g.MemberIDs)
	}
}
