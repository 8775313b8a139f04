package engine

import (
	"context"
	"testing"

	"github.com/shmor3/simse/internal/codec"
	"github.com/shmor3/simse/internal/model"
)

// memBackend is a trivial in-memory Backend for exercising the engine
// without touching disk or sqlite.
type memBackend struct {
	data   map[string][]byte
	closed bool
}

func newMemBackend(seed map[string][]byte) *memBackend {
	if seed == nil {
		seed = map[string][]byte{}
	}
	return &memBackend{data: seed}
}

func (b *memBackend) Load(ctx context.Context) (map[string][]byte, error) {
	out := make(map[string][]byte, len(b.data))
	for k, v := range b.data {
		out[k] = v
	}
	return out, nil
}

func (b *memBackend) Save(ctx context.Context, data map[string][]byte) error {
	out := make(map[string][]byte, len(data))
	for k, v := range data {
		out[k] = v
	}
	b.data = out
	return nil
}

func (b *memBackend) Close() error {
	b.closed = true
	return nil
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e := New(cfg, newMemBackend(nil), nil)
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return e
}

// S1 (add & cosine)
func TestS1AddAndCosine(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, DefaultConfig())

	if _, err := e.Add(ctx, "alpha", []float32{1, 0, 0}, map[string]string{"topic": "a"}); err != nil {
		t.Fatalf("add alpha: %v", err)
	}
	if _, err := e.Add(ctx, "beta", []float32{0, 1, 0}, map[string]string{"topic": "b"}); err != nil {
		t.Fatalf("add beta: %v", err)
	}

	results, err := e.Search([]float32{1, 0, 0}, 2, 0.0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Text != "alpha" || results[0].Score != 1.0 {
		t.Errorf("results[0] = %+v, want alpha@1.0", results[0])
	}
	if results[1].Text != "beta" || results[1].Score != 0.0 {
		t.Errorf("results[1] = %+v, want beta@0.0", results[1])
	}

	filtered, err := e.Search([]float32{1, 0, 0}, 2, 0.5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Text != "alpha" {
		t.Errorf("filtered = %+v, want [alpha]", filtered)
	}
}

// S2 (dedup skip)
func TestS2DedupSkip(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.DuplicateThreshold = 0.99
	cfg.DuplicateBehavior = DuplicateSkip
	e := newTestEngine(t, cfg)

	id1, err := e.Add(ctx, "x", []float32{1, 0, 0}, nil)
	if err != nil {
		t.Fatalf("add x: %v", err)
	}
	id2, err := e.Add(ctx, "y", []float32{1, 0, 0}, nil)
	if err != nil {
		t.Fatalf("add y: %v", err)
	}
	if id2 != id1 {
		t.Errorf("id2 = %q, want %q (duplicate skip returns existing id)", id2, id1)
	}
	if e.Size() != 1 {
		t.Errorf("Size() = %d, want 1", e.Size())
	}
}

func TestS2DedupError(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.DuplicateThreshold = 0.99
	cfg.DuplicateBehavior = DuplicateError
	e := newTestEngine(t, cfg)

	if _, err := e.Add(ctx, "x", []float32{1, 0, 0}, nil); err != nil {
		t.Fatalf("add x: %v", err)
	}
	_, err := e.Add(ctx, "y", []float32{1, 0, 0}, nil)
	if err == nil {
		t.Fatal("expected ErrDuplicate")
	}
	var se *StoreError
	if !asStoreError(err, &se) || se.Err != ErrDuplicate {
		t.Errorf("err = %v, want wrapped ErrDuplicate", err)
	}
}

func asStoreError(err error, target **StoreError) bool {
	se, ok := err.(*StoreError)
	if !ok {
		return false
	}
	*target = se
	return true
}

// S3 (topic filter)
func TestS3TopicFilter(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, DefaultConfig())

	if _, err := e.Add(ctx, "v1", []float32{1, 0}, map[string]string{"topic": "proj/a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Add(ctx, "v2", []float32{0, 1}, map[string]string{"topic": "proj/b"}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Add(ctx, "v3", []float32{1, 1}, map[string]string{"topic": "other"}); err != nil {
		t.Fatal(err)
	}

	got, err := e.FilterByTopic("proj/a")
	if err != nil {
		t.Fatalf("filterByTopic: %v", err)
	}
	if len(got) != 1 || got[0].Text != "v1" {
		t.Errorf("FilterByTopic(proj/a) = %+v, want [v1]", got)
	}
}

// S5 (recommend blend)
func TestS5RecommendBlendRanksByFrequency(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, DefaultConfig())

	id1, _ := e.Add(ctx, "popular", []float32{1, 0, 0}, nil)
	id2, _ := e.Add(ctx, "fresh", []float32{1, 0, 0}, nil)

	e.mu.Lock()
	stats1 := e.accessStats[id1]
	stats1.AccessCount = 10
	e.accessStats[id1] = stats1
	now := e.volumes[id1].Timestamp
	v1 := e.volumes[id1]
	v1.Timestamp = now
	e.volumes[id1] = v1
	v2 := e.volumes[id2]
	v2.Timestamp = now
	e.volumes[id2] = v2
	e.mu.Unlock()

	results, err := e.Recommend(model.RecommendOptions{
		QueryEmbedding: []float32{1, 0, 0},
		Now:            now,
	})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(results) != 2 || results[0].ID != id1 {
		t.Errorf("results = %+v, want id1 (access count 10) first", results)
	}

	tied, err := e.Recommend(model.RecommendOptions{
		QueryEmbedding: []float32{1, 0, 0},
		Weights:        model.RecommendWeights{Vector: 1, Recent: 0, Freq: 0},
		Now:            now,
	})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(tied) != 2 || tied[0].Score != tied[1].Score {
		t.Errorf("tied scores = %v, %v, want equal", tied[0].Score, tied[1].Score)
	}
	if tied[0].ID != id1 {
		t.Errorf("tied[0].ID = %s, want %s (insertion-order tie-break)", tied[0].ID, id1)
	}
}

// S6 (corruption tolerance)
func TestS6CorruptionTolerance(t *testing.T) {
	ctx := context.Background()

	good1, err := codec.Encode(model.Volume{ID: "v1", Text: "one", Embedding: []float32{1, 0}, Timestamp: 1}, model.AccessStats{})
	if err != nil {
		t.Fatal(err)
	}
	good2, err := codec.Encode(model.Volume{ID: "v2", Text: "two", Embedding: []float32{0, 1}, Timestamp: 2}, model.AccessStats{})
	if err != nil {
		t.Fatal(err)
	}
	bad, err := codec.Encode(model.Volume{ID: "v3", Text: "three", Embedding: []float32{1, 1}, Timestamp: 3}, model.AccessStats{})
	if err != nil {
		t.Fatal(err)
	}
	bad = bad[:4+len("three")+4+6] // truncate into the embedding chunk

	be := newMemBackend(map[string][]byte{"v1": good1, "v2": good2, "v3": bad})
	e := New(DefaultConfig(), be, nil)
	if err := e.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if e.Size() != 2 {
		t.Errorf("Size() = %d, want 2", e.Size())
	}
	if !e.IsDirty() {
		t.Error("IsDirty() = false, want true after skipping a corrupt record")
	}

	if err := e.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok := be.data["v3"]; ok {
		t.Error("corrupt record v3 survived save, want it dropped")
	}
	if len(be.data) != 2 { // v1, v2 (learner disabled, no __learning key written)
		t.Errorf("len(be.data) = %d, want 2 (v1, v2)", len(be.data))
	}
}

func TestAddBeforeLoadFails(t *testing.T) {
	e := New(DefaultConfig(), newMemBackend(nil), nil)
	_, err := e.Add(context.Background(), "x", []float32{1}, nil)
	if err == nil {
		t.Fatal("expected ErrNotLoaded before Load")
	}
}

// AddBatch: a DuplicateError partway through a batch must leave zero
// items from that call visible, not just stop short.
func TestAddBatchDuplicateErrorNoPartialInsertion(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.DuplicateThreshold = 0.99
	cfg.DuplicateBehavior = DuplicateError
	e := newTestEngine(t, cfg)

	if _, err := e.Add(ctx, "seed", []float32{1, 0, 0}, nil); err != nil {
		t.Fatalf("add seed: %v", err)
	}

	_, err := e.AddBatch(ctx, []AddItem{
		{Text: "first", Embedding: []float32{0, 1, 0}},
		{Text: "duplicate of seed", Embedding: []float32{1, 0, 0}},
	})
	if err == nil {
		t.Fatal("expected ErrDuplicate")
	}
	var se *StoreError
	if !asStoreError(err, &se) || se.Err != ErrDuplicate {
		t.Errorf("err = %v, want wrapped ErrDuplicate", err)
	}
	if e.Size() != 1 {
		t.Errorf("Size() = %d, want 1 (no partial insertion from the failed batch)", e.Size())
	}
	all, err := e.GetAll()
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range all {
		if v.Text == "first" {
			t.Error("batch item preceding the duplicate was inserted despite the batch failing")
		}
	}
}

func TestAddBatchSkipsDuplicatesAndReturnsExistingID(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.DuplicateThreshold = 0.99
	cfg.DuplicateBehavior = DuplicateSkip
	e := newTestEngine(t, cfg)

	ids, err := e.AddBatch(ctx, []AddItem{
		{Text: "a", Embedding: []float32{1, 0, 0}},
		{Text: "dup of a", Embedding: []float32{1, 0, 0}},
		{Text: "b", Embedding: []float32{0, 1, 0}},
	})
	if err != nil {
		t.Fatalf("AddBatch: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("len(ids) = %d, want 3", len(ids))
	}
	if ids[1] != ids[0] {
		t.Errorf("ids[1] = %s, want %s (duplicate skip returns the existing id)", ids[1], ids[0])
	}
	if e.Size() != 2 {
		t.Errorf("Size() = %d, want 2", e.Size())
	}
}

// Access stats: incremented by direct retrieval and by each search result,
// never by Recommend.
func TestAccessStatsIncrementedBySearchAndGetByID(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, DefaultConfig())

	id, err := e.Add(ctx, "alpha", []float32{1, 0, 0}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.Search([]float32{1, 0, 0}, 5, 0.0); err != nil {
		t.Fatalf("search: %v", err)
	}
	e.mu.RLock()
	count := e.accessStats[id].AccessCount
	e.mu.RUnlock()
	if count != 1 {
		t.Errorf("AccessCount after Search = %d, want 1", count)
	}

	if _, err := e.GetByID(id); err != nil {
		t.Fatal(err)
	}
	e.mu.RLock()
	count = e.accessStats[id].AccessCount
	e.mu.RUnlock()
	if count != 2 {
		t.Errorf("AccessCount after GetByID = %d, want 2", count)
	}
}

func TestAccessStatsIncrementedByAdvancedSearch(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, DefaultConfig())

	id, err := e.Add(ctx, "alpha", []float32{1, 0, 0}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.AdvancedSearch(AdvancedSearchOptions{QueryEmbedding: []float32{1, 0, 0}, MaxResults: 5}); err != nil {
		t.Fatalf("advancedSearch: %v", err)
	}
	e.mu.RLock()
	count := e.accessStats[id].AccessCount
	e.mu.RUnlock()
	if count != 1 {
		t.Errorf("AccessCount after AdvancedSearch = %d, want 1", count)
	}
}

func TestRecommendDoesNotIncrementAccessStats(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, DefaultConfig())

	id, err := e.Add(ctx, "alpha", []float32{1, 0, 0}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.Recommend(model.RecommendOptions{QueryEmbedding: []float32{1, 0, 0}}); err != nil {
		t.Fatalf("recommend: %v", err)
	}
	e.mu.RLock()
	count := e.accessStats[id].AccessCount
	e.mu.RUnlock()
	if count != 0 {
		t.Errorf("AccessCount after Recommend = %d, want 0 (recommend must not create a positive-feedback loop)", count)
	}
}

// Learner training: Search feeds the learner; Recommend only reads it.
func TestLearnerTrainedBySearchNotRecommend(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.LearnerEnabled = true
	e := newTestEngine(t, cfg)

	if _, err := e.Add(ctx, "alpha", []float32{1, 0, 0}, nil); err != nil {
		t.Fatal(err)
	}

	if _, err := e.Recommend(model.RecommendOptions{QueryEmbedding: []float32{1, 0, 0}}); err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if snap := e.LearningProfile(); len(snap.Ring) != 0 {
		t.Errorf("LearningProfile().Ring has %d entries after Recommend, want 0 (recommend must not train the learner)", len(snap.Ring))
	}

	if _, err := e.Search([]float32{1, 0, 0}, 5, 0.0); err != nil {
		t.Fatalf("search: %v", err)
	}
	if snap := e.LearningProfile(); len(snap.Ring) != 1 {
		t.Errorf("LearningProfile().Ring has %d entries after Search, want 1", len(snap.Ring))
	}
}

func TestDisposeSavesWhenDirty(t *testing.T) {
	ctx := context.Background()
	be := newMemBackend(nil)
	cfg := DefaultConfig()
	cfg.AutoSave = false
	e := New(cfg, be, nil)
	if err := e.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Add(ctx, "x", []float32{1, 0}, nil); err != nil {
		t.Fatal(err)
	}
	if len(be.data) != 0 {
		t.Fatal("expected no save before Dispose with AutoSave=false")
	}
	if err := e.Dispose(ctx); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if !be.closed {
		t.Error("backend not closed after Dispose")
	}
	if len(be.data) == 0 {
		t.Error("expected a final save on Dispose to have persisted data")
	}
}
