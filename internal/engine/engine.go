package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shmor3/simse/internal/backend"
	"github.com/shmor3/simse/internal/codec"
	"github.com/shmor3/simse/internal/dedup"
	"github.com/shmor3/simse/internal/index"
	"github.com/shmor3/simse/internal/learn"
	"github.com/shmor3/simse/internal/model"
)

// State is the engine's lifecycle position, per SPEC_FULL.md §4.9's state
// machine diagram.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateClosed
)

// Engine is the vector store engine (C9): it owns the volumes, every
// derived index, access stats, the write lock, the save chain, and the
// adaptive learner.
//
// Concurrency model: mu is the "write lock" from SPEC_FULL.md §4.9/§9 —
// acquiring it for write serializes mutation tasks (add/delete/clear/load)
// in enqueue order, and acquiring it for read lets concurrent readers
// observe a consistent post-mutation snapshot without a torn intermediate,
// since every index update happens under the same lock segment as the
// volume list mutation. saveMu is the independent "save chain" — it
// serializes Save calls (explicit, background timer, and Dispose) without
// blocking concurrent mutations, matching §5's suspension-point model.
type Engine struct {
	cfg     Config
	backend backend.Backend
	logger  *slog.Logger

	mu      sync.RWMutex
	saveMu  sync.Mutex
	state   State
	dirty   bool

	volumes     map[string]model.Volume
	insertOrder map[string]int
	nextOrder   int
	accessStats map[string]model.AccessStats

	topicIdx *index.TopicIndex
	metaIdx  *index.MetadataIndex
	magCache *index.MagnitudeCache
	invIdx   *index.InvertedIndex

	learner learn.Learner

	flushStop chan struct{}
	flushDone chan struct{}

	loadOnce  sync.Once
	loadErr   error
	loaded    chan struct{}
}

// New constructs an Engine bound to be, uninitialized until Load runs.
func New(cfg Config, be backend.Backend, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	var learner learn.Learner = learn.Disabled{}
	if cfg.LearnerEnabled {
		learner = learn.NewEnabled(cfg.LearnerRingSize)
	}
	return &Engine{
		cfg:         cfg,
		backend:     be,
		logger:      logger,
		volumes:     map[string]model.Volume{},
		insertOrder: map[string]int{},
		accessStats: map[string]model.AccessStats{},
		topicIdx:    index.NewTopicIndex(),
		metaIdx:     index.NewMetadataIndex(),
		magCache:    index.NewMagnitudeCache(),
		invIdx:      index.NewInvertedIndex(),
		learner:     learner,
		loaded:      make(chan struct{}),
	}
}

// Load reads the backend, decodes every record, and rebuilds all indexes.
// Idempotent: concurrent callers share one in-flight load, per SPEC_FULL.md
// §4.9's table.
func (e *Engine) Load(ctx context.Context) error {
	e.loadOnce.Do(func() {
		e.loadErr = e.doLoad(ctx)
		if e.loadErr == nil {
			e.startFlushTimer(ctx)
		}
		close(e.loaded)
	})
	<-e.loaded
	return e.loadErr
}

func (e *Engine) doLoad(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	raw, err := e.backend.Load(ctx)
	if err != nil {
		return wrapError("load", ErrCorruption)
	}

	corrupt := 0
	for key, data := range raw {
		if key == "__learning" {
			snap, err := codec.DecodeLearningSnapshot(data)
			if err != nil {
				corrupt++
				continue
			}
			e.learner.LoadSnapshot(snap)
			continue
		}
		v, stats, err := codec.Decode(key, data)
		if err != nil {
			corrupt++
			continue
		}
		e.insertVolumeLocked(v, stats)
	}

	valid := make(map[string]struct{}, len(e.volumes))
	for id := range e.volumes {
		valid[id] = struct{}{}
	}
	e.learner.PruneEntries(valid)

	e.state = StateReady
	if corrupt > 0 {
		e.logger.Warn("engine: skipped corrupt records on load", "count", corrupt)
		e.dirty = true
	}
	return nil
}

// insertVolumeLocked adds v to every index. Caller must hold mu for write.
func (e *Engine) insertVolumeLocked(v model.Volume, stats model.AccessStats) {
	e.volumes[v.ID] = v
	e.insertOrder[v.ID] = e.nextOrder
	e.nextOrder++
	e.accessStats[v.ID] = stats
	e.topicIdx.Add(v.Topic(), v.ID)
	for k, val := range v.Metadata {
		e.metaIdx.Add(v.ID, map[string]string{k: val})
	}
	e.magCache.Add(v.ID, v.Embedding)
	e.invIdx.Add(v.ID, v.Text)
}

// removeVolumeLocked removes v from every index. Caller must hold mu for write.
func (e *Engine) removeVolumeLocked(v model.Volume) {
	delete(e.volumes, v.ID)
	delete(e.insertOrder, v.ID)
	delete(e.accessStats, v.ID)
	e.topicIdx.Remove(v.Topic(), v.ID)
	e.metaIdx.Remove(v.ID, v.Metadata)
	e.magCache.Remove(v.ID)
	e.invIdx.Remove(v.ID, v.Text)
}

func (e *Engine) requireReady() error {
	if e.state != StateReady {
		return wrapError("", ErrNotLoaded)
	}
	return nil
}

// Save encodes the live volume set and learner snapshot and atomically
// replaces the backend's durable state. Serialized through the save chain
// (saveMu): a failed save simply returns its error, and the next call
// retries from the current (possibly still dirty) state.
func (e *Engine) Save(ctx context.Context) error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	e.mu.RLock()
	if e.state != StateReady {
		e.mu.RUnlock()
		return wrapError("save", ErrNotLoaded)
	}
	data := make(map[string][]byte, len(e.volumes)+1)
	for id, v := range e.volumes {
		rec, err := codec.Encode(v, e.accessStats[id])
		if err != nil {
			e.mu.RUnlock()
			return wrapError("save", err)
		}
		data[id] = rec
	}
	learningData, err := codec.EncodeLearningSnapshot(e.learner.Snapshot())
	if err != nil {
		e.mu.RUnlock()
		return wrapError("save", err)
	}
	if len(learningData) > 0 {
		data["__learning"] = learningData
	}
	e.mu.RUnlock()

	if err := e.backend.Save(ctx, data); err != nil {
		return wrapError("save", err)
	}

	e.mu.Lock()
	e.dirty = false
	e.mu.Unlock()
	return nil
}

func (e *Engine) saveIfDirty(ctx context.Context) {
	e.mu.RLock()
	dirty := e.dirty
	e.mu.RUnlock()
	if !dirty {
		return
	}
	if err := e.Save(ctx); err != nil {
		e.logger.Warn("engine: background flush failed", "error", err)
	}
}

// Dispose drains the write lock, awaits the save chain, and runs one final
// save if dirty, then closes the backend.
func (e *Engine) Dispose(ctx context.Context) error {
	e.stopFlushTimer()

	e.mu.Lock()
	dirty := e.dirty
	state := e.state
	e.mu.Unlock()

	if state == StateReady && dirty {
		if err := e.Save(ctx); err != nil {
			e.logger.Warn("engine: final save on dispose failed", "error", err)
		}
	}

	e.mu.Lock()
	e.state = StateClosed
	e.mu.Unlock()

	return e.backend.Close()
}

// Add validates, (optionally) checks for a duplicate, and inserts a new
// volume, all inside the write lock.
func (e *Engine) Add(ctx context.Context, text string, embedding []float32, metadata map[string]string) (string, error) {
	if text == "" {
		return "", wrapError("add", ErrEmptyText)
	}
	if len(embedding) == 0 {
		return "", wrapError("add", ErrEmptyEmbedding)
	}

	e.mu.Lock()

	if err := e.requireReady(); err != nil {
		e.mu.Unlock()
		return "", wrapError("add", err.(*StoreError).Err)
	}

	if e.cfg.DuplicateThreshold > 0 {
		existing := make([]model.Volume, 0, len(e.volumes))
		for _, v := range e.volumes {
			existing = append(existing, v)
		}
		if match, found := dedup.CheckDuplicate(embedding, existing, e.cfg.DuplicateThreshold); found {
			switch e.cfg.DuplicateBehavior {
			case DuplicateSkip:
				e.mu.Unlock()
				return match.ID, nil
			case DuplicateError:
				e.mu.Unlock()
				return "", wrapError("add", ErrDuplicate)
			case DuplicateWarn:
				e.logger.Warn("engine: duplicate volume inserted", "existingID", match.ID)
			}
		}
	}

	v := model.Volume{
		ID:        uuid.New().String(),
		Text:      text,
		Embedding: append([]float32(nil), embedding...),
		Metadata:  cloneMetadata(metadata),
		Timestamp: time.Now().UnixMilli(),
	}
	e.insertVolumeLocked(v, model.AccessStats{})
	e.dirty = true
	e.mu.Unlock()

	e.maybeAutoSave(ctx)
	return v.ID, nil
}

// AddBatch validates every item before mutating any state, per
// SPEC_FULL.md §4.9's "all validated before any mutation" constraint. It
// also plans every insertion (including duplicate checks) before calling
// insertVolumeLocked for any of them, so a DuplicateError partway through
// the batch leaves zero items from this call visible: the whole batch
// commits or none of it does.
func (e *Engine) AddBatch(ctx context.Context, items []AddItem) ([]string, error) {
	for _, it := range items {
		if it.Text == "" {
			return nil, wrapError("addBatch", ErrEmptyText)
		}
		if len(it.Embedding) == 0 {
			return nil, wrapError("addBatch", ErrEmptyEmbedding)
		}
	}

	e.mu.Lock()

	if err := e.requireReady(); err != nil {
		e.mu.Unlock()
		return nil, wrapError("addBatch", err.(*StoreError).Err)
	}

	existing := make([]model.Volume, 0, len(e.volumes)+len(items))
	for _, v := range e.volumes {
		existing = append(existing, v)
	}

	type planned struct {
		volume model.Volume
		dupID  string
		isDup  bool
	}
	plan := make([]planned, 0, len(items))
	for _, it := range items {
		if e.cfg.DuplicateThreshold > 0 {
			if match, found := dedup.CheckDuplicate(it.Embedding, existing, e.cfg.DuplicateThreshold); found {
				switch e.cfg.DuplicateBehavior {
				case DuplicateSkip:
					plan = append(plan, planned{isDup: true, dupID: match.ID})
					continue
				case DuplicateError:
					e.mu.Unlock()
					return nil, wrapError("addBatch", ErrDuplicate)
				case DuplicateWarn:
					e.logger.Warn("engine: duplicate volume inserted", "existingID", match.ID)
				}
			}
		}
		v := model.Volume{
			ID:        uuid.New().String(),
			Text:      it.Text,
			Embedding: append([]float32(nil), it.Embedding...),
			Metadata:  cloneMetadata(it.Metadata),
			Timestamp: time.Now().UnixMilli(),
		}
		existing = append(existing, v)
		plan = append(plan, planned{volume: v})
	}

	ids := make([]string, len(plan))
	inserted := false
	for i, p := range plan {
		if p.isDup {
			ids[i] = p.dupID
			continue
		}
		e.insertVolumeLocked(p.volume, model.AccessStats{})
		ids[i] = p.volume.ID
		inserted = true
	}
	if inserted {
		e.dirty = true
	}
	e.mu.Unlock()

	e.maybeAutoSave(ctx)
	return ids, nil
}

// AddItem is one element of an AddBatch call.
type AddItem struct {
	Text      string
	Embedding []float32
	Metadata  map[string]string
}

// Delete removes a volume by id, returning whether it was present.
func (e *Engine) Delete(ctx context.Context, id string) (bool, error) {
	e.mu.Lock()

	if err := e.requireReady(); err != nil {
		e.mu.Unlock()
		return false, wrapError("delete", err.(*StoreError).Err)
	}
	v, ok := e.volumes[id]
	if !ok {
		e.mu.Unlock()
		return false, nil
	}
	e.removeVolumeLocked(v)
	e.dirty = true
	e.mu.Unlock()

	e.maybeAutoSave(ctx)
	return true, nil
}

// DeleteBatch removes each id present in the store, returning the count removed.
func (e *Engine) DeleteBatch(ctx context.Context, ids []string) (int, error) {
	e.mu.Lock()

	if err := e.requireReady(); err != nil {
		e.mu.Unlock()
		return 0, wrapError("deleteBatch", err.(*StoreError).Err)
	}
	count := 0
	for _, id := range ids {
		if v, ok := e.volumes[id]; ok {
			e.removeVolumeLocked(v)
			count++
		}
	}
	if count > 0 {
		e.dirty = true
	}
	e.mu.Unlock()

	if count > 0 {
		e.maybeAutoSave(ctx)
	}
	return count, nil
}

// Clear removes every volume and all learning state.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()

	if err := e.requireReady(); err != nil {
		e.mu.Unlock()
		return wrapError("clear", err.(*StoreError).Err)
	}
	e.volumes = map[string]model.Volume{}
	e.insertOrder = map[string]int{}
	e.accessStats = map[string]model.AccessStats{}
	e.topicIdx.Clear()
	e.metaIdx.Clear()
	e.magCache.Clear()
	e.invIdx.Clear()
	if e.cfg.LearnerEnabled {
		e.learner = learn.NewEnabled(e.cfg.LearnerRingSize)
	}
	e.dirty = true
	e.mu.Unlock()

	e.maybeAutoSave(ctx)
	return nil
}

// maybeAutoSave runs a save if Config.AutoSave is set. Call this only
// after releasing mu.
func (e *Engine) maybeAutoSave(ctx context.Context) {
	if e.cfg.AutoSave {
		if err := e.Save(ctx); err != nil {
			e.logger.Warn("engine: autosave failed", "error", err)
		}
	}
}

// nowOr returns ts if it is set, else the current time in ms since epoch.
func nowOr(ts int64) int64 {
	if ts != 0 {
		return ts
	}
	return time.Now().UnixMilli()
}

func cloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

