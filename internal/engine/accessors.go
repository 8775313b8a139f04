package engine

import (
	"sort"

	"github.com/shmor3/simse/internal/model"
)

// GetAll returns every volume, sorted by insertion order.
func (e *Engine) GetAll() ([]model.Volume, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.requireReady(); err != nil {
		return nil, wrapError("getAll", err.(*StoreError).Err)
	}
	out := make([]model.Volume, 0, len(e.volumes))
	for _, v := range e.volumes {
		out = append(out, v.Clone())
	}
	e.sortByInsertOrder(out)
	return out, nil
}

// GetByID returns a single volume, or ErrNotFound. Every successful lookup
// increments the volume's access stats, per SPEC_FULL.md's "incremented on
// any direct retrieval" rule.
func (e *Engine) GetByID(id string) (model.Volume, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireReady(); err != nil {
		return model.Volume{}, wrapError("getByID", err.(*StoreError).Err)
	}
	v, ok := e.volumes[id]
	if !ok {
		return model.Volume{}, wrapError("getByID", ErrNotFound)
	}
	stats := e.accessStats[id]
	stats.AccessCount++
	stats.LastAccessed = nowOr(0)
	e.accessStats[id] = stats
	e.dirty = true
	return v.Clone(), nil
}

// GetTopics returns every topic that has volumes filed under it, plus the
// "/"-separated ancestor paths of those topics, sorted.
func (e *Engine) GetTopics() ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.requireReady(); err != nil {
		return nil, wrapError("getTopics", err.(*StoreError).Err)
	}
	topics := e.topicIdx.Topics()
	sort.Strings(topics)
	return topics, nil
}

// FilterByTopic returns every volume filed directly under topic.
func (e *Engine) FilterByTopic(topic string) ([]model.Volume, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.requireReady(); err != nil {
		return nil, wrapError("filterByTopic", err.(*StoreError).Err)
	}
	ids := e.topicIdx.IDs(topic)
	out := make([]model.Volume, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.volumes[id].Clone())
	}
	e.sortByInsertOrder(out)
	return out, nil
}

// Size returns the number of live volumes.
func (e *Engine) Size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.volumes)
}

// IsDirty reports whether unsaved mutations exist.
func (e *Engine) IsDirty() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dirty
}

// LearningProfile exposes the adaptive learner's persisted snapshot for
// diagnostics and testing.
func (e *Engine) LearningProfile() model.LearningSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.learner.Snapshot()
}
