// Package index implements the four derived indexes from SPEC_FULL.md §4.4:
// the topic index, the metadata equality index, the magnitude cache, and
// the inverted token index, plus an advanced predicate evaluator over flat
// metadata. Grounded on pkg/core/advanced_filter.go's MetadataFilter /
// evaluateFilter shape (there: SQL WHERE + in-memory post-filter; here:
// in-memory map index + post-filter, the same two-stage shape) and
// pkg/core/store.go's matchesFilter.
package index

import "strings"

// TopicIndex maps topic strings (path-like, "/"-separated) to member ids,
// with per-parent child counts so ancestors of an emptied topic prune
// lazily on Topics.
type TopicIndex struct {
	members     map[string]map[string]struct{}
	childCounts map[string]int
}

func NewTopicIndex() *TopicIndex {
	return &TopicIndex{
		members:     map[string]map[string]struct{}{},
		childCounts: map[string]int{},
	}
}

func (t *TopicIndex) Add(topic, id string) {
	set, ok := t.members[topic]
	if !ok {
		set = map[string]struct{}{}
		t.members[topic] = set
		t.bumpAncestors(topic, 1)
	}
	set[id] = struct{}{}
}

func (t *TopicIndex) Remove(topic, id string) {
	set, ok := t.members[topic]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(t.members, topic)
		t.bumpAncestors(topic, -1)
	}
}

func (t *TopicIndex) bumpAncestors(topic string, delta int) {
	parts := strings.Split(topic, "/")
	for i := len(parts) - 1; i > 0; i-- {
		ancestor := strings.Join(parts[:i], "/")
		t.childCounts[ancestor] += delta
		if t.childCounts[ancestor] <= 0 {
			delete(t.childCounts, ancestor)
		}
	}
}

// IDs returns the ids filed directly under topic (no prefix matching).
func (t *TopicIndex) IDs(topic string) []string {
	set := t.members[topic]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Topics lists every live topic (has members or live descendants).
func (t *TopicIndex) Topics() []string {
	seen := map[string]struct{}{}
	for topic, set := range t.members {
		if len(set) > 0 {
			seen[topic] = struct{}{}
		}
	}
	for topic, count := range t.childCounts {
		if count > 0 {
			seen[topic] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for topic := range seen {
		out = append(out, topic)
	}
	return out
}

func (t *TopicIndex) Clear() {
	t.members = map[string]map[string]struct{}{}
	t.childCounts = map[string]int{}
}
