package index

// kv is a (key, value) pair used as a map key into the metadata equality index.
type kv struct {
	Key, Value string
}

// MetadataIndex accelerates equality lookups over flat metadata; richer
// predicates fall back to a full scan via the Evaluator in filter.go.
type MetadataIndex struct {
	byPair map[kv]map[string]struct{}
}

func NewMetadataIndex() *MetadataIndex {
	return &MetadataIndex{byPair: map[kv]map[string]struct{}{}}
}

func (m *MetadataIndex) Add(id string, metadata map[string]string) {
	for k, v := range metadata {
		pair := kv{k, v}
		set, ok := m.byPair[pair]
		if !ok {
			set = map[string]struct{}{}
			m.byPair[pair] = set
		}
		set[id] = struct{}{}
	}
}

func (m *MetadataIndex) Remove(id string, metadata map[string]string) {
	for k, v := range metadata {
		pair := kv{k, v}
		set, ok := m.byPair[pair]
		if !ok {
			continue
		}
		delete(set, id)
		if len(set) == 0 {
			delete(m.byPair, pair)
		}
	}
}

// Equals returns the ids whose metadata[key] == value.
func (m *MetadataIndex) Equals(key, value string) []string {
	set := m.byPair[kv{key, value}]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

func (m *MetadataIndex) Clear() {
	m.byPair = map[kv]map[string]struct{}{}
}
