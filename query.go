package simse

import (
	"github.com/shmor3/simse/internal/engine"
	"github.com/shmor3/simse/internal/index"
	"github.com/shmor3/simse/internal/query"
)

// Query parses raw against the DSL grammar from SPEC_FULL.md §6
// (topic:<path>, metadata:<k>=<v>, "quoted", fuzzy~<term>, score><float>,
// plain words) and runs the resulting topic/metadata filter plus text
// search through the engine's advanced search path. No embedding step:
// the DSL has no vector syntax, so ranking comes entirely from the text
// clause (BM25 by default).
func (s *Store) Query(raw string, maxResults int) ([]ScoredVolume, error) {
	parsed := query.Parse(raw)

	var clauses []*index.Expr
	for _, topic := range parsed.TopicFilter {
		clauses = append(clauses, index.Eq("topic", topic))
	}
	for _, f := range parsed.MetadataFilters {
		clauses = append(clauses, index.Eq(f.Key, f.Value))
	}
	var expr *index.Expr
	switch len(clauses) {
	case 0:
		expr = nil
	case 1:
		expr = clauses[0]
	default:
		expr = index.And(clauses...)
	}

	return s.engine.AdvancedSearch(engine.AdvancedSearchOptions{
		TextSearch:   parsed.TextSearch,
		MetadataExpr: expr,
		MinScore:     parsed.MinScore,
		MaxResults:   maxResults,
	})
}
