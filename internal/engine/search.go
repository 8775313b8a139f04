package engine

import (
	"regexp"
	"sort"

	"github.com/shmor3/simse/internal/index"
	"github.com/shmor3/simse/internal/model"
	"github.com/shmor3/simse/internal/score"
	"github.com/shmor3/simse/internal/vecmath"
)

// Search ranks every volume by cosine similarity to query and returns the
// top maxResults with score >= threshold, highest first. Ties break by
// insertion order, matching Recommend's tie-break rule so both read paths
// behave the same under equal scores. Every returned result's access stats
// are incremented, and the query is recorded against the adaptive learner
// (C7), so repeated vector search is what trains Recommend's adapted
// weights and boosts. Recommend itself never trains the learner.
func (e *Engine) Search(query []float32, maxResults int, threshold float64) ([]model.ScoredVolume, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireReady(); err != nil {
		return nil, wrapError("search", err.(*StoreError).Err)
	}

	queryMag := vecmath.Magnitude(query)

	type scored struct {
		sv    model.ScoredVolume
		order int
	}
	out := make([]scored, 0, len(e.volumes))
	for id, v := range e.volumes {
		sim := e.cosine(query, queryMag, id, v.Embedding)
		if sim < threshold {
			continue
		}
		out = append(out, scored{sv: model.ScoredVolume{Volume: v.Clone(), Score: sim}, order: e.insertOrder[id]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].sv.Score != out[j].sv.Score {
			return out[i].sv.Score > out[j].sv.Score
		}
		return out[i].order < out[j].order
	})
	if maxResults > 0 && len(out) > maxResults {
		out = out[:maxResults]
	}
	result := make([]model.ScoredVolume, len(out))
	resultIDs := make([]string, len(out))
	for i, s := range out {
		result[i] = s.sv
		resultIDs[i] = s.sv.ID
		stats := e.accessStats[s.sv.ID]
		stats.AccessCount++
		stats.LastAccessed = nowOr(0)
		e.accessStats[s.sv.ID] = stats
	}
	if len(result) > 0 {
		e.learner.RecordQuery(query, resultIDs, nowOr(0))
		e.dirty = true
	}
	return result, nil
}

// TextSearch dispatches to the scorer named by mode, per SPEC_FULL.md §4.3.
// BM25 is computed against the live inverted index and min-max normalized
// across the candidate set before ranking; every other mode scores the full
// corpus directly. Results below minScore are dropped. A regex pattern
// longer than MaxRegexPatternLength, or one that does not compile, logs a
// warning and yields no results.
func (e *Engine) TextSearch(mode model.TextSearchMode, query string, minScore float64, k int) ([]model.ScoredVolume, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.requireReady(); err != nil {
		return nil, wrapError("textSearch", err.(*StoreError).Err)
	}

	var results []model.ScoredVolume

	switch mode {
	case model.TextModeBM25:
		tokens := score.Tokenize(query)
		corpus := e.invIdx.Corpus()
		ids := e.invIdx.Candidates(tokens)
		raw := make([]float64, len(ids))
		for i, id := range ids {
			raw[i] = score.BM25(tokens, e.invIdx.TermFreq(id), e.invIdx.DocLen(id), corpus)
		}
		norm := score.MinMaxNormalize(raw)
		for i, id := range ids {
			if norm[i] < minScore {
				continue
			}
			results = append(results, model.ScoredVolume{Volume: e.volumes[id].Clone(), Score: norm[i]})
		}
	case model.TextModeRegex:
		maxLen := e.cfg.MaxRegexPatternLength
		if maxLen <= 0 {
			maxLen = score.DefaultMaxRegexPatternLength
		}
		if len(query) > maxLen {
			e.logger.Warn("engine: regex search skipped", "error", ErrRegexRejected, "length", len(query), "max", maxLen)
			break
		}
		if _, err := regexp.Compile(query); err != nil {
			e.logger.Warn("engine: regex search skipped, invalid pattern", "error", err)
			break
		}
		for id, v := range e.volumes {
			s := score.Regex(query, v.Text, e.cfg.MaxRegexPatternLength)
			if s < minScore {
				continue
			}
			results = append(results, model.ScoredVolume{Volume: e.volumes[id].Clone(), Score: s})
		}
	default:
		fn := textScorerFor(mode)
		for id, v := range e.volumes {
			s := fn(query, v.Text)
			if s < minScore {
				continue
			}
			results = append(results, model.ScoredVolume{Volume: e.volumes[id].Clone(), Score: s})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return e.insertOrder[results[i].ID] < e.insertOrder[results[j].ID]
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func textScorerFor(mode model.TextSearchMode) func(query, candidate string) float64 {
	switch mode {
	case model.TextModeExact:
		return score.Exact
	case model.TextModeSubstring:
		return score.Substring
	case model.TextModeToken:
		return score.Token
	default:
		return score.Fuzzy
	}
}

// FilterByMetadata returns every volume whose metadata[key] == value.
func (e *Engine) FilterByMetadata(key, value string) ([]model.Volume, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.requireReady(); err != nil {
		return nil, wrapError("filterByMetadata", err.(*StoreError).Err)
	}
	ids := e.metaIdx.Equals(key, value)
	out := make([]model.Volume, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.volumes[id].Clone())
	}
	e.sortByInsertOrder(out)
	return out, nil
}

// FilterByAdvanced evaluates a predicate tree (C4's Evaluator) against
// every volume's metadata.
func (e *Engine) FilterByAdvanced(expr *index.Expr) ([]model.Volume, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.requireReady(); err != nil {
		return nil, wrapError("filterByAdvanced", err.(*StoreError).Err)
	}
	out := make([]model.Volume, 0)
	for _, v := range e.volumes {
		if index.Evaluate(expr, v.Metadata) {
			out = append(out, v.Clone())
		}
	}
	e.sortByInsertOrder(out)
	return out, nil
}

// FilterByDateRange returns every volume whose timestamp falls within r.
func (e *Engine) FilterByDateRange(r model.DateRange) ([]model.Volume, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.requireReady(); err != nil {
		return nil, wrapError("filterByDateRange", err.(*StoreError).Err)
	}
	out := make([]model.Volume, 0)
	for _, v := range e.volumes {
		if r.Contains(v.Timestamp) {
			out = append(out, v.Clone())
		}
	}
	e.sortByInsertOrder(out)
	return out, nil
}

// AdvancedSearch composes an optional vector query, text clause, metadata
// predicate, and date range into one ranked result set, per SPEC_FULL.md
// §4.4: the metadata predicate and date range act as hard filters, and a
// text clause drops every volume whose text score is 0. What remains is
// ranked by cosine similarity alone, by text score alone, or, when both a
// vector and a text clause are given, by 0.5*cosine + 0.5*text score. BM25
// text scores are used raw here, without per-query min-max normalization.
type AdvancedSearchOptions struct {
	QueryEmbedding []float32
	TextSearch     model.TextSearchClause
	MetadataExpr   *index.Expr
	DateRange      *model.DateRange
	MinScore       float64
	MaxResults     int
}

func (e *Engine) AdvancedSearch(opts AdvancedSearchOptions) ([]model.ScoredVolume, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireReady(); err != nil {
		return nil, wrapError("advancedSearch", err.(*StoreError).Err)
	}

	type scored struct {
		sv    model.ScoredVolume
		order int
	}
	var out []scored

	for id, v := range e.volumes {
		if opts.MetadataExpr != nil && !index.Evaluate(opts.MetadataExpr, v.Metadata) {
			continue
		}
		if opts.DateRange != nil && !opts.DateRange.Contains(v.Timestamp) {
			continue
		}

		var textScore float64
		hasText := opts.TextSearch.Mode != model.TextModeNone
		if hasText {
			if opts.TextSearch.Mode == model.TextModeRegex {
				textScore = score.Regex(opts.TextSearch.Query, v.Text, e.cfg.MaxRegexPatternLength)
			} else if opts.TextSearch.Mode == model.TextModeBM25 {
				tokens := score.Tokenize(opts.TextSearch.Query)
				textScore = score.BM25(tokens, e.invIdx.TermFreq(id), e.invIdx.DocLen(id), e.invIdx.Corpus())
			} else {
				textScore = textScorerFor(opts.TextSearch.Mode)(opts.TextSearch.Query, v.Text)
			}
			if textScore <= 0 {
				continue
			}
		}

		var finalScore float64
		hasVector := len(opts.QueryEmbedding) > 0
		switch {
		case hasVector && hasText:
			finalScore = 0.5*vecmath.CosineSimilarity(opts.QueryEmbedding, v.Embedding) + 0.5*textScore
		case hasVector:
			finalScore = e.cosine(opts.QueryEmbedding, vecmath.Magnitude(opts.QueryEmbedding), id, v.Embedding)
		case hasText:
			finalScore = textScore
		default:
			finalScore = 1
		}

		if finalScore < opts.MinScore {
			continue
		}
		out = append(out, scored{sv: model.ScoredVolume{Volume: v.Clone(), Score: finalScore}, order: e.insertOrder[id]})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].sv.Score != out[j].sv.Score {
			return out[i].sv.Score > out[j].sv.Score
		}
		return out[i].order < out[j].order
	})
	if opts.MaxResults > 0 && len(out) > opts.MaxResults {
		out = out[:opts.MaxResults]
	}
	result := make([]model.ScoredVolume, len(out))
	for i, s := range out {
		result[i] = s.sv
		stats := e.accessStats[s.sv.ID]
		stats.AccessCount++
		stats.LastAccessed = nowOr(0)
		e.accessStats[s.sv.ID] = stats
	}
	if len(result) > 0 {
		e.dirty = true
	}
	return result, nil
}

// cosine computes cosine similarity using the precomputed magnitude cache
// (C4's MagnitudeCache) for the stored side, avoiding a recompute per
// comparison during a full-corpus scan. Caller holds mu.
func (e *Engine) cosine(query []float32, queryMag float64, storedID string, stored []float32) float64 {
	if len(query) != len(stored) || len(query) == 0 || queryMag == 0 {
		return 0
	}
	storedMag, ok := e.magCache.Get(storedID)
	if !ok {
		storedMag = vecmath.Magnitude(stored)
	}
	if storedMag == 0 {
		return 0
	}
	sim := vecmath.DotProduct(query, stored) / (queryMag * storedMag)
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

// sortByInsertOrder sorts volumes by insertion order so unscored filter
// results are still deterministic. Caller holds mu.
func (e *Engine) sortByInsertOrder(vs []model.Volume) {
	sort.Slice(vs, func(i, j int) bool {
		return e.insertOrder[vs[i].ID] < e.insertOrder[vs[j].ID]
	})
}
