// Package query implements the tiny DSL parser from SPEC_FULL.md §4.8/§6.
// Grounded on pkg/core/advanced_filter.go's ParseFilterString for the
// general tokenize-then-build-struct parser shape, and its FilterOperator
// constants for the score> comparison naming.
package query

import (
	"strconv"
	"strings"

	"github.com/shmor3/simse/internal/model"
)

// tokenize splits the raw query string into tokens, preserving
// double-quoted runs as single tokens. An unterminated quote consumes the
// remainder of the input as one token, per SPEC_FULL.md §4.8.
func tokenize(raw string) []string {
	var tokens []string
	var cur strings.Builder
	inQuote := false

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '"':
			if inQuote {
				cur.WriteByte(c)
				tokens = append(tokens, cur.String())
				cur.Reset()
				inQuote = false
			} else {
				flush()
				cur.WriteByte(c)
				inQuote = true
			}
		case c == ' ' && !inQuote:
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return tokens
}

// Parse tokenizes and classifies raw per the DSL grammar in SPEC_FULL.md
// §6, returning a frozen ParsedQuery. Unknown prefixes and any unprefixed
// tokens join with spaces into the default (BM25) text search, unless a
// quoted (exact) or fuzzy~ clause is present, in which case they are
// dropped.
func Parse(raw string) model.ParsedQuery {
	var out model.ParsedQuery
	var plainWords []string

	for _, tok := range tokenize(raw) {
		switch {
		case strings.HasPrefix(tok, "topic:"):
			path := strings.TrimPrefix(tok, "topic:")
			if path != "" {
				out.TopicFilter = append(out.TopicFilter, path)
			}
		case strings.HasPrefix(tok, "metadata:"):
			rest := strings.TrimPrefix(tok, "metadata:")
			if k, v, ok := strings.Cut(rest, "="); ok {
				out.MetadataFilters = append(out.MetadataFilters, model.MetadataFilter{Key: k, Value: v, Op: "eq"})
			}
		case strings.HasPrefix(tok, "fuzzy~"):
			term := strings.TrimPrefix(tok, "fuzzy~")
			if out.TextSearch.Mode != model.TextModeExact {
				out.TextSearch = model.TextSearchClause{Mode: model.TextModeFuzzy, Query: term}
			}
		case strings.HasPrefix(tok, "score>"):
			if f, err := strconv.ParseFloat(strings.TrimPrefix(tok, "score>"), 64); err == nil {
				out.MinScore = f
				out.HasMinScore = true
			}
		case len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"':
			phrase := strings.Trim(tok, `"`)
			out.TextSearch = model.TextSearchClause{Mode: model.TextModeExact, Query: phrase}
		default:
			plainWords = append(plainWords, tok)
		}
	}

	if len(plainWords) > 0 && out.TextSearch.Mode != model.TextModeExact {
		joined := strings.Join(plainWords, " ")
		if out.TextSearch.Mode == model.TextModeFuzzy {
			// a bare fuzzy~ term already set the clause; leftover plain
			// words still join into a BM25 clause only if fuzzy wasn't set.
		} else {
			out.TextSearch = model.TextSearchClause{Mode: model.TextModeBM25, Query: joined}
		}
	}

	return out
}
