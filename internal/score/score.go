// Package score implements the lexical scorers from SPEC_FULL.md §4.3.
// text_similarity.go in the teacher repo defines a TextSimilarity interface
// but ships no implementation anywhere in the pack, so these are written
// fresh, kept in the teacher's idiom of small top-level scoring functions
// (compare similarity.go's CosineSimilarity/DotProduct style).
package score

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// DefaultFuzzyThreshold is the default acceptance threshold for Fuzzy.
const DefaultFuzzyThreshold = 0.3

// DefaultMaxRegexPatternLength guards against pathological ReDoS inputs.
const DefaultMaxRegexPatternLength = 256

// Fuzzy computes the subsequence-ratio score: the longest run of query
// characters found in candidate order (not necessarily contiguous),
// divided by the query length. Comparison is case-insensitive.
func Fuzzy(query, candidate string) float64 {
	q := []rune(strings.ToLower(query))
	c := []rune(strings.ToLower(candidate))
	if len(q) == 0 {
		return 0
	}
	// Longest common subsequence length, one DP row at a time.
	prev := make([]int, len(c)+1)
	for _, qr := range q {
		cur := make([]int, len(c)+1)
		for j, cr := range c {
			if qr == cr {
				cur[j+1] = prev[j] + 1
			} else {
				cur[j+1] = max(prev[j+1], cur[j])
			}
		}
		prev = cur
	}
	return float64(prev[len(c)]) / float64(len(q))
}

// Substring reports 1 if candidate contains query (case-insensitive), else 0.
func Substring(query, candidate string) float64 {
	if strings.Contains(strings.ToLower(candidate), strings.ToLower(query)) {
		return 1
	}
	return 0
}

// Exact reports 1 if query equals candidate exactly, else 0.
func Exact(query, candidate string) float64 {
	if query == candidate {
		return 1
	}
	return 0
}

// regexCache memoizes compiled patterns across searches, guarded by a
// sync.RWMutex the way the engine guards its own indexes.
var regexCache = struct {
	mu sync.RWMutex
	m  map[string]*regexp.Regexp
}{m: map[string]*regexp.Regexp{}}

// Regex compiles pattern once (cached) and reports 1 if it matches
// candidate, 0 otherwise. Patterns longer than maxLen, or that fail to
// compile, score 0 rather than erroring — callers that need to surface the
// rejection should check len(pattern) > maxLen themselves.
func Regex(pattern, candidate string, maxLen int) float64 {
	if maxLen <= 0 {
		maxLen = DefaultMaxRegexPatternLength
	}
	if len(pattern) > maxLen {
		return 0
	}
	regexCache.mu.RLock()
	re, ok := regexCache.m[pattern]
	regexCache.mu.RUnlock()
	if !ok {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return 0
		}
		regexCache.mu.Lock()
		regexCache.m[pattern] = compiled
		regexCache.mu.Unlock()
		re = compiled
	}
	if re.MatchString(candidate) {
		return 1
	}
	return 0
}

// tokenize lowercases and splits on whitespace/punctuation, fixing the
// spec's open question on BM25 tokenization.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
}

// Tokenize exposes tokenize for the inverted index (C4), which must split
// volume text identically to the scorers that consume it.
func Tokenize(s string) []string {
	return tokenize(s)
}

// Token computes normalized set-intersection size over the tokens of query
// and candidate: |tokens(query) ∩ tokens(candidate)| / |tokens(query)|.
func Token(query, candidate string) float64 {
	qTokens := tokenize(query)
	if len(qTokens) == 0 {
		return 0
	}
	cSet := map[string]struct{}{}
	for _, t := range tokenize(candidate) {
		cSet[t] = struct{}{}
	}
	qSet := map[string]struct{}{}
	for _, t := range qTokens {
		qSet[t] = struct{}{}
	}
	hit := 0
	for t := range qSet {
		if _, ok := cSet[t]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(qSet))
}
