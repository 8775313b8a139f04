package query

import (
	"testing"

	"github.com/shmor3/simse/internal/model"
)

// S4 from SPEC_FULL.md §8: parse topic:work metadata:pri=high "urgent fix" score>0.6
func TestParseS4Scenario(t *testing.T) {
	got := Parse(`topic:work metadata:pri=high "urgent fix" score>0.6`)

	if len(got.TopicFilter) != 1 || got.TopicFilter[0] != "work" {
		t.Errorf("TopicFilter = %v, want [work]", got.TopicFilter)
	}
	if len(got.MetadataFilters) != 1 || got.MetadataFilters[0] != (model.MetadataFilter{Key: "pri", Value: "high", Op: "eq"}) {
		t.Errorf("MetadataFilters = %v", got.MetadataFilters)
	}
	if got.TextSearch.Mode != model.TextModeExact || got.TextSearch.Query != "urgent fix" {
		t.Errorf("TextSearch = %+v, want exact 'urgent fix'", got.TextSearch)
	}
	if !got.HasMinScore || got.MinScore != 0.6 {
		t.Errorf("MinScore = %v (has=%v), want 0.6", got.MinScore, got.HasMinScore)
	}
}

func TestParsePlainTextJoinsIntoBM25(t *testing.T) {
	got := Parse("hello world")
	if got.TextSearch.Mode != model.TextModeBM25 || got.TextSearch.Query != "hello world" {
		t.Errorf("TextSearch = %+v, want bm25 'hello world'", got.TextSearch)
	}
}

func TestParseUnterminatedQuoteConsumesTail(t *testing.T) {
	got := Parse(`"unterminated tail here`)
	if got.TextSearch.Query == "" {
		t.Errorf("expected unterminated quote to be captured, got %+v", got.TextSearch)
	}
}

func TestParseFuzzyPrefix(t *testing.T) {
	got := Parse("fuzzy~helo")
	if got.TextSearch.Mode != model.TextModeFuzzy || got.TextSearch.Query != "helo" {
		t.Errorf("TextSearch = %+v, want fuzzy 'helo'", got.TextSearch)
	}
}

func TestParseUnknownPrefixFallsBackToPlain(t *testing.T) {
	got := Parse("weird:thing")
	if got.TextSearch.Mode != model.TextModeBM25 || got.TextSearch.Query != "weird:thing" {
		t.Errorf("expected unknown prefix to fall back to plain bm25 text, got %+v", got.TextSearch)
	}
}
