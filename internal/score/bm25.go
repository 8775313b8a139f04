package score

import "math"

// BM25K1 and BM25B are the Okapi BM25 constants fixed by SPEC_FULL.md §4.3.
const (
	BM25K1 = 1.2
	BM25B  = 0.75
)

// Corpus is the corpus-wide statistics BM25 needs from the inverted index:
// average document length, document frequency per token, and document
// count. Per-document term frequencies and lengths are passed to BM25
// separately.
type Corpus struct {
	AvgDocLen float64
	DocFreq   map[string]int // token -> number of documents containing it
	NumDocs   int
}

// BM25 scores a single document's token frequency map against a query's
// tokens, using k1=1.2, b=0.75. Tokens unseen in the corpus contribute 0,
// matching SPEC_FULL.md §4.3. The engine's TextSearch min-max normalizes
// the resulting scores per query; AdvancedSearch uses them unnormalized.
func BM25(queryTokens []string, docTermFreq map[string]int, docLen int, corpus Corpus) float64 {
	if corpus.NumDocs == 0 || docLen == 0 {
		return 0
	}
	var score float64
	for _, term := range queryTokens {
		df := corpus.DocFreq[term]
		if df == 0 {
			continue
		}
		tf := float64(docTermFreq[term])
		if tf == 0 {
			continue
		}
		idf := math.Log(1 + (float64(corpus.NumDocs)-float64(df)+0.5)/(float64(df)+0.5))
		denom := tf + BM25K1*(1-BM25B+BM25B*float64(docLen)/corpus.AvgDocLen)
		score += idf * (tf * (BM25K1 + 1) / denom)
	}
	return score
}

// MinMaxNormalize rescales raw scores into [0, 1]; an all-equal input maps
// to all zeros.
func MinMaxNormalize(scores []float64) []float64 {
	if len(scores) == 0 {
		return scores
	}
	min, max := scores[0], scores[0]
	for _, s := range scores {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	out := make([]float64, len(scores))
	if max == min {
		return out
	}
	for i, s := range scores {
		out[i] = (s - min) / (max - min)
	}
	return out
}
