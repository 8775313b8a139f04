package index

import "github.com/shmor3/simse/internal/score"

// InvertedIndex maps lowercased, punctuation-stripped tokens to the ids of
// volumes whose text contains them, and tracks the per-document term
// frequencies and lengths BM25 needs.
type InvertedIndex struct {
	postings  map[string]map[string]struct{}
	termFreq  map[string]map[string]int // id -> token -> count
	docLen    map[string]int
	totalLen  int64
}

func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{
		postings: map[string]map[string]struct{}{},
		termFreq: map[string]map[string]int{},
		docLen:   map[string]int{},
	}
}

func (idx *InvertedIndex) Add(id, text string) {
	tokens := score.Tokenize(text)
	freq := map[string]int{}
	for _, tok := range tokens {
		freq[tok]++
		set, ok := idx.postings[tok]
		if !ok {
			set = map[string]struct{}{}
			idx.postings[tok] = set
		}
		set[id] = struct{}{}
	}
	idx.termFreq[id] = freq
	idx.docLen[id] = len(tokens)
	idx.totalLen += int64(len(tokens))
}

func (idx *InvertedIndex) Remove(id, text string) {
	tokens := score.Tokenize(text)
	seen := map[string]struct{}{}
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if set, ok := idx.postings[tok]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(idx.postings, tok)
			}
		}
	}
	idx.totalLen -= int64(idx.docLen[id])
	delete(idx.termFreq, id)
	delete(idx.docLen, id)
}

// Candidates returns the union of ids indexed under any of the given tokens.
func (idx *InvertedIndex) Candidates(tokens []string) []string {
	seen := map[string]struct{}{}
	for _, tok := range tokens {
		for id := range idx.postings[tok] {
			seen[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out
}

// DocFreq returns the number of documents containing token.
func (idx *InvertedIndex) DocFreq(token string) int {
	return len(idx.postings[token])
}

// Corpus returns the BM25 statistics derived from the current index state.
func (idx *InvertedIndex) Corpus() score.Corpus {
	n := len(idx.docLen)
	avg := 0.0
	if n > 0 {
		avg = float64(idx.totalLen) / float64(n)
	}
	docFreq := make(map[string]int, len(idx.postings))
	for tok, set := range idx.postings {
		docFreq[tok] = len(set)
	}
	return score.Corpus{AvgDocLen: avg, DocFreq: docFreq, NumDocs: n}
}

func (idx *InvertedIndex) TermFreq(id string) map[string]int {
	return idx.termFreq[id]
}

func (idx *InvertedIndex) DocLen(id string) int {
	return idx.docLen[id]
}

func (idx *InvertedIndex) Clear() {
	idx.postings = map[string]map[string]struct{}{}
	idx.termFreq = map[string]map[string]int{}
	idx.docLen = map[string]int{}
	idx.totalLen = 0
}
