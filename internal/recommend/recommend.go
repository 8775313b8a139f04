// Package recommend implements the weighted recommendation scorer from
// SPEC_FULL.md §4.6. Grounded on pkg/core/reranker.go's HybridReranker
// (weighted multi-signal combination) and the deterministic tie-break
// sorting idiom used by rank-fusion rerankers across the pack.
package recommend

import (
	"math"
	"sort"
	"time"

	"github.com/shmor3/simse/internal/model"
	"github.com/shmor3/simse/internal/vecmath"
)

const defaultHalfLifeMs = 7 * 24 * 60 * 60 * 1000 // 7 days

// Candidate is a volume plus the access-stat inputs the scorer needs.
type Candidate struct {
	Volume model.Volume
	Stats  model.AccessStats
	Order  int // original insertion order, used as the tie-break
}

// BoostFunc supplies the adaptive learner's multiplicative boost for a
// candidate; pass a func returning 1.0 to disable boosting.
type BoostFunc func(id string, embedding []float32) float64

// Score ranks candidates per SPEC_FULL.md §4.6: weighted blend of cosine
// similarity, exponential recency decay, and normalized access frequency,
// optionally multiplied by a learner boost, filtered by MinScore, sorted
// descending, truncated to MaxResults.
func Score(candidates []Candidate, opts model.RecommendOptions, boost BoostFunc) []model.ScoredVolume {
	weights := opts.Weights.Normalize()
	halfLife := opts.HalfLife.Milliseconds()
	if halfLife <= 0 {
		halfLife = defaultHalfLifeMs
	}
	now := opts.Now
	if now == 0 {
		now = time.Now().UnixMilli()
	}

	maxAccess := uint32(0)
	for _, c := range candidates {
		if c.Stats.AccessCount > maxAccess {
			maxAccess = c.Stats.AccessCount
		}
	}

	type scored struct {
		sv    model.ScoredVolume
		order int
	}
	out := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		vec := 0.0
		if len(opts.QueryEmbedding) > 0 {
			vec = vecmath.CosineSimilarity(opts.QueryEmbedding, c.Volume.Embedding)
		}
		age := float64(now - c.Volume.Timestamp)
		if age < 0 {
			age = 0
		}
		rec := math.Exp(-math.Ln2 * age / float64(halfLife))
		freq := 0.0
		if maxAccess > 0 {
			freq = float64(c.Stats.AccessCount) / float64(maxAccess)
		}

		score := weights.Vector*vec + weights.Recent*rec + weights.Freq*freq
		if boost != nil {
			score *= boost(c.Volume.ID, c.Volume.Embedding)
		}
		if score < opts.MinScore {
			continue
		}
		out = append(out, scored{
			sv:    model.ScoredVolume{Volume: c.Volume, Score: score},
			order: c.Order,
		})
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
	}
	return result
}
