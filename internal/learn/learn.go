// Package learn implements the adaptive learning engine from
// SPEC_FULL.md §4.7 as a sum type: Disabled (no-op) and Enabled (full
// EMA/ring-buffer state). No teacher file implements EMA-over-embeddings
// relevance learning; the Disabled/Enabled swappable-strategy shape
// mirrors pkg/core/reranker.go's Reranker interface with its function-value
// and no-op-capable implementations.
package learn

import (
	"math"

	"github.com/shmor3/simse/internal/model"
	"github.com/shmor3/simse/internal/vecmath"
)

const (
	defaultAlpha = 0.05 // EMA smoothing for the interest embedding
	defaultBeta  = 0.15 // boost weight on cosine(interest, candidate)
	defaultGamma = 0.1  // boost weight on relevance share
	maxShift     = 0.1  // cap on adapted-weight deltas
)

// Learner is the common interface for Disabled and Enabled.
type Learner interface {
	RecordQuery(query []float32, resultIDs []string, now int64)
	GetAdaptedWeights(defaults model.RecommendWeights) model.RecommendWeights
	ComputeBoost(id string, embedding []float32) float64
	PruneEntries(validIDs map[string]struct{})
	Snapshot() model.LearningSnapshot
	LoadSnapshot(model.LearningSnapshot)
}

// Disabled is the no-op learner variant: every operation is a no-op
// returning defaults or 1.0, and it carries no state to persist.
type Disabled struct{}

func (Disabled) RecordQuery([]float32, []string, int64)                    {}
func (Disabled) GetAdaptedWeights(d model.RecommendWeights) model.RecommendWeights { return d }
func (Disabled) ComputeBoost(string, []float32) float64                    { return 1.0 }
func (Disabled) PruneEntries(map[string]struct{})                          {}
func (Disabled) Snapshot() model.LearningSnapshot                          { return model.LearningSnapshot{} }
func (Disabled) LoadSnapshot(model.LearningSnapshot)                       {}

// Enabled is the full adaptive learner described in §4.7.
type Enabled struct {
	ringSize  int
	ring      []model.LearnedQuery
	interest  []float32
	relevance map[string]uint64
	alpha     float64
	beta      float64
	gamma     float64
}

// NewEnabled constructs an Enabled learner with the spec's default
// constants. ringSize <= 0 falls back to 200.
func NewEnabled(ringSize int) *Enabled {
	if ringSize <= 0 {
		ringSize = 200
	}
	return &Enabled{
		ringSize:  ringSize,
		relevance: map[string]uint64{},
		alpha:     defaultAlpha,
		beta:      defaultBeta,
		gamma:     defaultGamma,
	}
}

func (e *Enabled) RecordQuery(query []float32, resultIDs []string, now int64) {
	e.ring = append(e.ring, model.LearnedQuery{
		Embedding: append([]float32(nil), query...),
		ResultIDs: append([]string(nil), resultIDs...),
		Timestamp: now,
	})
	if len(e.ring) > e.ringSize {
		e.ring = e.ring[len(e.ring)-e.ringSize:]
	}

	norm := vecmath.Normalize(query)
	if e.interest == nil {
		e.interest = norm
	} else if len(e.interest) == len(norm) {
		mixed := make([]float32, len(norm))
		for i := range norm {
			mixed[i] = float32(e.alpha*float64(norm[i]) + (1-e.alpha)*float64(e.interest[i]))
		}
		e.interest = vecmath.Normalize(mixed)
	}

	for _, id := range resultIDs {
		e.relevance[id]++
	}
}

// GetAdaptedWeights shifts the defaults toward vector similarity when the
// interest embedding strongly agrees with recent queries, or toward
// frequency when relevance counts are concentrated in a few ids — both
// shifts capped at maxShift.
func (e *Enabled) GetAdaptedWeights(defaults model.RecommendWeights) model.RecommendWeights {
	if len(e.ring) == 0 || e.interest == nil {
		return defaults
	}

	queries := make([][]float32, len(e.ring))
	for i, q := range e.ring {
		queries[i] = q.Embedding
	}
	meanQuery := vecmath.Mean(queries)
	vectorAgreement := vecmath.CosineSimilarity(e.interest, meanQuery) // in [-1, 1]
	vectorShift := clamp(vectorAgreement, 0, 1) * maxShift

	freqConcentration := e.topRelevanceConcentration()
	freqShift := freqConcentration * maxShift

	out := defaults
	out.Vector += vectorShift
	out.Freq += freqShift
	out.Recent -= vectorShift + freqShift
	if out.Recent < 0 {
		out.Recent = 0
	}
	return out.Normalize()
}

// topRelevanceConcentration reports how dominant the top relevance counter
// is relative to the sum of all counters, in [0, 1].
func (e *Enabled) topRelevanceConcentration() float64 {
	if len(e.relevance) == 0 {
		return 0
	}
	var total, top uint64
	for _, c := range e.relevance {
		total += c
		if c > top {
			top = c
		}
	}
	if total == 0 {
		return 0
	}
	return float64(top) / float64(total)
}

// ComputeBoost returns 1 + beta*cosine(interest, embedding) +
// gamma*(relevance[id]/maxRelevance), clipped to [0.5, 1.5].
func (e *Enabled) ComputeBoost(id string, embedding []float32) float64 {
	boost := 1.0
	if e.interest != nil {
		boost += e.beta * vecmath.CosineSimilarity(e.interest, embedding)
	}
	if max := e.maxRelevance(); max > 0 {
		boost += e.gamma * (float64(e.relevance[id]) / float64(max))
	}
	return clamp(boost, 0.5, 1.5)
}

func (e *Enabled) maxRelevance() uint64 {
	var max uint64
	for _, c := range e.relevance {
		if c > max {
			max = c
		}
	}
	return max
}

// PruneEntries drops relevance entries for ids no longer present in the
// store; called after load.
func (e *Enabled) PruneEntries(validIDs map[string]struct{}) {
	for id := range e.relevance {
		if _, ok := validIDs[id]; !ok {
			delete(e.relevance, id)
		}
	}
}

func (e *Enabled) Snapshot() model.LearningSnapshot {
	return model.LearningSnapshot{
		Enabled:   true,
		Ring:      append([]model.LearnedQuery(nil), e.ring...),
		RingSize:  e.ringSize,
		Interest:  append([]float32(nil), e.interest...),
		Relevance: copyRelevance(e.relevance),
	}
}

func (e *Enabled) LoadSnapshot(s model.LearningSnapshot) {
	if !s.Enabled {
		return
	}
	e.ring = append([]model.LearnedQuery(nil), s.Ring...)
	if s.RingSize > 0 {
		e.ringSize = s.RingSize
	}
	e.interest = append([]float32(nil), s.Interest...)
	e.relevance = copyRelevance(s.Relevance)
	if e.relevance == nil {
		e.relevance = map[string]uint64{}
	}
}

func copyRelevance(m map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
