package engine

import (
	"github.com/shmor3/simse/internal/dedup"
	"github.com/shmor3/simse/internal/model"
	"github.com/shmor3/simse/internal/recommend"
)

// Recommend scores every volume through the weighted recommender (C6),
// reading whatever adapted weights and per-id boosts the learner (C7) has
// already accumulated from past Search calls. Recommend never records a
// query against the learner and never touches access stats: both would
// feed back into Recommend's own inputs, the learner's adapted weights and
// the freq term, turning every call into its own positive feedback.
func (e *Engine) Recommend(opts model.RecommendOptions) ([]model.ScoredVolume, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.requireReady(); err != nil {
		return nil, wrapError("recommend", err.(*StoreError).Err)
	}

	weights := opts.Weights
	if weights == (model.RecommendWeights{}) {
		weights = e.cfg.RecommendWeights
	}
	weights = e.learner.GetAdaptedWeights(weights)
	halfLife := opts.HalfLife
	if halfLife <= 0 {
		halfLife = e.cfg.RecommendHalfLife
	}

	candidates := make([]recommend.Candidate, 0, len(e.volumes))
	for id, v := range e.volumes {
		candidates = append(candidates, recommend.Candidate{
			Volume: v,
			Stats:  e.accessStats[id],
			Order:  e.insertOrder[id],
		})
	}

	scoredOpts := opts
	scoredOpts.Weights = weights
	scoredOpts.HalfLife = halfLife

	results := recommend.Score(candidates, scoredOpts, e.learner.ComputeBoost)

	for i := range results {
		results[i].Volume = results[i].Volume.Clone()
	}

	return results, nil
}

// FindDuplicates reports every group of near-duplicate volumes at the
// configured threshold.
func (e *Engine) FindDuplicates() ([]model.DuplicateGroup, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.requireReady(); err != nil {
		return nil, wrapError("findDuplicates", err.(*StoreError).Err)
	}
	volumes := make([]model.Volume, 0, len(e.volumes))
	for _, v := range e.volumes {
		volumes = append(volumes, v)
	}
	return dedup.FindDuplicateGroups(volumes, e.cfg.DuplicateThreshold), nil
}

// CheckDuplicate reports whether embedding matches an existing volume at
// the configured threshold, without inserting anything.
func (e *Engine) CheckDuplicate(embedding []float32) (model.Volume, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.requireReady(); err != nil {
		return model.Volume{}, false, wrapError("checkDuplicate", err.(*StoreError).Err)
	}
	volumes := make([]model.Volume, 0, len(e.volumes))
	for _, v := range e.volumes {
		volumes = append(volumes, v)
	}
	match, found := dedup.CheckDuplicate(embedding, volumes, e.cfg.DuplicateThreshold)
	if !found {
		return model.Volume{}, false, nil
	}
	return match.Clone(), true, nil
}
