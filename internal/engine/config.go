package engine

import (
	"time"

	"github.com/shmor3/simse/internal/model"
)

// DuplicateBehavior controls what Add does when CheckDuplicate reports a
// hit above Config.DuplicateThreshold.
type DuplicateBehavior string

const (
	DuplicateSkip  DuplicateBehavior = "skip"
	DuplicateWarn  DuplicateBehavior = "warn"
	DuplicateError DuplicateBehavior = "error"
)

// Config tunes the engine per SPEC_FULL.md §4.5-§4.9.
type Config struct {
	DefaultTopic          string
	DuplicateThreshold    float64 // 0 means never report a duplicate (spec.md §9)
	DuplicateBehavior     DuplicateBehavior
	AutoSave              bool // save immediately after every mutation
	FlushInterval         time.Duration
	MaxRegexPatternLength int
	RecommendWeights      model.RecommendWeights
	RecommendHalfLife     time.Duration
	LearnerEnabled        bool
	LearnerRingSize       int
}

// DefaultConfig returns the spec's defaults, following the teacher's
// DefaultConfig()-constructor idiom (embedding.go, internal/logging).
func DefaultConfig() Config {
	return Config{
		DefaultTopic:          model.DefaultTopic,
		DuplicateThreshold:    0,
		DuplicateBehavior:     DuplicateWarn,
		AutoSave:              true,
		FlushInterval:         0,
		MaxRegexPatternLength: 256,
		RecommendWeights:      model.DefaultRecommendWeights,
		RecommendHalfLife:     7 * 24 * time.Hour,
		LearnerEnabled:        false,
		LearnerRingSize:       200,
	}
}
