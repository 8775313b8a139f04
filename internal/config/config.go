// Package config loads the store's runtime configuration. Grounded on the
// Aman-CERP pack's internal/config/config.go: a versioned struct with
// yaml tags, NewConfig()-style defaults, a Load(path) that merges a YAML
// file over the defaults, environment-variable overrides at the highest
// precedence, and a Validate() pass before the config is handed to callers.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shmor3/simse/internal/engine"
	"github.com/shmor3/simse/internal/logging"
	"github.com/shmor3/simse/internal/model"
)

// Config is the on-disk configuration schema for a store instance.
type Config struct {
	Version int           `yaml:"version"`
	Storage StorageConfig `yaml:"storage"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig selects and configures the persistence backend (C1).
type StorageConfig struct {
	// Backend is "sqlite" or "file".
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// StoreConfig mirrors internal/engine.Config in YAML-friendly form.
type StoreConfig struct {
	DefaultTopic           string  `yaml:"default_topic"`
	DuplicateThreshold     float64 `yaml:"duplicate_threshold"`
	DuplicateBehavior      string  `yaml:"duplicate_behavior"` // skip, warn, error
	AutoSave               bool    `yaml:"auto_save"`
	FlushIntervalSeconds   int     `yaml:"flush_interval_seconds"`
	MaxRegexPatternLength  int     `yaml:"max_regex_pattern_length"`
	RecommendVectorWeight  float64 `yaml:"recommend_vector_weight"`
	RecommendRecentWeight  float64 `yaml:"recommend_recent_weight"`
	RecommendFreqWeight    float64 `yaml:"recommend_freq_weight"`
	RecommendHalfLifeHours int     `yaml:"recommend_half_life_hours"`
	LearnerEnabled         bool    `yaml:"learner_enabled"`
	LearnerRingSize        int     `yaml:"learner_ring_size"`
}

// LoggingConfig mirrors internal/logging.Config.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	FilePath      string `yaml:"file_path"`
	MaxSizeMB     int    `yaml:"max_size_mb"`
	MaxFiles      int    `yaml:"max_files"`
	WriteToStderr bool   `yaml:"write_to_stderr"`
}

// Default returns the baked-in defaults, matching engine.DefaultConfig and
// logging.DefaultConfig.
func Default() *Config {
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			Backend: "file",
			Path:    "simse.db",
		},
		Store: StoreConfig{
			DefaultTopic:           model.DefaultTopic,
			DuplicateThreshold:     0,
			DuplicateBehavior:      "warn",
			AutoSave:               true,
			FlushIntervalSeconds:   0,
			MaxRegexPatternLength:  256,
			RecommendVectorWeight:  model.DefaultRecommendWeights.Vector,
			RecommendRecentWeight:  model.DefaultRecommendWeights.Recent,
			RecommendFreqWeight:    model.DefaultRecommendWeights.Freq,
			RecommendHalfLifeHours: 7 * 24,
			LearnerEnabled:         false,
			LearnerRingSize:        200,
		},
		Logging: LoggingConfig{
			Level:         "info",
			WriteToStderr: true,
		},
	}
}

// Load reads path (if it exists) and merges it over Default(), then applies
// SIMSE_* environment overrides, then validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
			var parsed Config
			if err := yaml.Unmarshal(data, &parsed); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
			cfg.mergeWith(&parsed)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return cfg, nil
}

func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Storage.Backend != "" {
		c.Storage.Backend = other.Storage.Backend
	}
	if other.Storage.Path != "" {
		c.Storage.Path = other.Storage.Path
	}
	if other.Store.DefaultTopic != "" {
		c.Store.DefaultTopic = other.Store.DefaultTopic
	}
	if other.Store.DuplicateThreshold != 0 {
		c.Store.DuplicateThreshold = other.Store.DuplicateThreshold
	}
	if other.Store.DuplicateBehavior != "" {
		c.Store.DuplicateBehavior = other.Store.DuplicateBehavior
	}
	c.Store.AutoSave = other.Store.AutoSave || c.Store.AutoSave
	if other.Store.FlushIntervalSeconds != 0 {
		c.Store.FlushIntervalSeconds = other.Store.FlushIntervalSeconds
	}
	if other.Store.MaxRegexPatternLength != 0 {
		c.Store.MaxRegexPatternLength = other.Store.MaxRegexPatternLength
	}
	if other.Store.RecommendVectorWeight != 0 {
		c.Store.RecommendVectorWeight = other.Store.RecommendVectorWeight
	}
	if other.Store.RecommendRecentWeight != 0 {
		c.Store.RecommendRecentWeight = other.Store.RecommendRecentWeight
	}
	if other.Store.RecommendFreqWeight != 0 {
		c.Store.RecommendFreqWeight = other.Store.RecommendFreqWeight
	}
	if other.Store.RecommendHalfLifeHours != 0 {
		c.Store.RecommendHalfLifeHours = other.Store.RecommendHalfLifeHours
	}
	c.Store.LearnerEnabled = other.Store.LearnerEnabled || c.Store.LearnerEnabled
	if other.Store.LearnerRingSize != 0 {
		c.Store.LearnerRingSize = other.Store.LearnerRingSize
	}
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.FilePath != "" {
		c.Logging.FilePath = other.Logging.FilePath
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SIMSE_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("SIMSE_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("SIMSE_DUPLICATE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Store.DuplicateThreshold = f
		}
	}
	if v := os.Getenv("SIMSE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	backend := strings.ToLower(c.Storage.Backend)
	if backend != "sqlite" && backend != "file" {
		return fmt.Errorf("storage.backend must be 'sqlite' or 'file', got %q", c.Storage.Backend)
	}
	behavior := strings.ToLower(c.Store.DuplicateBehavior)
	if behavior != "skip" && behavior != "warn" && behavior != "error" {
		return fmt.Errorf("store.duplicate_behavior must be skip/warn/error, got %q", c.Store.DuplicateBehavior)
	}
	sum := c.Store.RecommendVectorWeight + c.Store.RecommendRecentWeight + c.Store.RecommendFreqWeight
	if sum < 0 {
		return fmt.Errorf("recommend weights must be non-negative, sum=%f", sum)
	}
	return nil
}

// EngineConfig converts the YAML schema into internal/engine.Config.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		DefaultTopic:          c.Store.DefaultTopic,
		DuplicateThreshold:    c.Store.DuplicateThreshold,
		DuplicateBehavior:     engine.DuplicateBehavior(strings.ToLower(c.Store.DuplicateBehavior)),
		AutoSave:              c.Store.AutoSave,
		FlushInterval:         time.Duration(c.Store.FlushIntervalSeconds) * time.Second,
		MaxRegexPatternLength: c.Store.MaxRegexPatternLength,
		RecommendWeights: model.RecommendWeights{
			Vector: c.Store.RecommendVectorWeight,
			Recent: c.Store.RecommendRecentWeight,
			Freq:   c.Store.RecommendFreqWeight,
		},
		RecommendHalfLife: time.Duration(c.Store.RecommendHalfLifeHours) * time.Hour,
		LearnerEnabled:    c.Store.LearnerEnabled,
		LearnerRingSize:   c.Store.LearnerRingSize,
	}
}

// loggingConfig converts the YAML schema into internal/logging.Config.
func (c *Config) loggingConfig() logging.Config {
	return logging.Config{
		Level:         c.Logging.Level,
		FilePath:      c.Logging.FilePath,
		MaxSizeMB:     c.Logging.MaxSizeMB,
		MaxFiles:      c.Logging.MaxFiles,
		WriteToStderr: c.Logging.WriteToStderr,
	}
}

// SetupLogging builds the slog.Logger described by the Logging section.
func (c *Config) SetupLogging() (*slog.Logger, func(), error) {
	return logging.Setup(c.loggingConfig())
}
