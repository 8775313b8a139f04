package simse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shmor3/simse/internal/backend"
	"github.com/shmor3/simse/internal/config"
	"github.com/shmor3/simse/internal/engine"
	"github.com/shmor3/simse/internal/model"
)

// Public type aliases over the internal model, so callers never import
// internal/model directly. Grounded on the teacher's embedding.go, which
// defines its Embedding/ScoredEmbedding/SearchOptions/StoreStats types at
// this same top level rather than behind an internal package.
type (
	Volume           = model.Volume
	ScoredVolume     = model.ScoredVolume
	AccessStats      = model.AccessStats
	DuplicateGroup   = model.DuplicateGroup
	DateRange        = model.DateRange
	RecommendWeights = model.RecommendWeights
	RecommendOptions = model.RecommendOptions
	LearningSnapshot = model.LearningSnapshot
	TextSearchMode   = model.TextSearchMode
)

const (
	TextModeExact     = model.TextModeExact
	TextModeFuzzy     = model.TextModeFuzzy
	TextModeSubstring = model.TextModeSubstring
	TextModeToken     = model.TextModeToken
	TextModeRegex     = model.TextModeRegex
	TextModeBM25      = model.TextModeBM25
)

// Embedder turns text into the vectors the engine stores and searches
// against. Every embedding produced for one Store must share a dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces free text from a prompt, used by Compendium to
// summarize a set of volumes into one new volume.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config configures a Store. Path and Backend select where volumes are
// persisted; Embedder and Generator are optional providers consumed only
// by the text-taking convenience methods (Add/Search/Recommend/Compendium).
// Vector-taking methods (AddVector/SearchVector) never require them.
type Config struct {
	Path      string
	Backend   string // "file" or "sqlite"; empty defaults to "file"
	Embedder  Embedder
	Generator Generator
	Engine    config.Config
	Logger    *slog.Logger
}

// DefaultConfig returns a Config backed by a single file at path, with
// autosave on and duplicate detection disabled, matching the teacher's
// embedding.go DefaultConfig()/Config{Path: ...} constructor shape.
func DefaultConfig(path string) Config {
	return Config{
		Path:    path,
		Backend: "file",
		Engine:  *config.Default(),
	}
}

// Store is the public facade: a vector store engine (internal/engine)
// plus the optional embedding/generation providers needed to accept raw
// text instead of pre-computed vectors. Grounded on the teacher's
// top-level Store interface (embedding.go) and pkg/sqvect/sqvect.go's
// thin facade-over-core wrapping pattern.
type Store struct {
	cfg     Config
	engine  *engine.Engine
	cleanup func()
}

// Open builds the configured backend, constructs the engine, and loads
// any existing state. The returned Store is immediately usable; Close
// must be called to flush a final save and release backend resources.
func Open(cfg Config) (*Store, error) {
	var be backend.Backend
	var err error
	switch cfg.Backend {
	case "", "file":
		be, err = backend.OpenFileBackend(cfg.Path)
	case "sqlite":
		be, err = backend.OpenSQLiteBackend(cfg.Path)
	default:
		return nil, fmt.Errorf("simse: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("simse: open backend: %w", err)
	}

	logger := cfg.Logger
	var cleanup func()
	if logger == nil {
		logger = slog.Default()
		cleanup = func() {}
	}

	ec := cfg.Engine
	if ec == (config.Config{}) {
		ec = *config.Default()
	}

	eng := engine.New(ec.EngineConfig(), be, logger)
	if err := eng.Load(context.Background()); err != nil {
		be.Close()
		return nil, fmt.Errorf("simse: load: %w", err)
	}

	return &Store{cfg: cfg, engine: eng, cleanup: cleanup}, nil
}

// Close flushes a final save if dirty and releases the backend.
func (s *Store) Close(ctx context.Context) error {
	if s.cleanup != nil {
		defer s.cleanup()
	}
	return s.engine.Dispose(ctx)
}

// requireEmbedder returns the configured Embedder or a descriptive error,
// for the text-taking convenience methods.
func (s *Store) requireEmbedder() (Embedder, error) {
	if s.cfg.Embedder == nil {
		return nil, fmt.Errorf("simse: no Embedder configured")
	}
	return s.cfg.Embedder, nil
}

// Add embeds text via the configured Embedder and stores it as a new
// volume with metadata, per SPEC_FULL.md §4.10.
func (s *Store) Add(ctx context.Context, text string, metadata map[string]string) (string, error) {
	emb, err := s.requireEmbedder()
	if err != nil {
		return "", err
	}
	vec, err := emb.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("simse: embed: %w", err)
	}
	return s.engine.Add(ctx, text, vec, metadata)
}

// AddVector stores text with a caller-supplied embedding, bypassing the
// configured Embedder entirely.
func (s *Store) AddVector(ctx context.Context, text string, embedding []float32, metadata map[string]string) (string, error) {
	return s.engine.Add(ctx, text, embedding, metadata)
}

// Search embeds query via the configured Embedder, then ranks every
// volume by cosine similarity.
func (s *Store) Search(ctx context.Context, query string, maxResults int, threshold float64) ([]ScoredVolume, error) {
	emb, err := s.requireEmbedder()
	if err != nil {
		return nil, err
	}
	vec, err := emb.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("simse: embed: %w", err)
	}
	return s.engine.Search(vec, maxResults, threshold)
}

// SearchVector ranks every volume by cosine similarity to a caller-supplied
// query embedding, bypassing the configured Embedder.
func (s *Store) SearchVector(query []float32, maxResults int, threshold float64) ([]ScoredVolume, error) {
	return s.engine.Search(query, maxResults, threshold)
}

// TextSearch runs a lexical search in the given mode (exact, substring,
// token, fuzzy, regex, or BM25), with no embedding step.
func (s *Store) TextSearch(mode TextSearchMode, query string, minScore float64, k int) ([]ScoredVolume, error) {
	return s.engine.TextSearch(mode, query, minScore, k)
}

// Recommend embeds query (if non-empty) via the configured Embedder and
// runs the weighted recommendation scorer; an empty query recommends by
// recency/frequency alone.
func (s *Store) Recommend(ctx context.Context, query string, opts RecommendOptions) ([]ScoredVolume, error) {
	if query != "" {
		emb, err := s.requireEmbedder()
		if err != nil {
			return nil, err
		}
		vec, err := emb.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("simse: embed: %w", err)
		}
		opts.QueryEmbedding = vec
	}
	return s.engine.Recommend(opts)
}

// RecommendVector runs the weighted recommendation scorer with a
// caller-supplied query embedding already set on opts.
func (s *Store) RecommendVector(opts RecommendOptions) ([]ScoredVolume, error) {
	return s.engine.Recommend(opts)
}

// GetAll, GetByID, GetTopics, FilterByTopic, Size, IsDirty, and
// LearningProfile pass straight through to the engine; they need no
// embedding step.
func (s *Store) GetAll() ([]Volume, error)                { return s.engine.GetAll() }
func (s *Store) GetByID(id string) (Volume, error)        { return s.engine.GetByID(id) }
func (s *Store) GetTopics() ([]string, error)             { return s.engine.GetTopics() }
func (s *Store) FilterByTopic(t string) ([]Volume, error) { return s.engine.FilterByTopic(t) }
func (s *Store) Size() int                         { return s.engine.Size() }
func (s *Store) IsDirty() bool                     { return s.engine.IsDirty() }
func (s *Store) LearningProfile() LearningSnapshot { return s.engine.LearningProfile() }

// Delete, DeleteBatch, and Clear pass straight through to the engine.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	return s.engine.Delete(ctx, id)
}
func (s *Store) DeleteBatch(ctx context.Context, ids []string) (int, error) {
	return s.engine.DeleteBatch(ctx, ids)
}
func (s *Store) Clear(ctx context.Context) error { return s.engine.Clear(ctx) }

// FindDuplicates and CheckDuplicate pass straight through to the engine.
func (s *Store) FindDuplicates() ([]DuplicateGroup, error) { return s.engine.FindDuplicates() }
func (s *Store) CheckDuplicate(embedding []float32) (Volume, bool, error) {
	return s.engine.CheckDuplicate(embedding)
}

// Save forces an immediate persist, independent of the autosave setting.
func (s *Store) Save(ctx context.Context) error { return s.engine.Save(ctx) }
