package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v, want nil", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("Storage.Backend = %q, want file", cfg.Storage.Backend)
	}
	if !cfg.Store.AutoSave {
		t.Error("Store.AutoSave = false, want true (default)")
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "simse.yaml")
	body := "storage:\n  backend: sqlite\n  path: volumes.db\nstore:\n  duplicate_behavior: error\n  duplicate_threshold: 0.9\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.Path != "volumes.db" {
		t.Errorf("Storage = %+v, want sqlite/volumes.db", cfg.Storage)
	}
	if cfg.Store.DuplicateBehavior != "error" || cfg.Store.DuplicateThreshold != 0.9 {
		t.Errorf("Store dup fields = %+v, want error/0.9", cfg.Store)
	}
	// Fields absent from the file fall back to defaults.
	if cfg.Store.LearnerRingSize != 200 {
		t.Errorf("Store.LearnerRingSize = %d, want 200 (default)", cfg.Store.LearnerRingSize)
	}
}

func TestEnvOverridesBeatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "simse.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  backend: sqlite\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SIMSE_STORAGE_BACKEND", "file")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("Storage.Backend = %q, want file (env override)", cfg.Storage.Backend)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "redis"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestValidateRejectsUnknownDuplicateBehavior(t *testing.T) {
	cfg := Default()
	cfg.Store.DuplicateBehavior = "ignore"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown duplicate behavior")
	}
}

func TestEngineConfigConversion(t *testing.T) {
	cfg := Default()
	cfg.Store.FlushIntervalSeconds = 30
	cfg.Store.RecommendHalfLifeHours = 48

	ec := cfg.EngineConfig()
	if ec.FlushInterval.Seconds() != 30 {
		t.Errorf("FlushInterval = %v, want 30s", ec.FlushInterval)
	}
	if ec.RecommendHalfLife.Hours() != 48 {
		t.Errorf("RecommendHalfLife = %v, want 48h", ec.RecommendHalfLife)
	}
	if ec.DuplicateBehavior != "warn" {
		t.Errorf("DuplicateBehavior = %q, want warn", ec.DuplicateBehavior)
	}
}
