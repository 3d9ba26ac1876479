package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("SHOTLIST_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Scene.Threshold != 2.0 {
		t.Errorf("expected threshold 2.0, got %v", cfg.Scene.Threshold)
	}
	if cfg.Scene.WindowSize != 5 {
		t.Errorf("expected window 5, got %d", cfg.Scene.WindowSize)
	}
	if cfg.Correction.MinSimilarity != 0.6 {
		t.Errorf("expected min similarity 0.6, got %v", cfg.Correction.MinSimilarity)
	}
	if cfg.MaxDurationSeconds != 300 {
		t.Errorf("expected max duration 300, got %d", cfg.MaxDurationSeconds)
	}
	if cfg.Describe.Prompt != DefaultPrompt {
		t.Errorf("expected default prompt, got %q", cfg.Describe.Prompt)
	}
}

func TestLoadOverridesFromYAML(t *testing.T) {
	t.Setenv("SHOTLIST_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("concurrency: 3\nscene:\n  threshold: 4.5\n  window_size: 7\ndescribe:\n  model: gpt-4o\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Concurrency != 3 {
		t.Errorf("expected concurrency 3, got %d", cfg.Concurrency)
	}
	if cfg.Scene.Threshold != 4.5 || cfg.Scene.WindowSize != 7 {
		t.Errorf("scene overrides not applied: %+v", cfg.Scene)
	}
	// untouched keys keep defaults
	if cfg.Scene.MergeGapSeconds != 0.5 {
		t.Errorf("expected merge gap default 0.5, got %v", cfg.Scene.MergeGapSeconds)
	}
	if cfg.Describe.Model != "gpt-4o" || cfg.Describe.MaxTokens != 200 {
		t.Errorf("describe overrides not applied: %+v", cfg.Describe)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SHOTLIST_API_KEY", "sk-env")
	t.Setenv("SHOTLIST_BASE_URL", "http://localhost:9999/v1")
	t.Setenv("SHOTLIST_REDIS_ADDR", "redis:6379")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Describe.APIKey != "sk-env" {
		t.Errorf("expected api key from env, got %q", cfg.Describe.APIKey)
	}
	if cfg.Describe.BaseURL != "http://localhost:9999/v1" {
		t.Errorf("expected base url from env, got %q", cfg.Describe.BaseURL)
	}
	if cfg.Queue.Addr != "redis:6379" {
		t.Errorf("expected redis addr from env, got %q", cfg.Queue.Addr)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("SHOTLIST_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Speech.Backend = "openai"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Speech.Backend != "openai" {
		t.Errorf("expected backend openai, got %q", loaded.Speech.Backend)
	}
}

func TestContextCarrier(t *testing.T) {
	cfg := Default()
	cfg.Concurrency = 42
	ctx := WithConfig(context.Background(), cfg)
	if got := FromContext(ctx); got.Concurrency != 42 {
		t.Errorf("expected config from context, got concurrency %d", got.Concurrency)
	}
	if got := FromContext(context.Background()); got.Concurrency != 8 {
		t.Errorf("expected defaults without config, got concurrency %d", got.Concurrency)
	}
}
