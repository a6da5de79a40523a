package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("expected default provider %q, got %q", ProviderOpenAI, cfg.Provider)
	}
	if cfg.Language != "zh" {
		t.Errorf("expected default language zh, got %q", cfg.Language)
	}
	if cfg.Research.MaxRounds != 5 {
		t.Errorf("expected default max_rounds 5, got %d", cfg.Research.MaxRounds)
	}
	if cfg.Research.MinGapSupport != 3.0 {
		t.Errorf("expected default min_gap_support 3.0, got %f", cfg.Research.MinGapSupport)
	}
	if cfg.Research.MinWorldRuleScore != 3.5 {
		t.Errorf("expected default min_world_rule_score 3.5, got %f", cfg.Research.MinWorldRuleScore)
	}
	if cfg.Research.ForceMinQuestions {
		t.Error("force_min_questions defaults to off")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.plotforge.yml")

	original := DefaultConfig()
	original.Provider = ProviderOllama
	original.Model = "qwen2.5:14b"
	original.Language = "en"
	original.Include = []string{"chapters/**/*.md"}
	original.Research.MaxRounds = 3

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Provider != original.Provider {
		t.Errorf("provider: got %q, want %q", loaded.Provider, original.Provider)
	}
	if loaded.Model != original.Model {
		t.Errorf("model: got %q, want %q", loaded.Model, original.Model)
	}
	if loaded.Language != original.Language {
		t.Errorf("language: got %q, want %q", loaded.Language, original.Language)
	}
	if loaded.Research.MaxRounds != 3 {
		t.Errorf("research.max_rounds: got %d, want 3", loaded.Research.MaxRounds)
	}
	if len(loaded.Include) != 1 || loaded.Include[0] != "chapters/**/*.md" {
		t.Errorf("include: got %v", loaded.Include)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("expected default provider, got %q", cfg.Provider)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	os.Setenv("PLOTFORGE_PROVIDER", "ollama")
	os.Setenv("PLOTFORGE_RESEARCH__MAX_ROUNDS", "2")
	defer os.Unsetenv("PLOTFORGE_PROVIDER")
	defer os.Unsetenv("PLOTFORGE_RESEARCH__MAX_ROUNDS")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Provider != ProviderOllama {
		t.Errorf("env override failed: got %q, want %q", loaded.Provider, ProviderOllama)
	}
	if loaded.Research.MaxRounds != 2 {
		t.Errorf("nested env override failed: got %d, want 2", loaded.Research.MaxRounds)
	}
}

func TestValidateValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateInvalidProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "invalid"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid provider")
	}
}

func TestValidateEmptyModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for empty model")
	}
}

func TestValidateInvalidLanguage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Language = "fr"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unsupported language")
	}
}

func TestValidateResearchBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max_rounds", func(c *Config) { c.Research.MaxRounds = 0 }},
		{"zero min_gap_support", func(c *Config) { c.Research.MinGapSupport = 0 }},
		{"negative margin", func(c *Config) { c.Research.WellSupportedMargin = -0.1 }},
		{"world rule below gap support", func(c *Config) { c.Research.MinWorldRuleScore = 1.0 }},
		{"zero rerank_top_k", func(c *Config) { c.Research.RerankTopK = 0 }},
		{"negative max_questions", func(c *Config) { c.Research.MaxQuestions = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestPresetFor(t *testing.T) {
	model, embed := PresetFor(ProviderOllama)
	if model != "qwen2.5:14b" || embed != "nomic-embed-text" {
		t.Errorf("unexpected ollama preset: %q / %q", model, embed)
	}

	// Unknown provider falls back to the OpenAI preset.
	model, _ = PresetFor("unknown")
	if model != "gpt-4o-mini" {
		t.Errorf("expected fallback preset, got %q", model)
	}
}

func TestDatabasePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "proj/.plotforge"
	if got := cfg.DatabasePath(); got != filepath.Join("proj/.plotforge", "plotforge.db") {
		t.Errorf("unexpected database path %q", got)
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"**/*.md", []string{"**/*.md"}},
		{"", nil},
		{"  ,  , ", nil},
	}
	for _, tt := range tests {
		got := splitAndTrim(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("splitAndTrim(%q) len = %d, want %d", tt.input, len(got), len(tt.want))
			continue
		}
		for i, v := range got {
			if v != tt.want[i] {
				t.Errorf("splitAndTrim(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
			}
		}
	}
}
