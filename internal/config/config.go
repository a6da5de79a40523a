package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (PLOTFORGE_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: PLOTFORGE_PROVIDER -> provider, and
	// PLOTFORGE_RESEARCH__MAX_ROUNDS -> research.max_rounds.
	if err := k.Load(env.Provider("PLOTFORGE_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "PLOTFORGE_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of openai, ollama", c.Provider)
	}

	if c.Model == "" {
		return fmt.Errorf("model is required")
	}

	if c.EmbeddingProvider != "" && !validProviders[c.EmbeddingProvider] {
		return fmt.Errorf("invalid embedding_provider %q", c.EmbeddingProvider)
	}

	if c.Language != "zh" && c.Language != "en" {
		return fmt.Errorf("invalid language %q: must be zh or en", c.Language)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	r := c.Research
	if r.MaxRounds < 1 {
		return fmt.Errorf("research.max_rounds must be at least 1")
	}
	if r.MinGapSupport <= 0 {
		return fmt.Errorf("research.min_gap_support must be positive")
	}
	if r.WellSupportedMargin < 0 {
		return fmt.Errorf("research.well_supported_margin must be non-negative")
	}
	if r.MinWorldRuleScore < r.MinGapSupport {
		return fmt.Errorf("research.min_world_rule_score must not be below min_gap_support")
	}
	if r.RerankTopK < 1 {
		return fmt.Errorf("research.rerank_top_k must be at least 1")
	}
	if r.MaxQuestions < 0 {
		return fmt.Errorf("research.max_questions must be non-negative")
	}

	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}
