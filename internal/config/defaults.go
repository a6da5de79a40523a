package config

import "path/filepath"

// modelPresets maps each provider to its default chat and embedding models.
var modelPresets = map[ProviderType]struct {
	Model          string
	EmbeddingModel string
}{
	ProviderOpenAI: {Model: "gpt-4o-mini", EmbeddingModel: "text-embedding-3-small"},
	ProviderOllama: {Model: "qwen2.5:14b", EmbeddingModel: "nomic-embed-text"},
}

// DefaultExcludes are glob patterns excluded from chapter import by default.
var DefaultExcludes = []string{
	".git/**",
	".plotforge/**",
	"node_modules/**",
	"*.bak",
	"*.tmp",
	"~$*",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderOpenAI,
		Model:             "gpt-4o-mini",
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-small",
		Language:          "zh",
		DataDir:           ".plotforge",
		Include:           []string{"**/*.md", "**/*.txt"},
		Exclude:           DefaultExcludes,
		Research: ResearchConfig{
			MaxRounds:           5,
			MinGapSupport:       3.0,
			WellSupportedMargin: 0.8,
			MinWorldRuleScore:   3.5,
			RerankTopK:          16,
			MaxQuestions:        3,
		},
		Server: ServerConfig{
			Addr:           ":8787",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
	}
}

// DatabasePath returns the SQLite database location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "plotforge.db")
}

// VectorPath returns the on-disk location of the vector index.
func (c *Config) VectorPath() string {
	return filepath.Join(c.DataDir, "vectors")
}

// PresetFor returns the default models for the given provider. Unknown
// providers fall back to the OpenAI preset.
func PresetFor(provider ProviderType) (model, embeddingModel string) {
	if p, ok := modelPresets[provider]; ok {
		return p.Model, p.EmbeddingModel
	}
	p := modelPresets[ProviderOpenAI]
	return p.Model, p.EmbeddingModel
}
