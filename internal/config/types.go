package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// Config is the top-level plotforge configuration, corresponding to .plotforge.yml.
type Config struct {
	Provider          ProviderType   `yaml:"provider" koanf:"provider"`
	Model             string         `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType   `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string         `yaml:"embedding_model" koanf:"embedding_model"`
	Language          string         `yaml:"language" koanf:"language"`
	DataDir           string         `yaml:"data_dir" koanf:"data_dir"`
	Include           []string       `yaml:"include" koanf:"include"`
	Exclude           []string       `yaml:"exclude" koanf:"exclude"`
	Research          ResearchConfig `yaml:"research" koanf:"research"`
	Server            ServerConfig   `yaml:"server" koanf:"server"`
}

// ResearchConfig tunes the research loop and its scoring thresholds.
type ResearchConfig struct {
	MaxRounds           int     `yaml:"max_rounds" koanf:"max_rounds"`
	MinGapSupport       float64 `yaml:"min_gap_support" koanf:"min_gap_support"`
	WellSupportedMargin float64 `yaml:"well_supported_margin" koanf:"well_supported_margin"`
	MinWorldRuleScore   float64 `yaml:"min_world_rule_score" koanf:"min_world_rule_score"`
	RerankTopK          int     `yaml:"rerank_top_k" koanf:"rerank_top_k"`
	MaxQuestions        int     `yaml:"max_questions" koanf:"max_questions"`
	ForceMinQuestions   bool    `yaml:"force_min_questions" koanf:"force_min_questions"`
	Offline             bool    `yaml:"offline" koanf:"offline"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string   `yaml:"addr" koanf:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
}
