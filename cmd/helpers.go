package cmd

import (
	"fmt"
	"os"

	"github.com/plotforge/plotforge/internal/answers"
	"github.com/plotforge/plotforge/internal/binding"
	"github.com/plotforge/plotforge/internal/cards"
	"github.com/plotforge/plotforge/internal/config"
	"github.com/plotforge/plotforge/internal/db"
	"github.com/plotforge/plotforge/internal/embeddings"
	"github.com/plotforge/plotforge/internal/evidence"
	"github.com/plotforge/plotforge/internal/importer"
	"github.com/plotforge/plotforge/internal/llm"
	"github.com/plotforge/plotforge/internal/memorypack"
	"github.com/plotforge/plotforge/internal/planner"
	"github.com/plotforge/plotforge/internal/research"
	"github.com/plotforge/plotforge/internal/session"
)

// engine bundles the stores and services every command wires up the same way.
type engine struct {
	cfg      *config.Config
	db       *db.DB
	cards    *cards.Store
	binder   *binding.Binder
	answers  *answers.Store
	packs    *memorypack.Store
	evidence *evidence.Store
	index    *evidence.Index
	session  *session.Session
	importer *importer.Importer
}

func (e *engine) Close() error { return e.db.Close() }

// loadConfig loads and validates the config with a hint toward `init`.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `plotforge init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openEngine opens the database and wires the full service stack. offline
// skips the LLM planner and the embedder so no provider credentials are
// needed.
func openEngine(cfg *config.Config, offline bool) (*engine, error) {
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	e := &engine{
		cfg:      cfg,
		db:       database,
		cards:    cards.NewStore(database),
		answers:  answers.NewStore(database),
		packs:    memorypack.NewStore(database),
		evidence: evidence.NewStore(database),
	}
	e.binder = binding.New(database, e.cards)
	e.importer = importer.New(cfg, e.evidence, e.binder)

	var embedder embeddings.Embedder
	var p planner.Planner
	if !offline {
		embedder, err = createEmbedder(cfg)
		if err != nil {
			// Retrieval still works lexically without an embedder.
			fmt.Fprintf(os.Stderr, "Warning: semantic rerank disabled: %v\n", err)
		}
		provider, err := createLLMProvider(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: planner disabled: %v\n", err)
		} else {
			p = planner.NewLLMPlanner(provider)
		}
	}

	e.index, err = evidence.NewIndex(e.evidence, embedder, cfg.VectorPath(), cfg.Research.RerankTopK)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("opening vector index: %w", err)
	}

	controller := research.NewController(research.NewRetriever(e.index), p)
	e.session = session.New(cfg, e.cards, e.binder, e.answers, e.packs,
		e.evidence, e.index, controller, nil)
	return e, nil
}

func createEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = cfg.Provider
	}
	model := cfg.EmbeddingModel
	if model == "" {
		_, model = config.PresetFor(provider)
	}
	return embeddings.NewEmbedder(string(provider), model)
}

func createLLMProvider(cfg *config.Config) (llm.Provider, error) {
	return llm.NewProvider(string(cfg.Provider), cfg.Model)
}
