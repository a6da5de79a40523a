package evidence

import "context"

// Kind classifies an evidence item. Values match the database CHECK constraint.
type Kind string

const (
	KindFact        Kind = "fact"
	KindSummary     Kind = "summary"
	KindCharacter   Kind = "character"
	KindWorldEntity Kind = "world_entity"
	KindWorldRule   Kind = "world_rule"
	KindTextChunk   Kind = "text_chunk"
	KindMemory      Kind = "memory"
)

// AllKinds lists every evidence kind in presentation order.
var AllKinds = []Kind{
	KindWorldRule, KindFact, KindSummary, KindWorldEntity,
	KindCharacter, KindTextChunk, KindMemory,
}

// Item is a single piece of retrievable project knowledge.
type Item struct {
	ID        string            `json:"id"`
	ProjectID string            `json:"project_id"`
	Kind      Kind              `json:"kind"`
	Text      string            `json:"text"`
	Weight    float64           `json:"weight"`
	Chapter   string            `json:"chapter,omitempty"`
	Source    map[string]string `json:"source,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// SearchResult pairs an item with its retrieval score.
type SearchResult struct {
	Item  Item    `json:"item"`
	Score float64 `json:"score"`
}

// SearchOptions narrow a search. TextChunkChapters windows text chunks to
// the named chapters; every other kind is searched project-wide regardless,
// so chapterless world rules and facts stay reachable.
type SearchOptions struct {
	Kinds             []Kind
	TextChunkChapters []string
	Limit             int
	// Semantic requests a vector rerank of the lexical candidates. It is a
	// no-op when the index has no embedder.
	Semantic bool
	// RerankQuery, when set, replaces the lexical query for the semantic
	// rerank. Retrieval uses it to rerank against the chapter goal rather
	// than the raw gap query.
	RerankQuery string
}

// Stats summarizes what the index holds for a project.
type Stats struct {
	Total  int          `json:"total"`
	ByKind map[Kind]int `json:"by_kind"`
}

// Searcher is the retrieval surface the research loop depends on.
type Searcher interface {
	Search(ctx context.Context, projectID, query string, opts SearchOptions) ([]SearchResult, error)
	Stats(ctx context.Context, projectID string) (*Stats, error)
}
