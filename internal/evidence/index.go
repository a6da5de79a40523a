package evidence

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/plotforge/plotforge/internal/embeddings"
	"github.com/plotforge/plotforge/internal/textutil"
)

// rerankWeight controls how strongly vector similarity influences the final
// ordering relative to lexical scores.
const rerankWeight = 2.0

// Index is the concrete Searcher: lexical term-overlap scoring over the
// SQLite store, with an optional chromem-go vector rerank on top.
type Index struct {
	store    *Store
	embedder embeddings.Embedder
	topK     int

	mu          sync.Mutex
	vdb         *chromem.DB
	collections map[string]*chromem.Collection
}

// NewIndex creates an index over the store. embedder may be nil, in which
// case semantic rerank requests are silently ignored. vectorPath selects
// on-disk persistence for the vector side; empty keeps it in memory.
func NewIndex(store *Store, embedder embeddings.Embedder, vectorPath string, topK int) (*Index, error) {
	idx := &Index{
		store:       store,
		embedder:    embedder,
		topK:        topK,
		collections: make(map[string]*chromem.Collection),
	}
	if embedder != nil {
		var err error
		if vectorPath != "" {
			idx.vdb, err = chromem.NewPersistentDB(vectorPath, false)
		} else {
			idx.vdb = chromem.NewDB()
		}
		if err != nil {
			return nil, fmt.Errorf("opening vector store: %w", err)
		}
	}
	return idx, nil
}

// EnsureBuilt makes the vector collection for a project match the store.
// With force it is rebuilt from scratch. A nil embedder makes this a no-op.
func (idx *Index) EnsureBuilt(ctx context.Context, projectID string, force bool) error {
	if idx.embedder == nil {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	name := collectionName(projectID)
	if !force {
		if _, ok := idx.collections[name]; ok {
			return nil
		}
		if col := idx.vdb.GetCollection(name, embeddings.ToChromemFunc(idx.embedder)); col != nil && col.Count() > 0 {
			idx.collections[name] = col
			return nil
		}
	}

	if err := idx.vdb.DeleteCollection(name); err != nil {
		return fmt.Errorf("resetting collection: %w", err)
	}
	col, err := idx.vdb.CreateCollection(name, nil, embeddings.ToChromemFunc(idx.embedder))
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	items, err := idx.store.ByProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("loading evidence: %w", err)
	}

	var docs []chromem.Document
	for _, item := range items {
		if strings.TrimSpace(item.Text) == "" {
			continue
		}
		docs = append(docs, chromem.Document{
			ID:      item.ID,
			Content: item.Text,
			Metadata: map[string]string{
				"kind":    string(item.Kind),
				"chapter": item.Chapter,
			},
		})
	}
	if len(docs) > 0 {
		if err := col.AddDocuments(ctx, docs, 2); err != nil {
			return fmt.Errorf("adding documents: %w", err)
		}
	}

	idx.collections[name] = col
	return nil
}

// Search scores all candidate items by query term overlap, then optionally
// reranks with vector similarity. Unknown projects yield empty results. A
// chapter window only excludes text chunks; structured knowledge has no
// chapter locality and always competes.
func (idx *Index) Search(ctx context.Context, projectID, query string, opts SearchOptions) ([]SearchResult, error) {
	terms := textutil.ExtractTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	items, err := idx.store.ByProject(ctx, projectID, opts.Kinds...)
	if err != nil {
		return nil, fmt.Errorf("loading candidates: %w", err)
	}

	window := make(map[string]bool, len(opts.TextChunkChapters))
	for _, ch := range opts.TextChunkChapters {
		window[ch] = true
	}

	var results []SearchResult
	for _, item := range items {
		if item.Kind == KindTextChunk && len(window) > 0 && !window[item.Chapter] {
			continue
		}
		overlap := textutil.TermOverlap(strings.ToLower(item.Text), terms)
		if overlap == 0 {
			continue
		}
		results = append(results, SearchResult{
			Item:  item,
			Score: float64(overlap) * item.Weight,
		})
	}

	if opts.Semantic && idx.embedder != nil {
		rerankQuery := opts.RerankQuery
		if rerankQuery == "" {
			rerankQuery = query
		}
		idx.rerank(ctx, projectID, rerankQuery, results)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// rerank boosts results that are semantically close to the query. Failures
// are logged and ignored so retrieval never depends on the vector side.
func (idx *Index) rerank(ctx context.Context, projectID, query string, results []SearchResult) {
	idx.mu.Lock()
	col := idx.collections[collectionName(projectID)]
	idx.mu.Unlock()
	if col == nil || col.Count() == 0 || len(results) == 0 {
		return
	}

	n := idx.topK
	if n > col.Count() {
		n = col.Count()
	}
	hits, err := col.Query(ctx, query, n, nil, nil)
	if err != nil {
		log.Printf("warning: semantic rerank failed: %v", err)
		return
	}

	similarity := make(map[string]float32, len(hits))
	for _, hit := range hits {
		similarity[hit.ID] = hit.Similarity
	}
	for i := range results {
		if sim, ok := similarity[results[i].Item.ID]; ok {
			results[i].Score += float64(sim) * rerankWeight
		}
	}
}

// Stats reports what the index holds for a project.
func (idx *Index) Stats(ctx context.Context, projectID string) (*Stats, error) {
	return idx.store.Stats(ctx, projectID)
}

func collectionName(projectID string) string {
	return "evidence_" + projectID
}
