package research

import (
	"context"
	"log"

	"github.com/plotforge/plotforge/internal/evidence"
	"github.com/plotforge/plotforge/internal/planner"
)

const perQueryLimit = 12

// Retriever runs searches against the evidence index on behalf of the loop.
// Retrieval failures are degraded to empty results; a broken index must not
// abort a research run.
type Retriever struct {
	searcher evidence.Searcher
}

// NewRetriever wraps a Searcher.
func NewRetriever(searcher evidence.Searcher) *Retriever {
	return &Retriever{searcher: searcher}
}

// ForGap runs every query of one gap. Plot-point gaps scope their text
// chunks to the recent chapter window and request a semantic rerank against
// the goal; all other gaps stay lexical and unwindowed.
func (r *Retriever) ForGap(ctx context.Context, projectID string, gap *Gap, goal string, window []string) []evidence.SearchResult {
	var out []evidence.SearchResult
	for _, q := range gap.Queries {
		opts := evidence.SearchOptions{Limit: perQueryLimit}
		if gap.Kind == GapPlotPoint {
			opts.TextChunkChapters = window
			opts.Semantic = true
			opts.RerankQuery = goal + " | " + gap.Text
		}
		out = append(out, r.search(ctx, projectID, q, opts)...)
	}
	return out
}

// ForQuery retrieves evidence for one planner query.
func (r *Retriever) ForQuery(ctx context.Context, projectID string, q planner.Query) []evidence.SearchResult {
	opts := evidence.SearchOptions{Limit: perQueryLimit}
	for _, k := range q.Kinds {
		opts.Kinds = append(opts.Kinds, evidence.Kind(k))
	}
	return r.search(ctx, projectID, q.Text, opts)
}

// ForGoal is the fallback retrieval over the raw goal text, used when a
// round produced no retrieval requests at all.
func (r *Retriever) ForGoal(ctx context.Context, projectID, goal string, window []string) []evidence.SearchResult {
	return r.search(ctx, projectID, goal, evidence.SearchOptions{
		Limit:             perQueryLimit,
		TextChunkChapters: window,
		Semantic:          true,
		RerankQuery:       goal,
	})
}

func (r *Retriever) search(ctx context.Context, projectID, query string, opts evidence.SearchOptions) []evidence.SearchResult {
	results, err := r.searcher.Search(ctx, projectID, query, opts)
	if err != nil {
		log.Printf("warning: retrieval failed for %q: %v", query, err)
		return nil
	}
	return results
}

// mergePool folds new results into the pool, keeping the best score per item.
func mergePool(pool map[string]evidence.SearchResult, results []evidence.SearchResult) {
	for _, r := range results {
		if existing, ok := pool[r.Item.ID]; !ok || r.Score > existing.Score {
			pool[r.Item.ID] = r
		}
	}
}

// poolSlice flattens the pool for scoring and compilation.
func poolSlice(pool map[string]evidence.SearchResult) []evidence.SearchResult {
	out := make([]evidence.SearchResult, 0, len(pool))
	for _, r := range pool {
		out = append(out, r)
	}
	return out
}
