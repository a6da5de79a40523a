package research

import (
	"context"
	"fmt"
	"log"

	"github.com/plotforge/plotforge/internal/answers"
	"github.com/plotforge/plotforge/internal/evidence"
	"github.com/plotforge/plotforge/internal/planner"
	"github.com/plotforge/plotforge/internal/progress"
	"github.com/plotforge/plotforge/internal/textutil"
)

// Input is everything a research run starts from. ExtraQueries are
// externally supplied retrieval seeds, typically entity names mentioned in
// the goal; KnownEntities marks which seed entities have an authored card;
// LatestAnswers is the per-chapter answer memory keyed by question key.
type Input struct {
	ProjectID         string
	Chapter           string
	Goal              string
	Brief             Brief
	Language          string
	SeedCharacters    []string
	SeedWorldEntities []string
	RecentChapters    []string
	ExtraQueries      []string
	KnownEntities     map[string]bool
	LatestAnswers     map[string]answers.Answer
	Offline           bool
}

// Options tune a run.
type Options struct {
	MaxRounds             int
	MaxQuestions          int
	ForceMinimumQuestions bool
	Thresholds            Thresholds
	Progress              progress.Func
}

// Controller drives the multi-round research loop.
type Controller struct {
	retriever *Retriever
	planner   planner.Planner
}

// NewController creates a loop controller. planner may be nil for purely
// offline use.
func NewController(retriever *Retriever, p planner.Planner) *Controller {
	return &Controller{retriever: retriever, planner: p}
}

// Run executes the research loop for one chapter. It only fails on context
// cancellation; every collaborator failure degrades into a stop reason.
func (c *Controller) Run(ctx context.Context, input Input, opts Options) (*Result, error) {
	if opts.MaxRounds < 1 {
		opts.MaxRounds = 1
	}
	th := opts.Thresholds

	gaps := BuildGaps(input.Goal, input.Brief, input.Language, input.SeedCharacters)
	if extras := textutil.UniqueStrings(input.ExtraQueries); len(extras) > 0 {
		gaps = append(gaps, ExtraResearchGap(input.Language, extras))
	}
	exclude, unknown := ApplyAnswers(input.Chapter, gaps, input.LatestAnswers, th)
	focus := FocusTerms(input.Goal, input.SeedCharacters)

	progress.Notify(opts.Progress, progress.Event{
		Stage: progress.StageCardLookup, Round: 1, Total: opts.MaxRounds,
		Message: cardLookupMessage(input),
	})

	pool := make(map[string]evidence.SearchResult)
	var groups []EvidenceGroup
	var requests []RetrievalRequest
	var queryList []string
	var report SufficiencyReport
	var note string
	stop := StopReason("")
	rounds := 0

	for round := 1; round <= opts.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rounds = round

		if round == 1 {
			// Baseline pass: every gap retrieves on its own queries.
			progress.Notify(opts.Progress, progress.Event{
				Stage: progress.StageRetrieving, Round: round, Total: opts.MaxRounds,
				Message: "baseline retrieval",
			})
			for i := range gaps {
				gap := &gaps[i]
				if SkipRetrieval(gap) {
					requests = append(requests, RetrievalRequest{
						GapKind: string(gap.Kind), GapText: gap.Text,
						Queries: gap.Queries, Round: round, Skipped: true,
					})
					continue
				}
				results := c.retriever.ForGap(ctx, input.ProjectID, gap, input.Goal, input.RecentChapters)
				mergePool(pool, results)
				groups = append(groups, EvidenceGroup{
					GapKind: string(gap.Kind), GapText: gap.Text,
					Queries: gap.Queries, Items: results,
				})
				requests = append(requests, RetrievalRequest{
					GapKind: string(gap.Kind), GapText: gap.Text,
					Queries: gap.Queries, Round: round, Count: len(results),
				})
				queryList = append(queryList, gap.Queries...)
			}
			if len(pool) == 0 {
				// Last resort before giving up: search the raw goal text.
				results := c.retriever.ForGoal(ctx, input.ProjectID, input.Goal, input.RecentChapters)
				mergePool(pool, results)
				requests = append(requests, RetrievalRequest{
					GapKind: "fallback", Queries: []string{input.Goal},
					Round: round, Count: len(results),
				})
			}
			if len(pool) == 0 {
				stop = StopEmptyPayload
				break
			}
		}

		progress.Notify(opts.Progress, progress.Event{
			Stage: progress.StageScoring, Round: round, Total: opts.MaxRounds,
		})
		ScoreGaps(gaps, poolSlice(pool))
		report = Classify(gaps, focus, unknown, poolSlice(pool), th)
		if report.Sufficient {
			stop = StopSufficient
			break
		}

		if input.Offline {
			stop = StopOffline
			break
		}
		if round == opts.MaxRounds {
			stop = StopMaxRounds
			break
		}

		queries, planNote := c.plan(ctx, input, gaps, pool, round, opts, note, th)
		if planNote != "" {
			note = planNote
		}
		if len(queries) == 0 {
			stop = StopNoQueries
			break
		}

		progress.Notify(opts.Progress, progress.Event{
			Stage: progress.StageRetrieving, Round: round + 1, Total: opts.MaxRounds,
			Message: fmt.Sprintf("%d planned queries", len(queries)),
		})
		var planned []string
		var count int
		for _, q := range queries {
			results := c.retriever.ForQuery(ctx, input.ProjectID, q)
			mergePool(pool, results)
			count += len(results)
			planned = append(planned, q.Text)
		}
		gaps = mergePlannedQueries(gaps, input.Language, planned)
		requests = append(requests, RetrievalRequest{
			GapKind: string(GapExtraResearch), Queries: planned,
			Round: round + 1, Count: count,
		})
		queryList = append(queryList, planned...)
	}

	// Final state for whatever round we stopped in.
	items := poolSlice(pool)
	ScoreGaps(gaps, items)
	report = Classify(gaps, focus, unknown, items, th)
	if stop == "" {
		stop = StopMaxRounds
	}
	unresolved := SelectUnresolvedGaps(gaps, focus, th, opts.ForceMinimumQuestions)

	result := &Result{
		ProjectID:      input.ProjectID,
		Chapter:        input.Chapter,
		Goal:           input.Goal,
		Gaps:           gaps,
		UnresolvedGaps: unresolved,
		Report:         report,
		EvidencePack: EvidencePack{
			Items:  items,
			Groups: groups,
			Stats: EvidenceStats{
				Total:   len(items),
				Types:   countTypes(items),
				Queries: textutil.UniqueStrings(queryList),
			},
		},
		RetrievalRequests: requests,
		SeedEntities:      textutil.UniqueStrings(append(append([]string{}, input.SeedCharacters...), input.SeedWorldEntities...)),
		StopReason:        stop,
		Rounds:            rounds,
		Evidence:          items,
	}

	// Questions go out only when the loop exhausted its rounds and still
	// needs the user.
	if stop == StopMaxRounds && report.NeedsUserInput {
		result.Questions = GenerateQuestions(input.Chapter, input.Language, unresolved, opts.MaxQuestions, exclude)
	}

	progress.Notify(opts.Progress, progress.Event{
		Stage: progress.StageCompiling, Round: rounds, Total: opts.MaxRounds,
	})
	result.Memory = Compile(input.Goal, input.Language, input.Brief, focus, unresolved, items, th)

	progress.Notify(opts.Progress, progress.Event{
		Stage: progress.StageDone, Round: rounds, Total: opts.MaxRounds,
		Message: string(stop),
	})
	return result, nil
}

// plan asks the planner for the next round's queries. Planner failure is a
// degraded empty plan, not an error.
func (c *Controller) plan(ctx context.Context, input Input, gaps []Gap, pool map[string]evidence.SearchResult, round int, opts Options, note string, th Thresholds) ([]planner.Query, string) {
	if c.planner == nil {
		return nil, ""
	}
	progress.Notify(opts.Progress, progress.Event{
		Stage: progress.StagePlanning, Round: round, Total: opts.MaxRounds,
	})

	summaries := make([]planner.GapSummary, 0, len(gaps))
	for i := range gaps {
		if gaps[i].Answered || !gaps[i].AskUser {
			continue
		}
		summaries = append(summaries, planner.GapSummary{
			Kind:  string(gaps[i].Kind),
			Text:  gaps[i].Text,
			Score: gaps[i].Score,
			Weak:  gaps[i].Score < th.MinGapSupport,
		})
	}

	plan, err := c.planner.Plan(ctx, planner.Request{
		Language:     input.Language,
		Chapter:      input.Chapter,
		Goal:         input.Goal,
		Brief:        input.Brief.Text,
		Round:        round + 1,
		MaxRounds:    opts.MaxRounds,
		Gaps:         summaries,
		Evidence:     countTypes(poolSlice(pool)),
		PreviousNote: note,
	})
	if err != nil {
		log.Printf("warning: planner failed, stopping retrieval: %v", err)
		return nil, ""
	}
	return plan.Queries, plan.Note
}

// mergePlannedQueries folds planner queries into the supplementary research
// gap so every retrieved query stays attached to a gap. The gap is created
// on first use.
func mergePlannedQueries(gaps []Gap, language string, planned []string) []Gap {
	planned = textutil.UniqueStrings(planned)
	if len(planned) == 0 {
		return gaps
	}
	for i := range gaps {
		if gaps[i].Kind == GapExtraResearch {
			gaps[i].Queries = textutil.UniqueStrings(append(gaps[i].Queries, planned...))
			return gaps
		}
	}
	return append(gaps, ExtraResearchGap(language, planned))
}

func cardLookupMessage(input Input) string {
	seeds := append(append([]string{}, input.SeedCharacters...), input.SeedWorldEntities...)
	hits := 0
	for _, name := range seeds {
		if input.KnownEntities[name] {
			hits++
		}
	}
	return fmt.Sprintf("%d of %d entities have cards", hits, len(seeds))
}
