// Package planner asks the LLM which retrieval queries to run next for a
// chapter's unresolved knowledge gaps.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/plotforge/plotforge/internal/llm"
	"github.com/plotforge/plotforge/internal/textutil"
)

// GapSummary is the planner's view of one knowledge gap.
type GapSummary struct {
	Kind  string  `json:"kind"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
	Weak  bool    `json:"weak"`
}

// Request carries everything the planner needs for one round. Evidence
// holds per-kind counts of what retrieval has already collected, so the
// model stops proposing queries for ground that is covered.
type Request struct {
	Language     string
	Chapter      string
	Goal         string
	Brief        string
	Round        int
	MaxRounds    int
	Gaps         []GapSummary
	Evidence     map[string]int
	PreviousNote string
}

// Query is one retrieval request proposed by the planner.
type Query struct {
	Text    string   `json:"query"`
	Kinds   []string `json:"kinds,omitempty"`
	GapKind string   `json:"gap_kind,omitempty"`
}

// Plan is the planner's output for one round. An empty Queries slice tells
// the loop there is nothing left worth retrieving.
type Plan struct {
	Queries []Query `json:"queries"`
	Note    string  `json:"note,omitempty"`
}

// Planner proposes retrieval queries. Implementations must never return a
// nil plan together with a nil error.
type Planner interface {
	Plan(ctx context.Context, req Request) (*Plan, error)
}

// LLMPlanner implements Planner on an llm.Provider.
type LLMPlanner struct {
	provider llm.Provider
}

// NewLLMPlanner creates a planner backed by the given provider.
func NewLLMPlanner(provider llm.Provider) *LLMPlanner {
	return &LLMPlanner{provider: provider}
}

// Plan asks the model for the next round of queries. Transport failures are
// returned as errors; malformed model output degrades to an empty plan.
func (p *LLMPlanner) Plan(ctx context.Context, req Request) (*Plan, error) {
	resp, err := p.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt(req.Language)},
			{Role: llm.RoleUser, Content: userPrompt(req)},
		},
		MaxTokens:   1024,
		Temperature: 0.2,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("planner completion: %w", err)
	}

	plan := parsePlan(resp.Content)
	return plan, nil
}

// parsePlan extracts a Plan from model output, tolerating fenced code blocks
// and dropping malformed entries rather than failing.
func parsePlan(content string) *Plan {
	content = stripFences(content)

	var raw struct {
		Queries []Query `json:"queries"`
		Note    string  `json:"note"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		log.Printf("warning: discarding malformed plan: %v", err)
		return &Plan{}
	}

	plan := &Plan{Note: strings.TrimSpace(raw.Note)}
	seen := make(map[string]bool)
	for _, q := range raw.Queries {
		text := strings.TrimSpace(q.Text)
		if text == "" {
			continue
		}
		key := textutil.NormalizeForDedup(text)
		if seen[key] {
			continue
		}
		seen[key] = true
		plan.Queries = append(plan.Queries, Query{
			Text:    text,
			Kinds:   textutil.UniqueStrings(q.Kinds),
			GapKind: strings.TrimSpace(q.GapKind),
		})
	}
	return plan
}

func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
	}
	return strings.TrimSpace(content)
}
