package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/plotforge/plotforge/internal/llm"
)

// fakeProvider returns a canned completion.
type fakeProvider struct {
	content string
	err     error
	last    llm.CompletionRequest
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.content}, nil
}

func TestPlanParsesQueries(t *testing.T) {
	provider := &fakeProvider{content: `{
		"queries": [
			{"query": "守卫换班时间", "kinds": ["fact"], "gap_kind": "fact"},
			{"query": "港口的宵禁规则", "kinds": ["world_rule"]}
		],
		"note": "下一轮确认时间线"
	}`}
	p := NewLLMPlanner(provider)

	plan, err := p.Plan(context.Background(), Request{
		Language: "zh", Chapter: "ch1", Goal: "主角夜里潜入港口", Round: 1, MaxRounds: 5,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Queries) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(plan.Queries))
	}
	if plan.Queries[0].Text != "守卫换班时间" || plan.Queries[0].GapKind != "fact" {
		t.Errorf("unexpected first query: %+v", plan.Queries[0])
	}
	if plan.Note != "下一轮确认时间线" {
		t.Errorf("unexpected note: %q", plan.Note)
	}
	if !provider.last.JSONMode {
		t.Error("expected JSON mode request")
	}
}

func TestPlanToleratesFencedOutput(t *testing.T) {
	provider := &fakeProvider{content: "```json\n{\"queries\":[{\"query\":\"守卫\"}]}\n```"}
	plan, err := NewLLMPlanner(provider).Plan(context.Background(), Request{Language: "zh"})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Queries) != 1 || plan.Queries[0].Text != "守卫" {
		t.Fatalf("unexpected plan: %+v", plan)
	}
}

func TestPlanMalformedOutputDegradesToEmpty(t *testing.T) {
	provider := &fakeProvider{content: "抱歉，我无法回答。"}
	plan, err := NewLLMPlanner(provider).Plan(context.Background(), Request{Language: "zh"})
	if err != nil {
		t.Fatalf("Plan should not fail on malformed output: %v", err)
	}
	if len(plan.Queries) != 0 {
		t.Errorf("expected empty queries, got %+v", plan.Queries)
	}
}

func TestPlanDropsBlankAndDuplicateQueries(t *testing.T) {
	provider := &fakeProvider{content: `{"queries":[
		{"query": " 守卫换班 "},
		{"query": "守卫换班。"},
		{"query": "   "}
	]}`}
	plan, err := NewLLMPlanner(provider).Plan(context.Background(), Request{Language: "zh"})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Queries) != 1 {
		t.Fatalf("expected deduped single query, got %+v", plan.Queries)
	}
}

func TestPlanTransportErrorPropagates(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	_, err := NewLLMPlanner(provider).Plan(context.Background(), Request{Language: "zh"})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRoundStrategyProgression(t *testing.T) {
	first := roundStrategy(1, 5, "zh")
	second := roundStrategy(2, 5, "zh")
	late := roundStrategy(4, 5, "zh")
	if first == second || second == late {
		t.Error("expected distinct strategies per round phase")
	}
	if !strings.Contains(late, "4") {
		t.Errorf("late strategy should mention the round: %q", late)
	}
}

func TestUserPromptIncludesGapsAndNote(t *testing.T) {
	prompt := userPrompt(Request{
		Language:  "zh",
		Chapter:   "ch2",
		Goal:      "主角抵达港口",
		Round:     2,
		MaxRounds: 5,
		Gaps: []GapSummary{
			{Kind: "plot_point", Text: "主角如何避开守卫", Score: 1.5, Weak: true},
		},
		Evidence:     map[string]int{"fact": 3, "world_rule": 1},
		PreviousNote: "先确认守卫路线",
	})
	for _, want := range []string{"主角抵达港口", "主角如何避开守卫", "先确认守卫路线", "weak",
		"已收集的证据：", "- fact: 3", "- world_rule: 1"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
