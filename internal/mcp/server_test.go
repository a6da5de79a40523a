package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/plotforge/plotforge/internal/answers"
	"github.com/plotforge/plotforge/internal/binding"
	"github.com/plotforge/plotforge/internal/cards"
	"github.com/plotforge/plotforge/internal/config"
	"github.com/plotforge/plotforge/internal/db"
	"github.com/plotforge/plotforge/internal/evidence"
	"github.com/plotforge/plotforge/internal/memorypack"
	"github.com/plotforge/plotforge/internal/research"
	"github.com/plotforge/plotforge/internal/session"
)

func newTestMCPServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cardStore := cards.NewStore(database)
	binder := binding.New(database, cardStore)
	answerStore := answers.NewStore(database)
	packStore := memorypack.NewStore(database)
	evidenceStore := evidence.NewStore(database)
	index, err := evidence.NewIndex(evidenceStore, nil, "", cfg.Research.RerankTopK)
	if err != nil {
		t.Fatalf("creating index: %v", err)
	}
	controller := research.NewController(research.NewRetriever(index), nil)
	sess := session.New(cfg, cardStore, binder, answerStore, packStore,
		evidenceStore, index, controller, nil)

	return NewServer(sess, packStore, cardStore, index), database
}

func seedProject(t *testing.T, database *db.DB) {
	t.Helper()
	ctx := context.Background()
	cardStore := cards.NewStore(database)
	binder := binding.New(database, cardStore)
	store := evidence.NewStore(database)

	if err := cardStore.Upsert(ctx, &cards.Card{
		ProjectID: "p1", Kind: cards.KindCharacter, Name: "张三",
		Fields: []cards.Field{{Key: "动机", Value: "寻找失踪的妹妹", Stars: 4}},
	}); err != nil {
		t.Fatalf("upserting card: %v", err)
	}
	if err := binder.Upsert(ctx, &binding.Binding{
		ProjectID: "p1", Chapter: "ch1", Seq: 1, Characters: []string{"张三"},
	}); err != nil {
		t.Fatalf("upserting binding: %v", err)
	}
	if err := store.Add(ctx, []evidence.Item{{
		ProjectID: "p1", Kind: evidence.KindFact,
		Text:   "已确立的关键事实：主角抵达港口前已经航行了三天",
		Source: map[string]string{"origin": "import", "path": "ch0.md"},
	}}); err != nil {
		t.Fatalf("adding evidence: %v", err)
	}
}

// harborBrief settles timing and rules up front so research can reach a
// sufficient stop from the seeded evidence alone.
const harborBrief = "时间是深夜，城内规则禁止夜行。"

func callTool(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	var out strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			out.WriteString(tc.Text)
		}
	}
	return out.String()
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		tool mcp.Tool
		want string
	}{
		{researchChapterTool, "research_chapter"},
		{getMemoryPackTool, "get_memory_pack"},
		{searchEvidenceTool, "search_evidence"},
		{submitAnswerTool, "submit_answer"},
		{listCardsTool, "list_cards"},
	}
	for _, tt := range tests {
		if tt.tool.Name != tt.want {
			t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.want)
		}
		if tt.tool.Description == "" {
			t.Errorf("tool %s has no description", tt.want)
		}
	}
}

func TestHandleResearchChapter(t *testing.T) {
	s, database := newTestMCPServer(t)
	seedProject(t, database)
	ctx := context.Background()

	result, err := s.handleResearchChapter(ctx, callTool(map[string]any{
		"project_id": "p1",
		"chapter":    "ch1",
		"goal":       "主角抵达港口",
		"brief":      harborBrief,
		"forbidden":  []any{"主角使用魔法"},
	}))
	if err != nil {
		t.Fatalf("handleResearchChapter: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %v", result.Content)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "主角抵达港口") || !strings.Contains(text, "sufficient") {
		t.Errorf("unexpected output:\n%s", text)
	}
}

func TestHandleResearchChapterMissingGoal(t *testing.T) {
	s, _ := newTestMCPServer(t)
	result, err := s.handleResearchChapter(context.Background(), callTool(map[string]any{
		"project_id": "p1",
		"chapter":    "ch1",
	}))
	if err != nil {
		t.Fatalf("handleResearchChapter: %v", err)
	}
	if !result.IsError {
		t.Error("expected error for missing goal")
	}
}

func TestHandleGetMemoryPack(t *testing.T) {
	s, database := newTestMCPServer(t)
	seedProject(t, database)
	ctx := context.Background()

	// No pack yet.
	result, err := s.handleGetMemoryPack(ctx, callTool(map[string]any{
		"project_id": "p1", "chapter": "ch1",
	}))
	if err != nil {
		t.Fatalf("handleGetMemoryPack: %v", err)
	}
	if !result.IsError {
		t.Error("expected error before research ran")
	}

	if _, err := s.handleResearchChapter(ctx, callTool(map[string]any{
		"project_id": "p1", "chapter": "ch1", "goal": "主角抵达港口", "brief": harborBrief,
	})); err != nil {
		t.Fatalf("handleResearchChapter: %v", err)
	}

	result, err = s.handleGetMemoryPack(ctx, callTool(map[string]any{
		"project_id": "p1", "chapter": "ch1",
	}))
	if err != nil {
		t.Fatalf("handleGetMemoryPack: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %v", result.Content)
	}
	if !strings.Contains(resultText(t, result), "主角抵达港口") {
		t.Errorf("pack output missing goal:\n%s", resultText(t, result))
	}
}

func TestHandleSearchEvidence(t *testing.T) {
	s, database := newTestMCPServer(t)
	seedProject(t, database)
	ctx := context.Background()

	result, err := s.handleSearchEvidence(ctx, callTool(map[string]any{
		"project_id": "p1", "query": "主角抵达港口",
	}))
	if err != nil {
		t.Fatalf("handleSearchEvidence: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %v", result.Content)
	}
	if !strings.Contains(resultText(t, result), "航行了三天") {
		t.Errorf("search output missing evidence:\n%s", resultText(t, result))
	}

	// A kind filter that matches nothing yields the guidance text.
	result, err = s.handleSearchEvidence(ctx, callTool(map[string]any{
		"project_id": "p1", "query": "主角抵达港口", "kind": "world_rule",
	}))
	if err != nil {
		t.Fatalf("handleSearchEvidence: %v", err)
	}
	if result.IsError || !strings.Contains(resultText(t, result), "No matching evidence") {
		t.Errorf("unexpected filtered output:\n%s", resultText(t, result))
	}
}

func TestHandleSubmitAnswer(t *testing.T) {
	s, database := newTestMCPServer(t)
	ctx := context.Background()

	result, err := s.handleSubmitAnswer(ctx, callTool(map[string]any{
		"project_id":   "p1",
		"chapter":      "ch1",
		"question_key": "k1",
		"question":     "张三的动机？",
		"answer":       "复仇",
	}))
	if err != nil {
		t.Fatalf("handleSubmitAnswer: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %v", result.Content)
	}

	stored, err := answers.NewStore(database).ByChapter(ctx, "p1", "ch1")
	if err != nil {
		t.Fatalf("ByChapter: %v", err)
	}
	if len(stored) != 1 || stored[0].Answer != "复仇" {
		t.Errorf("answer not stored: %+v", stored)
	}
}

func TestHandleListCards(t *testing.T) {
	s, database := newTestMCPServer(t)
	seedProject(t, database)

	result, err := s.handleListCards(context.Background(), callTool(map[string]any{
		"project_id": "p1",
	}))
	if err != nil {
		t.Fatalf("handleListCards: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %v", result.Content)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "张三") || !strings.Contains(text, "★★★★") {
		t.Errorf("card listing incomplete:\n%s", text)
	}
}
