package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/plotforge/plotforge/internal/answers"
	"github.com/plotforge/plotforge/internal/evidence"
	"github.com/plotforge/plotforge/internal/session"
	"github.com/plotforge/plotforge/internal/textutil"
)

func (s *Server) handleResearchChapter(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := request.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project_id"), nil
	}
	chapter, err := request.RequireString("chapter")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: chapter"), nil
	}
	goal, err := request.RequireString("goal")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: goal"), nil
	}

	pack, err := s.session.EnsurePack(ctx, session.Request{
		ProjectID:   projectID,
		Chapter:     chapter,
		Goal:        goal,
		Brief:       request.GetString("brief", ""),
		Constraints: request.GetStringSlice("world_constraints", nil),
		Forbidden:   request.GetStringSlice("forbidden", nil),
		Force:       request.GetBool("force", false),
		Offline:     request.GetBool("offline", false),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("research failed: %v", err)), nil
	}

	payload, err := session.Decode(pack)
	if err != nil {
		return mcp.NewToolResultText("Research found nothing usable for this chapter. Import manuscript files or add cards first."), nil
	}
	return mcp.NewToolResultText(formatPayload(payload)), nil
}

func (s *Server) handleGetMemoryPack(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := request.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project_id"), nil
	}
	chapter, err := request.RequireString("chapter")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: chapter"), nil
	}

	pack, err := s.packs.Get(ctx, projectID, chapter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading pack: %v", err)), nil
	}
	payload, err := session.Decode(pack)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf(
			"No memory pack for chapter %q. Run research_chapter first.", chapter)), nil
	}
	return mcp.NewToolResultText(formatPayload(payload)), nil
}

func (s *Server) handleSearchEvidence(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := request.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project_id"), nil
	}
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}
	opts := evidence.SearchOptions{Limit: limit}
	if kind := request.GetString("kind", ""); kind != "" {
		opts.Kinds = []evidence.Kind{evidence.Kind(kind)}
	}

	results, err := s.searcher.Search(ctx, projectID, query, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No matching evidence. Import manuscript files with `plotforge import` first."), nil
	}

	var out strings.Builder
	for i, r := range results {
		fmt.Fprintf(&out, "%d. [%s] (score %.1f) %s\n",
			i+1, r.Item.Kind, r.Score, textutil.Truncate(r.Item.Text, 200))
	}
	return mcp.NewToolResultText(out.String()), nil
}

func (s *Server) handleSubmitAnswer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := request.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project_id"), nil
	}
	chapter, err := request.RequireString("chapter")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: chapter"), nil
	}
	key, err := request.RequireString("question_key")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question_key"), nil
	}
	answer, err := request.RequireString("answer")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: answer"), nil
	}

	err = s.session.SubmitAnswers(ctx, projectID, chapter, []answers.Answer{{
		QuestionKey: key,
		Question:    request.GetString("question", ""),
		Answer:      answer,
	}})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("storing answer: %v", err)), nil
	}
	return mcp.NewToolResultText("Answer recorded. Re-run research_chapter with force=true to rebuild the pack."), nil
}

func (s *Server) handleListCards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := request.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project_id"), nil
	}

	list, err := s.cards.List(ctx, projectID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing cards: %v", err)), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("No cards in this project."), nil
	}

	var out strings.Builder
	for _, card := range list {
		fmt.Fprintf(&out, "[%s] %s", card.Kind, card.Name)
		if len(card.Aliases) > 0 {
			fmt.Fprintf(&out, " (aka %s)", strings.Join(card.Aliases, ", "))
		}
		out.WriteString("\n")
		for _, field := range card.Fields {
			fmt.Fprintf(&out, "  %s: %s", field.Key, field.Value)
			if field.Stars > 0 {
				fmt.Fprintf(&out, " %s", strings.Repeat("★", field.Stars))
			}
			out.WriteString("\n")
		}
	}
	return mcp.NewToolResultText(out.String()), nil
}

// formatPayload renders a pack payload as tool output text.
func formatPayload(p *session.Payload) string {
	var out strings.Builder
	out.WriteString(p.Memory)
	fmt.Fprintf(&out, "\n\n(stop: %s, rounds: %d, sufficient: %v)\n", p.StopReason, p.Rounds, p.Sufficient)

	if len(p.Questions) > 0 {
		out.WriteString("\nQuestions for the author:\n")
		for _, q := range p.Questions {
			fmt.Fprintf(&out, "- [%s] %s\n", q.Key, q.Text)
		}
	}
	return out.String()
}
