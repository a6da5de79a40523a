package mcp

import "github.com/mark3labs/mcp-go/mcp"

// researchChapterTool defines the research_chapter MCP tool.
var researchChapterTool = mcp.NewTool("research_chapter",
	mcp.WithDescription("Run context research for a chapter and return its working memory pack. Ask the returned questions to the author when the pack reports needs_user_input."),
	mcp.WithString("project_id",
		mcp.Required(),
		mcp.Description("Project identifier"),
	),
	mcp.WithString("chapter",
		mcp.Required(),
		mcp.Description("Chapter identifier"),
	),
	mcp.WithString("goal",
		mcp.Required(),
		mcp.Description("What the chapter is supposed to accomplish"),
	),
	mcp.WithString("brief",
		mcp.Description("Optional scene brief with known timing and constraints"),
	),
	mcp.WithArray("world_constraints",
		mcp.Description("World rules that must hold in this chapter"),
		mcp.Items(map[string]any{"type": "string"}),
	),
	mcp.WithArray("forbidden",
		mcp.Description("Things that must not happen in this chapter"),
		mcp.Items(map[string]any{"type": "string"}),
	),
	mcp.WithBoolean("force",
		mcp.Description("Rebuild even when a pack for this goal already exists"),
	),
	mcp.WithBoolean("offline",
		mcp.Description("Skip the LLM planner and stop after baseline retrieval"),
	),
)

// getMemoryPackTool defines the get_memory_pack MCP tool.
var getMemoryPackTool = mcp.NewTool("get_memory_pack",
	mcp.WithDescription("Return the stored working memory pack for a chapter without running research."),
	mcp.WithString("project_id",
		mcp.Required(),
		mcp.Description("Project identifier"),
	),
	mcp.WithString("chapter",
		mcp.Required(),
		mcp.Description("Chapter identifier"),
	),
)

// searchEvidenceTool defines the search_evidence MCP tool.
var searchEvidenceTool = mcp.NewTool("search_evidence",
	mcp.WithDescription("Search the project's evidence store directly. Returns scored items."),
	mcp.WithString("project_id",
		mcp.Required(),
		mcp.Description("Project identifier"),
	),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Search query text"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 10)"),
	),
	mcp.WithString("kind",
		mcp.Description("Restrict results to one evidence kind"),
		mcp.Enum("fact", "summary", "character", "world_entity", "world_rule", "text_chunk", "memory"),
	),
)

// submitAnswerTool defines the submit_answer MCP tool.
var submitAnswerTool = mcp.NewTool("submit_answer",
	mcp.WithDescription("Record the author's answer to a research question. Re-run research_chapter with force to apply it."),
	mcp.WithString("project_id",
		mcp.Required(),
		mcp.Description("Project identifier"),
	),
	mcp.WithString("chapter",
		mcp.Required(),
		mcp.Description("Chapter identifier"),
	),
	mcp.WithString("question_key",
		mcp.Required(),
		mcp.Description("The key of the question being answered"),
	),
	mcp.WithString("question",
		mcp.Description("The question text"),
	),
	mcp.WithString("answer",
		mcp.Required(),
		mcp.Description("The author's answer"),
	),
)

// listCardsTool defines the list_cards MCP tool.
var listCardsTool = mcp.NewTool("list_cards",
	mcp.WithDescription("List the project's character and world cards."),
	mcp.WithString("project_id",
		mcp.Required(),
		mcp.Description("Project identifier"),
	),
)
