// Package mcp exposes the research engine to MCP clients, so writing agents
// can request chapter memory packs and query evidence over stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/plotforge/plotforge/internal/cards"
	"github.com/plotforge/plotforge/internal/evidence"
	"github.com/plotforge/plotforge/internal/memorypack"
	"github.com/plotforge/plotforge/internal/session"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server over the research session.
type Server struct {
	session  *session.Session
	packs    *memorypack.Store
	cards    *cards.Store
	searcher evidence.Searcher
	mcp      *server.MCPServer
}

// NewServer creates an MCP server with the given dependencies.
func NewServer(sess *session.Session, packs *memorypack.Store, cardStore *cards.Store, searcher evidence.Searcher) *Server {
	s := &Server{
		session:  sess,
		packs:    packs,
		cards:    cardStore,
		searcher: searcher,
	}

	s.mcp = server.NewMCPServer(
		"plotforge",
		Version,
		server.WithToolCapabilities(false),
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(researchChapterTool, s.handleResearchChapter)
	s.mcp.AddTool(getMemoryPackTool, s.handleGetMemoryPack)
	s.mcp.AddTool(searchEvidenceTool, s.handleSearchEvidence)
	s.mcp.AddTool(submitAnswerTool, s.handleSubmitAnswer)
	s.mcp.AddTool(listCardsTool, s.handleListCards)
}

// Serve starts the MCP server on stdio. Stdout carries protocol messages;
// all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
