// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes md-feedback review tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/seonyeomin-rgb/md-feedback/internal/annotation"
	"github.com/seonyeomin-rgb/md-feedback/internal/docservice"
	"github.com/seonyeomin-rgb/md-feedback/internal/storage"
)

// Server wraps the MCP server with md-feedback tools.
type Server struct {
	mcp   *server.MCPServer
	store storage.Provider
	svc   *docservice.Service
}

// New creates a new MCP server with all review tools registered.
func New(store storage.Provider, svc *docservice.Service) *Server {
	s := &Server{store: store, svc: svc}

	s.mcp = server.NewMCPServer(
		"md-feedback",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List annotated documents with their memo counters. "+
			"Pass filter=open to see only documents with open memos."),
		mcp.WithString("filter", mcp.Description("Optional filter: 'open' for documents with open memos")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the full content of a Markdown document, annotations included."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. reviews/auth.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("add_memo",
		mcp.WithDescription("Attach a feedback memo to a document. Memos MUST follow the "+
			"annotation format contract; read it first via the get_feedback_contract tool "+
			"or the mdfb://feedback-format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Memo text")),
		mcp.WithString("type", mcp.Description("Memo type: fix, question, or highlight (default fix)")),
		mcp.WithNumber("line", mcp.Description("1-based body line to anchor to (0 or absent for unanchored)")),
	), s.addMemo)

	s.mcp.AddTool(mcp.NewTool("set_memo_status",
		mcp.WithDescription("Update the status of one memo: open, answered, done, or wontfix."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Memo id")),
		mcp.WithString("status", mcp.Required(), mcp.Description("New status")),
	), s.setMemoStatus)

	s.mcp.AddTool(mcp.NewTool("review_status",
		mcp.WithDescription("Report the live review state of a document: annotation counters, "+
			"open memos, gate statuses, plan cursor, and annotated sections."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path")),
	), s.reviewStatus)

	s.mcp.AddTool(mcp.NewTool("set_cursor",
		mcp.WithDescription("Record the current task/step cursor in a document for session continuity."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path")),
		mcp.WithString("taskId", mcp.Required(), mcp.Description("Task identifier")),
		mcp.WithString("step", mcp.Description("Current step")),
		mcp.WithString("nextAction", mcp.Description("What to do next")),
	), s.setCursor)

	s.mcp.AddTool(mcp.NewTool("create_checkpoint",
		mcp.WithDescription("Snapshot the document's annotation counters as an append-only checkpoint line."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path")),
		mcp.WithString("note", mcp.Description("Optional checkpoint note")),
	), s.createCheckpoint)

	s.mcp.AddTool(mcp.NewTool("search_feedback",
		mcp.WithDescription("Full-text search across document titles, bodies, and memo text."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchFeedback)

	s.mcp.AddTool(mcp.NewTool("get_feedback_contract",
		mcp.WithDescription("Returns the canonical annotation format contract. "+
			"Call this before writing memos, gates, cursors, or checkpoints."),
	), s.getFeedbackContract)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Upload a review screenshot or asset from a URL or data URI into "+
			"the attachments directory. Returns a markdownImage snippet to paste into memo text."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or base64 data URI")),
		mcp.WithString("filename", mcp.Description("Optional target filename")),
	), s.uploadAsset)

	// Resource: annotation format contract.
	s.mcp.AddResource(
		mcp.NewResource("mdfb://feedback-format", "Annotation Format Contract",
			mcp.WithResourceDescription("Canonical annotation comment format that all feedback must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFeedbackFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := req.GetString("filter", "")
	items, _, err := s.svc.ListDocuments(ctx, 200, 0, filter, "path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) addMemo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	memo := annotation.Memo{
		ID:    uuid.NewString(),
		Type:  req.GetString("type", ""),
		Owner: annotation.OwnerAgent,
		Text:  text,
	}
	line := req.GetInt("line", 0)

	doc, err := s.svc.AddMemo(ctx, path, memo, line)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	added := annotation.FindMemo(doc.Memos, memo.ID)
	out, _ := json.MarshalIndent(added, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) setMemoStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.SetMemoStatus(ctx, path, id, status); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("memo %s: %s", id, status)), nil
}

func (s *Server) reviewStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	st, err := s.svc.Status(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(st, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) setCursor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	taskID, err := req.RequireString("taskId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c := annotation.Cursor{
		TaskID:     taskID,
		Step:       req.GetString("step", ""),
		NextAction: req.GetString("nextAction", ""),
	}
	if _, err := s.svc.SetCursor(ctx, path, c); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("cursor set: %s", taskID)), nil
}

func (s *Server) createCheckpoint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cp, err := s.svc.CreateCheckpoint(ctx, path, "", req.GetString("note", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(cp, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchFeedback(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getFeedbackContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FeedbackFormatContract), nil
}

func (s *Server) readFeedbackFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "mdfb://feedback-format",
			MIMEType: "text/markdown",
			Text:     FeedbackFormatContract,
		},
	}, nil
}
