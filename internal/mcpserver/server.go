// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ehwaz asset tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ehwaz/internal/assetsvc"
	"github.com/starford/ehwaz/internal/models"
)

// Server wraps the MCP server with Ehwaz tools.
type Server struct {
	mcp *server.MCPServer
	svc *assetsvc.Service
}

// New creates a new MCP server with all Ehwaz tools registered.
func New(svc *assetsvc.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Ehwaz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_assets",
		mcp.WithDescription("List indexed media assets, optionally filtered by scope and kind."),
		mcp.WithString("type", mcp.Description("Scope filter: input, output or custom")),
		mcp.WithString("kind", mcp.Description("Kind filter: video, audio or image")),
	), s.listAssets)

	s.mcp.AddTool(mcp.NewTool("search_assets",
		mcp.WithDescription("Search indexed assets by filename or subfolder substring."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search term")),
	), s.searchAssets)

	s.mcp.AddTool(mcp.NewTool("stage_asset",
		mcp.WithDescription("Copy an asset into the input root so a graph can consume it."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Asset filename")),
		mcp.WithString("subfolder", mcp.Description("Subfolder under the scope root")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Source scope: input, output or custom")),
		mcp.WithString("root_id", mcp.Description("Custom root id, empty otherwise")),
	), s.stageAsset)

	s.mcp.AddTool(mcp.NewTool("extract_workflow",
		mcp.WithDescription("Return the node-graph workflow embedded in a media asset, if any."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Asset filename")),
		mcp.WithString("subfolder", mcp.Description("Subfolder under the scope root")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Scope: input, output or custom")),
		mcp.WithString("root_id", mcp.Description("Custom root id, empty otherwise")),
	), s.extractWorkflow)

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

// optString reads an optional string argument, empty when absent.
func optString(req mcp.CallToolRequest, key string) string {
	if v, err := req.RequireString(key); err == nil {
		return v
	}
	return ""
}

func (s *Server) listAssets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scope := models.Scope(optString(req, "type"))
	kind := models.Kind(optString(req, "kind"))
	rows, total, err := s.svc.List(100, 0, scope, kind)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{"assets": rows, "total": total}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchAssets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rows, err := s.svc.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(rows, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) stageAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	scope, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	staged, err := s.svc.Stage([]assetsvc.StageFile{{
		Filename:  filename,
		Subfolder: optString(req, "subfolder"),
		Scope:     models.Scope(scope),
		RootID:    optString(req, "root_id"),
	}}, true, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rel := staged[0].Name
	if staged[0].Subfolder != "" {
		rel = staged[0].Subfolder + "/" + staged[0].Name
	}
	return mcp.NewToolResultText(fmt.Sprintf("staged: %s", rel)), nil
}

func (s *Server) extractWorkflow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	scope, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	wf, err := s.svc.Workflow(
		models.Scope(scope),
		optString(req, "root_id"),
		optString(req, "subfolder"),
		filename,
	)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("no workflow in %s", filename)), nil
	}
	return mcp.NewToolResultText(string(wf)), nil
}
