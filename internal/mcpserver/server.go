// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Fixport tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/calloway/fixport/internal/catalog"
	"github.com/calloway/fixport/internal/index"
	"github.com/calloway/fixport/internal/publish"
	"github.com/calloway/fixport/internal/schema"
)

// Server wraps the MCP server with Fixport tools.
type Server struct {
	mcp      *server.MCPServer
	resolver *catalog.Resolver
	db       index.FixIndex
	pub      *publish.Service
}

// New creates a new MCP server with all Fixport tools registered.
// pub may be nil when no publish backend is configured; the publish_fix
// tool then reports that publishing is unavailable.
func New(resolver *catalog.Resolver, db index.FixIndex, pub *publish.Service) *Server {
	s := &Server{resolver: resolver, db: db, pub: pub}

	s.mcp = server.NewMCPServer(
		"Fixport",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_fixes",
		mcp.WithDescription("Full-text search through fix titles, descriptions and steps."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchFixes)

	s.mcp.AddTool(mcp.NewTool("get_fix",
		mcp.WithDescription("Read the full fix entry for a slug, including all steps."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Fix slug (e.g. outlook-search-broken)")),
	), s.getFix)

	s.mcp.AddTool(mcp.NewTool("list_fixes",
		mcp.WithDescription("List all fixes in the merged catalog, optionally filtered by category."),
		mcp.WithString("category", mcp.Description("Optional category filter (empty for all)")),
	), s.listFixes)

	s.mcp.AddTool(mcp.NewTool("publish_fix",
		mcp.WithDescription("Validate and publish a fix entry to the shared store. "+
			"The entry MUST follow the canonical fix format. Read the contract first via "+
			"the get_fix_contract tool or the fixport://fix-format resource."),
		mcp.WithString("fix", mcp.Required(), mcp.Description("Complete fix entry as a JSON object string")),
		mcp.WithString("identity", mcp.Description("Who is publishing (recorded in the store)")),
	), s.publishFix)

	s.mcp.AddTool(mcp.NewTool("get_fix_contract",
		mcp.WithDescription("Returns the canonical Fixport fix entry contract. "+
			"Call this before publishing fixes to ensure correct structure."),
	), s.getFixContract)

	// Resource: fix format contract.
	s.mcp.AddResource(
		mcp.NewResource("fixport://fix-format", "Fix Format Contract",
			mcp.WithResourceDescription("Canonical fix entry format that all published fixes must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFixFormatResource,
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

func (s *Server) searchFixes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getFix(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fix, ok := s.resolver.Get(slug)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", slug)), nil
	}
	out, _ := json.MarshalIndent(fix, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listFixes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := ""
	if c, err := req.RequireString("category"); err == nil {
		category = c
	}

	var lines []string
	for _, e := range s.resolver.Catalog() {
		if category != "" && e.Category != category {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s\t%s\t[%s/%s]", e.Slug, e.Title, e.Category, e.Severity))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no fixes found"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) publishFix(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.pub == nil {
		return mcp.NewToolResultError("publishing is not configured on this server"), nil
	}
	raw, err := req.RequireString("fix")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	identity := ""
	if id, idErr := req.RequireString("identity"); idErr == nil {
		identity = id
	}

	res, err := s.pub.Publish(ctx, json.RawMessage(raw), identity, "")
	if err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			return mcp.NewToolResultError("validation failed:\n" + strings.Join(verr.Issues, "\n")), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getFixContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FixFormatContract), nil
}

func (s *Server) readFixFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "fixport://fix-format",
			MIMEType: "text/markdown",
			Text:     FixFormatContract,
		},
	}, nil
}
