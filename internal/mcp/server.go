// Package mcp provides Model Context Protocol server functionality.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/helixml/scholar/application/service"
	"github.com/helixml/scholar/internal/config"
)

// Searcher provides abstract search for MCP tools.
type Searcher interface {
	SearchAbstracts(ctx context.Context, keyword string, opts ...service.QueryOption) (service.AbstractPage, error)
}

// Server wraps the MCP server with scholar-specific tools.
type Server struct {
	mcpServer *server.MCPServer
	search    Searcher
	version   string
	logger    *slog.Logger
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(search Searcher, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		search:  search,
		version: version,
		logger:  logger,
	}

	mcpServer := server.NewMCPServer(
		"scholar",
		version,
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s
}

// registerTools registers all scholar tools with the MCP server.
func (s *Server) registerTools(mcpServer *server.MCPServer) {
	searchTool := mcp.NewTool("search_abstracts",
		mcp.WithDescription("Search conference abstracts by semantic similarity to a keyword or phrase"),
		mcp.WithString("keyword",
			mcp.Required(),
			mcp.Description("The search keyword or phrase"),
		),
		mcp.WithNumber("page_size",
			mcp.Description(fmt.Sprintf("Number of results to return (default: %d)", config.DefaultPageSize)),
		),
		mcp.WithNumber("category",
			mcp.Description("Restrict results to one category id"),
		),
	)

	mcpServer.AddTool(searchTool, s.handleSearchAbstracts)

	versionTool := mcp.NewTool("get_version",
		mcp.WithDescription("Get the scholar server version"),
	)

	mcpServer.AddTool(versionTool, s.handleGetVersion)
}

// handleSearchAbstracts handles the search_abstracts tool invocation.
func (s *Server) handleSearchAbstracts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keyword, err := request.RequireString("keyword")
	if err != nil {
		return mcp.NewToolResultError("keyword is required"), nil
	}

	opts := []service.QueryOption{
		service.WithPageSize(request.GetInt("page_size", config.DefaultPageSize)),
		service.WithScores(true),
	}
	if category := request.GetInt("category", 0); category > 0 {
		opts = append(opts, service.WithCategories(int64(category)))
	}

	page, err := s.search.SearchAbstracts(ctx, keyword, opts...)
	if err != nil {
		s.logger.Error("abstract search failed", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	return mcp.NewToolResultText(formatAbstractPage(page)), nil
}

// handleGetVersion handles the get_version tool invocation.
func (s *Server) handleGetVersion(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.version), nil
}

// formatAbstractPage renders one result page as readable text.
func formatAbstractPage(page service.AbstractPage) string {
	if len(page.Hits) == 0 {
		return fmt.Sprintf("No abstracts found for %q.", page.Keyword)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d abstracts for %q (page %d):\n", len(page.Hits), page.Keyword, page.Page)
	for i, hit := range page.Hits {
		fmt.Fprintf(&b, "\n%d. %s", i+1, hit.Abstract.Title())
		if hit.Score != nil {
			fmt.Fprintf(&b, " (score %.4f)", *hit.Score)
		}
		b.WriteByte('\n')
		if event := hit.Abstract.Event(); event != "" {
			fmt.Fprintf(&b, "   Event: %s\n", event)
		}
		if len(hit.Categories) > 0 {
			titles := make([]string, len(hit.Categories))
			for j, c := range hit.Categories {
				titles[j] = c.Title()
			}
			fmt.Fprintf(&b, "   Categories: %s\n", strings.Join(titles, ", "))
		}
		fmt.Fprintf(&b, "   %s\n", excerpt(hit.Abstract.Body(), 280))
	}
	return b.String()
}

// excerpt truncates text at a word boundary near limit.
func excerpt(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= limit {
		return text
	}
	cut := strings.LastIndexByte(text[:limit], ' ')
	if cut <= 0 {
		cut = limit
	}
	return text[:cut] + "..."
}

// MCPServer returns the underlying MCP server for stdio serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio runs the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
