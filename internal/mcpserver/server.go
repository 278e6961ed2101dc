// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes read-only portfolio tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/folio/internal/catalog"
	"github.com/starford/folio/internal/index"
)

const contractURI = "folio://catalog-format"

// Loader reads the current catalog.
type Loader interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
}

// Searcher runs full-text queries over the catalog images.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]index.Hit, error)
}

// Server wraps the MCP server with the portfolio tools.
type Server struct {
	mcp    *server.MCPServer
	loader Loader
	search Searcher
}

// New creates a new MCP server with all tools registered. search may be nil,
// in which case search_images is not offered.
func New(loader Loader, search Searcher, version string) *Server {
	s := &Server{loader: loader, search: search}

	s.mcp = server.NewMCPServer(
		"Folio",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_portfolio",
		mcp.WithDescription("Return the whole normalized portfolio catalog as JSON. "+
			"The format is described by the "+contractURI+" resource."),
	), s.getPortfolio)

	s.mcp.AddTool(mcp.NewTool("list_images",
		mcp.WithDescription("List images in display order, optionally filtered."),
		mcp.WithString("category", mcp.Description("Only images in this category")),
		mcp.WithString("collection", mcp.Description("Only images in this collection")),
		mcp.WithBoolean("hero", mcp.Description("Only featured images")),
	), s.listImages)

	s.mcp.AddTool(mcp.NewTool("list_collections",
		mcp.WithDescription("List registered collections, optionally for one category."),
		mcp.WithString("category", mcp.Description("Only collections under this category")),
	), s.listCollections)

	if search != nil {
		s.mcp.AddTool(mcp.NewTool("search_images",
			mcp.WithDescription("Full-text search over image titles, descriptions, categories and collections."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search terms; all must match")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
		), s.searchImages)
	}

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Catalog Format",
			mcp.WithResourceDescription("Structure of the portfolio catalog document."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContract,
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

func (s *Server) getPortfolio(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.loader.Load(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(c)
}

func (s *Server) listImages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.loader.Load(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f := catalog.Filter{
		Category:   req.GetString("category", ""),
		Collection: req.GetString("collection", ""),
		HeroOnly:   req.GetBool("hero", false),
	}
	return jsonResult(catalog.Sorted(catalog.FilterImages(c.Images, f)))
}

func (s *Server) listCollections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.loader.Load(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if category := req.GetString("category", ""); category != "" {
		return jsonResult(c.CollectionsFor(category))
	}
	return jsonResult(c.Collections)
}

func (s *Server) searchImages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.search.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(hits)
}

func (s *Server) readContract(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     CatalogContract,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
