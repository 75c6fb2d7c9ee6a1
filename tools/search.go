package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/lexandro/contentsieve/catalog"
)

// SearchArgs defines the input parameters for the sieve_search tool.
type SearchArgs struct {
	Query        string `json:"query" jsonschema:"Search query. Plain text for word match, quoted for exact phrase, /regex/ for regular expression"`
	Glob         string `json:"glob,omitempty" jsonschema:"Optional doublestar pattern over catalog refs (e.g. docs/**/*.md or samples/**)"`
	Kind         string `json:"kind,omitempty" jsonschema:"Restrict to file or sample entries"`
	MaxResults   int    `json:"maxResults,omitempty" jsonschema:"Maximum number of entries to return (default 50)"`
	ContextLines int    `json:"contextLines,omitempty" jsonschema:"Number of context lines before and after each match (default 2)"`
}

// SearchHandler holds the dependencies for the search tool.
type SearchHandler struct {
	Catalog *catalog.Catalog
	Logger  *zap.Logger
}

// Handle processes a sieve_search request.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Query == "" {
		h.Logger.Warn("sieve_search called with empty query")
		return errorResult("Error: query parameter is required"), nil, nil
	}
	if args.Kind != "" && args.Kind != catalog.KindFile && args.Kind != catalog.KindSample {
		return errorResult(fmt.Sprintf("Error: kind must be %q or %q", catalog.KindFile, catalog.KindSample)), nil, nil
	}

	contextLines := args.ContextLines
	if contextLines == 0 {
		contextLines = 2
	}

	results, totalMatches, err := h.Catalog.Search(catalog.SearchOptions{
		Query:        args.Query,
		Glob:         args.Glob,
		Kind:         args.Kind,
		MaxResults:   args.MaxResults,
		ContextLines: contextLines,
	})
	if err != nil {
		h.Logger.Error("sieve_search failed", zap.String("query", args.Query), zap.Error(err))
		return errorResult(fmt.Sprintf("Search error: %v", err)), nil, nil
	}

	h.Logger.Info("sieve_search",
		zap.String("query", args.Query),
		zap.String("glob", args.Glob),
		zap.String("kind", args.Kind),
		zap.Int("entries", len(results)),
		zap.Int("matches", totalMatches),
		zap.Duration("elapsed", time.Since(start)),
	)

	return textResult(FormatSearchResults(results, totalMatches)), nil, nil
}
