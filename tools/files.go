package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/lexandro/contentsieve/catalog"
)

// FilesArgs defines the input parameters for the sieve_files tool.
type FilesArgs struct {
	Pattern    string `json:"pattern" jsonschema:"Doublestar pattern over catalog refs (e.g. code/*.go or **/*.md)"`
	NameOnly   bool   `json:"nameOnly,omitempty" jsonschema:"If true return only refs without metadata"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema:"Maximum number of results to return (default 50)"`
}

// FilesHandler holds the dependencies for the files tool.
type FilesHandler struct {
	Catalog *catalog.Catalog
	Logger  *zap.Logger
}

// Handle processes a sieve_files request.
func (h *FilesHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args FilesArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Pattern == "" {
		h.Logger.Warn("sieve_files called with empty pattern")
		return errorResult("Error: pattern parameter is required"), nil, nil
	}

	entries, err := h.Catalog.Files(args.Pattern, args.MaxResults)
	if err != nil {
		h.Logger.Error("sieve_files failed", zap.String("pattern", args.Pattern), zap.Error(err))
		return errorResult(fmt.Sprintf("Search error: %v", err)), nil, nil
	}

	h.Logger.Info("sieve_files",
		zap.String("pattern", args.Pattern),
		zap.Int("results", len(entries)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return textResult(FormatEntries(entries, args.NameOnly)), nil, nil
}
