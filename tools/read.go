package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/lexandro/contentsieve/catalog"
)

// ReadArgs defines the input parameters for the sieve_read tool.
type ReadArgs struct {
	Ref    string `json:"ref" jsonschema:"Catalog ref as listed by sieve_files (e.g. docs/readme.md or samples/p0001/<id>)"`
	Offset int    `json:"offset,omitempty" jsonschema:"First line to return, 1-based (default 1)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of lines to return (default all)"`
}

// ReadHandler holds the dependencies for the read tool.
type ReadHandler struct {
	Catalog *catalog.Catalog
	Logger  *zap.Logger
}

// Handle processes a sieve_read request. Only full-text indexed entries can
// be read; binary and oversized files are listed but not stored.
func (h *ReadHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReadArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Ref == "" {
		h.Logger.Warn("sieve_read called with empty ref")
		return errorResult("Error: ref parameter is required"), nil, nil
	}

	content, ok := h.Catalog.Content().Text(args.Ref)
	if !ok {
		h.Logger.Info("sieve_read ref not found", zap.String("ref", args.Ref))
		return errorResult(fmt.Sprintf("No indexed content for: %s", args.Ref)), nil, nil
	}

	h.Logger.Info("sieve_read", zap.String("ref", args.Ref), zap.Duration("elapsed", time.Since(start)))

	return textResult(FormatText(args.Ref, content, args.Offset, args.Limit)), nil, nil
}
