package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/lexandro/contentsieve/catalog"
	"github.com/lexandro/contentsieve/metrics"
	"github.com/lexandro/contentsieve/pipeline"
	"github.com/lexandro/contentsieve/report"
)

// OrganizeArgs defines the input parameters for the sieve_organize tool.
type OrganizeArgs struct {
	Reset bool `json:"reset,omitempty" jsonschema:"Empty the catalog before running so it reflects only this run"`
}

// OrganizeFunc runs one organize pass. It is provided by main.go so the
// server's configuration and collaborators stay in one place.
type OrganizeFunc func(ctx context.Context) (*pipeline.Result, error)

// OrganizeHandler holds the dependencies for the organize tool.
type OrganizeHandler struct {
	Organize OrganizeFunc
	Catalog  *catalog.Catalog
	State    *RunState
	Logger   *zap.Logger
}

// Handle processes a sieve_organize request. Only one run is active at a time.
func (h *OrganizeHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args OrganizeArgs) (*mcp.CallToolResult, any, error) {
	if !h.State.Begin() {
		return errorResult("Error: an organize run is already in progress"), nil, nil
	}
	var result *pipeline.Result
	defer func() { h.State.End(result) }()

	h.Logger.Info("sieve_organize started", zap.Bool("reset", args.Reset))

	if args.Reset {
		if err := h.Catalog.Reset(); err != nil {
			h.Logger.Error("sieve_organize catalog reset failed", zap.Error(err))
			return errorResult(fmt.Sprintf("Catalog reset error: %v", err)), nil, nil
		}
	}

	result, err := h.Organize(ctx)
	if err != nil {
		h.Logger.Error("sieve_organize failed", zap.Error(err))
		return errorResult(fmt.Sprintf("Organize error: %v", err)), nil, nil
	}

	snap := result.Snapshot
	h.Logger.Info("sieve_organize complete",
		zap.String("run", result.RunID),
		zap.Int64("items", snap.ItemsSeen),
		zap.Int64("organized", snap.Buckets[metrics.BucketOrganized]),
		zap.Int64("duplicates", snap.DuplicatesFound),
		zap.Int("errors", len(snap.Errors)),
		zap.Bool("cancelled", snap.Cancelled),
	)

	var builder strings.Builder
	builder.WriteString(report.Summary(result.Report))
	builder.WriteString(fmt.Sprintf("\nCatalog entries: %d\n", h.Catalog.Count()))
	if result.ExportErr != nil {
		builder.WriteString(fmt.Sprintf("Export error: %v\n", result.ExportErr))
	}
	return textResult(builder.String()), nil, nil
}
