package tools

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/lexandro/contentsieve/catalog"
	"github.com/lexandro/contentsieve/report"
)

// StatusArgs defines the input parameters for the sieve_status tool (none required).
type StatusArgs struct{}

// StatusHandler holds the dependencies for the status tool.
type StatusHandler struct {
	Catalog   *catalog.Catalog
	State     *RunState
	StartTime time.Time
	OutputDir string
	Logger    *zap.Logger
}

// Handle processes a sieve_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	var builder strings.Builder

	entries := h.Catalog.Entries()
	count := entries.Count()
	totalSize := entries.TotalSizeBytes()
	categoryCounts := entries.CategoryCounts()
	uptime := time.Since(h.StartTime)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	h.Logger.Info("sieve_status",
		zap.Int("entries", count),
		zap.Int64("totalSize", totalSize),
		zap.Uint64("memory", memStats.Alloc),
		zap.Duration("uptime", uptime),
	)

	builder.WriteString("=== contentsieve status ===\n\n")
	builder.WriteString(fmt.Sprintf("Output directory: %s\n", h.OutputDir))
	builder.WriteString(fmt.Sprintf("Uptime: %s\n", report.FormatDuration(uptime)))
	builder.WriteString(fmt.Sprintf("Cataloged entries: %d\n", count))
	builder.WriteString(fmt.Sprintf("Full-text documents: %d\n", h.Catalog.Content().DocumentCount()))
	builder.WriteString(fmt.Sprintf("Total cataloged size: %s\n", report.FormatSize(totalSize)))
	builder.WriteString(fmt.Sprintf("Memory usage: %s (heap: %s)\n",
		report.FormatSize(int64(memStats.Alloc)),
		report.FormatSize(int64(memStats.HeapAlloc)),
	))

	if len(categoryCounts) > 0 {
		builder.WriteString("\nCategories:\n")

		type categoryEntry struct {
			category string
			count    int
		}
		sorted := make([]categoryEntry, 0, len(categoryCounts))
		for category, n := range categoryCounts {
			sorted = append(sorted, categoryEntry{displayCategory(category), n})
		}
		sort.Slice(sorted, func(i, j int) bool {
			if sorted[i].count != sorted[j].count {
				return sorted[i].count > sorted[j].count
			}
			return sorted[i].category < sorted[j].category
		})

		for _, entry := range sorted {
			builder.WriteString(fmt.Sprintf("  %-20s %d entries\n", entry.category, entry.count))
		}
	}

	builder.WriteString("\n")
	if h.State.Running() {
		builder.WriteString("An organize run is in progress.\n\n")
	}
	last, finishedAt := h.State.Last()
	if last == nil {
		builder.WriteString("No organize run yet.\n")
	} else {
		builder.WriteString(fmt.Sprintf("Last run finished %s ago:\n\n", report.FormatDuration(time.Since(finishedAt))))
		builder.WriteString(report.Summary(last.Report))
	}

	return textResult(builder.String()), nil, nil
}
