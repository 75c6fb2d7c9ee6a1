package tools

import (
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/contentsieve/catalog"
	"github.com/lexandro/contentsieve/report"
)

// FormatSearchResults formats catalog search results as human-readable text.
// Groups matches by ref with line numbers and optional context.
func FormatSearchResults(results []catalog.SearchResult, totalMatches int) string {
	if len(results) == 0 {
		return "No matches found."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d matches in %d entries:\n\n", totalMatches, len(results)))

	for i, result := range results {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(fmt.Sprintf("── %s ──\n", result.Ref))

		for _, match := range result.Matches {
			for _, ctxLine := range match.ContextBefore {
				builder.WriteString(fmt.Sprintf("  %s\n", ctxLine))
			}
			builder.WriteString(fmt.Sprintf("  %d: %s\n", match.LineNumber, match.LineText))
			for _, ctxLine := range match.ContextAfter {
				builder.WriteString(fmt.Sprintf("  %s\n", ctxLine))
			}
		}
	}

	return builder.String()
}

// FormatEntries formats catalog entries as human-readable text.
func FormatEntries(entries []*catalog.Entry, nameOnly bool) string {
	if len(entries) == 0 {
		return "No entries matched."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d entries:\n\n", len(entries)))

	for _, e := range entries {
		if nameOnly {
			builder.WriteString(e.Ref)
			builder.WriteString("\n")
			continue
		}
		builder.WriteString(fmt.Sprintf("  %s  (%s, %s, %s, quality %.0f)\n",
			e.Ref,
			e.Kind,
			displayCategory(e.Category),
			report.FormatSize(e.SizeBytes),
			e.QualityScore,
		))
	}

	return builder.String()
}

// FormatText numbers the lines of content starting at offset (1-based).
// A limit of zero means to the end.
func FormatText(ref string, content string, offset, limit int) string {
	lines := strings.Split(content, "\n")
	total := len(lines)

	if offset < 1 {
		offset = 1
	}
	if offset > total {
		return fmt.Sprintf("── %s (%d lines) ──\nOffset %d is beyond end of content.\n", ref, total, offset)
	}
	end := total
	if limit > 0 && offset-1+limit < total {
		end = offset - 1 + limit
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("── %s (%d lines) ──\n", ref, total))

	width := len(fmt.Sprintf("%d", end))
	for i := offset - 1; i < end; i++ {
		builder.WriteString(fmt.Sprintf("%*d│ %s\n", width, i+1, lines[i]))
	}

	return builder.String()
}

func displayCategory(category string) string {
	if category == "" {
		return "uncategorized"
	}
	return category
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
