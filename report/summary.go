package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/lexandro/contentsieve/metrics"
)

// maxSummaryErrors caps the error lines listed in the summary; the JSON
// report always carries the full list.
const maxSummaryErrors = 20

// Summary renders the human-readable run summary.
func Summary(r *Report) string {
	run := r.Run
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("=== contentsieve %s run %s ===\n\n", run.Mode, run.RunID))
	if run.Cancelled {
		builder.WriteString("Run was cancelled; counts reflect work completed before cancellation.\n\n")
	}
	builder.WriteString(fmt.Sprintf("Elapsed: %s\n", FormatDuration(time.Duration(run.ElapsedMs)*time.Millisecond)))
	if run.Mode == "generate" {
		builder.WriteString(fmt.Sprintf("Samples generated: %d\n", run.TotalGenerated))
		builder.WriteString(fmt.Sprintf("Producer calls: %d (failed %d, timed out %d, skipped %d)\n",
			run.ProducerCalls, run.ProducerFailures, run.ProducerTimeouts, run.ProducerSkipped))
	} else {
		builder.WriteString(fmt.Sprintf("Files scanned: %d\n", run.TotalScanned))
	}
	builder.WriteString(fmt.Sprintf("Bytes processed: %s\n", FormatSize(run.BytesProcessed)))
	builder.WriteString(fmt.Sprintf("Items seen: %d\n", run.ItemsSeen))
	builder.WriteString(fmt.Sprintf("Duplicates: %d (near-duplicates %d)\n", run.DuplicatesFound, run.NearDuplicates))
	builder.WriteString(fmt.Sprintf("Quality: %d passed, %d failed (threshold %g)\n",
		run.QualityPassed, run.QualityFailed, r.Settings.QualityThreshold))

	builder.WriteString("\nOutcome:\n")
	for _, b := range metrics.Buckets {
		builder.WriteString(fmt.Sprintf("  %-16s %d\n", b, run.Buckets[b]))
	}

	builder.WriteString(fmt.Sprintf("\nErrors: %d\n", run.ErrorCount))
	for i, e := range run.Errors {
		if i == maxSummaryErrors {
			builder.WriteString(fmt.Sprintf("  ... and %d more (see %s)\n", len(run.Errors)-maxSummaryErrors, ReportFile))
			break
		}
		if e.Ref != "" {
			builder.WriteString(fmt.Sprintf("  [%s] %s: %s\n", e.Stage, e.Ref, e.Message))
		} else {
			builder.WriteString(fmt.Sprintf("  [%s] %s\n", e.Stage, e.Message))
		}
	}

	if len(run.ExportFailures) > 0 {
		builder.WriteString("\nExport failures:\n")
		for _, f := range run.ExportFailures {
			builder.WriteString(fmt.Sprintf("  %s\n", f))
		}
	}

	return builder.String()
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 60 {
		if d < time.Second {
			return fmt.Sprintf("%dms", d.Milliseconds())
		}
		return fmt.Sprintf("%ds", totalSeconds)
	}
	totalMinutes := totalSeconds / 60
	remainderSeconds := totalSeconds % 60
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm%ds", totalMinutes, remainderSeconds)
	}
	hours := totalMinutes / 60
	remainderMinutes := totalMinutes % 60
	return fmt.Sprintf("%dh%dm", hours, remainderMinutes)
}

// FormatSize converts bytes to a human-readable string.
func FormatSize(bytes int64) string {
	switch {
	case bytes >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	case bytes >= 1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
