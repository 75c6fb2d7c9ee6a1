package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/lexandro/contentsieve/metrics"
)

// Exporter writes a run's artifacts into one directory and hands them to
// the configured sinks. An artifact that fails is recorded on the run and
// skipped; the others are still written.
type Exporter struct {
	dir    string
	sinks  []Sink
	logger *zap.Logger
}

func NewExporter(dir string, logger *zap.Logger, sinks ...Sink) *Exporter {
	return &Exporter{dir: dir, sinks: sinks, logger: logger}
}

func (e *Exporter) Dir() string { return e.dir }

// Export finishes the run, writes every artifact and runs the sinks.
// The summary is written last so it lists every failure before it.
// It returns the written paths and the aggregated failures, which are
// never fatal for the run.
func (e *Exporter) Export(ctx context.Context, r *Report, run *metrics.Run, progress metrics.ProgressFunc) ([]string, error) {
	run.Finish()

	var errs error
	fail := func(artifact string, err error) {
		run.RecordExportFailure(artifact, err)
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", artifact, err))
		e.logger.Error("export failed", zap.String("artifact", artifact), zap.Error(err))
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		fail(e.dir, err)
	}

	type artifact struct {
		name  string
		write func(path string) error
	}
	artifacts := []artifact{}
	if run.Mode == "generate" {
		accepted := r.AcceptedSamples()
		artifacts = append(artifacts,
			artifact{SamplesFile, func(p string) error { return WriteJSONL(p, accepted) }},
			artifact{CSVFile, func(p string) error { return WriteCSV(p, accepted) }},
		)
	}
	artifacts = append(artifacts, artifact{ReportFile, func(p string) error {
		r.Run = run.Snapshot()
		return WriteJSON(p, r)
	}})

	total := len(artifacts) + 1
	var written []string
	for i, a := range artifacts {
		path := filepath.Join(e.dir, a.name)
		if err := a.write(path); err != nil {
			fail(a.name, err)
		} else {
			written = append(written, path)
		}
		progress.Emit(metrics.Event{Phase: metrics.PhaseExport, Done: i + 1, Total: total, Ref: a.name})
	}

	for _, sink := range e.sinks {
		if len(written) == 0 {
			break
		}
		if err := sink.Publish(ctx, r, written); err != nil {
			fail(sink.Name(), err)
		}
	}

	r.Run = run.Snapshot()
	summaryPath := filepath.Join(e.dir, SummaryFile)
	if err := WriteSummary(summaryPath, r); err != nil {
		fail(SummaryFile, err)
		r.Run = run.Snapshot()
	} else {
		written = append(written, summaryPath)
	}
	progress.Emit(metrics.Event{Phase: metrics.PhaseExport, Done: total, Total: total, Ref: SummaryFile})

	e.logger.Info("export complete",
		zap.String("dir", e.dir),
		zap.Int("artifacts", len(written)),
		zap.Int("failures", len(multierr.Errors(errs))),
	)
	return written, errs
}
