package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/lexandro/contentsieve/batch"
	"github.com/lexandro/contentsieve/category"
	"github.com/lexandro/contentsieve/config"
	"github.com/lexandro/contentsieve/gate"
	"github.com/lexandro/contentsieve/identity"
	"github.com/lexandro/contentsieve/item"
	"github.com/lexandro/contentsieve/metrics"
	"github.com/lexandro/contentsieve/quality"
	"github.com/lexandro/contentsieve/report"
	"github.com/lexandro/contentsieve/scanner"
)

// Organizer runs the file workload: scan, categorize, hash, score, route, report.
// It is reusable; watch mode calls Run once per batch of changes.
type Organizer struct {
	cfg         *config.Config
	options     Options
	scanner     *scanner.Scanner
	categorizer *category.Categorizer
	engine      *identity.Engine
	scorer      *quality.Scorer
	router      *gate.Router
	exporter    *report.Exporter
	reportDir   string
	logger      *zap.Logger

	now func() time.Time
}

// NewOrganizer validates the configuration and creates the output, archive
// and report directories. Any failure here is a setup error.
func NewOrganizer(cfg *config.Config, options Options, logger *zap.Logger) (*Organizer, error) {
	if err := cfg.ValidateFor(config.ModeOrganize); err != nil {
		return nil, err
	}

	router, err := gate.NewRouter(cfg.OutputDir, cfg.ArchiveDir, logger)
	if err != nil {
		return nil, err
	}
	reportDir := cfg.ResolvedReportDir()
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}

	categorizer, err := category.NewCategorizer(cfg.Categories)
	if err != nil {
		return nil, err
	}
	scorer, err := quality.NewScorer(cfg.Quality)
	if err != nil {
		return nil, err
	}
	sc, err := scanner.New(scanner.Options{
		Roots:          cfg.Roots,
		SkipPatterns:   cfg.SkipPatterns,
		ExcludeDirs:    []string{cfg.OutputDir, cfg.ArchiveDir, reportDir},
		MaxItemBytes:   cfg.MaxItemBytes,
		NoDefaultSkips: cfg.NoDefaultSkips,
	}, logger)
	if err != nil {
		return nil, err
	}

	engine := identity.NewEngine(identity.Options{
		Workers:     cfg.HashWorkers,
		PrefixBytes: cfg.HashPrefixBytes,
	}, options.Cache, logger)

	return &Organizer{
		cfg:         cfg,
		options:     options,
		scanner:     sc,
		categorizer: categorizer,
		engine:      engine,
		scorer:      scorer,
		router:      router,
		exporter:    report.NewExporter(reportDir, logger, options.Sinks...),
		reportDir:   reportDir,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// Scanner exposes the scanner so the watcher can share its roots and matchers.
func (o *Organizer) Scanner() *scanner.Scanner {
	return o.scanner
}

// ReportDir is where this organizer writes its artifacts.
func (o *Organizer) ReportDir() string {
	return o.reportDir
}

// Run performs one organize pass. Only a cancelled context stops it early;
// every other problem is recorded on the run. The report is always written.
func (o *Organizer) Run(ctx context.Context) *Result {
	run := newRun(config.ModeOrganize)
	rep := report.New(o.cfg.ReportSettings(config.ModeOrganize))
	logger := o.logger.With(zap.String("runId", run.ID))
	logger.Info("organize started", zap.Strings("roots", o.scanner.Roots()), zap.String("outputDir", o.router.OutDir()))

	o.engine.Reset()
	if o.cfg.SeedFromOutput {
		seeded, err := o.engine.SeedFromOutput(ctx, o.router.OutDir(), o.reportDir)
		if err != nil && ctx.Err() == nil {
			run.RecordError("seed", o.router.OutDir(), err)
		}
		logger.Debug("seeded from output", zap.Int("files", seeded))
	}

	items, err := o.scanner.Scan(ctx, run, o.options.Progress)
	if err != nil {
		return finish(ctx, o.exporter, rep, run, o.options.Progress)
	}
	for _, it := range items {
		it.Category = o.categorizer.CategorizePath(it.Path)
	}

	batches, err := batch.Split(items, o.cfg.BatchSize)
	if err != nil {
		run.RecordError("batch", "", err)
		return finish(ctx, o.exporter, rep, run, o.options.Progress)
	}

	routed := 0
	for _, b := range batches {
		hashed, err := o.engine.HashItems(ctx, b, run, o.options.Progress)
		// Resolve what was hashed before honoring cancellation so the partial
		// batch is still accounted for.
		o.engine.Resolve(hashed, run)
		for _, it := range hashed {
			o.route(it, run, rep)
			routed++
			o.options.Progress.Emit(metrics.Event{Phase: metrics.PhaseRoute, Done: routed, Total: len(items), Ref: it.Path})
		}
		if err != nil || ctx.Err() != nil {
			break
		}
	}

	result := finish(ctx, o.exporter, rep, run, o.options.Progress)
	snap := result.Snapshot
	logger.Info("organize finished",
		zap.Int64("itemsSeen", snap.ItemsSeen),
		zap.Int64("organized", snap.Buckets[metrics.BucketOrganized]),
		zap.Int64("duplicates", snap.Buckets[metrics.BucketDuplicate]),
		zap.Int64("errors", snap.ErrorCount),
		zap.Bool("cancelled", snap.Cancelled),
	)
	return result
}

// route scores one resolved item, applies the gate and places it.
// A hash failure is already counted as an error; the item is still scored
// and routed so it is not lost from the totals.
func (o *Organizer) route(it *item.Item, run *metrics.Run, rep *report.Report) {
	run.ItemSeen()
	it.QualityScore = o.scorer.ScoreFile(it, o.now())
	it.Verdict = gate.Decide(it.QualityScore, o.cfg.QualityThreshold, it.IsDuplicate)
	run.QualityResult(it.QualityScore >= o.cfg.QualityThreshold)

	switch it.Verdict {
	case item.VerdictAccepted:
		dest, err := o.router.Place(it)
		if err != nil {
			o.logger.Warn("placing item failed", zap.String("path", it.Path), zap.Error(err))
			run.RecordError("route", it.Path, err)
			it.Verdict = item.VerdictErrored
			break
		}
		it.Destination = dest
		if o.options.Catalog != nil {
			if err := o.options.Catalog.AddItem(it); err != nil {
				o.logger.Debug("catalog add failed", zap.String("path", dest), zap.Error(err))
			}
		}
	case item.VerdictRejectLowQuality:
		if !o.router.Archiving() {
			break
		}
		dest, err := o.router.Archive(it)
		if err != nil {
			o.logger.Warn("archiving item failed", zap.String("path", it.Path), zap.Error(err))
			run.RecordError("archive", it.Path, err)
			break
		}
		it.Destination = dest
		it.Verdict = item.VerdictArchived
	}

	run.Terminal(gate.BucketFor(it.Verdict))
	rep.AddItem(it)
}
