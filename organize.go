package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/lexandro/contentsieve/config"
	"github.com/lexandro/contentsieve/identity"
	"github.com/lexandro/contentsieve/metrics"
	"github.com/lexandro/contentsieve/pipeline"
	"github.com/lexandro/contentsieve/report"
)

// organizeFlags are the organize workload flags, shared with serve.
type organizeFlags struct {
	roots          []string
	out            string
	archive        string
	reportDir      string
	threshold      float64
	skips          []string
	noDefaultSkips bool
	maxSize        int64
	batchSize      int
	seedOutput     bool
	watch          bool
	debounce       time.Duration
	ledger         string
}

func (f *organizeFlags) register(fs *pflag.FlagSet) {
	fs.StringArrayVar(&f.roots, "root", nil, "Source root to scan (repeatable)")
	fs.StringVar(&f.out, "out", "", "Output directory for organized copies")
	fs.StringVar(&f.archive, "archive", "", "Directory receiving low-quality files instead of dropping them")
	fs.StringVar(&f.reportDir, "report-dir", "", "Report directory (default <out>/.sieve)")
	fs.Float64Var(&f.threshold, "threshold", 0, "Minimum quality score, 0-100")
	fs.StringArrayVar(&f.skips, "skip", nil, "Skip pattern: substring or doublestar glob (repeatable)")
	fs.BoolVar(&f.noDefaultSkips, "no-default-skips", false, "Do not skip VCS, dependency and cache directories")
	fs.Int64Var(&f.maxSize, "max-size", 0, "Skip files larger than this many bytes")
	fs.IntVar(&f.batchSize, "batch-size", 0, "Items per batch")
	fs.BoolVar(&f.seedOutput, "seed-output", false, "Treat content already in the output directory as seen")
	fs.BoolVar(&f.watch, "watch", false, "Keep running and re-organize when roots change")
	fs.DurationVar(&f.debounce, "debounce", 0, "Quiet period before a watch re-run")
	fs.StringVar(&f.ledger, "ledger", "", "SQL ledger DSN (sqlite://path or postgres://...)")
}

// apply copies the flags the user set onto cfg.
func (f *organizeFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("root") {
		cfg.Roots = f.roots
	}
	if fs.Changed("out") {
		cfg.OutputDir = f.out
	}
	if fs.Changed("archive") {
		cfg.ArchiveDir = f.archive
	}
	if fs.Changed("report-dir") {
		cfg.ReportDir = f.reportDir
	}
	if fs.Changed("threshold") {
		cfg.QualityThreshold = f.threshold
	}
	if fs.Changed("skip") {
		cfg.SkipPatterns = append(cfg.SkipPatterns, f.skips...)
	}
	if fs.Changed("no-default-skips") {
		cfg.NoDefaultSkips = f.noDefaultSkips
	}
	if fs.Changed("max-size") {
		cfg.MaxItemBytes = f.maxSize
	}
	if fs.Changed("batch-size") {
		cfg.BatchSize = f.batchSize
	}
	if fs.Changed("seed-output") {
		cfg.SeedFromOutput = f.seedOutput
	}
	if fs.Changed("watch") {
		cfg.Watch = f.watch
	}
	if fs.Changed("debounce") {
		cfg.WatchDebounce = f.debounce
	}
	if fs.Changed("ledger") {
		cfg.LedgerDSN = f.ledger
	}
}

func newOrganizeCommand(opts *globalOptions) *cobra.Command {
	flags := &organizeFlags{}
	cmd := &cobra.Command{
		Use:   "organize",
		Short: "Copy unique, good-enough files from source roots into category folders",
		Long: `Scans every root, drops exact duplicates (the first copy in scan order is kept)
and files scoring below the quality threshold, and copies the rest into
<out>/<category>/. Originals are never modified and existing files in the
output directory are never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, cleanup, err := setup(cmd, opts, func(cfg *config.Config) {
				flags.apply(cmd.Flags(), cfg)
			})
			if err != nil {
				return err
			}
			defer cleanup()
			return runOrganize(cmd.Context(), cfg, logger, cmd.OutOrStdout())
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

// runOrganize runs one organize pass, or keeps re-running on changes in
// watch mode. Only setup failures are returned as errors.
func runOrganize(ctx context.Context, cfg *config.Config, logger *zap.Logger, stdout io.Writer) error {
	if cfg.Watch {
		// Re-runs must not copy what earlier runs already placed.
		cfg.SeedFromOutput = true
	}

	cache, err := identity.NewHashCache(cfg.HashCacheSize)
	if err != nil {
		return err
	}
	sinks := pipeline.Sinks(cfg, logger)
	defer func() {
		if closeErr := report.CloseSinks(sinks); closeErr != nil {
			logger.Warn("closing report sinks", zap.Error(closeErr))
		}
	}()

	org, err := pipeline.NewOrganizer(cfg, pipeline.Options{
		Sinks:    sinks,
		Cache:    cache,
		Progress: progressLogger(logger),
	}, logger)
	if err != nil {
		return err
	}

	logger.Info("organize starting",
		zap.Strings("roots", cfg.Roots),
		zap.String("out", cfg.OutputDir),
		zap.String("archive", cfg.ArchiveDir),
		zap.Float64("threshold", cfg.QualityThreshold),
		zap.Bool("watch", cfg.Watch),
	)

	printResult(stdout, logger, org.Run(ctx))
	if !cfg.Watch {
		return nil
	}
	return watchOrganize(ctx, org, cfg, logger, func(ctx context.Context) {
		printResult(stdout, logger, org.Run(ctx))
	})
}

// printResult writes the run summary to stdout and logs the outcome.
func printResult(stdout io.Writer, logger *zap.Logger, result *pipeline.Result) {
	snap := result.Snapshot
	fields := []zap.Field{
		zap.String("run", result.RunID),
		zap.String("mode", snap.Mode),
		zap.Int64("items", snap.ItemsSeen),
		zap.Int64("duplicates", snap.DuplicatesFound),
		zap.Int64("qualityFailed", snap.QualityFailed),
		zap.Int("errors", len(snap.Errors)),
		zap.Bool("cancelled", snap.Cancelled),
		zap.Strings("artifacts", result.Artifacts),
	}
	for _, b := range metrics.Buckets {
		fields = append(fields, zap.Int64(string(b), snap.Buckets[b]))
	}
	logger.Info("run complete", fields...)

	for _, exportErr := range multierr.Errors(result.ExportErr) {
		logger.Warn("export failed", zap.Error(exportErr))
	}
	fmt.Fprint(stdout, report.Summary(result.Report))
}
