package main

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/lexandro/contentsieve/config"
	"github.com/lexandro/contentsieve/pipeline"
	"github.com/lexandro/contentsieve/report"
)

type generateFlags struct {
	prompts     string
	producers   []string
	parallelism int
	timeout     time.Duration
	attempt     time.Duration
	retries     int
	rateLimit   float64
	batchSize   int
	threshold   float64
	similarity  float64
	out         string
	reportDir   string
	ledger      string
}

func (f *generateFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.prompts, "prompts", "", "Prompts file: text (one per line), .json or .jsonl")
	fs.StringArrayVar(&f.producers, "producer", nil, "Producer gemini:<model>, openai:<model> or fake:<name> (repeatable)")
	fs.IntVar(&f.parallelism, "parallelism", 0, "Maximum concurrent producer calls")
	fs.DurationVar(&f.timeout, "timeout", 0, "Per-call producer timeout, covering every retry")
	fs.DurationVar(&f.attempt, "attempt-timeout", 0, "Timeout of a single producer attempt (0 = none)")
	fs.IntVar(&f.retries, "retries", 0, "Retries per producer call on transient errors")
	fs.Float64Var(&f.rateLimit, "rate-limit", 0, "Producer calls per second, per producer (0 = unlimited)")
	fs.IntVar(&f.batchSize, "batch-size", 0, "Prompts per batch")
	fs.Float64Var(&f.threshold, "threshold", 0, "Minimum quality score, 0-100")
	fs.Float64Var(&f.similarity, "similarity", 0, "Near-duplicate similarity threshold, (0,1]")
	fs.StringVar(&f.out, "out", "", "Output directory for the report and sample exports")
	fs.StringVar(&f.reportDir, "report-dir", "", "Report directory (default <out>/.sieve)")
	fs.StringVar(&f.ledger, "ledger", "", "SQL ledger DSN (sqlite://path or postgres://...)")
}

func (f *generateFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("prompts") {
		cfg.PromptsFile = f.prompts
	}
	if fs.Changed("producer") {
		cfg.Producers = f.producers
	}
	if fs.Changed("parallelism") {
		cfg.Parallelism = f.parallelism
	}
	if fs.Changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if fs.Changed("attempt-timeout") {
		cfg.AttemptTimeout = f.attempt
	}
	if fs.Changed("retries") {
		cfg.Retries = f.retries
	}
	if fs.Changed("rate-limit") {
		cfg.RateLimit = f.rateLimit
	}
	if fs.Changed("batch-size") {
		cfg.BatchSize = f.batchSize
	}
	if fs.Changed("threshold") {
		cfg.QualityThreshold = f.threshold
	}
	if fs.Changed("similarity") {
		cfg.SimilarityThreshold = f.similarity
	}
	if fs.Changed("out") {
		cfg.OutputDir = f.out
	}
	if fs.Changed("report-dir") {
		cfg.ReportDir = f.reportDir
	}
	if fs.Changed("ledger") {
		cfg.LedgerDSN = f.ledger
	}
}

func newGenerateCommand(opts *globalOptions) *cobra.Command {
	flags := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Send prompts to producers and keep unique, good-enough responses",
		Long: `Sends every prompt to every producer with bounded parallelism and a per-call
timeout. Responses that repeat an accepted one verbatim, are too similar to
one accepted for the same prompt, or score below the quality threshold are
rejected. Accepted samples are exported to samples.jsonl and samples.csv.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, cleanup, err := setup(cmd, opts, func(cfg *config.Config) {
				flags.apply(cmd.Flags(), cfg)
			})
			if err != nil {
				return err
			}
			defer cleanup()
			return runGenerate(cmd.Context(), cfg, logger, cmd.OutOrStdout())
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

// runGenerate runs the generation workload once. Only setup failures are
// returned as errors.
func runGenerate(ctx context.Context, cfg *config.Config, logger *zap.Logger, stdout io.Writer) error {
	if err := cfg.ValidateFor(config.ModeGenerate); err != nil {
		return err
	}
	units, err := pipeline.LoadUnits(cfg.PromptsFile)
	if err != nil {
		return err
	}

	producers, err := pipeline.BuildProducers(ctx, cfg)
	if err != nil {
		return err
	}
	sinks := pipeline.Sinks(cfg, logger)
	defer func() {
		if closeErr := report.CloseSinks(sinks); closeErr != nil {
			logger.Warn("closing report sinks", zap.Error(closeErr))
		}
	}()

	gen, err := pipeline.NewGenerator(cfg, producers, pipeline.Options{
		Sinks:    sinks,
		Progress: progressLogger(logger),
	}, logger)
	if err != nil {
		for _, p := range producers {
			_ = p.Close()
		}
		return err
	}
	defer func() {
		if closeErr := gen.Close(); closeErr != nil {
			logger.Warn("closing producers", zap.Error(closeErr))
		}
	}()

	logger.Info("generate starting",
		zap.Int("prompts", len(units)),
		zap.Strings("producers", cfg.Producers),
		zap.Int("parallelism", cfg.Parallelism),
		zap.Duration("timeout", cfg.Timeout),
		zap.Float64("threshold", cfg.QualityThreshold),
		zap.Float64("similarity", cfg.SimilarityThreshold),
	)

	printResult(stdout, logger, gen.Run(ctx, units))
	return nil
}
