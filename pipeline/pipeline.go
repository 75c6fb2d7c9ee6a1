// Package pipeline wires scanner, identity, quality, gate and report into the
// two workloads: organizing files and gating generated samples.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lexandro/contentsieve/catalog"
	"github.com/lexandro/contentsieve/config"
	"github.com/lexandro/contentsieve/identity"
	"github.com/lexandro/contentsieve/metrics"
	"github.com/lexandro/contentsieve/producer"
	"github.com/lexandro/contentsieve/report"
)

// Options carries the optional collaborators of a run.
type Options struct {
	// Catalog receives every accepted item or sample when set.
	Catalog *catalog.Catalog
	// Sinks receive the written artifacts after export.
	Sinks []report.Sink
	// Cache is reused across organize runs so unchanged files are not re-read.
	Cache *identity.HashCache
	// Progress receives phase events.
	Progress metrics.ProgressFunc
}

// Result is what a finished run hands back to its caller.
type Result struct {
	RunID     string
	Report    *report.Report
	Snapshot  metrics.Snapshot
	Artifacts []string
	// ExportErr aggregates artifact and sink failures. It never means the run failed.
	ExportErr error
}

func newRun(mode string) *metrics.Run {
	return metrics.NewRun(uuid.NewString(), mode)
}

// finish exports on a context that survives cancellation, so a cancelled run
// still leaves its report behind.
func finish(ctx context.Context, exporter *report.Exporter, r *report.Report, run *metrics.Run, progress metrics.ProgressFunc) *Result {
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		run.MarkCancelled()
	}
	artifacts, exportErr := exporter.Export(context.WithoutCancel(ctx), r, run, progress)
	return &Result{
		RunID:     run.ID,
		Report:    r,
		Snapshot:  run.Snapshot(),
		Artifacts: artifacts,
		ExportErr: exportErr,
	}
}

// Sinks builds the report sinks the configuration enables. They connect on
// first use, so an unreachable ledger or bucket surfaces as an export failure.
func Sinks(cfg *config.Config, logger *zap.Logger) []report.Sink {
	var sinks []report.Sink
	if cfg.LedgerDSN != "" {
		dsn := cfg.LedgerDSN
		sinks = append(sinks, report.Lazy("ledger", func(ctx context.Context) (report.Sink, error) {
			return report.OpenLedger(ctx, dsn, logger)
		}))
	}
	if cfg.S3.Enabled() {
		s3 := cfg.S3
		sinks = append(sinks, report.Lazy("s3", func(context.Context) (report.Sink, error) {
			return report.NewS3Uploader(s3, logger)
		}))
	}
	return sinks
}

// BuildProducers creates every configured producer wrapped with the
// configured middleware. On failure the ones already built are closed.
func BuildProducers(ctx context.Context, cfg *config.Config) ([]producer.Producer, error) {
	httpTimeout := cfg.Timeout
	if cfg.AttemptTimeout > 0 && cfg.AttemptTimeout < httpTimeout {
		httpTimeout = cfg.AttemptTimeout
	}
	options := producer.BuildOptions{
		GeminiAPIKey:  cfg.GeminiAPIKey,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		HTTPTimeout:   httpTimeout,
	}
	middleware := producerMiddleware(cfg)

	var producers []producer.Producer
	for _, spec := range cfg.Producers {
		p, err := producer.Build(ctx, spec, options)
		if err != nil {
			closeProducers(producers)
			return nil, fmt.Errorf("building producer %s: %w", spec, err)
		}
		producers = append(producers, producer.Wrap(p, middleware...))
	}
	return producers, nil
}

// producerMiddleware orders retry outermost so that each attempt gets its own
// rate-limit token and attempt deadline.
func producerMiddleware(cfg *config.Config) []producer.Middleware {
	var middleware []producer.Middleware
	if cfg.Retries > 0 {
		middleware = append(middleware, producer.Retry(cfg.Retries+1, cfg.RetryBackoff))
	}
	if cfg.RateLimit > 0 {
		middleware = append(middleware, producer.RateLimit(cfg.RateLimit, cfg.RateBurst))
	}
	if cfg.AttemptTimeout > 0 {
		middleware = append(middleware, producer.Timeout(cfg.AttemptTimeout))
	}
	return middleware
}

func closeProducers(producers []producer.Producer) {
	for _, p := range producers {
		_ = p.Close()
	}
}
