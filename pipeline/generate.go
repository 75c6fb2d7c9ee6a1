package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/lexandro/contentsieve/batch"
	"github.com/lexandro/contentsieve/config"
	"github.com/lexandro/contentsieve/gate"
	"github.com/lexandro/contentsieve/identity"
	"github.com/lexandro/contentsieve/item"
	"github.com/lexandro/contentsieve/metrics"
	"github.com/lexandro/contentsieve/orchestrator"
	"github.com/lexandro/contentsieve/producer"
	"github.com/lexandro/contentsieve/quality"
	"github.com/lexandro/contentsieve/report"
)

var sampleNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/lexandro/contentsieve/sample"))

// SampleID derives a stable sample id from its unit and (prompt, response, producer) key.
func SampleID(unitID, key string) string {
	return uuid.NewSHA1(sampleNamespace, []byte(unitID+"\x00"+key)).String()
}

// Generator runs the generation workload: every unit goes to every producer,
// and the collected responses are deduplicated, scored and gated as one batch.
type Generator struct {
	cfg          *config.Config
	options      Options
	producers    []producer.Producer
	orchestrator *orchestrator.Orchestrator
	scorer       *quality.Scorer
	exporter     *report.Exporter
	logger       *zap.Logger

	now func() time.Time
}

// NewGenerator takes ownership of producers; Close releases them.
func NewGenerator(cfg *config.Config, producers []producer.Producer, options Options, logger *zap.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	orch, err := orchestrator.New(producers, orchestrator.Options{
		Parallelism: cfg.Parallelism,
		Timeout:     cfg.Timeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	scorer, err := quality.NewScorer(cfg.Quality)
	if err != nil {
		return nil, err
	}
	reportDir := cfg.ResolvedReportDir()
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}

	return &Generator{
		cfg:          cfg,
		options:      options,
		producers:    producers,
		orchestrator: orch,
		scorer:       scorer,
		exporter:     report.NewExporter(reportDir, logger, options.Sinks...),
		logger:       logger,
		now:          time.Now,
	}, nil
}

// Close closes every producer.
func (g *Generator) Close() error {
	var errs error
	for _, p := range g.producers {
		if err := p.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("closing %s: %w", p.Name(), err))
		}
	}
	return errs
}

// Run processes units in order. Once ctx is cancelled no new producer calls
// start; the results collected so far are gated and the report is written.
func (g *Generator) Run(ctx context.Context, units []orchestrator.Unit) *Result {
	run := newRun(config.ModeGenerate)
	rep := report.New(g.cfg.ReportSettings(config.ModeGenerate))
	rep.Settings.Producers = g.orchestrator.Producers()
	accepted := gate.NewAcceptedSet()
	logger := g.logger.With(zap.String("runId", run.ID))
	logger.Info("generate started", zap.Int("units", len(units)), zap.Strings("producers", rep.Settings.Producers))

	batches, err := batch.Split(units, g.cfg.BatchSize)
	if err != nil {
		run.RecordError("batch", "", err)
		return finish(ctx, g.exporter, rep, run, g.options.Progress)
	}

	done := 0
	for _, b := range batches {
		for _, unit := range b {
			if ctx.Err() != nil {
				break
			}
			results := g.orchestrator.RunUnit(ctx, unit, run, g.options.Progress)
			g.gateUnit(unit, results, accepted, run, rep)
			done++
		}
		logger.Debug("batch complete", zap.Int("units", done), zap.Int("accepted", accepted.Len()))
		if ctx.Err() != nil {
			break
		}
	}

	result := finish(ctx, g.exporter, rep, run, g.options.Progress)
	snap := result.Snapshot
	logger.Info("generate finished",
		zap.Int("unitsProcessed", done),
		zap.Int64("itemsSeen", snap.ItemsSeen),
		zap.Int64("accepted", snap.Buckets[metrics.BucketOrganized]),
		zap.Int64("nearDuplicates", snap.NearDuplicates),
		zap.Int64("errors", snap.ErrorCount),
		zap.Bool("cancelled", snap.Cancelled),
	)
	return result
}

// gateUnit turns one unit's results into samples, in producer order.
// Near-duplicates are checked against the samples of this unit accepted so
// far; exact repeats against everything accepted in the run. Skipped calls
// never produced anything and are not items. An empty response is errored.
func (g *Generator) gateUnit(unit orchestrator.Unit, results []orchestrator.Result, accepted *gate.AcceptedSet, run *metrics.Run, rep *report.Report) {
	var unitTokens []identity.TokenSet
	var unitIDs []string

	for _, res := range results {
		if res.State == orchestrator.CallSkipped {
			continue
		}
		run.ItemSeen()

		key := identity.SampleKey(unit.Prompt, res.Response, res.Producer)
		sample := &item.Sample{
			ID:            SampleID(unit.ID, key),
			UnitID:        unit.ID,
			Prompt:        unit.Prompt,
			Domain:        unit.Domain,
			Producer:      res.Producer,
			ProducerIndex: res.ProducerIndex,
			Response:      res.Response,
			GeneratedAt:   g.now().UTC(),
		}
		if !res.FinishedAt.IsZero() {
			sample.GeneratedAt = res.FinishedAt.UTC()
		}

		if res.State == orchestrator.CallSucceeded && strings.TrimSpace(res.Response) == "" {
			run.RecordError("generate", unit.ID+"/"+res.Producer, producer.ErrEmptyResponse)
			res.State = orchestrator.CallFailed
		}
		if res.State != orchestrator.CallSucceeded {
			sample.Verdict = item.VerdictErrored
			run.Terminal(metrics.BucketErrored)
			rep.AddSample(sample)
			continue
		}

		run.AddGenerated(sample.SizeBytes())
		sample.ContentHash = key
		tokens := identity.Tokenize(sample.Response)

		if accepted.Contains(key) {
			sample.IsDuplicate = true
			run.DuplicateFound()
		} else {
			idx, highest := identity.NearDuplicateOf(tokens, unitTokens, g.cfg.SimilarityThreshold)
			sample.Similarity = highest
			if idx >= 0 {
				sample.IsDuplicate = true
				sample.NearDupOf = unitIDs[idx]
				run.NearDuplicateFound()
			}
		}

		sample.QualityScore = g.scorer.ScoreSample(sample)
		run.QualityResult(sample.QualityScore >= g.cfg.QualityThreshold)
		sample.Verdict = gate.Decide(sample.QualityScore, g.cfg.QualityThreshold, sample.IsDuplicate)

		if sample.Verdict == item.VerdictAccepted {
			accepted.Add(key, sample.ID)
			unitTokens = append(unitTokens, tokens)
			unitIDs = append(unitIDs, sample.ID)
			if g.options.Catalog != nil {
				if err := g.options.Catalog.AddSample(sample); err != nil {
					g.logger.Debug("catalog add failed", zap.String("sample", sample.ID), zap.Error(err))
				}
			}
		}

		run.Terminal(gate.BucketFor(sample.Verdict))
		rep.AddSample(sample)
	}
}
