// Package orchestrator fans one unit of work out to every producer with
// bounded parallelism and a per-call timeout, and collects all results
// before returning.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lexandro/contentsieve/metrics"
	"github.com/lexandro/contentsieve/producer"
)

var ErrNoProducers = errors.New("at least one producer is required")

// Unit is one unit of work, typically a prompt.
type Unit struct {
	ID     string
	Prompt string
	Domain string
}

// Result is the outcome of one (unit, producer) call.
type Result struct {
	UnitID        string
	Producer      string
	ProducerIndex int
	State         CallState
	Response      string
	Err           error
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Elapsed is zero for calls that never ran.
func (r Result) Elapsed() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Options bounds concurrency and call duration.
type Options struct {
	Parallelism int           // producers in flight at once; < 1 means 1
	Timeout     time.Duration // per call; <= 0 means no orchestrator timeout
}

// Orchestrator drives a fixed producer list.
type Orchestrator struct {
	producers []producer.Producer
	options   Options
	logger    *zap.Logger
}

func New(producers []producer.Producer, options Options, logger *zap.Logger) (*Orchestrator, error) {
	if len(producers) == 0 {
		return nil, ErrNoProducers
	}
	if options.Parallelism < 1 {
		options.Parallelism = 1
	}
	return &Orchestrator{producers: producers, options: options, logger: logger}, nil
}

// Producers returns the producer names in invocation order.
func (o *Orchestrator) Producers() []string {
	names := make([]string, len(o.producers))
	for i, p := range o.producers {
		names[i] = p.Name()
	}
	return names
}

// RunUnit invokes every producer for unit and returns one result per
// producer, in producer order. Calls beyond the parallelism limit wait for a
// free slot. Once ctx is cancelled no further calls start and the remaining
// ones are reported as skipped; calls already in flight run to completion or
// to their own timeout.
func (o *Orchestrator) RunUnit(ctx context.Context, unit Unit, run *metrics.Run, progress metrics.ProgressFunc) []Result {
	results := make([]Result, len(o.producers))
	for i, p := range o.producers {
		results[i] = Result{UnitID: unit.ID, Producer: p.Name(), ProducerIndex: i, State: CallPending}
	}

	var g errgroup.Group
	g.SetLimit(o.options.Parallelism)
	var finished atomic.Int32

	for i, p := range o.producers {
		// Go blocks while the pool is full, so this check runs each time a slot frees.
		if ctx.Err() != nil {
			o.skip(&results[i], run)
			continue
		}
		g.Go(func() error {
			o.call(ctx, unit, p, &results[i], run)
			progress.Emit(metrics.Event{
				Phase: metrics.PhaseGenerate,
				Done:  int(finished.Add(1)),
				Total: len(o.producers),
				Ref:   unit.ID + "/" + p.Name(),
			})
			return nil
		})
	}
	g.Wait()

	return results
}

func (o *Orchestrator) skip(r *Result, run *metrics.Run) {
	if err := transition(r, CallSkipped); err != nil {
		o.logger.Error("state machine violation", zap.Error(err))
		return
	}
	run.ProducerSkipped()
}

// call runs on a context detached from ctx's cancellation so that in-flight
// calls are bounded only by the timeout.
func (o *Orchestrator) call(ctx context.Context, unit Unit, p producer.Producer, r *Result, run *metrics.Run) {
	if ctx.Err() != nil {
		o.skip(r, run)
		return
	}
	if err := transition(r, CallRunning); err != nil {
		o.logger.Error("state machine violation", zap.Error(err))
		return
	}
	run.ProducerCall()

	callCtx := context.WithoutCancel(ctx)
	var cancel context.CancelFunc = func() {}
	if o.options.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(callCtx, o.options.Timeout)
	}
	defer cancel()

	r.StartedAt = time.Now()
	response, err := p.Generate(callCtx, unit.Prompt)
	r.FinishedAt = time.Now()

	switch {
	case err == nil:
		r.Response = response
		_ = transition(r, CallSucceeded)
	case errors.Is(err, producer.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		r.Err = err
		if !errors.Is(err, producer.ErrTimeout) {
			r.Err = fmt.Errorf("%w after %s: %w", producer.ErrTimeout, o.options.Timeout, err)
		}
		_ = transition(r, CallTimedOut)
		run.ProducerTimeout()
		run.RecordError("generate", unit.ID+"/"+p.Name(), r.Err)
	default:
		r.Err = err
		_ = transition(r, CallFailed)
		run.ProducerFailure()
		run.RecordError("generate", unit.ID+"/"+p.Name(), err)
	}

	o.logger.Debug("producer call finished",
		zap.String("unit", unit.ID),
		zap.String("producer", p.Name()),
		zap.String("state", string(r.State)),
		zap.Duration("elapsed", r.Elapsed()),
	)
}
