package report

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
)

// Sink publishes written artifacts somewhere beyond the report directory.
type Sink interface {
	Name() string
	Publish(ctx context.Context, r *Report, artifacts []string) error
}

// lazySink opens its target on first use, so a sink that cannot connect
// fails as an export artifact instead of aborting setup.
type lazySink struct {
	name string
	open func(ctx context.Context) (Sink, error)

	once sync.Once
	sink Sink
	err  error
}

// Lazy wraps open so it runs on the first Publish.
func Lazy(name string, open func(ctx context.Context) (Sink, error)) Sink {
	return &lazySink{name: name, open: open}
}

func (l *lazySink) Name() string { return l.name }

func (l *lazySink) Publish(ctx context.Context, r *Report, artifacts []string) error {
	l.once.Do(func() {
		l.sink, l.err = l.open(ctx)
	})
	if l.err != nil {
		return fmt.Errorf("opening %s: %w", l.name, l.err)
	}
	return l.sink.Publish(ctx, r, artifacts)
}

func (l *lazySink) Close() error {
	if closer, ok := l.sink.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// CloseSinks closes every sink that holds resources.
func CloseSinks(sinks []Sink) error {
	var errs error
	for _, s := range sinks {
		if closer, ok := s.(io.Closer); ok {
			errs = multierr.Append(errs, closer.Close())
		}
	}
	return errs
}
