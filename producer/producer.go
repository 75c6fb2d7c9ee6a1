// Package producer defines the boundary to text generators (model
// invocations) and ships Gemini, OpenAI-compatible and deterministic fake
// implementations plus retry, rate-limit and timeout middleware.
package producer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrEmptyResponse   = errors.New("producer returned an empty response")
	ErrUnknownProducer = errors.New("unknown producer kind")
	ErrMissingAPIKey   = errors.New("missing API key")
)

// Producer turns a prompt into text.
type Producer interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}

// PermanentError marks a failure that retries cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err wraps a PermanentError.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// BuildOptions carries credentials and endpoints for Build.
type BuildOptions struct {
	GeminiAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	HTTPTimeout   time.Duration
}

// Build creates a producer from "kind:model": gemini:<model>, openai:<model>
// or fake:<name>.
func Build(ctx context.Context, spec string, options BuildOptions) (Producer, error) {
	kind, model, ok := strings.Cut(strings.TrimSpace(spec), ":")
	if !ok || model == "" {
		return nil, fmt.Errorf("%w: %q (want kind:model)", ErrUnknownProducer, spec)
	}
	switch strings.ToLower(kind) {
	case "gemini":
		return NewGemini(ctx, options.GeminiAPIKey, model)
	case "openai":
		return NewOpenAI(options.OpenAIAPIKey, model, options.OpenAIBaseURL, options.HTTPTimeout)
	case "fake":
		return NewFake(model), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProducer, kind)
	}
}
