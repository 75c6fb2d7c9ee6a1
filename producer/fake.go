package producer

import (
	"context"
	"hash/fnv"
	"math/rand"
	"strings"
	"time"
)

var fakeSentences = []string{
	"The short answer is that it depends on the constraints you start with.",
	"A practical approach is to measure first and optimize second.",
	"Most teams begin with the simplest design that could possibly work.",
	"Edge cases usually hide in error handling and resource cleanup.",
	"Clear naming makes the intent obvious to the next reader.",
	"Tests that describe behavior survive refactoring far better.",
	"Concurrency should be introduced only where latency demands it.",
	"Configuration belongs at the edges while the core stays pure.",
	"Logging the right context saves hours during an incident.",
	"Small interfaces are easier to mock, compose and replace.",
	"Data formats deserve explicit schemas and versioning.",
	"Timeouts protect every call that crosses a network boundary.",
}

// Fake is a deterministic offline producer. By default the response is
// derived from a hash of (name, prompt); Respond overrides it.
type Fake struct {
	name    string
	Respond func(ctx context.Context, prompt string) (string, error)
	Delay   time.Duration
}

func NewFake(name string) *Fake {
	return &Fake{name: name}
}

// NewFakeFunc builds a fake that answers with fn.
func NewFakeFunc(name string, fn func(ctx context.Context, prompt string) (string, error)) *Fake {
	return &Fake{name: name, Respond: fn}
}

func (f *Fake) Name() string { return "fake:" + f.name }
func (f *Fake) Close() error { return nil }

func (f *Fake) Generate(ctx context.Context, prompt string) (string, error) {
	if f.Delay > 0 {
		timer := time.NewTimer(f.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	if f.Respond != nil {
		return f.Respond(ctx, prompt)
	}

	h := fnv.New64a()
	h.Write([]byte(f.name))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	picked := rng.Perm(len(fakeSentences))[:4]
	parts := make([]string, 0, len(picked)+1)
	parts = append(parts, "Regarding "+strings.TrimSpace(prompt)+":")
	for _, i := range picked {
		parts = append(parts, fakeSentences[i])
	}
	return strings.Join(parts, " "), nil
}
