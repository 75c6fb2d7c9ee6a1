package producer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

func Test_Fake_Deterministic(t *testing.T) {
	ctx := context.Background()
	a := NewFake("alpha")

	first, err := a.Generate(ctx, "Explain channels")
	require.NoError(t, err)
	second, err := a.Generate(ctx, "Explain channels")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "Explain channels")
	assert.Equal(t, "fake:alpha", a.Name())
}

func Test_Fake_DelayHonorsContext(t *testing.T) {
	f := NewFake("slow")
	f.Delay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Generate(ctx, "p")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func Test_Wrap_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next Producer) Producer {
			return NewFakeFunc(name, func(ctx context.Context, prompt string) (string, error) {
				order = append(order, name)
				return next.Generate(ctx, prompt)
			})
		}
	}
	p := Wrap(NewFakeFunc("inner", func(context.Context, string) (string, error) { return "ok", nil }), tag("A"), tag("B"))

	out, err := p.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, []string{"A", "B"}, order)
}

func Test_Retry_TransientThenSuccess(t *testing.T) {
	var calls atomic.Int32
	inner := NewFakeFunc("flaky", func(context.Context, string) (string, error) {
		if calls.Add(1) < 3 {
			return "", errors.New("503")
		}
		return "done", nil
	})

	out, err := Wrap(inner, Retry(3, time.Millisecond)).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, int32(3), calls.Load())
}

func Test_Retry_PermanentStops(t *testing.T) {
	var calls atomic.Int32
	inner := NewFakeFunc("bad", func(context.Context, string) (string, error) {
		calls.Add(1)
		return "", NewPermanentError(errors.New("400 bad request"))
	})

	_, err := Wrap(inner, Retry(5, time.Millisecond)).Generate(context.Background(), "p")
	assert.True(t, IsPermanent(err))
	assert.Equal(t, int32(1), calls.Load())
}

func Test_Retry_ExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	inner := NewFakeFunc("down", func(context.Context, string) (string, error) {
		calls.Add(1)
		return "", errors.New("unavailable")
	})

	_, err := Wrap(inner, Retry(2, time.Millisecond)).Generate(context.Background(), "p")
	assert.EqualError(t, err, "unavailable")
	assert.Equal(t, int32(2), calls.Load())
}

func Test_Timeout_ReportsErrTimeout(t *testing.T) {
	slow := NewFake("slow")
	slow.Delay = time.Second

	_, err := Wrap(slow, Timeout(10*time.Millisecond)).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func Test_Timeout_ParentCancelIsNotTimeout(t *testing.T) {
	slow := NewFake("slow")
	slow.Delay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Wrap(slow, Timeout(time.Minute)).Generate(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrTimeout))
}

func Test_RateLimit_BurstThenBlocks(t *testing.T) {
	p := Wrap(NewFake("rl"), RateLimit(0.001, 2))
	defer p.Close()

	ctx := context.Background()
	_, err := p.Generate(ctx, "1")
	require.NoError(t, err)
	_, err = p.Generate(ctx, "2")
	require.NoError(t, err)

	blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = p.Generate(blocked, "3")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func Test_RateLimit_Disabled(t *testing.T) {
	p := Wrap(NewFake("free"), RateLimit(0, 0))
	defer p.Close()
	for i := 0; i < 5; i++ {
		_, err := p.Generate(context.Background(), "p")
		require.NoError(t, err)
	}
}

func Test_Build(t *testing.T) {
	ctx := context.Background()

	p, err := Build(ctx, "fake:one", BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, "fake:one", p.Name())

	_, err = Build(ctx, "nonsense", BuildOptions{})
	assert.ErrorIs(t, err, ErrUnknownProducer)

	_, err = Build(ctx, "llama:7b", BuildOptions{})
	assert.ErrorIs(t, err, ErrUnknownProducer)

	_, err = Build(ctx, "gemini:gemini-2.5-flash", BuildOptions{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = Build(ctx, "openai:gpt-4o-mini", BuildOptions{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func Test_OpenAI_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var req chatRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) || !assert.Len(t, req.Messages, 1) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "local-model", req.Model)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": " echo: " + req.Messages[0].Content + " "}}},
		})
	}))
	defer srv.Close()

	p, err := NewOpenAI("secret", "local-model", srv.URL, time.Second)
	require.NoError(t, err)

	out, err := p.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", out)
	assert.Equal(t, "openai:local-model", p.Name())
}

func Test_OpenAI_StatusClassification(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusBadRequest)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		w.Write([]byte(`{"error":"nope"}`))
	}))
	defer srv.Close()

	p, err := NewOpenAI("", "m", srv.URL, time.Second)
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), "x")
	assert.True(t, IsPermanent(err), "4xx should be permanent")

	status.Store(http.StatusTooManyRequests)
	_, err = p.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, IsPermanent(err), "429 should be retryable")

	status.Store(http.StatusBadGateway)
	_, err = p.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}

func Test_OpenAI_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	p, err := NewOpenAI("", "m", srv.URL, time.Second)
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
