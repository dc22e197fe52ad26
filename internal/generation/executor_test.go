package generation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedBackend struct {
	mu      sync.Mutex
	replies map[string]func(ctx context.Context) (string, error)
	calls   []string
}

func (b *scriptedBackend) Generate(ctx context.Context, model, _ string, _ Config) (string, error) {
	b.mu.Lock()
	b.calls = append(b.calls, model)
	reply := b.replies[model]
	b.mu.Unlock()
	if reply == nil {
		return "", errors.New("model not found")
	}
	return reply(ctx)
}

func (b *scriptedBackend) called() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

type countingObserver struct {
	mu        sync.Mutex
	attempts  int
	failures  int
	exhausted int
}

func (o *countingObserver) ObserveAttempt(_ Purpose, _ string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts++
	if err != nil {
		o.failures++
	}
}

func (o *countingObserver) ObserveExhausted(Purpose) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.exhausted++
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func chainOf(ids ...string) Chain {
	chain := make(Chain, 0, len(ids))
	for _, id := range ids {
		chain = append(chain, Candidate{ID: id})
	}
	return chain
}

func text(s string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return s, nil }
}

func fail(msg string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return "", errors.New(msg) }
}

func TestExecuteExhaustsChainOnTotalFailure(t *testing.T) {
	backend := &scriptedBackend{replies: map[string]func(context.Context) (string, error){
		"m1": fail("quota"),
		"m2": text("   "),
		"m3": fail("unavailable"),
	}}
	obs := &countingObserver{}
	exec := NewExecutor(backend, time.Second, obs, quietLogger())

	out := exec.Execute(context.Background(), Request{Purpose: PurposePrompt, Prompt: "p", Chain: chainOf("m1", "m2", "m3")})

	assert.Equal(t, StatusAllFailed, out.Status)
	assert.False(t, out.Succeeded())
	assert.Empty(t, out.Text)
	require.Len(t, out.Attempts, 3)
	assert.ErrorIs(t, out.Attempts[1].Err, ErrEmptyResponse)
	assert.Equal(t, []string{"m1", "m2", "m3"}, backend.called())
	assert.Equal(t, 3, obs.failures)
	assert.Equal(t, 1, obs.exhausted)
}

func TestExecuteStopsAtFirstSuccess(t *testing.T) {
	backend := &scriptedBackend{replies: map[string]func(context.Context) (string, error){
		"m1": fail("boom"),
		"m2": text("  Write about lying.  "),
		"m3": text("never used"),
	}}
	exec := NewExecutor(backend, time.Second, nil, quietLogger())

	out := exec.Execute(context.Background(), Request{Purpose: PurposePrompt, Prompt: "p", Chain: chainOf("m1", "m2", "m3")})

	require.True(t, out.Succeeded())
	assert.Equal(t, "m2", out.CandidateID)
	assert.Equal(t, "Write about lying.", out.Text)
	assert.Len(t, out.Attempts, 2)
	assert.Equal(t, []string{"m1", "m2"}, backend.called())
}

func TestExecuteTreatsTimeoutAsRecoverable(t *testing.T) {
	backend := &scriptedBackend{replies: map[string]func(context.Context) (string, error){
		"slow": func(ctx context.Context) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
		"fast": text("ok"),
	}}
	exec := NewExecutor(backend, time.Second, nil, quietLogger())
	chain := Chain{{ID: "slow", Timeout: 20 * time.Millisecond}, {ID: "fast"}}

	out := exec.Execute(context.Background(), Request{Purpose: PurposePrompt, Prompt: "p", Chain: chain})

	require.True(t, out.Succeeded())
	assert.Equal(t, "fast", out.CandidateID)
	assert.ErrorIs(t, out.Attempts[0].Err, context.DeadlineExceeded)
}

func TestExecuteRejectsOutputFailingValidation(t *testing.T) {
	backend := &scriptedBackend{replies: map[string]func(context.Context) (string, error){
		"m1": text("not json"),
		"m2": text(`{"ok": true}`),
	}}
	exec := NewExecutor(backend, time.Second, nil, quietLogger())

	validate := func(s string) error {
		_, err := DecodeJSON[map[string]bool](s, nil)
		return err
	}
	out := exec.Execute(context.Background(), Request{
		Purpose:  PurposeClassification,
		Prompt:   "p",
		Chain:    chainOf("m1", "m2"),
		Validate: validate,
	})

	require.True(t, out.Succeeded())
	assert.Equal(t, "m2", out.CandidateID)
	assert.ErrorIs(t, out.Attempts[0].Err, ErrInvalidOutput)
}

func TestExecuteEmptyChain(t *testing.T) {
	obs := &countingObserver{}
	exec := NewExecutor(&scriptedBackend{}, 0, obs, quietLogger())

	out := exec.Execute(context.Background(), Request{Purpose: PurposePrompt, Prompt: "p"})

	assert.Equal(t, StatusAllFailed, out.Status)
	assert.Empty(t, out.Attempts)
	assert.Equal(t, 1, obs.exhausted)
}

func TestExecuteStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	backend := &scriptedBackend{replies: map[string]func(context.Context) (string, error){
		"m1": func(context.Context) (string, error) {
			cancel()
			return "", errors.New("client went away")
		},
		"m2": text("unreachable"),
	}}
	exec := NewExecutor(backend, time.Second, nil, quietLogger())

	out := exec.Execute(ctx, Request{Purpose: PurposePrompt, Prompt: "p", Chain: chainOf("m1", "m2")})

	assert.Equal(t, StatusAllFailed, out.Status)
	assert.Equal(t, []string{"m1"}, backend.called())
}
