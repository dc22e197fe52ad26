package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultTimeout bounds a single candidate call when neither the candidate
// nor the executor specifies one.
const DefaultTimeout = 20 * time.Second

// Validator checks generated text. A non-nil error rejects the candidate.
type Validator func(text string) error

// Request describes one chain execution.
type Request struct {
	Purpose  Purpose
	Prompt   string
	Chain    Chain
	Validate Validator
}

// Executor runs candidate chains against a Backend.
// Candidates are tried strictly in order, each exactly once.
type Executor struct {
	backend  Backend
	timeout  time.Duration
	observer Observer
	logger   *slog.Logger
}

// NewExecutor creates an executor. A zero timeout uses DefaultTimeout.
func NewExecutor(backend Backend, timeout time.Duration, observer Observer, logger *slog.Logger) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		backend:  backend,
		timeout:  timeout,
		observer: observer,
		logger:   logger,
	}
}

// Execute tries each candidate in req.Chain until one returns non-empty text
// that passes req.Validate. Failures never propagate; they are logged and
// recorded in Outcome.Attempts. If every candidate fails the outcome status is
// StatusAllFailed.
func (e *Executor) Execute(ctx context.Context, req Request) Outcome {
	out := Outcome{Status: StatusAllFailed}

	if len(req.Chain) == 0 {
		e.logger.Error("Generation chain is empty", "purpose", req.Purpose, "error", ErrNoCandidates)
		e.observer.ObserveExhausted(req.Purpose)
		return out
	}

	for i, cand := range req.Chain {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("Generation abandoned, request context done",
				"purpose", req.Purpose,
				"remaining_candidates", len(req.Chain)-i,
				"error", err)
			break
		}

		e.logger.Debug("Trying model", "purpose", req.Purpose, "candidate", cand.ID, "attempt", i+1)

		start := time.Now()
		text, err := e.try(ctx, cand, req)
		elapsed := time.Since(start)

		out.Attempts = append(out.Attempts, Attempt{CandidateID: cand.ID, Duration: elapsed, Err: err})
		e.observer.ObserveAttempt(req.Purpose, cand.ID, elapsed, err)

		if err != nil {
			e.logger.Warn("Model failed",
				"purpose", req.Purpose,
				"candidate", cand.ID,
				"attempt", i+1,
				"duration", elapsed,
				"error", err)
			continue
		}

		e.logger.Info("Model succeeded", "purpose", req.Purpose, "candidate", cand.ID, "attempt", i+1, "duration", elapsed)
		out.Status = StatusSuccess
		out.Text = text
		out.CandidateID = cand.ID
		return out
	}

	e.logger.Error("All models failed", "purpose", req.Purpose, "attempts", len(out.Attempts))
	e.observer.ObserveExhausted(req.Purpose)
	return out
}

func (e *Executor) try(ctx context.Context, cand Candidate, req Request) (string, error) {
	timeout := cand.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := e.backend.Generate(callCtx, cand.ID, req.Prompt, cand.Config)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("candidate %s timed out after %s: %w", cand.ID, timeout, err)
		}
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}

	if req.Validate != nil {
		if err := req.Validate(text); err != nil {
			if errors.Is(err, ErrInvalidOutput) {
				return "", err
			}
			return "", fmt.Errorf("%w: %v", ErrInvalidOutput, err)
		}
	}

	return text, nil
}
