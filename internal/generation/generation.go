// Package generation drives text generation through an ordered chain of
// model candidates, falling back to the next candidate on any failure.
package generation

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrEmptyResponse is returned when a backend produced no text.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrInvalidOutput is returned when a response is malformed or fails validation.
	ErrInvalidOutput = errors.New("invalid model output")
	// ErrNoCandidates is returned when a chain has nothing to try.
	ErrNoCandidates = errors.New("candidate chain is empty")
)

// Purpose labels what a generation call is for. It is carried into logs and metrics.
type Purpose string

// Generation purposes.
const (
	PurposePrompt         Purpose = "prompt"
	PurposeClassification Purpose = "classification"
)

// SafetyPolicy selects how aggressively the backend filters content.
type SafetyPolicy string

// Safety policies.
const (
	SafetyDefault SafetyPolicy = "default"
	SafetyRelaxed SafetyPolicy = "relaxed"
	SafetyStrict  SafetyPolicy = "strict"
)

// PropertyType is the JSON type of a structured-output property.
type PropertyType string

// Property types.
const (
	TypeBoolean PropertyType = "boolean"
	TypeString  PropertyType = "string"
)

// Property is one required field of a structured response.
type Property struct {
	Name        string
	Type        PropertyType
	Description string
}

// Schema requests a JSON object response with the given required properties.
type Schema struct {
	Properties []Property
}

// Config holds generation parameters for one candidate.
type Config struct {
	MaxOutputTokens int32        `yaml:"maxOutputTokens"`
	Temperature     float32      `yaml:"temperature"`
	TopP            float32      `yaml:"topP"`
	TopK            float32      `yaml:"topK"`
	Safety          SafetyPolicy `yaml:"safety"`
	// Schema, when set, asks the backend for JSON output matching it.
	Schema *Schema `yaml:"-"`
}

// Candidate is one entry in a fallback chain.
type Candidate struct {
	ID      string
	Config  Config
	Timeout time.Duration
}

// Chain is an ordered list of candidates tried until one succeeds.
type Chain []Candidate

// IDs returns the candidate identifiers in order.
func (c Chain) IDs() []string {
	ids := make([]string, 0, len(c))
	for _, cand := range c {
		ids = append(ids, cand.ID)
	}
	return ids
}

// WithSchema returns a copy of the chain whose candidates request structured output.
func (c Chain) WithSchema(s *Schema) Chain {
	out := make(Chain, len(c))
	for i, cand := range c {
		cand.Config.Schema = s
		out[i] = cand
	}
	return out
}

// Backend is the generative text capability.
type Backend interface {
	// Generate returns the text produced by model for prompt.
	Generate(ctx context.Context, model, prompt string, cfg Config) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, model, prompt string, cfg Config) (string, error)

// Generate calls f.
func (f BackendFunc) Generate(ctx context.Context, model, prompt string, cfg Config) (string, error) {
	return f(ctx, model, prompt, cfg)
}

// Status is the overall result of running a chain.
type Status int

// Chain statuses.
const (
	StatusSuccess Status = iota
	StatusAllFailed
)

func (s Status) String() string {
	if s == StatusSuccess {
		return "success"
	}
	return "all_failed"
}

// Attempt records one candidate invocation. Err is nil for the successful attempt.
type Attempt struct {
	CandidateID string
	Duration    time.Duration
	Err         error
}

// Outcome is the result of Executor.Execute.
type Outcome struct {
	Status      Status
	Text        string
	CandidateID string
	Attempts    []Attempt
}

// Succeeded reports whether some candidate produced valid output.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

// Observer receives per-attempt notifications.
type Observer interface {
	ObserveAttempt(purpose Purpose, candidateID string, d time.Duration, err error)
	ObserveExhausted(purpose Purpose)
}

// NoopObserver discards observations.
type NoopObserver struct{}

// ObserveAttempt implements Observer.
func (NoopObserver) ObserveAttempt(Purpose, string, time.Duration, error) {}

// ObserveExhausted implements Observer.
func (NoopObserver) ObserveExhausted(Purpose) {}
