package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ashureev/virtue-stages/internal/generation"
)

// Chains holds the candidate chains for both generation purposes.
type Chains struct {
	Prompt         generation.Chain
	Classification generation.Chain
}

var defaultPromptModels = []string{
	"gemini-2.5-flash-lite",
	"gemini-2.0-flash-lite",
	"gemini-1.5-flash-lite",
	"gemini-1.5-flash",
	"gemini-pro",
}

var defaultClassificationModels = []string{
	"gemini-2.5-flash-lite",
	"gemini-2.0-flash-lite",
}

// DefaultPromptConfig is the generation config for user-facing prompts.
var DefaultPromptConfig = generation.Config{
	MaxOutputTokens: 300,
	Temperature:     0.3,
	TopP:            0.8,
	TopK:            40,
	Safety:          generation.SafetyDefault,
}

// DefaultClassificationConfig is the generation config for coverage verdicts.
var DefaultClassificationConfig = generation.Config{
	MaxOutputTokens: 128,
	Temperature:     0,
	Safety:          generation.SafetyRelaxed,
}

// DefaultChains returns the built-in chains with timeout applied to every candidate.
func DefaultChains(timeout time.Duration) Chains {
	return Chains{
		Prompt:         buildChain(defaultPromptModels, DefaultPromptConfig, timeout),
		Classification: buildChain(defaultClassificationModels, DefaultClassificationConfig, timeout),
	}
}

func buildChain(models []string, cfg generation.Config, timeout time.Duration) generation.Chain {
	chain := make(generation.Chain, 0, len(models))
	for _, id := range models {
		chain = append(chain, generation.Candidate{ID: id, Config: cfg, Timeout: timeout})
	}
	return chain
}

// chainFile is the YAML layout of MODEL_CHAIN_FILE.
//
//	prompt:
//	  defaults: {maxOutputTokens: 300, temperature: 0.3}
//	  timeout: 20s
//	  candidates:
//	    - id: gemini-2.5-flash-lite
//	    - id: gemini-1.5-flash
//	      timeout: 30s
//	      temperature: 0.5
type chainFile struct {
	Prompt         *chainSpec `yaml:"prompt"`
	Classification *chainSpec `yaml:"classification"`
}

type chainSpec struct {
	Defaults   *generation.Config `yaml:"defaults"`
	Timeout    time.Duration      `yaml:"timeout"`
	Candidates []candidateSpec    `yaml:"candidates"`
}

type candidateSpec struct {
	ID              string                   `yaml:"id"`
	Timeout         time.Duration            `yaml:"timeout"`
	MaxOutputTokens *int32                   `yaml:"maxOutputTokens"`
	Temperature     *float32                 `yaml:"temperature"`
	TopP            *float32                 `yaml:"topP"`
	TopK            *float32                 `yaml:"topK"`
	Safety          *generation.SafetyPolicy `yaml:"safety"`
}

// LoadChains reads chains from path. An empty path yields DefaultChains.
// A section missing from the file keeps its default chain.
func LoadChains(path string, timeout time.Duration) (Chains, error) {
	chains := DefaultChains(timeout)
	if path == "" {
		return chains, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Chains{}, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseChains(data, timeout)
}

// ParseChains decodes a chain file.
func ParseChains(data []byte, timeout time.Duration) (Chains, error) {
	chains := DefaultChains(timeout)

	var f chainFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Chains{}, fmt.Errorf("parse chain file: %w", err)
	}

	if f.Prompt != nil {
		c, err := f.Prompt.build(DefaultPromptConfig, timeout)
		if err != nil {
			return Chains{}, fmt.Errorf("prompt chain: %w", err)
		}
		chains.Prompt = c
	}
	if f.Classification != nil {
		c, err := f.Classification.build(DefaultClassificationConfig, timeout)
		if err != nil {
			return Chains{}, fmt.Errorf("classification chain: %w", err)
		}
		chains.Classification = c
	}
	return chains, nil
}

func (s *chainSpec) build(base generation.Config, timeout time.Duration) (generation.Chain, error) {
	if len(s.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates")
	}
	if s.Defaults != nil {
		base = *s.Defaults
	}
	if s.Timeout > 0 {
		timeout = s.Timeout
	}

	seen := make(map[string]bool, len(s.Candidates))
	chain := make(generation.Chain, 0, len(s.Candidates))
	for i, cs := range s.Candidates {
		if cs.ID == "" {
			return nil, fmt.Errorf("candidate %d has no id", i)
		}
		if seen[cs.ID] {
			return nil, fmt.Errorf("duplicate candidate %q", cs.ID)
		}
		seen[cs.ID] = true

		cand := generation.Candidate{ID: cs.ID, Config: base, Timeout: timeout}
		if cs.Timeout > 0 {
			cand.Timeout = cs.Timeout
		}
		if cs.MaxOutputTokens != nil {
			cand.Config.MaxOutputTokens = *cs.MaxOutputTokens
		}
		if cs.Temperature != nil {
			cand.Config.Temperature = *cs.Temperature
		}
		if cs.TopP != nil {
			cand.Config.TopP = *cs.TopP
		}
		if cs.TopK != nil {
			cand.Config.TopK = *cs.TopK
		}
		if cs.Safety != nil {
			cand.Config.Safety = *cs.Safety
		}
		if err := validSafety(cand.Config.Safety); err != nil {
			return nil, fmt.Errorf("candidate %q: %w", cs.ID, err)
		}
		chain = append(chain, cand)
	}
	return chain, nil
}

func validSafety(p generation.SafetyPolicy) error {
	switch p {
	case "", generation.SafetyDefault, generation.SafetyRelaxed, generation.SafetyStrict:
		return nil
	default:
		return fmt.Errorf("unknown safety policy %q", p)
	}
}
