package defect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ashureev/virtue-stages/internal/cache"
	"github.com/ashureev/virtue-stages/internal/domain"
	"github.com/ashureev/virtue-stages/internal/generation"
)

// classifierVersion is part of every cache key. Bump it when the
// classification prompt changes meaning.
const classifierVersion = "coverage-v1"

// DefaultRecentWindow is how many trailing prior prompts count as recent.
const DefaultRecentWindow = 2

// markHeadLen is how many leading bytes of progress text key a coverage mark.
const markHeadLen = 64

// CoverageSchema is the structured output requested from the classification chain.
var CoverageSchema = &generation.Schema{Properties: []generation.Property{
	{Name: "frequencyDescribed", Type: generation.TypeBoolean, Description: "The writing states how often the behavior occurs."},
	{Name: "harmedPartyIdentified", Type: generation.TypeBoolean, Description: "The writing names who is harmed by the behavior."},
	{Name: "harmDescribed", Type: generation.TypeBoolean, Description: "The writing describes the nature of the harm."},
}}

// Executor runs a generation request through a candidate chain.
type Executor interface {
	Execute(ctx context.Context, req generation.Request) generation.Outcome
}

// Classifier judges which coverage elements a user's progress text contains
// for a defect by asking the classification chain for a structured verdict.
type Classifier struct {
	exec         Executor
	chain        generation.Chain
	cache        cache.Cache
	recentWindow int
	logger       *slog.Logger
}

// NewClassifier creates a classifier. The chain is forced to request
// CoverageSchema output. A nil cache disables caching. A non-positive
// recentWindow uses DefaultRecentWindow.
func NewClassifier(exec Executor, chain generation.Chain, c cache.Cache, recentWindow int, logger *slog.Logger) *Classifier {
	if recentWindow <= 0 {
		recentWindow = DefaultRecentWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		exec:         exec,
		chain:        chain.WithSchema(CoverageSchema),
		cache:        c,
		recentWindow: recentWindow,
		logger:       logger,
	}
}

type coverageVerdict struct {
	FrequencyDescribed    *bool `json:"frequencyDescribed"`
	HarmedPartyIdentified *bool `json:"harmedPartyIdentified"`
	HarmDescribed         *bool `json:"harmDescribed"`
}

func (v coverageVerdict) check() error {
	var missing []string
	if v.FrequencyDescribed == nil {
		missing = append(missing, "frequencyDescribed")
	}
	if v.HarmedPartyIdentified == nil {
		missing = append(missing, "harmedPartyIdentified")
	}
	if v.HarmDescribed == nil {
		missing = append(missing, "harmDescribed")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

func parseVerdict(text string) (domain.CoverageState, error) {
	v, err := generation.DecodeJSON(text, coverageVerdict.check)
	if err != nil {
		return domain.CoverageState{}, err
	}
	return domain.CoverageState{
		FrequencyDescribed:    *v.FrequencyDescribed,
		HarmedPartyIdentified: *v.HarmedPartyIdentified,
		HarmDescribed:         *v.HarmDescribed,
	}, nil
}

// Classify returns the coverage of d in progressText.
//
// Empty progress text is unaddressed without a backend call. When the chain
// cannot produce a valid verdict the state is ambiguous. A defect that was the
// subject of a recent prompt and now has two of three elements is treated as
// fully addressed.
func (c *Classifier) Classify(ctx context.Context, progressText string, d domain.DefectPriority, priorPrompts []string) domain.CoverageState {
	progressText = strings.TrimSpace(progressText)
	if progressText == "" {
		return domain.CoverageState{}
	}

	recent := RecentPrompts(priorPrompts, c.recentWindow)
	state, ok := c.verdict(ctx, progressText, d, recent)
	if !ok {
		return domain.CoverageState{Ambiguous: true}
	}

	if state.Status() != domain.FullyAddressed && state.Covered() >= 2 && focusedRecently(d.Name, recent) {
		c.logger.Debug("Coverage inferred from recent prompt", "defect", d.Name, "covered", state.Covered())
		state = domain.FullCoverage()
		state.InferredFromHistory = true
	}
	return state
}

func (c *Classifier) verdict(ctx context.Context, progressText string, d domain.DefectPriority, recent []string) (domain.CoverageState, bool) {
	key := cache.Key(classifierVersion, d.Name, d.Definition, d.FrequencyLevel.String(), d.HarmLevel.String(),
		progressText, strings.Join(recent, "\x1e"))

	if c.cache != nil {
		state, hit, err := c.cache.Get(ctx, key)
		if err != nil {
			c.logger.Warn("Coverage cache read failed", "defect", d.Name, "error", err)
		} else if hit {
			return state, true
		}
	}

	out := c.exec.Execute(ctx, generation.Request{
		Purpose: generation.PurposeClassification,
		Prompt:  classificationPrompt(progressText, d, recent),
		Chain:   c.chain,
		Validate: func(text string) error {
			_, err := parseVerdict(text)
			return err
		},
	})
	if !out.Succeeded() {
		c.logger.Warn("Coverage classification unavailable, treating as ambiguous",
			"defect", d.Name,
			"attempts", len(out.Attempts))
		return domain.CoverageState{}, false
	}

	state, err := parseVerdict(out.Text)
	if err != nil {
		// The validator already accepted this text; reaching here is a bug.
		c.logger.Error("Accepted verdict failed to parse", "defect", d.Name, "error", err)
		return domain.CoverageState{}, false
	}

	if c.cache != nil {
		state = c.carryForward(ctx, progressText, d, state)
		if state.Covered() > 0 {
			mark := cache.Mark{Text: progressText, State: state}
			if err := c.cache.SetMark(ctx, markKey(d, markHeads(progressText)[0]), mark); err != nil {
				c.logger.Warn("Coverage mark write failed", "defect", d.Name, "error", err)
			}
		}

		if err := c.cache.Set(ctx, key, state); err != nil {
			c.logger.Warn("Coverage cache write failed", "defect", d.Name, "error", err)
		}
	}
	return state, true
}

// carryForward adds the elements already established for any earlier text that
// progressText extends, so appending to an entry never loses coverage.
func (c *Classifier) carryForward(ctx context.Context, progressText string, d domain.DefectPriority, state domain.CoverageState) domain.CoverageState {
	for _, head := range markHeads(progressText) {
		if state.Status() == domain.FullyAddressed {
			break
		}
		mark, ok, err := c.cache.GetMark(ctx, markKey(d, head))
		if err != nil {
			c.logger.Warn("Coverage mark read failed", "defect", d.Name, "error", err)
			return state
		}
		if !ok || !strings.HasPrefix(progressText, mark.Text) {
			continue
		}
		if merged := state.Union(mark.State); merged != state {
			c.logger.Debug("Coverage carried forward from earlier text",
				"defect", d.Name,
				"earlier_len", len(mark.Text),
				"covered", merged.Covered())
			state = merged
		}
	}
	return state
}

func markKey(d domain.DefectPriority, head string) string {
	return cache.Key(classifierVersion, "mark", d.Name, d.Definition, head)
}

// markHeads returns the keys under which a mark for text or for an earlier
// version of it may be stored. The first is the head of text itself; the rest
// are the shorter prefixes ending at a word boundary, which is where a short
// entry that was later extended would have been keyed.
func markHeads(text string) []string {
	n := min(len(text), markHeadLen)
	for n < len(text) && n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	heads := []string{text[:n]}
	for i := 1; i < n; i++ {
		if isSpace(text[i]) && !isSpace(text[i-1]) {
			heads = append(heads, text[:i])
		}
	}
	return heads
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

// RecentPrompts returns the last n prompts.
func RecentPrompts(prompts []string, n int) []string {
	if n <= 0 || len(prompts) == 0 {
		return nil
	}
	if n >= len(prompts) {
		return prompts
	}
	return prompts[len(prompts)-n:]
}

func focusedRecently(name string, recent []string) bool {
	for _, p := range recent {
		if domain.Mentions(p, name) {
			return true
		}
	}
	return false
}

func classificationPrompt(progressText string, d domain.DefectPriority, recent []string) string {
	var b strings.Builder
	b.WriteString("You are assessing a self-examination journal entry. Judge only what the writing actually says.\n\n")
	fmt.Fprintf(&b, "Character defect: %s\n", d.Name)
	if d.Definition != "" {
		fmt.Fprintf(&b, "Definition: %s\n", d.Definition)
	}
	fmt.Fprintf(&b, "User's own rating: frequency %s, harm %s\n\n", d.FrequencyLevel, d.HarmLevel)

	if len(recent) > 0 {
		b.WriteString("The user was recently given these writing prompts. Short answers that respond to them count:\n")
		for i, p := range recent {
			fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(p))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Journal entry:\n\"\"\"%s\"\"\"\n\n", progressText)
	fmt.Fprintf(&b, "For the defect %q decide three things about the journal entry:\n", d.Name)
	b.WriteString("- frequencyDescribed: it states how often the user engages in this behavior.\n")
	b.WriteString("- harmedPartyIdentified: it names who is harmed by this behavior.\n")
	b.WriteString("- harmDescribed: it describes the nature of the harm caused.\n")
	b.WriteString("Writing about other defects does not count. When unsure, answer false.\n")
	b.WriteString(`Respond with only a JSON object: {"frequencyDescribed": bool, "harmedPartyIdentified": bool, "harmDescribed": bool}`)
	return b.String()
}
