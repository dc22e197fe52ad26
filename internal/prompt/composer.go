// Package prompt builds the instruction text sent to the generation backend
// and inspects what comes back.
package prompt

import (
	"fmt"
	"strings"

	"github.com/ashureev/virtue-stages/internal/domain"
)

// Composer versions.
const (
	VersionAssessment  = "v1"
	VersionProgression = "v2"
)

// Input is everything a composer may draw on. Composers are pure functions of it.
type Input struct {
	VirtueName       string
	VirtueDefinition string
	Selection        domain.Selection
	Ranked           []domain.DefectPriority
	ProgressText     string
	PriorPrompts     []string
	// DefectAnalysis is caller-supplied free text describing the user's
	// defects, used when no ratings are available.
	DefectAnalysis string
}

// Composer renders the instruction prompt for one request.
type Composer interface {
	Version() string
	Compose(in Input) string
}

// NewComposer returns the composer for version. An empty version selects the
// progression composer.
func NewComposer(version string) (Composer, error) {
	switch strings.ToLower(strings.TrimSpace(version)) {
	case "", VersionProgression:
		return Progression{}, nil
	case VersionAssessment:
		return Assessment{}, nil
	default:
		return nil, fmt.Errorf("unknown prompt composer version %q", version)
	}
}

const coachPreamble = `You are an empathetic and wise recovery coach. Your task is to generate a motivating, introspective and contextually aware writing prompt for a user working on Stage 1 of their virtue development, which is "Dismantling". Dismantling is not a friendly process, and inviting brutal honesty is key. Empathy is offered as we are more than our mistakes.

Objective of Dismantling: Dismantling is the introspective practice of recognizing one's inner flaws (character defects), acknowledging the harm they cause, and making a resolute commitment to actively cease acting upon them.
`

const styleRules = `SPELLING AND GRAMMAR ARE VERY IMPORTANT. Review all responses for spelling and grammar.
Be direct and clear about what to write. Avoid flowery language. Format any numerical scores to 1 decimal place (for example 5.6/10, not 5.57/10).`

func writeContext(b *strings.Builder, in Input) {
	b.WriteString("\nUSER CONTEXT:\n")
	fmt.Fprintf(b, "- Virtue: %s\n", in.VirtueName)
	fmt.Fprintf(b, "- Virtue Definition: %s\n", in.VirtueDefinition)
	if progress := strings.TrimSpace(in.ProgressText); progress != "" {
		fmt.Fprintf(b, "- User's Writing Progress on Stage 1 So Far: \"\"\"%s\"\"\"\n", progress)
	} else {
		b.WriteString("- User's Writing Progress on Stage 1 So Far: The user has not started writing for this stage yet.\n")
	}
}

// describeRating restates a rating in plain language.
func describeRating(d domain.DefectPriority) string {
	freq := strings.ToLower(d.FrequencyLevel.String())
	harm := strings.ToLower(d.HarmLevel.String())
	if d.HarmLevel == domain.HarmNone {
		return fmt.Sprintf("The user reports doing this %s (%d of 5) and rates the harm it causes as none.", freq, d.FrequencyLevel)
	}
	return fmt.Sprintf("The user reports doing this %s (%d of 5) and rates the harm it causes as %s.", freq, d.FrequencyLevel, harm)
}

// priorFocus lists ranked defects mentioned in prior prompts, most recent first.
func priorFocus(prior []string, ranked []domain.DefectPriority) []string {
	seen := make(map[string]bool)
	var names []string
	for i := len(prior) - 1; i >= 0; i-- {
		for _, d := range ranked {
			if !seen[d.Name] && domain.Mentions(prior[i], d.Name) {
				seen[d.Name] = true
				names = append(names, d.Name)
			}
		}
	}
	return names
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}
