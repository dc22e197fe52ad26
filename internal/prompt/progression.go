package prompt

import (
	"fmt"
	"strings"

	"github.com/ashureev/virtue-stages/internal/domain"
)

// Progression composes prompts from the structured defect selection.
// The backend is told exactly which defect to raise and which to leave alone.
type Progression struct{}

// Version implements Composer.
func (Progression) Version() string { return VersionProgression }

// Compose implements Composer.
func (p Progression) Compose(in Input) string {
	var b strings.Builder
	b.WriteString(coachPreamble)
	writeContext(&b, in)

	switch sel := in.Selection.(type) {
	case domain.Focus:
		p.focus(&b, in, sel)
	case domain.Complete:
		writeComplete(&b, in, sel)
	default:
		writeNoData(&b, in)
	}
	return b.String()
}

func (Progression) focus(b *strings.Builder, in Input, sel domain.Focus) {
	d := sel.Defect
	hasProgress := strings.TrimSpace(in.ProgressText) != ""

	if len(in.PriorPrompts) == 0 {
		b.WriteString("- Previous Prompts Given: No previous prompts for this virtue.\n")
	} else {
		fmt.Fprintf(b, "- Previous Prompts Given: %d.", len(in.PriorPrompts))
		if focused := priorFocus(in.PriorPrompts, in.Ranked); len(focused) > 0 {
			fmt.Fprintf(b, " They focused on %s.", joinNames(focused))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(b, "\nFOCUS DEFECT: %s\n", d.Name)
	if d.Definition != "" {
		fmt.Fprintf(b, "- Definition: %s\n", d.Definition)
	}
	fmt.Fprintf(b, "- %s\n", describeRating(d))
	if sel.Coverage.Status() == domain.PartiallyAddressed && !sel.Coverage.Ambiguous {
		fmt.Fprintf(b, "- The user has started writing about %s but has not yet described everything.\n", d.Name)
	}
	if len(sel.Addressed) > 0 {
		fmt.Fprintf(b, "- Already thoroughly explored, do NOT ask about these again: %s.\n", joinNames(sel.Addressed))
	}

	b.WriteString("\nYOUR TASK:\nGenerate a clear and direct writing prompt (limit 200 words). Your response MUST do the following:\n")
	if hasProgress {
		b.WriteString("1. Acknowledge their existing writing progress briefly.\n")
		fmt.Fprintf(b, "2. Move on to the next unaddressed character defect, which is %s.\n", d.Name)
	} else {
		b.WriteString("1. Briefly explain that dismantling means examining your harmful behaviors.\n")
		fmt.Fprintf(b, "2. Focus on %s, the most damaging character defect that undermines %s.\n", d.Name, in.VirtueName)
	}
	fmt.Fprintf(b, "3. Give this writing instruction: \"Write about %s. Describe how often you do this, who gets hurt when you do it, and exactly how they are harmed.\"\n", d.Name)
	b.WriteString("4. End with these direct questions about specific behaviors, not general reflections.\n\n")
	b.WriteString(styleRules)
	b.WriteString("\n\nQUESTIONS:\n")
	for _, q := range Questions(d, sel.Coverage) {
		fmt.Fprintf(b, "- %s\n", q)
	}
}

func writeComplete(b *strings.Builder, in Input, sel domain.Complete) {
	b.WriteString("\nASSESSMENT: The user has thoroughly explored every significant character defect, describing how often it happens, who is harmed and how.\n")
	addressed, total, significant := sel.Tally()
	scope := "significant defects"
	if !significant {
		scope = "defects"
	}
	if len(sel.AddressedNames) > 0 {
		fmt.Fprintf(b, "- Defects addressed: %s.\n", joinNames(sel.AddressedNames))
		fmt.Fprintf(b, "- Count: %d addressed out of %d %s identified.\n", addressed, total, scope)
	}

	b.WriteString("\nYOUR TASK:\nGenerate a short closing message (limit 200 words). Your response MUST do the following:\n")
	if len(sel.AddressedNames) > 0 {
		fmt.Fprintf(b, "1. Acknowledge each addressed defect by name: %s.\n", joinNames(sel.AddressedNames))
		fmt.Fprintf(b, "2. State that they have addressed %d of %d %s.\n", addressed, total, scope)
	} else {
		b.WriteString("1. Acknowledge the honest work they have done examining their character defects.\n")
		b.WriteString("2. State that every defect identified for this virtue has been examined.\n")
	}
	fmt.Fprintf(b, "3. Congratulate them: say plainly that they have completed the dismantling stage for %s and are ready for the next stage.\n", in.VirtueName)
	b.WriteString("4. Do not ask any further questions about defects.\n\n")
	b.WriteString(styleRules)
	b.WriteString("\n")
}

func writeNoData(b *strings.Builder, in Input) {
	analysis := strings.TrimSpace(in.DefectAnalysis)
	if analysis != "" {
		fmt.Fprintf(b, "- Analysis of User's Character Defects: \"%s\"\n", analysis)
	}

	b.WriteString("\nYOUR TASK:\nGenerate a clear and direct writing prompt (limit 200 words). Your response MUST do the following:\n")
	b.WriteString("1. Briefly explain that dismantling means examining your harmful behaviors.\n")
	if analysis != "" {
		fmt.Fprintf(b, "2. Focus on the most damaging character defect from the analysis that undermines %s.\n", in.VirtueName)
		b.WriteString("3. Give clear writing instructions: \"Write about [specific defect behavior]. Describe how often you do this, who gets hurt when you do it, and exactly how they are harmed.\"\n")
	} else {
		fmt.Fprintf(b, "2. Invite them to name one behavior of their own that works against %s.\n", in.VirtueName)
		b.WriteString("3. Ask them to write about a specific recent time they acted on it, who was affected and what it cost.\n")
	}
	b.WriteString("4. End with 2-3 direct questions about specific behaviors, not general reflections.\n\n")
	b.WriteString(styleRules)
	b.WriteString("\n")
}
