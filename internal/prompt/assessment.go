package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashureev/virtue-stages/internal/domain"
)

// Assessment is the earlier composer. It hands the model the whole ranked
// defect list and the assessment rules and lets it judge progress itself.
// The structured selection is passed along as the expected focus.
type Assessment struct{}

// Version implements Composer.
func (Assessment) Version() string { return VersionAssessment }

// Compose implements Composer.
func (a Assessment) Compose(in Input) string {
	var b strings.Builder
	b.WriteString(coachPreamble)
	writeContext(&b, in)

	switch sel := in.Selection.(type) {
	case domain.Focus:
		a.focus(&b, in, sel)
	case domain.Complete:
		writeComplete(&b, in, sel)
	default:
		writeNoData(&b, in)
	}
	return b.String()
}

func (Assessment) focus(b *strings.Builder, in Input, sel domain.Focus) {
	if len(in.PriorPrompts) > 0 {
		raw, err := json.Marshal(in.PriorPrompts)
		if err == nil {
			fmt.Fprintf(b, "- Previous Prompts Given: \"\"\"%s\"\"\"\n", raw)
		}
	} else {
		b.WriteString("- Previous Prompts Given: No previous prompts for this virtue.\n")
	}

	b.WriteString("\nCHARACTER DEFECTS, HIGHEST PRIORITY FIRST:\n")
	for i, d := range in.Ranked {
		fmt.Fprintf(b, "%d. %s (%s priority). %s", i+1, d.Name, d.Tier, describeRating(d))
		if d.Definition != "" {
			fmt.Fprintf(b, " Definition: %s", d.Definition)
		}
		b.WriteString("\n")
	}

	b.WriteString(`
CRITICAL ASSESSMENT: First, analyze the user's writing progress against ALL character defects listed. For each defect, determine if the user has adequately addressed it by examining whether they have described:
1. The frequency/patterns of the defective behavior
2. Who has been harmed by the defect
3. The specific nature of that harm

DEFECT PROGRESSION LOGIC:
- If the highest priority defect has been thoroughly explored, move to the next highest priority unaddressed defect.
- Only when ALL significant defects have been adequately explored should dismantling be considered complete.
`)
	fmt.Fprintf(b, "- Our own assessment expects the next unaddressed defect to be %s.\n", sel.Defect.Name)
	if len(sel.Addressed) > 0 {
		fmt.Fprintf(b, "- These are already thoroughly explored, do NOT ask about them again: %s.\n", joinNames(sel.Addressed))
	}

	b.WriteString("\nYOUR TASK:\nBased on ALL the information above, generate a clear and direct writing prompt (limit 200 words). Your response MUST do the following:\n")
	if strings.TrimSpace(in.ProgressText) != "" {
		b.WriteString("1. Acknowledge their existing writing progress briefly.\n")
		b.WriteString("2. Focus on the next highest priority unaddressed character defect.\n")
	} else {
		b.WriteString("1. Briefly explain that dismantling means examining your harmful behaviors.\n")
		fmt.Fprintf(b, "2. Focus on the highest priority character defect that undermines %s.\n", in.VirtueName)
	}
	b.WriteString("3. Give SPECIFIC writing instructions: \"Write about [specific defect behavior]. Describe how often you do this, who gets hurt when you do it, and exactly how they are harmed.\"\n")
	b.WriteString("4. End with 2-3 direct questions about specific behaviors, not general reflections.\n\n")
	b.WriteString(styleRules)
	b.WriteString("\n\nQUESTIONS:\n")
	for _, q := range Questions(sel.Defect, sel.Coverage) {
		fmt.Fprintf(b, "- %s\n", q)
	}
}
