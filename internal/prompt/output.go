package prompt

import (
	"strings"

	"github.com/ashureev/virtue-stages/internal/domain"
)

// completionPhrases are phrasings that signal the model announced the end of
// the dismantling stage.
var completionPhrases = []string{
	"completed the dismantling",
	"completed dismantling",
	"completed your dismantling",
	"completion of dismantling",
	"ready for the next stage",
	"ready to move on to the next stage",
	"ready to move to the next stage",
	"addressed all",
	"courageously examined",
}

// Inspection is a best-effort reading of generated text. It is heuristic and
// never overrides the structured selection.
type Inspection struct {
	FocusedDefect            *string
	IsCompletionAnnouncement bool
}

// Inspect finds the first ranked defect named in text and whether the text
// announces completion.
func Inspect(text string, ranked []domain.DefectPriority) Inspection {
	var in Inspection
	for _, d := range ranked {
		if domain.Mentions(text, d.Name) {
			name := d.Name
			in.FocusedDefect = &name
			break
		}
	}
	in.IsCompletionAnnouncement = AnnouncesCompletion(text)
	return in
}

// AnnouncesCompletion reports whether text contains a known completion phrasing.
func AnnouncesCompletion(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range completionPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
