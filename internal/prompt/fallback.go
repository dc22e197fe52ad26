package prompt

import (
	"fmt"

	"github.com/ashureev/virtue-stages/internal/domain"
)

// Fallback returns the static prompt used when every candidate failed.
// It depends only on the virtue and the selection.
func Fallback(virtueName string, sel domain.Selection) string {
	switch s := sel.(type) {
	case domain.Focus:
		return fmt.Sprintf("Take a quiet moment to reflect on the virtue of %s. Write about %s: describe how often you do it, who gets hurt when you do, and exactly how they are harmed.",
			virtueName, s.Defect.Name)
	case domain.Complete:
		return fmt.Sprintf("You have completed the dismantling stage for %s. Take a moment to honor the honesty this took, and prepare yourself: you are ready for the next stage.",
			virtueName)
	default:
		return fmt.Sprintf("Take a quiet moment to reflect on the virtue of %s. Consider one specific time this week where you found it challenging to practice. What was the situation? What feelings came up for you? Gently explore this memory without judgment.",
			virtueName)
	}
}
