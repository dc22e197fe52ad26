package prompt

import (
	"fmt"
	"strings"

	"github.com/ashureev/virtue-stages/internal/domain"
)

const (
	minQuestions = 2
	maxQuestions = 3
)

// Questions returns two or three direct behavioural questions about d,
// asking first about the coverage elements still missing.
func Questions(d domain.DefectPriority, cov domain.CoverageState) []string {
	behavior := strings.ToLower(strings.TrimSpace(d.Name))

	var qs []string
	for _, el := range cov.Missing() {
		switch el {
		case domain.ElementFrequency:
			qs = append(qs, fmt.Sprintf("How often do you engage in %s, and in what situations does it happen?", behavior))
		case domain.ElementHarmedParty:
			qs = append(qs, fmt.Sprintf("Who gets hurt when you engage in %s?", behavior))
		case domain.ElementHarm:
			qs = append(qs, fmt.Sprintf("What specific harm do they experience because of your %s?", behavior))
		}
	}

	fillers := []string{
		fmt.Sprintf("What will you do instead the next time you feel pulled toward %s?", behavior),
		fmt.Sprintf("When was the most recent time you engaged in %s, and what exactly did you do?", behavior),
	}
	for _, f := range fillers {
		if len(qs) >= minQuestions {
			break
		}
		qs = append(qs, f)
	}

	if len(qs) > maxQuestions {
		qs = qs[:maxQuestions]
	}
	return qs
}
