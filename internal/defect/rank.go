// Package defect ranks character defects, judges how far the user's writing
// has covered each one, and selects what the next prompt should focus on.
package defect

import (
	"cmp"
	"slices"

	"github.com/ashureev/virtue-stages/internal/domain"
)

// Tier computes the severity tier of a rating.
func Tier(r domain.DefectRating) domain.SeverityTier {
	frequent := r.FrequencyLevel >= domain.FrequencyOften
	switch {
	case frequent && (r.HarmLevel == domain.HarmSevere || r.HarmLevel == domain.HarmModerate):
		return domain.TierHigh
	case frequent:
		return domain.TierModerateFrequency
	case r.HarmLevel == domain.HarmSevere:
		return domain.TierModerateHarm
	case r.FrequencyLevel >= domain.FrequencySometimes && r.HarmLevel == domain.HarmModerate:
		return domain.TierModerateRegular
	default:
		return domain.TierLow
	}
}

// Rank drops unrated defects and orders the rest by tier, then frequency,
// then harm, then input position. The order is total, so the same input
// always yields the same ranking.
func Rank(ratings []domain.DefectRating) []domain.DefectPriority {
	ranked := make([]domain.DefectPriority, 0, len(ratings))
	for i, r := range ratings {
		if !r.Rated() {
			continue
		}
		ranked = append(ranked, domain.DefectPriority{DefectRating: r, Tier: Tier(r), Position: i})
	}

	slices.SortFunc(ranked, func(a, b domain.DefectPriority) int {
		if c := cmp.Compare(b.Tier, a.Tier); c != 0 {
			return c
		}
		if c := cmp.Compare(b.FrequencyLevel, a.FrequencyLevel); c != 0 {
			return c
		}
		if c := cmp.Compare(b.HarmLevel, a.HarmLevel); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})
	return ranked
}

// SignificantCount returns how many ranked defects block completion.
func SignificantCount(ranked []domain.DefectPriority) int {
	n := 0
	for _, d := range ranked {
		if d.Significant() {
			n++
		}
	}
	return n
}
