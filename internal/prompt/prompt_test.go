package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/virtue-stages/internal/domain"
)

var (
	lying = domain.DefectPriority{
		DefectRating: domain.DefectRating{Name: "Lying", Definition: "Knowingly saying what is false.", FrequencyLevel: domain.FrequencyAlways, HarmLevel: domain.HarmSevere},
		Tier:         domain.TierHigh,
	}
	exaggeration = domain.DefectPriority{
		DefectRating: domain.DefectRating{Name: "Exaggeration", FrequencyLevel: domain.FrequencyOften, HarmLevel: domain.HarmMild},
		Tier:         domain.TierModerateFrequency,
		Position:     1,
	}
)

func focusInput(progress string, cov domain.CoverageState) Input {
	return Input{
		VirtueName:       "Honesty",
		VirtueDefinition: "...",
		Selection:        domain.Focus{Defect: lying, Coverage: cov},
		Ranked:           []domain.DefectPriority{lying, exaggeration},
		ProgressText:     progress,
	}
}

func TestNewComposer(t *testing.T) {
	c, err := NewComposer("")
	require.NoError(t, err)
	assert.Equal(t, VersionProgression, c.Version())

	c, err = NewComposer("V1")
	require.NoError(t, err)
	assert.Equal(t, VersionAssessment, c.Version())

	_, err = NewComposer("v9")
	assert.Error(t, err)
}

func TestProgressionFocusWithoutProgress(t *testing.T) {
	out := Progression{}.Compose(focusInput("", domain.CoverageState{}))

	assert.Contains(t, out, "FOCUS DEFECT: Lying")
	assert.Contains(t, out, "Write about Lying.")
	assert.Contains(t, out, "always (5 of 5)")
	assert.Contains(t, out, "severe")
	assert.Contains(t, out, "has not started writing")
	assert.NotContains(t, out, "Acknowledge their existing writing")

	n := strings.Count(out, "?")
	assert.GreaterOrEqual(t, n, 2)
	assert.LessOrEqual(t, n, 3)
}

func TestProgressionFocusAcknowledgesProgress(t *testing.T) {
	in := focusInput("I have been thinking about this.", domain.CoverageState{FrequencyDescribed: true})
	in.Selection = domain.Focus{Defect: exaggeration, Coverage: domain.CoverageState{}, Addressed: []string{"Lying"}}
	in.PriorPrompts = []string{"Write about Lying."}

	out := Progression{}.Compose(in)

	ack := strings.Index(out, "Acknowledge their existing writing progress")
	pivot := strings.Index(out, "next unaddressed character defect, which is Exaggeration")
	require.GreaterOrEqual(t, ack, 0)
	require.Greater(t, pivot, ack)
	assert.Contains(t, out, "do NOT ask about these again: Lying")
	assert.Contains(t, out, "They focused on Lying.")

	questions := out[strings.Index(out, "QUESTIONS:"):]
	assert.NotContains(t, strings.ToLower(questions), "lying")
}

func TestProgressionFocusEndsWithQuestions(t *testing.T) {
	out := Progression{}.Compose(focusInput("", domain.CoverageState{}))

	lines := strings.Split(strings.TrimSpace(out), "\n")
	last := lines[len(lines)-1]
	assert.True(t, strings.HasSuffix(last, "?"), "last line should be a question: %q", last)
}

func TestQuestionsAlwaysTwoOrThree(t *testing.T) {
	states := []domain.CoverageState{
		{},
		{FrequencyDescribed: true},
		{FrequencyDescribed: true, HarmDescribed: true},
		{HarmedPartyIdentified: true, HarmDescribed: true},
		{Ambiguous: true},
	}
	for _, st := range states {
		qs := Questions(lying, st)
		assert.GreaterOrEqual(t, len(qs), 2, "%+v", st)
		assert.LessOrEqual(t, len(qs), 3, "%+v", st)
		for _, q := range qs {
			assert.True(t, strings.HasSuffix(q, "?"))
			assert.Contains(t, q, "lying")
		}
	}
}

func TestQuestionsTargetMissingElements(t *testing.T) {
	qs := Questions(lying, domain.CoverageState{FrequencyDescribed: true, HarmedPartyIdentified: true})

	require.Len(t, qs, 2)
	assert.Contains(t, qs[0], "What specific harm")
	assert.Contains(t, qs[1], "What will you do instead")
}

func TestComposeComplete(t *testing.T) {
	for _, c := range []Composer{Progression{}, Assessment{}} {
		out := c.Compose(Input{
			VirtueName:       "Honesty",
			VirtueDefinition: "...",
			Selection: domain.Complete{
				AddressedNames:       []string{"Lying", "Exaggeration"},
				SignificantAddressed: []string{"Lying", "Exaggeration"},
				SignificantTotal:     2,
				RankedTotal:          2,
			},
			ProgressText:     "long entry",
		})

		assert.Contains(t, out, "Lying and Exaggeration", c.Version())
		assert.Contains(t, out, "addressed 2 of 2 significant defects", c.Version())
		assert.Contains(t, out, "completed the dismantling stage for Honesty", c.Version())
		assert.Contains(t, out, "Do not ask any further questions", c.Version())
		assert.NotContains(t, out, "?", c.Version())
	}
}

func TestComposeCompleteCountsOnlySignificant(t *testing.T) {
	out := Progression{}.Compose(Input{
		VirtueName:       "Honesty",
		VirtueDefinition: "...",
		Selection: domain.Complete{
			AddressedNames:       []string{"Lying", "Gossip"},
			SignificantAddressed: []string{"Lying"},
			SignificantTotal:     1,
			RankedTotal:          2,
		},
		ProgressText: "long entry",
	})

	assert.Contains(t, out, "Lying and Gossip")
	assert.Contains(t, out, "Count: 1 addressed out of 1 significant defects identified.")
	assert.Contains(t, out, "addressed 1 of 1 significant defects.")
	assert.NotContains(t, out, "2 of 1")
}

func TestComposeCompleteOnlyLowTier(t *testing.T) {
	out := Progression{}.Compose(Input{
		VirtueName:       "Honesty",
		VirtueDefinition: "...",
		Selection: domain.Complete{
			AddressedNames: []string{"Gossip", "Sarcasm"},
			RankedTotal:    2,
		},
		ProgressText: "long entry",
	})

	assert.Contains(t, out, "Count: 2 addressed out of 2 defects identified.")
	assert.Contains(t, out, "addressed 2 of 2 defects.")
	assert.NotContains(t, out, "of 0")
	assert.NotContains(t, out, "significant defects.")
}

func TestComposeNoData(t *testing.T) {
	withAnalysis := Progression{}.Compose(Input{
		VirtueName:       "Honesty",
		VirtueDefinition: "...",
		Selection:        domain.NoData{},
		DefectAnalysis:   "User tends to shade the truth at work.",
	})
	assert.Contains(t, withAnalysis, "User tends to shade the truth at work.")
	assert.Contains(t, withAnalysis, "most damaging character defect from the analysis")

	virtueOnly := Progression{}.Compose(Input{VirtueName: "Honesty", VirtueDefinition: "...", Selection: domain.NoData{}})
	assert.NotContains(t, virtueOnly, "Analysis of User's Character Defects")
	assert.Contains(t, virtueOnly, "works against Honesty")
}

func TestAssessmentFocusListsRankedDefects(t *testing.T) {
	in := focusInput("entry", domain.CoverageState{})
	in.PriorPrompts = []string{"Write about Lying."}

	out := Assessment{}.Compose(in)

	assert.Contains(t, out, "1. Lying (High priority)")
	assert.Contains(t, out, "2. Exaggeration (ModerateFrequency priority)")
	assert.Contains(t, out, `["Write about Lying."]`)
	assert.Contains(t, out, "expects the next unaddressed defect to be Lying")
	assert.Contains(t, out, "CRITICAL ASSESSMENT")
}

func TestInspectCompletion(t *testing.T) {
	ranked := []domain.DefectPriority{lying}

	done := Inspect("You have completed the dismantling phase for Honesty.", ranked)
	assert.True(t, done.IsCompletionAnnouncement)

	more := Inspect("Let's explore your pattern of lying further.", ranked)
	assert.False(t, more.IsCompletionAnnouncement)
	require.NotNil(t, more.FocusedDefect)
	assert.Equal(t, "Lying", *more.FocusedDefect)
}

func TestInspectFocusedDefectFollowsRankOrder(t *testing.T) {
	ranked := []domain.DefectPriority{lying, exaggeration}

	got := Inspect("Exaggeration often hides lying.", ranked)
	require.NotNil(t, got.FocusedDefect)
	assert.Equal(t, "Lying", *got.FocusedDefect)

	none := Inspect("Write about your day.", ranked)
	assert.Nil(t, none.FocusedDefect)
}

func TestFallback(t *testing.T) {
	focus := Fallback("Honesty", domain.Focus{Defect: lying})
	assert.Contains(t, focus, "Honesty")
	assert.Contains(t, focus, "Lying")

	complete := Fallback("Honesty", domain.Complete{})
	assert.True(t, AnnouncesCompletion(complete))

	generic := Fallback("Honesty", domain.NoData{})
	assert.Contains(t, generic, "reflect on the virtue of Honesty")
	assert.Equal(t, generic, Fallback("Honesty", domain.NoData{}))
}
