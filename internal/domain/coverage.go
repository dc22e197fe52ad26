package domain

// CoverageStatus summarises how much of a defect the user has written about.
type CoverageStatus int

// Coverage statuses.
const (
	Unaddressed CoverageStatus = iota
	PartiallyAddressed
	FullyAddressed
)

func (s CoverageStatus) String() string {
	switch s {
	case FullyAddressed:
		return "fully_addressed"
	case PartiallyAddressed:
		return "partially_addressed"
	default:
		return "unaddressed"
	}
}

// CoverageElement is one aspect of a defect that user writing must describe.
type CoverageElement string

// Coverage elements.
const (
	ElementFrequency   CoverageElement = "frequency"
	ElementHarmedParty CoverageElement = "harmed_party"
	ElementHarm        CoverageElement = "harm"
)

// CoverageState records which coverage elements the progress text contains.
//
// Ambiguous is set when the judgement could not be made. An ambiguous state is
// always PartiallyAddressed so that it neither blocks nor grants completion by
// accident. InferredFromHistory marks a state upgraded because the defect was
// the subject of a recent prompt.
type CoverageState struct {
	FrequencyDescribed    bool `json:"frequencyDescribed"`
	HarmedPartyIdentified bool `json:"harmedPartyIdentified"`
	HarmDescribed         bool `json:"harmDescribed"`
	Ambiguous             bool `json:"ambiguous,omitempty"`
	InferredFromHistory   bool `json:"inferredFromHistory,omitempty"`
}

// Covered returns the number of elements present.
func (c CoverageState) Covered() int {
	n := 0
	for _, ok := range []bool{c.FrequencyDescribed, c.HarmedPartyIdentified, c.HarmDescribed} {
		if ok {
			n++
		}
	}
	return n
}

// Status derives the coverage status.
func (c CoverageState) Status() CoverageStatus {
	if c.Ambiguous {
		return PartiallyAddressed
	}
	switch c.Covered() {
	case 3:
		return FullyAddressed
	case 0:
		return Unaddressed
	default:
		return PartiallyAddressed
	}
}

// Missing lists the elements not yet described, in canonical order.
func (c CoverageState) Missing() []CoverageElement {
	var missing []CoverageElement
	if !c.FrequencyDescribed {
		missing = append(missing, ElementFrequency)
	}
	if !c.HarmedPartyIdentified {
		missing = append(missing, ElementHarmedParty)
	}
	if !c.HarmDescribed {
		missing = append(missing, ElementHarm)
	}
	return missing
}

// FullCoverage returns a state with every element present.
func FullCoverage() CoverageState {
	return CoverageState{FrequencyDescribed: true, HarmedPartyIdentified: true, HarmDescribed: true}
}

// Union returns a state with every element present in either c or o.
// Ambiguity is kept only when both are ambiguous.
func (c CoverageState) Union(o CoverageState) CoverageState {
	return CoverageState{
		FrequencyDescribed:    c.FrequencyDescribed || o.FrequencyDescribed,
		HarmedPartyIdentified: c.HarmedPartyIdentified || o.HarmedPartyIdentified,
		HarmDescribed:         c.HarmDescribed || o.HarmDescribed,
		Ambiguous:             c.Ambiguous && o.Ambiguous,
		InferredFromHistory:   c.InferredFromHistory || o.InferredFromHistory,
	}
}
