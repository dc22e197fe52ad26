package domain

// SelectionKind names a Selection variant.
type SelectionKind string

// Selection kinds.
const (
	SelectionFocus    SelectionKind = "focus"
	SelectionComplete SelectionKind = "complete"
	SelectionNoData   SelectionKind = "no_data"
)

// Selection is the outcome of choosing what the next prompt is about.
// It is one of Focus, Complete or NoData.
type Selection interface {
	Kind() SelectionKind
	selection()
}

// Focus directs the next prompt at a single defect.
type Focus struct {
	Defect   DefectPriority
	Coverage CoverageState
	// Addressed lists higher-ranked defects already fully addressed.
	Addressed []string
}

// Complete means every significant defect has been fully addressed.
type Complete struct {
	// AddressedNames lists every defect to acknowledge, in rank order.
	AddressedNames []string
	// SignificantAddressed lists the High or Medium tier defects among them.
	SignificantAddressed []string
	SignificantTotal     int
	RankedTotal          int
}

// Tally returns the addressed count and the total it is measured against.
// With no significant defects the total is every ranked defect.
func (c Complete) Tally() (addressed, total int, significant bool) {
	if c.SignificantTotal > 0 {
		return len(c.SignificantAddressed), c.SignificantTotal, true
	}
	return len(c.AddressedNames), c.RankedTotal, false
}

// NoData means there were no rated defects to work from.
type NoData struct{}

func (Focus) Kind() SelectionKind    { return SelectionFocus }
func (Complete) Kind() SelectionKind { return SelectionComplete }
func (NoData) Kind() SelectionKind   { return SelectionNoData }

func (Focus) selection()    {}
func (Complete) selection() {}
func (NoData) selection()   {}
