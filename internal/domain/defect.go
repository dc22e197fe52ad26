// Package domain contains core domain types for the dismantling stage.
package domain

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// FrequencyLevel is the user-reported frequency of a defect, 1 (Never) to 5 (Always).
// Zero means the defect was not rated.
type FrequencyLevel int

// Frequency levels.
const (
	FrequencyUnrated FrequencyLevel = iota
	FrequencyNever
	FrequencyRarely
	FrequencySometimes
	FrequencyOften
	FrequencyAlways
)

var frequencyLabels = [...]string{"Not rated", "Never", "Rarely", "Sometimes", "Often", "Always"}

// Valid reports whether f is within the rating scale (including unrated).
func (f FrequencyLevel) Valid() bool {
	return f >= FrequencyUnrated && f <= FrequencyAlways
}

func (f FrequencyLevel) String() string {
	if !f.Valid() {
		return fmt.Sprintf("FrequencyLevel(%d)", int(f))
	}
	return frequencyLabels[f]
}

// HarmLevel is the user-reported harm caused by a defect.
type HarmLevel int

// Harm levels, ordered by severity.
const (
	HarmNone HarmLevel = iota
	HarmMild
	HarmModerate
	HarmSevere
)

var harmLabels = [...]string{"None", "Mild", "Moderate", "Severe"}

// ParseHarmLevel parses a harm label case-insensitively. An empty label is None.
func ParseHarmLevel(s string) (HarmLevel, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return HarmNone, nil
	}
	for i, label := range harmLabels {
		if strings.EqualFold(s, label) {
			return HarmLevel(i), nil
		}
	}
	return HarmNone, fmt.Errorf("unknown harm level %q", s)
}

func (h HarmLevel) String() string {
	if h < HarmNone || h > HarmSevere {
		return fmt.Sprintf("HarmLevel(%d)", int(h))
	}
	return harmLabels[h]
}

// MarshalText encodes the harm level as its label.
func (h HarmLevel) MarshalText() ([]byte, error) {
	if h < HarmNone || h > HarmSevere {
		return nil, fmt.Errorf("invalid harm level %d", int(h))
	}
	return []byte(harmLabels[h]), nil
}

// UnmarshalText decodes a harm label.
func (h *HarmLevel) UnmarshalText(text []byte) error {
	level, err := ParseHarmLevel(string(text))
	if err != nil {
		return err
	}
	*h = level
	return nil
}

// DefectRating is one character defect as scored for a user/virtue pair.
type DefectRating struct {
	Name           string         `json:"name"`
	Definition     string         `json:"definition,omitempty"`
	FrequencyLevel FrequencyLevel `json:"frequencyLevel"`
	HarmLevel      HarmLevel      `json:"harmLevel"`
}

// Rated returns true if the defect carries frequency data.
func (d DefectRating) Rated() bool {
	return d.FrequencyLevel > FrequencyUnrated
}

// SeverityTier is a coarse priority bucket. Higher values sort first.
type SeverityTier int

// Severity tiers in ascending priority.
const (
	TierLow SeverityTier = iota
	TierModerateRegular
	TierModerateFrequency
	TierModerateHarm
	TierHigh
)

func (t SeverityTier) String() string {
	switch t {
	case TierHigh:
		return "High"
	case TierModerateHarm:
		return "ModerateHarm"
	case TierModerateFrequency:
		return "ModerateFrequency"
	case TierModerateRegular:
		return "ModerateRegular"
	case TierLow:
		return "Low"
	default:
		return fmt.Sprintf("SeverityTier(%d)", int(t))
	}
}

// MarshalText encodes the tier name.
func (t SeverityTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// DefectPriority is a rated defect with its computed tier and input position.
type DefectPriority struct {
	DefectRating
	Tier     SeverityTier `json:"severityTier"`
	Position int          `json:"-"`
}

// Significant returns true for defects that block stage completion.
func (d DefectPriority) Significant() bool {
	return d.Tier != TierLow
}

// DefectNames returns the names of defects in order.
func DefectNames(defects []DefectPriority) []string {
	names := make([]string, 0, len(defects))
	for _, d := range defects {
		names = append(names, d.Name)
	}
	return names
}

// Mentions reports whether name occurs in text as a whole word, ignoring case.
func Mentions(text, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || text == "" {
		return false
	}
	return mentionPattern(name).MatchString(text)
}

// maxMentionPatterns bounds the compiled pattern cache; names come from user
// input, so the cache is cleared rather than allowed to grow.
const maxMentionPatterns = 1024

var mentionPatterns = struct {
	sync.Mutex
	m map[string]*regexp.Regexp
}{m: make(map[string]*regexp.Regexp)}

func mentionPattern(name string) *regexp.Regexp {
	mentionPatterns.Lock()
	defer mentionPatterns.Unlock()

	if re, ok := mentionPatterns.m[name]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(name) + `($|[^\p{L}\p{N}_])`)
	if len(mentionPatterns.m) >= maxMentionPatterns {
		clear(mentionPatterns.m)
	}
	mentionPatterns.m[name] = re
	return re
}
