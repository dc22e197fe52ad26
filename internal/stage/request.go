// Package stage runs the dismantling prompt pipeline: lookup, rank, select,
// compose, generate and inspect.
package stage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ashureev/virtue-stages/internal/domain"
)

// ErrInvalidInput reports a request the caller must fix.
var ErrInvalidInput = errors.New("invalid input")

// Request is the input to a single prompt generation.
type Request struct {
	VirtueName       string                `json:"virtueName"`
	VirtueDefinition string                `json:"virtueDefinition"`
	ProgressText     string                `json:"progressText,omitempty"`
	PriorPrompts     []string              `json:"priorPrompts,omitempty"`
	DefectRatings    []domain.DefectRating `json:"defectRatings,omitempty"`
	DefectAnalysis   string                `json:"defectAnalysis,omitempty"`
	UserID           string                `json:"userId,omitempty"`
	VirtueID         string                `json:"virtueId,omitempty"`
	IsStageComplete  bool                  `json:"isStageComplete,omitempty"`
}

// UnmarshalJSON accepts the legacy field names virtueDef,
// characterDefectAnalysis, stage1MemoContent and previousPrompts. Current
// names win when both are present.
func (r *Request) UnmarshalJSON(data []byte) error {
	type plain Request
	var wire struct {
		plain
		VirtueDef               string          `json:"virtueDef"`
		CharacterDefectAnalysis string          `json:"characterDefectAnalysis"`
		Stage1MemoContent       string          `json:"stage1MemoContent"`
		PreviousPrompts         json.RawMessage `json:"previousPrompts"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*r = Request(wire.plain)
	if r.VirtueDefinition == "" {
		r.VirtueDefinition = wire.VirtueDef
	}
	if r.DefectAnalysis == "" {
		r.DefectAnalysis = wire.CharacterDefectAnalysis
	}
	if r.ProgressText == "" {
		r.ProgressText = wire.Stage1MemoContent
	}
	if len(r.PriorPrompts) == 0 && len(wire.PreviousPrompts) > 0 {
		prompts, err := decodePrompts(wire.PreviousPrompts)
		if err != nil {
			return fmt.Errorf("previousPrompts: %w", err)
		}
		r.PriorPrompts = prompts
	}
	return nil
}

// decodePrompts reads either a list of strings or a single string.
func decodePrompts(raw json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, errors.New("expected a string or a list of strings")
	}
	if strings.TrimSpace(single) == "" {
		return nil, nil
	}
	return []string{single}, nil
}

// Validate checks required fields and rating ranges.
func (r Request) Validate() error {
	if strings.TrimSpace(r.VirtueName) == "" {
		return fmt.Errorf("%w: virtueName is required", ErrInvalidInput)
	}
	if strings.TrimSpace(r.VirtueDefinition) == "" {
		return fmt.Errorf("%w: virtueDefinition is required", ErrInvalidInput)
	}

	seen := make(map[string]struct{}, len(r.DefectRatings))
	for i, d := range r.DefectRatings {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return fmt.Errorf("%w: defectRatings[%d].name is required", ErrInvalidInput, i)
		}
		if !d.FrequencyLevel.Valid() {
			return fmt.Errorf("%w: defectRatings[%d].frequencyLevel must be between 0 and 5", ErrInvalidInput, i)
		}
		if d.HarmLevel < domain.HarmNone || d.HarmLevel > domain.HarmSevere {
			return fmt.Errorf("%w: defectRatings[%d].harmLevel is not a known level", ErrInvalidInput, i)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate defect %q", ErrInvalidInput, name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// wantsLookup reports whether ratings should come from the assessment store.
func (r Request) wantsLookup() bool {
	return len(r.DefectRatings) == 0 && r.UserID != "" && r.VirtueID != ""
}
