// Package progress derives completion, gating and percentages for an
// onboarding workflow from a field snapshot. Everything here is pure and
// recomputed from scratch on each call.
package progress

import (
	"math"
	"strings"

	"github.com/me/partnerportal/pkg/model"
)

// IsFieldCompleted applies the completion rule for a single field value.
// BOOLEAN needs exactly true or "true"; TEXT needs a non-blank string.
func IsFieldCompleted(t model.SubstepType, value any) bool {
	switch t {
	case model.SubstepBoolean:
		switch v := value.(type) {
		case bool:
			return v
		case string:
			return v == "true"
		}
		return false
	case model.SubstepText:
		s, ok := value.(string)
		return ok && strings.TrimSpace(s) != ""
	default:
		return false
	}
}

// IsSubstepCompleted reports whether sub is done according to snapshot.
func IsSubstepCompleted(sub model.SubstepDefinition, snapshot model.FieldSnapshot) bool {
	switch sub.Type {
	case model.SubstepBoolean, model.SubstepText:
		return IsFieldCompleted(sub.Type, snapshot[sub.FieldKey])
	case model.SubstepGroup:
		for _, f := range sub.Fields {
			if !IsFieldCompleted(f.Type, snapshot[f.FieldKey]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// StepPercent returns the rounded share of completed substeps in step.
// A step without substeps counts as complete.
func StepPercent(step model.MainStepDefinition, snapshot model.FieldSnapshot) int {
	return OverallPercent(step.Substeps, snapshot)
}

// IsStepLocked reports whether steps[index] is locked. Only steps marked
// GatedByPrevious can lock, and they stay locked while any earlier step is
// below 100%.
func IsStepLocked(steps []model.MainStepDefinition, index int, snapshot model.FieldSnapshot) bool {
	if index < 0 || index >= len(steps) || !steps[index].GatedByPrevious {
		return false
	}
	for _, prev := range steps[:index] {
		if StepPercent(prev, snapshot) < 100 {
			return true
		}
	}
	return false
}

// IsSubstepDisabled reports whether the substep at index is blocked because
// its predecessor in the same step is not completed. Substep 0 is never disabled.
func IsSubstepDisabled(step model.MainStepDefinition, index int, snapshot model.FieldSnapshot) bool {
	if index <= 0 || index >= len(step.Substeps) {
		return false
	}
	return !IsSubstepCompleted(step.Substeps[index-1], snapshot)
}

// OverallPercent returns round(100*done/total) over substeps, 100 when empty.
func OverallPercent(substeps []model.SubstepDefinition, snapshot model.FieldSnapshot) int {
	done := countCompleted(substeps, snapshot)
	return percent(done, len(substeps))
}

func countCompleted(substeps []model.SubstepDefinition, snapshot model.FieldSnapshot) int {
	n := 0
	for _, sub := range substeps {
		if IsSubstepCompleted(sub, snapshot) {
			n++
		}
	}
	return n
}

func percent(done, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}
