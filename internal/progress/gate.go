package progress

import (
	"fmt"
	"strings"

	"github.com/me/partnerportal/internal/catalog"
	"github.com/me/partnerportal/pkg/model"
)

// Gate refusal reasons.
const (
	ReasonStepLocked      = "step is locked until the previous steps are complete"
	ReasonSubstepDisabled = "previous substep is not completed"
)

// GateError is returned when a write would complete a field that is not yet
// actionable.
type GateError struct {
	FieldKey   string
	StepKey    string
	SubstepKey string
	Reason     string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("field %q (%s/%s): %s", e.FieldKey, e.StepKey, e.SubstepKey, e.Reason)
}

// UnknownFieldError is returned for field keys outside the record's workflow.
type UnknownFieldError struct {
	FieldKey string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q for this workflow", e.FieldKey)
}

// InvalidValueError is returned when a value cannot be stored in a field.
type InvalidValueError struct {
	FieldKey string
	Type     model.SubstepType
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value for %s field %q", strings.ToLower(string(e.Type)), e.FieldKey)
}

// FieldType returns the type of fieldKey within p's workflow.
func (p Progress) FieldType(fieldKey string) (model.SubstepType, bool) {
	loc, ok := catalog.Lookup(p.defs, fieldKey)
	if !ok {
		return "", false
	}
	return loc.Field.Type, true
}

// CoerceValue converts an incoming value to what the backend stores for t.
// BOOLEAN accepts a bool or the strings "true"/"false"; TEXT accepts any
// string.
func CoerceValue(t model.SubstepType, raw any) (any, bool) {
	switch t {
	case model.SubstepBoolean:
		switch v := raw.(type) {
		case bool:
			return v, true
		case string:
			switch strings.TrimSpace(v) {
			case "true":
				return true, true
			case "false", "":
				return false, true
			}
		}
		return nil, false
	case model.SubstepText:
		s, ok := raw.(string)
		return s, ok
	default:
		return nil, false
	}
}

// CheckMutation decides whether writing value to fieldKey is allowed given
// the current progress. Writes that would complete the field are refused while
// its step is locked or its substep is disabled; writes that clear a field are
// always allowed.
func CheckMutation(p Progress, fieldKey string, value any) error {
	loc, ok := catalog.Lookup(p.defs, fieldKey)
	if !ok {
		return &UnknownFieldError{FieldKey: fieldKey}
	}
	if !IsFieldCompleted(loc.Field.Type, value) {
		return nil
	}

	step := p.defs[loc.StepIndex]
	sub := step.Substeps[loc.SubstepIndex]
	if IsStepLocked(p.defs, loc.StepIndex, p.snapshot) {
		return &GateError{FieldKey: fieldKey, StepKey: step.Key, SubstepKey: sub.Key, Reason: ReasonStepLocked}
	}
	if IsSubstepDisabled(step, loc.SubstepIndex, p.snapshot) {
		return &GateError{FieldKey: fieldKey, StepKey: step.Key, SubstepKey: sub.Key, Reason: ReasonSubstepDisabled}
	}
	return nil
}
