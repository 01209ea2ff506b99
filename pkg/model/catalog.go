package model

// SubstepType is the closed set of substep kinds.
type SubstepType string

const (
	SubstepBoolean SubstepType = "BOOLEAN"
	SubstepText    SubstepType = "TEXT"
	SubstepGroup   SubstepType = "GROUP"
)

// CompletedBy tags who is expected to complete a substep. Display only.
type CompletedBy string

const (
	CompletedByUser           CompletedBy = "USER"
	CompletedByExternalSystem CompletedBy = "EXTERNAL_SYSTEM"
)

// FieldDefinition is a single checklist field inside a GROUP substep.
// Type is either SubstepBoolean or SubstepText.
type FieldDefinition struct {
	FieldKey string      `json:"field_key" yaml:"field_key"`
	Type     SubstepType `json:"type" yaml:"type"`
	LabelKey string      `json:"label_key,omitempty" yaml:"label_key,omitempty"`
}

// SubstepDefinition is the smallest unit of onboarding work.
// BOOLEAN and TEXT substeps use FieldKey; GROUP substeps use Fields.
type SubstepDefinition struct {
	Key             string            `json:"key" yaml:"key"`
	Type            SubstepType       `json:"type" yaml:"type"`
	FieldKey        string            `json:"field_key,omitempty" yaml:"field_key,omitempty"`
	Fields          []FieldDefinition `json:"fields,omitempty" yaml:"fields,omitempty"`
	LabelKey        string            `json:"label_key" yaml:"label_key"`
	InstructionsKey string            `json:"instructions_key" yaml:"instructions_key"`
	CompletedBy     CompletedBy       `json:"completed_by,omitempty" yaml:"completed_by,omitempty"`
}

// FieldKeys returns every backend field key the substep reads.
func (s SubstepDefinition) FieldKeys() []string {
	if s.Type == SubstepGroup {
		keys := make([]string, 0, len(s.Fields))
		for _, f := range s.Fields {
			keys = append(keys, f.FieldKey)
		}
		return keys
	}
	return []string{s.FieldKey}
}

// MainStepDefinition is an ordered group of substeps.
// Manufacturer is empty for steps that apply to every workflow variant.
type MainStepDefinition struct {
	Key             string              `json:"key" yaml:"key"`
	LabelKey        string              `json:"label_key" yaml:"label_key"`
	Manufacturer    ManufacturerKey     `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	GatedByPrevious bool                `json:"gated_by_previous,omitempty" yaml:"gated_by_previous,omitempty"`
	Substeps        []SubstepDefinition `json:"substeps" yaml:"substeps"`
}

// FieldSnapshot is the flat key/value view ("mirror") of one onboarding
// record's checklist fields, as returned by the backend.
type FieldSnapshot map[string]any
