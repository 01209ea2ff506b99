package progress

import (
	"github.com/me/partnerportal/internal/catalog"
	"github.com/me/partnerportal/pkg/model"
)

// FieldState is one backend field with its current value.
type FieldState struct {
	FieldKey  string            `json:"field_key"`
	Type      model.SubstepType `json:"type"`
	LabelKey  string            `json:"label_key"`
	Value     any               `json:"value"`
	Completed bool              `json:"completed"`
}

// SubstepState is the evaluated form of a SubstepDefinition.
type SubstepState struct {
	Key             string            `json:"key"`
	Type            model.SubstepType `json:"type"`
	LabelKey        string            `json:"label_key"`
	InstructionsKey string            `json:"instructions_key"`
	CompletedBy     model.CompletedBy `json:"completed_by"`
	Fields          []FieldState      `json:"fields"`
	Completed       bool              `json:"completed"`
	Disabled        bool              `json:"disabled"`
}

// StepState is the evaluated form of a MainStepDefinition.
type StepState struct {
	Key       string         `json:"key"`
	LabelKey  string         `json:"label_key"`
	Substeps  []SubstepState `json:"substeps"`
	Percent   int            `json:"percent"`
	Locked    bool           `json:"locked"`
	Completed int            `json:"completed"`
	Total     int            `json:"total"`
}

// Progress is the full view model for one onboarding record.
type Progress struct {
	Manufacturer   model.ManufacturerKey `json:"manufacturer"`
	Steps          []StepState           `json:"steps"`
	OverallPercent int                   `json:"overall_percent"`
	Completed      int                   `json:"completed"`
	Total          int                   `json:"total"`

	defs     []model.MainStepDefinition
	snapshot model.FieldSnapshot
}

// Evaluate normalizes raw and evaluates its workflow against snapshot.
func Evaluate(raw any, snapshot model.FieldSnapshot) Progress {
	return ForManufacturer(catalog.Normalize(raw), snapshot)
}

// ForManufacturer evaluates the workflow of an already canonical key.
func ForManufacturer(key model.ManufacturerKey, snapshot model.FieldSnapshot) Progress {
	if !key.IsValid() {
		key = model.DefaultManufacturer
	}
	defs := catalog.StepsFor(key)
	p := Progress{
		Manufacturer: key,
		Steps:        make([]StepState, len(defs)),
		defs:         defs,
		snapshot:     snapshot,
	}

	for i, def := range defs {
		st := StepState{
			Key:      def.Key,
			LabelKey: def.LabelKey,
			Substeps: make([]SubstepState, len(def.Substeps)),
			Locked:   IsStepLocked(defs, i, snapshot),
			Total:    len(def.Substeps),
		}
		for j, sub := range def.Substeps {
			ss := SubstepState{
				Key:             sub.Key,
				Type:            sub.Type,
				LabelKey:        sub.LabelKey,
				InstructionsKey: sub.InstructionsKey,
				CompletedBy:     sub.CompletedBy,
				Completed:       IsSubstepCompleted(sub, snapshot),
				Disabled:        IsSubstepDisabled(def, j, snapshot),
			}
			for _, f := range fieldsOf(sub) {
				v := snapshot[f.FieldKey]
				ss.Fields = append(ss.Fields, FieldState{
					FieldKey:  f.FieldKey,
					Type:      f.Type,
					LabelKey:  f.LabelKey,
					Value:     v,
					Completed: IsFieldCompleted(f.Type, v),
				})
			}
			if ss.Completed {
				st.Completed++
			}
			st.Substeps[j] = ss
		}
		st.Percent = percent(st.Completed, st.Total)
		p.Completed += st.Completed
		p.Total += st.Total
		p.Steps[i] = st
	}
	p.OverallPercent = percent(p.Completed, p.Total)
	return p
}

// Step returns the evaluated step with the given key.
func (p Progress) Step(key string) (StepState, bool) {
	for _, st := range p.Steps {
		if st.Key == key {
			return st, true
		}
	}
	return StepState{}, false
}

// Done reports whether every substep of the workflow is completed.
func (p Progress) Done() bool {
	return p.Total > 0 && p.Completed == p.Total
}

func fieldsOf(sub model.SubstepDefinition) []model.FieldDefinition {
	if sub.Type == model.SubstepGroup {
		return sub.Fields
	}
	return []model.FieldDefinition{{FieldKey: sub.FieldKey, Type: sub.Type, LabelKey: sub.LabelKey}}
}
