package progress

import "github.com/me/partnerportal/pkg/model"

// TimelineEntry is one substep on the linear timeline.
type TimelineEntry struct {
	Position    int               `json:"position"`
	StepKey     string            `json:"step_key"`
	SubstepKey  string            `json:"substep_key"`
	LabelKey    string            `json:"label_key"`
	CompletedBy model.CompletedBy `json:"completed_by"`
	Completed   bool              `json:"completed"`
	Current     bool              `json:"current"`
}

// Timeline returns the linear timeline for raw evaluated against snapshot.
func Timeline(raw any, snapshot model.FieldSnapshot) []TimelineEntry {
	return Evaluate(raw, snapshot).Timeline()
}

// Timeline flattens p into timeline entries. The first incomplete entry is
// marked current.
func (p Progress) Timeline() []TimelineEntry {
	entries := make([]TimelineEntry, 0, p.Total)
	current := false
	for _, st := range p.Steps {
		for _, sub := range st.Substeps {
			e := TimelineEntry{
				Position:    len(entries) + 1,
				StepKey:     st.Key,
				SubstepKey:  sub.Key,
				LabelKey:    sub.LabelKey,
				CompletedBy: sub.CompletedBy,
				Completed:   sub.Completed,
			}
			if !sub.Completed && !current {
				e.Current = true
				current = true
			}
			entries = append(entries, e)
		}
	}
	return entries
}
