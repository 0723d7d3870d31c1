package captain

// StepKind selects the completion rule of a step.
type StepKind string

const (
	// StepKindImages is satisfied once at least MinImages images are captured.
	StepKindImages StepKind = "images"

	// StepKindChecklist is satisfied once the step checklist is satisfied.
	StepKindChecklist StepKind = "checklist"

	// StepKindNumeric is satisfied once Field holds a number greater than zero.
	StepKindNumeric StepKind = "numeric"

	// StepKindSummary is always satisfied.
	StepKindSummary StepKind = "summary"

	// StepKindScript is satisfied when Condition evaluates truthy.
	StepKindScript StepKind = "script"
)

// Step represents a single stage of a workflow.
type Step struct {
	Name        string   `json:"name" yaml:"name"`
	Label       string   `json:"label,omitempty" yaml:"label,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Kind        StepKind `json:"kind" yaml:"kind"`

	// Images steps
	MinImages int `json:"min_images,omitempty" yaml:"min_images,omitempty"`
	MaxImages int `json:"max_images,omitempty" yaml:"max_images,omitempty"`

	// Checklist steps reference a checklist defined on the workflow.
	Checklist  string `json:"checklist,omitempty" yaml:"checklist,omitempty"`
	Sequential bool   `json:"sequential,omitempty" yaml:"sequential,omitempty"`

	// Numeric steps
	Field     string  `json:"field,omitempty" yaml:"field,omitempty"`
	Max       float64 `json:"max,omitempty" yaml:"max,omitempty"`
	AllowZero bool    `json:"allow_zero,omitempty" yaml:"allow_zero,omitempty"`

	// Script steps
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// DisplayLabel returns the label, falling back to the step name.
func (s *Step) DisplayLabel() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Name
}

// StepData accumulates everything entered while a workflow runs. Images and
// checklists are keyed by step name, numeric fields by field name.
type StepData struct {
	Images     map[string][]string       `json:"images,omitempty"`
	Checklists map[string]ChecklistState `json:"checklists,omitempty"`
	Fields     map[string]string         `json:"fields,omitempty"`
	Notes      string                    `json:"notes,omitempty"`
	Rating     int                       `json:"rating,omitempty"`
}

// NewStepData returns empty step data.
func NewStepData() *StepData {
	return &StepData{
		Images:     map[string][]string{},
		Checklists: map[string]ChecklistState{},
		Fields:     map[string]string{},
	}
}

// ImagesFor returns the images captured for a step.
func (d *StepData) ImagesFor(step string) []string {
	if d == nil {
		return nil
	}
	return d.Images[step]
}

// ChecklistFor returns the checklist state for a step, nil when untouched.
func (d *StepData) ChecklistFor(step string) ChecklistState {
	if d == nil {
		return nil
	}
	return d.Checklists[step]
}

// Field returns the raw text entered for a numeric field.
func (d *StepData) Field(name string) string {
	if d == nil {
		return ""
	}
	return d.Fields[name]
}

// Clone returns a deep copy that shares nothing with d.
func (d *StepData) Clone() *StepData {
	out := NewStepData()
	if d == nil {
		return out
	}
	for step, images := range d.Images {
		out.Images[step] = append([]string(nil), images...)
	}
	for step, state := range d.Checklists {
		out.Checklists[step] = state.Clone()
	}
	for name, value := range d.Fields {
		out.Fields[name] = value
	}
	out.Notes = d.Notes
	out.Rating = d.Rating
	return out
}
