package captain

import (
	"context"
	"fmt"
	"os"

	"github.com/deepnoodle-ai/captain/script"
	"gopkg.in/yaml.v3"
)

// Options are used to configure a workflow.
type Options struct {
	Name        string                     `json:"name" yaml:"name"`
	Description string                     `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []*Step                    `json:"steps" yaml:"steps"`
	Checklists  map[string][]ChecklistItem `json:"checklists,omitempty" yaml:"checklists,omitempty"`

	// Engine names the condition language of script steps: risor (the
	// default) or expr.
	Engine string `json:"engine,omitempty" yaml:"engine,omitempty"`

	// Compiler compiles script step conditions. It overrides Engine.
	Compiler script.Compiler `json:"-" yaml:"-"`
}

// Workflow is an ordered, immutable sequence of steps together with the
// checklists its steps reference.
type Workflow struct {
	name        string
	description string
	steps       []*Step
	stepsByName map[string]int
	checklists  map[string]*Checklist
	conditions  map[string]script.Script
}

// New returns a new Workflow configured with the given options. Every
// problem with the definition is reported here as a configuration error.
func New(opts Options) (*Workflow, error) {
	if opts.Name == "" {
		return nil, configError("workflow name required")
	}
	if len(opts.Steps) == 0 {
		return nil, configError("steps required")
	}
	if opts.Compiler == nil {
		compiler, err := script.NewCompiler(opts.Engine)
		if err != nil {
			return nil, configError("%s", err)
		}
		opts.Compiler = compiler
	}

	w := &Workflow{
		name:        opts.Name,
		description: opts.Description,
		stepsByName: make(map[string]int, len(opts.Steps)),
		checklists:  make(map[string]*Checklist, len(opts.Checklists)),
		conditions:  map[string]script.Script{},
	}
	for i, step := range opts.Steps {
		if step == nil || step.Name == "" {
			return nil, configError("step %d: step name required", i)
		}
		if _, dup := w.stepsByName[step.Name]; dup {
			return nil, configError("duplicate step name: %q", step.Name)
		}
		w.stepsByName[step.Name] = i
		copied := *step
		w.steps = append(w.steps, &copied)
	}
	for _, step := range w.steps {
		if err := w.validateStep(step, opts); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (w *Workflow) validateStep(step *Step, opts Options) error {
	switch step.Kind {
	case StepKindImages:
		if step.MinImages < 0 {
			return configError("step %q has negative minimum images", step.Name)
		}
		if step.MaxImages > 0 && step.MaxImages < step.MinImages {
			return configError("step %q maximum images below minimum", step.Name)
		}
	case StepKindChecklist:
		items, ok := opts.Checklists[step.Checklist]
		if !ok {
			return configError("step %q references unknown checklist %q", step.Name, step.Checklist)
		}
		checklist, err := NewChecklist(items, step.Sequential)
		if err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}
		// Checklists are stored per step since sequencing is a step property.
		w.checklists[step.Name] = checklist
	case StepKindNumeric:
		if step.Field == "" {
			return configError("numeric step %q requires a field", step.Name)
		}
		if step.Max < 0 {
			return configError("numeric step %q has negative maximum", step.Name)
		}
	case StepKindSummary:
	case StepKindScript:
		if step.Condition == "" {
			return configError("script step %q requires a condition", step.Name)
		}
		compiled, err := opts.Compiler.Compile(context.Background(), step.Condition)
		if err != nil {
			return &Error{
				Type:    ErrorTypeConfiguration,
				Cause:   fmt.Sprintf("step %q condition: %s", step.Name, err),
				Wrapped: err,
			}
		}
		w.conditions[step.Name] = compiled
	default:
		return configError("step %q has unknown kind %q", step.Name, step.Kind)
	}
	return nil
}

// Name returns the workflow name
func (w *Workflow) Name() string {
	return w.name
}

// Description returns the workflow description
func (w *Workflow) Description() string {
	return w.description
}

// Len returns the number of steps.
func (w *Workflow) Len() int {
	return len(w.steps)
}

// Steps returns the workflow steps in order
func (w *Workflow) Steps() []*Step {
	out := make([]*Step, len(w.steps))
	for i, step := range w.steps {
		copied := *step
		out[i] = &copied
	}
	return out
}

// StepAt returns the step at index.
func (w *Workflow) StepAt(index int) (*Step, bool) {
	if index < 0 || index >= len(w.steps) {
		return nil, false
	}
	copied := *w.steps[index]
	return &copied, true
}

// GetStep returns a step and its index by name
func (w *Workflow) GetStep(name string) (*Step, int, bool) {
	i, ok := w.stepsByName[name]
	if !ok {
		return nil, -1, false
	}
	copied := *w.steps[i]
	return &copied, i, true
}

// ChecklistFor returns the checklist used by a checklist step.
func (w *Workflow) ChecklistFor(step string) (*Checklist, bool) {
	c, ok := w.checklists[step]
	return c, ok
}

// LoadFile loads a workflow from a YAML file
func LoadFile(path string) (*Workflow, error) {
	yamlData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	return LoadString(string(yamlData))
}

// LoadString loads a workflow from a YAML string
func LoadString(data string) (*Workflow, error) {
	var opts Options
	if err := yaml.Unmarshal([]byte(data), &opts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow file: %w", err)
	}
	return New(opts)
}
