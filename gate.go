package captain

import (
	"context"
	"math"
	"slices"
	"strconv"
	"strings"
)

// CanAdvance reports whether the step at index is complete for the given
// data. It is a pure function of its inputs. An index outside the workflow is
// a configuration error.
func (w *Workflow) CanAdvance(index int, data *StepData) (bool, error) {
	if index < 0 || index >= len(w.steps) {
		return false, configError("step index %d out of range [0,%d)", index, len(w.steps))
	}
	step := w.steps[index]
	switch step.Kind {
	case StepKindImages:
		return len(data.ImagesFor(step.Name)) >= step.MinImages, nil
	case StepKindChecklist:
		return w.checklists[step.Name].IsSatisfied(data.ChecklistFor(step.Name)), nil
	case StepKindNumeric:
		return numericSatisfied(step, data.Field(step.Field)), nil
	case StepKindSummary:
		return true, nil
	case StepKindScript:
		return w.evaluateCondition(step, data)
	}
	// New rejects unknown kinds, so this is only reachable for a Workflow
	// built without New.
	return false, configError("step %q has unknown kind %q", step.Name, step.Kind)
}

func numericSatisfied(step *Step, raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return false
	}
	if step.AllowZero {
		if value < 0 {
			return false
		}
	} else if value <= 0 {
		return false
	}
	return step.Max <= 0 || value <= step.Max
}

// evaluateCondition runs a script step condition. The globals are
// images (step name -> count), fields (field name -> text) and checked
// (step name -> list of checked item IDs).
func (w *Workflow) evaluateCondition(step *Step, data *StepData) (bool, error) {
	globals := map[string]any{
		"images":  map[string]any{},
		"fields":  map[string]any{},
		"checked": map[string]any{},
	}
	if data != nil {
		images := globals["images"].(map[string]any)
		for name, refs := range data.Images {
			images[name] = int64(len(refs))
		}
		fields := globals["fields"].(map[string]any)
		for name, value := range data.Fields {
			fields[name] = value
		}
		checked := globals["checked"].(map[string]any)
		for name, state := range data.Checklists {
			ids := []any{}
			for _, id := range w.checkedIDs(name, state) {
				ids = append(ids, id)
			}
			checked[name] = ids
		}
	}
	value, err := w.conditions[step.Name].Evaluate(context.Background(), globals)
	if err != nil {
		return false, err
	}
	return value.IsTruthy(), nil
}

// checkedIDs lists the checked items of a step's state in checklist order.
// State for steps without a checklist is listed in sorted ID order.
func (w *Workflow) checkedIDs(name string, state ChecklistState) []string {
	if checklist, ok := w.checklists[name]; ok {
		return checklist.CheckedIDs(state)
	}
	ids := make([]string, 0, len(state))
	for id, st := range state {
		if st.Checked {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
