package captain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkflowSteps(t *testing.T) {
	wf, err := New(Options{
		Name: "test-workflow",
		Steps: []*Step{
			{Name: "step1", Kind: StepKindImages, MinImages: 1},
			{Name: "step2", Kind: StepKindSummary, Label: "Review"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "test-workflow", wf.Name())
	require.Equal(t, 2, wf.Len())

	steps := wf.Steps()
	require.Len(t, steps, 2)
	require.Equal(t, "step1", steps[0].Name)
	require.Equal(t, "step1", steps[0].DisplayLabel())
	require.Equal(t, "Review", steps[1].DisplayLabel())

	// Returned steps are copies.
	steps[0].MinImages = 99
	step, index, ok := wf.GetStep("step1")
	require.True(t, ok)
	require.Equal(t, 0, index)
	require.Equal(t, 1, step.MinImages)

	_, _, ok = wf.GetStep("missing")
	require.False(t, ok)
	_, ok = wf.StepAt(2)
	require.False(t, ok)
}

func TestInvalidWorkflows(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		msg  string
	}{
		{"empty workflow", Options{}, "workflow name required"},
		{"no steps", Options{Name: "w"}, "steps required"},
		{"empty step name", Options{Name: "w", Steps: []*Step{{Name: ""}}}, "step name required"},
		{"nil step", Options{Name: "w", Steps: []*Step{nil}}, "step name required"},
		{"duplicate step", Options{Name: "w", Steps: []*Step{
			{Name: "a", Kind: StepKindSummary}, {Name: "a", Kind: StepKindSummary},
		}}, "duplicate step name"},
		{"unknown kind", Options{Name: "w", Steps: []*Step{{Name: "a", Kind: "video"}}}, "unknown kind"},
		{"missing kind", Options{Name: "w", Steps: []*Step{{Name: "a"}}}, "unknown kind"},
		{"negative images", Options{Name: "w", Steps: []*Step{
			{Name: "a", Kind: StepKindImages, MinImages: -1},
		}}, "negative minimum images"},
		{"max below min", Options{Name: "w", Steps: []*Step{
			{Name: "a", Kind: StepKindImages, MinImages: 3, MaxImages: 2},
		}}, "maximum images below minimum"},
		{"unknown checklist", Options{Name: "w", Steps: []*Step{
			{Name: "a", Kind: StepKindChecklist, Checklist: "materials"},
		}}, "unknown checklist"},
		{"empty checklist", Options{Name: "w", Steps: []*Step{
			{Name: "a", Kind: StepKindChecklist, Checklist: "materials"},
		}, Checklists: map[string][]ChecklistItem{"materials": {}}}, "checklist has no items"},
		{"numeric without field", Options{Name: "w", Steps: []*Step{
			{Name: "a", Kind: StepKindNumeric},
		}}, "requires a field"},
		{"script without condition", Options{Name: "w", Steps: []*Step{
			{Name: "a", Kind: StepKindScript},
		}}, "requires a condition"},
		{"script does not compile", Options{Name: "w", Steps: []*Step{
			{Name: "a", Kind: StepKindScript, Condition: "images[ >"},
		}}, "condition"},
		{"unknown engine", Options{Name: "w", Engine: "lua", Steps: []*Step{
			{Name: "a", Kind: StepKindSummary},
		}}, "unknown script engine"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			require.Error(t, err)
			require.True(t, IsErrorType(err, ErrorTypeConfiguration), "got %v", err)
			require.Contains(t, err.Error(), tt.msg)
		})
	}
}

const checkInYAML = `
name: check-in
description: Start of day
steps:
  - name: selfie
    kind: images
    min_images: 1
    max_images: 1
  - name: materials
    kind: checklist
    checklist: materials
  - name: odometer
    kind: numeric
    field: opening_odometer
    max: 999999
checklists:
  materials:
    - id: shampoo
      name: Car Shampoo
      required: true
      has_quantity: true
      min_quantity: 1
      unit: bottles
    - id: vacuum
      name: Vacuum Cleaner
`

func TestLoadString(t *testing.T) {
	wf, err := LoadString(checkInYAML)
	require.NoError(t, err)
	require.Equal(t, "check-in", wf.Name())
	require.Equal(t, "Start of day", wf.Description())
	require.Equal(t, 3, wf.Len())

	checklist, ok := wf.ChecklistFor("materials")
	require.True(t, ok)
	item, ok := checklist.Item("shampoo")
	require.True(t, ok)
	require.True(t, item.HasQuantity)
	require.Equal(t, 1.0, item.MinQuantity)
	require.Equal(t, "bottles", item.Unit)

	_, err = LoadString("name: [")
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "check-in.yaml")
	require.NoError(t, os.WriteFile(path, []byte(checkInYAML), 0o644))

	wf, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "check-in", wf.Name())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestExprEngineWorkflow(t *testing.T) {
	wf, err := LoadString(`
name: inspection
engine: expr
steps:
  - name: photos
    kind: images
  - name: review
    kind: script
    condition: (images["photos"] ?? 0) >= 2 && fields["meter"] != ""
`)
	require.NoError(t, err)

	data := NewStepData()
	ok, err := wf.CanAdvance(1, data)
	require.NoError(t, err)
	require.False(t, ok)

	data.Images["photos"] = []string{"p1", "p2"}
	data.Fields["meter"] = "17"
	ok, err = wf.CanAdvance(1, data)
	require.NoError(t, err)
	require.True(t, ok)
}
