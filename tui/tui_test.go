package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/deepnoodle-ai/captain"
	"github.com/stretchr/testify/require"
)

func newModel(t *testing.T, store captain.Store, opts Options) *Model {
	t.Helper()
	wf, err := captain.New(captain.Options{
		Name: "check-in",
		Steps: []*captain.Step{
			{Name: "selfie", Label: "Selfie", Kind: captain.StepKindImages, MinImages: 1, MaxImages: 1},
			{Name: "materials", Kind: captain.StepKindChecklist, Checklist: "materials"},
			{Name: "odometer", Kind: captain.StepKindNumeric, Field: "opening_odometer", Max: 999999},
			{Name: "done", Kind: captain.StepKindSummary},
		},
		Checklists: map[string][]captain.ChecklistItem{
			"materials": {
				{ID: "vacuum", Name: "Vacuum Cleaner", Required: true},
				{ID: "liquid", Name: "Cleaning Liquid", Required: true, HasQuantity: true, MinQuantity: 0.5, Unit: "L"},
			},
		},
	})
	require.NoError(t, err)
	c, err := captain.NewController(captain.ControllerOptions{
		Workflow: wf,
		RecordID: "att-1",
		Store:    store,
		NoRetry:  true,
	})
	require.NoError(t, err)
	return New(context.Background(), c, opts)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds keys to the model, running the commands transitions return.
// It reports whether the model asked to quit.
func press(m *Model, keys ...string) (quit bool) {
	for _, k := range keys {
		_, cmd := m.Update(key(k))
		for cmd != nil {
			msg := cmd()
			if _, ok := msg.(tea.QuitMsg); ok {
				quit = true
				break
			}
			_, cmd = m.Update(msg)
		}
	}
	return quit
}

func TestCompleteFlow(t *testing.T) {
	store := captain.NewMemoryStore()
	m := newModel(t, store, Options{Rating: true})
	c := m.Controller()

	press(m, "enter")
	require.Equal(t, 0, c.Index())
	require.Contains(t, m.View(), "Add at least 1 photos to continue")

	press(m, "a", "a")
	require.Equal(t, []string{"selfie-1.jpg"}, c.Data().ImagesFor("selfie"))
	require.Contains(t, m.View(), "image limit reached")

	press(m, "enter")
	require.Equal(t, "materials", c.Step().Name)
	require.Contains(t, m.View(), "0/2 done")

	press(m, " ", "down", "+", "enter")
	require.Equal(t, "odometer", c.Step().Name)
	require.Equal(t, 0.5, *c.Data().ChecklistFor("materials")["liquid"].Quantity)

	press(m, "4", "5", "2", "1", "0")
	require.Equal(t, "45210", c.Data().Field("opening_odometer"))

	press(m, "enter", "up", "up", "up")
	require.Equal(t, "done", c.Step().Name)
	require.Equal(t, 3, c.Data().Rating)
	require.Contains(t, m.View(), "★★★☆☆")

	press(m, "o", "k")
	require.Equal(t, "ok", c.Data().Notes)

	require.True(t, press(m, "enter"))
	require.True(t, m.Done())
	require.Equal(t, captain.StatusCompleted, c.Status())
	upserts, finalizes := store.Counts()
	require.Equal(t, 3, upserts)
	require.Equal(t, 1, finalizes)

	// Input after completion is ignored.
	require.False(t, press(m, "a"))
}

func TestRetreatAndExit(t *testing.T) {
	store := captain.NewMemoryStore()
	m := newModel(t, store, Options{})
	c := m.Controller()

	press(m, "a", "enter", "esc")
	require.Equal(t, "selfie", c.Step().Name)
	require.Contains(t, m.View(), "1 of 1 photos")

	press(m, "esc")
	require.Contains(t, m.View(), "Save progress and exit?")
	press(m, "n")
	require.Equal(t, captain.StatusActive, c.Status())
	require.NotContains(t, m.View(), "Save progress and exit?")

	press(m, "x")
	require.Empty(t, c.Data().ImagesFor("selfie"))

	press(m, "esc")
	require.True(t, press(m, "y"))
	require.Equal(t, captain.StatusExited, c.Status())
	progress, err := store.Get("att-1")
	require.NoError(t, err)
	require.Equal(t, "selfie", progress.StepName)
	require.Empty(t, progress.Data.ImagesFor("selfie"))
}

func TestSequentialAndStoreFailure(t *testing.T) {
	store := captain.NewMemoryStore()
	m := newModel(t, store, Options{})
	c := m.Controller()

	press(m, "a", "enter")
	require.Equal(t, "materials", c.Step().Name)

	store.FailNext(errors.New("disk full"))
	press(m, " ", "down", "+", "enter")
	require.Equal(t, "materials", c.Step().Name)
	require.Contains(t, m.View(), "Could not save")

	press(m, "enter")
	require.Equal(t, "odometer", c.Step().Name)

	press(m, "ctrl+s")
	require.Equal(t, captain.StatusExited, c.Status())
}

func TestQuantityStep(t *testing.T) {
	require.Equal(t, 0.5, quantityStep(captain.ChecklistItem{MinQuantity: 0.5}))
	require.Equal(t, 1.0, quantityStep(captain.ChecklistItem{MinQuantity: 2}))
	require.Equal(t, 1.0, quantityStep(captain.ChecklistItem{}))
}

func TestResumedImagesKeepUniqueRefs(t *testing.T) {
	wf, err := captain.New(captain.Options{
		Name: "job",
		Steps: []*captain.Step{
			{Name: "before", Kind: captain.StepKindImages, MinImages: 1},
			{Name: "done", Kind: captain.StepKindSummary},
		},
	})
	require.NoError(t, err)
	data := captain.NewStepData()
	data.Images["before"] = []string{"before-1.jpg", "before-3.jpg"}
	c, err := captain.NewController(captain.ControllerOptions{
		Workflow: wf,
		RecordID: "job-1",
		Data:     data,
		NoRetry:  true,
	})
	require.NoError(t, err)
	m := New(context.Background(), c, Options{})

	press(m, "a", "a")
	require.Equal(t, []string{"before-1.jpg", "before-3.jpg", "before-4.jpg", "before-5.jpg"}, c.Data().ImagesFor("before"))
}
