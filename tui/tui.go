// Package tui is an interactive terminal host for a workflow controller.
//
// The model follows the bubbletea architecture: key presses become
// controller inputs, and transitions that write to the store run as
// commands. While a transition is in flight all input is ignored, so the
// controller is only ever touched by one goroutine at a time.
package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deepnoodle-ai/captain"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	labelStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB000"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Options configure the model.
type Options struct {
	// Rating enables the customer rating on summary steps.
	Rating bool

	// ImageRef names the n-th captured image of a step. Defaults to
	// "<step>-<n>.jpg".
	ImageRef func(step string, n int) string
}

// transitionMsg reports the outcome of a store-backed transition.
type transitionMsg struct {
	event captain.Event
	err   error
}

// Model is the bubbletea model for one workflow run.
type Model struct {
	ctx  context.Context
	c    *captain.Controller
	opts Options

	input       textinput.Model
	cursor      int
	captured    int
	busy        bool
	confirmExit bool
	status      string
	statusStyle lipgloss.Style
	done        bool
}

// New returns a model driving c.
func New(ctx context.Context, c *captain.Controller, opts Options) *Model {
	if opts.ImageRef == nil {
		opts.ImageRef = func(step string, n int) string {
			return fmt.Sprintf("%s-%d.jpg", step, n)
		}
	}
	input := textinput.New()
	input.Cursor.SetMode(cursor.CursorStatic)
	m := &Model{ctx: ctx, c: c, opts: opts, input: input}
	m.syncStep()
	return m
}

// Run runs the model as a full screen program until the workflow completes,
// is exited, or the user quits.
func Run(ctx context.Context, c *captain.Controller, opts Options, programOpts ...tea.ProgramOption) error {
	programOpts = append([]tea.ProgramOption{tea.WithContext(ctx)}, programOpts...)
	_, err := tea.NewProgram(New(ctx, c, opts), programOpts...).Run()
	return err
}

// Controller returns the controller being driven.
func (m *Model) Controller() *captain.Controller {
	return m.c
}

// Done reports whether the run completed or was exited.
func (m *Model) Done() bool {
	return m.done
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case transitionMsg:
		return m, m.handleTransition(msg)
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.busy || m.done {
			return m, nil
		}
		if m.confirmExit {
			return m, m.handleConfirm(msg)
		}
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleConfirm(msg tea.KeyMsg) tea.Cmd {
	m.confirmExit = false
	switch msg.String() {
	case "y", "Y", "enter":
		return m.exitSave()
	}
	m.setStatus("", mutedStyle)
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		return m.advance()
	case tea.KeyEsc:
		m.retreat()
		return nil
	case tea.KeyCtrlS:
		return m.exitSave()
	}

	step := m.c.Step()
	switch step.Kind {
	case captain.StepKindImages:
		m.imageKey(step, msg.String())
	case captain.StepKindChecklist:
		m.checklistKey(step, msg.String())
	case captain.StepKindNumeric:
		m.input, _ = m.input.Update(msg)
		m.report(m.c.SetField(strings.TrimSpace(m.input.Value())))
	case captain.StepKindSummary:
		if m.opts.Rating && (msg.Type == tea.KeyUp || msg.Type == tea.KeyDown) {
			rating := m.c.Data().Rating
			if msg.Type == tea.KeyUp {
				rating++
			} else {
				rating--
			}
			if rating >= 0 && rating <= 5 {
				m.report(m.c.SetRating(rating))
			}
			return nil
		}
		m.input, _ = m.input.Update(msg)
		m.report(m.c.SetNotes(m.input.Value()))
	}
	return nil
}

func (m *Model) imageKey(step *captain.Step, key string) {
	switch key {
	case "a", " ":
		images := m.c.Data().ImagesFor(step.Name)
		m.captured++
		ref := m.opts.ImageRef(step.Name, m.captured)
		for slices.Contains(images, ref) {
			m.captured++
			ref = m.opts.ImageRef(step.Name, m.captured)
		}
		m.report(m.c.AddImage(ref))
	case "x", "backspace":
		images := m.c.Data().ImagesFor(step.Name)
		if len(images) > 0 {
			m.report(m.c.RemoveImage(len(images) - 1))
		}
	}
}

func (m *Model) checklistKey(step *captain.Step, key string) {
	checklist, ok := m.c.Workflow().ChecklistFor(step.Name)
	if !ok {
		return
	}
	items := checklist.Items()
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case " ", "x":
		m.report(m.c.ToggleItem(items[m.cursor].ID))
	case "+", "=", "-":
		item := items[m.cursor]
		if !item.HasQuantity {
			return
		}
		current := 0.0
		if q := m.c.Data().ChecklistFor(step.Name)[item.ID].Quantity; q != nil {
			current = *q
		}
		delta := quantityStep(item)
		if key == "-" {
			delta = -delta
		}
		next := current + delta
		if next < 0 {
			next = 0
		}
		m.report(m.c.SetQuantity(item.ID, next))
	}
}

// quantityStep is the increment for an item quantity: the minimum when it
// is fractional, otherwise one unit.
func quantityStep(item captain.ChecklistItem) float64 {
	if item.MinQuantity > 0 && item.MinQuantity < 1 {
		return item.MinQuantity
	}
	return 1
}

func (m *Model) advance() tea.Cmd {
	m.busy = true
	m.setStatus("Saving...", mutedStyle)
	c, ctx := m.c, m.ctx
	return func() tea.Msg {
		event, err := c.Advance(ctx)
		return transitionMsg{event: event, err: err}
	}
}

func (m *Model) exitSave() tea.Cmd {
	m.busy = true
	m.setStatus("Saving...", mutedStyle)
	c, ctx := m.c, m.ctx
	return func() tea.Msg {
		if err := c.ExitSave(ctx); err != nil {
			return transitionMsg{err: err}
		}
		return transitionMsg{event: captain.EventExited}
	}
}

func (m *Model) retreat() {
	event, err := m.c.Retreat(m.ctx)
	if err != nil {
		m.report(err)
		return
	}
	switch event {
	case captain.EventExitRequested:
		m.confirmExit = true
		m.setStatus("Save progress and exit? (y/n)", warnStyle)
	case captain.EventRetreated:
		m.syncStep()
		m.setStatus("", mutedStyle)
	}
}

func (m *Model) handleTransition(msg transitionMsg) tea.Cmd {
	m.busy = false
	if msg.err != nil {
		m.setStatus("Could not save, press enter to retry: "+msg.err.Error(), errStyle)
		return nil
	}
	switch msg.event {
	case captain.EventBlocked:
		m.setStatus(blockedHint(m.c.Step()), warnStyle)
	case captain.EventAdvanced:
		m.syncStep()
		m.setStatus("", mutedStyle)
	case captain.EventCompleted:
		m.done = true
		m.setStatus("Completed", okStyle)
		return tea.Quit
	case captain.EventExited:
		m.done = true
		m.setStatus("Progress saved", okStyle)
		return tea.Quit
	}
	return nil
}

// syncStep prepares the input for the current step.
func (m *Model) syncStep() {
	m.cursor = 0
	m.captured = len(m.c.Data().ImagesFor(m.c.Step().Name))
	step := m.c.Step()
	switch step.Kind {
	case captain.StepKindNumeric:
		m.input.Placeholder = "0"
		m.input.SetValue(m.c.Data().Field(step.Field))
		m.input.Focus()
	case captain.StepKindSummary:
		m.input.Placeholder = "Notes (optional)"
		m.input.SetValue(m.c.Data().Notes)
		m.input.Focus()
	default:
		m.input.Blur()
	}
}

func (m *Model) report(err error) {
	switch {
	case err == nil:
		m.setStatus("", mutedStyle)
	case errors.Is(err, captain.ErrOutOfOrder):
		m.setStatus("Complete the previous step first", warnStyle)
	default:
		m.setStatus(err.Error(), errStyle)
	}
}

func (m *Model) setStatus(status string, style lipgloss.Style) {
	m.status = status
	m.statusStyle = style
}

func blockedHint(step *captain.Step) string {
	switch step.Kind {
	case captain.StepKindImages:
		return fmt.Sprintf("Add at least %d photos to continue", step.MinImages)
	case captain.StepKindChecklist:
		return "Check every required item to continue"
	case captain.StepKindNumeric:
		return "Enter a valid reading to continue"
	}
	return "This step is not complete"
}

func (m *Model) View() string {
	step := m.c.Step()
	data := m.c.Data()
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render(m.c.Workflow().Name()),
		mutedStyle.Render(fmt.Sprintf("step %d of %d", m.c.Index()+1, m.c.Workflow().Len())))
	b.WriteString(labelStyle.Render(step.DisplayLabel()) + "\n")
	if step.Description != "" {
		b.WriteString(mutedStyle.Render(step.Description) + "\n")
	}
	b.WriteString("\n")

	switch step.Kind {
	case captain.StepKindImages:
		images := data.ImagesFor(step.Name)
		limit := ""
		if step.MaxImages > 0 {
			limit = fmt.Sprintf(" (max %d)", step.MaxImages)
		}
		fmt.Fprintf(&b, "%d of %d photos%s\n", len(images), step.MinImages, limit)
		for _, ref := range images {
			b.WriteString("  • " + ref + "\n")
		}
	case captain.StepKindChecklist:
		m.viewChecklist(&b, step, data)
	case captain.StepKindNumeric:
		b.WriteString(m.input.View() + "\n")
		if step.Max > 0 {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("max %g", step.Max)) + "\n")
		}
	case captain.StepKindSummary:
		if m.opts.Rating {
			stars := strings.Repeat("★", data.Rating) + strings.Repeat("☆", 5-data.Rating)
			b.WriteString("Rating " + stars + "\n")
		}
		b.WriteString(m.input.View() + "\n")
	case captain.StepKindScript:
		b.WriteString(mutedStyle.Render(step.Condition) + "\n")
	}

	if m.status != "" {
		b.WriteString("\n" + m.statusStyle.Render(m.status) + "\n")
	}
	b.WriteString("\n" + mutedStyle.Render(m.help(step)))
	return boxStyle.Render(b.String()) + "\n"
}

func (m *Model) viewChecklist(b *strings.Builder, step *captain.Step, data *captain.StepData) {
	checklist, ok := m.c.Workflow().ChecklistFor(step.Name)
	if !ok {
		return
	}
	state := data.ChecklistFor(step.Name)
	checked, total := checklist.Progress(state)
	fmt.Fprintf(b, "%d/%d done\n", checked, total)
	for i, item := range checklist.Items() {
		pointer := "  "
		if i == m.cursor {
			pointer = cursorStyle.Render("> ")
		}
		box := "[ ]"
		if state[item.ID].Checked {
			box = okStyle.Render("[x]")
		}
		line := fmt.Sprintf("%s%s %s", pointer, box, item.Name)
		if item.HasQuantity {
			q := 0.0
			if p := state[item.ID].Quantity; p != nil {
				q = *p
			}
			line += fmt.Sprintf("  %g %s", q, item.Unit)
			if item.MinQuantity > 0 {
				line += mutedStyle.Render(fmt.Sprintf(" (min %g)", item.MinQuantity))
			}
		}
		if !item.Required {
			line += mutedStyle.Render(" optional")
		}
		b.WriteString(line + "\n")
	}
}

func (m *Model) help(step *captain.Step) string {
	keys := []string{"enter next", "esc back", "ctrl+s save & exit"}
	switch step.Kind {
	case captain.StepKindImages:
		keys = append([]string{"a add photo", "x remove"}, keys...)
	case captain.StepKindChecklist:
		keys = append([]string{"↑/↓ move", "space toggle", "+/- quantity"}, keys...)
	case captain.StepKindSummary:
		if m.opts.Rating {
			keys = append([]string{"↑/↓ rating"}, keys...)
		}
	}
	return strings.Join(keys, " · ")
}
