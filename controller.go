package captain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deepnoodle-ai/captain/retry"
)

// ControllerOptions configures a new controller.
type ControllerOptions struct {
	Workflow  *Workflow
	RecordID  string
	Store     Store
	Callbacks Callbacks
	Logger    *slog.Logger

	// Data seeds the run, e.g. with images saved by an earlier exit.
	Data *StepData

	// RetryOptions tune how recoverable store failures are retried.
	RetryOptions []retry.Option

	// NoRetry makes every store write a single attempt.
	NoRetry bool

	// Now is used for timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Controller drives one run of a workflow: it owns the current step and the
// entered data, and only changes them through its transitions. A Controller
// is meant to be driven by one event loop and is not safe for concurrent use.
type Controller struct {
	workflow  *Workflow
	recordID  string
	store     Store
	callbacks Callbacks
	logger    *slog.Logger
	retryOpts []retry.Option
	now       func() time.Time

	index     int
	data      *StepData
	status    Status
	startedAt time.Time
}

// NewController returns a controller positioned at the first step.
func NewController(opts ControllerOptions) (*Controller, error) {
	if opts.Workflow == nil {
		return nil, configError("workflow is required")
	}
	if opts.Store == nil {
		opts.Store = NewNullStore()
	}
	if opts.Callbacks == nil {
		opts.Callbacks = &BaseCallbacks{}
	}
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	if opts.RecordID == "" {
		opts.RecordID = NewID("run")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	retryOpts := append([]retry.Option(nil), opts.RetryOptions...)
	if opts.NoRetry {
		retryOpts = append(retryOpts, retry.WithMaxRetries(0))
	}
	data := opts.Data.Clone()

	return &Controller{
		workflow:  opts.Workflow,
		recordID:  opts.RecordID,
		store:     opts.Store,
		callbacks: opts.Callbacks,
		logger:    opts.Logger.With("record_id", opts.RecordID, "workflow", opts.Workflow.Name()),
		retryOpts: retryOpts,
		now:       opts.Now,
		data:      data,
		status:    StatusActive,
	}, nil
}

// RecordID returns the identifier progress is stored under.
func (c *Controller) RecordID() string {
	return c.recordID
}

// Workflow returns the workflow being run.
func (c *Controller) Workflow() *Workflow {
	return c.workflow
}

// Index returns the current step index.
func (c *Controller) Index() int {
	return c.index
}

// Step returns the current step.
func (c *Controller) Step() *Step {
	step, _ := c.workflow.StepAt(c.index)
	return step
}

// Status returns the controller status.
func (c *Controller) Status() Status {
	return c.status
}

// IsLastStep reports whether the current step is the final one.
func (c *Controller) IsLastStep() bool {
	return c.index == c.workflow.Len()-1
}

// Data returns a copy of the data entered so far.
func (c *Controller) Data() *StepData {
	return c.data.Clone()
}

// CanAdvance reports whether the current step is complete. A condition that
// fails to evaluate counts as incomplete.
func (c *Controller) CanAdvance() bool {
	if c.status != StatusActive {
		return false
	}
	ok, err := c.workflow.CanAdvance(c.index, c.data)
	if err != nil {
		c.logger.Warn("step gate evaluation failed", "step", c.Step().Name, "error", err)
		return false
	}
	return ok
}

// Snapshot returns the current progress.
func (c *Controller) Snapshot() *Progress {
	step := c.workflow.steps[c.index]
	return &Progress{
		RecordID:  c.recordID,
		Workflow:  c.workflow.Name(),
		StepIndex: c.index,
		StepName:  step.Name,
		Status:    c.status,
		Data:      c.data.Clone(),
		StartedAt: c.startedAt,
		UpdatedAt: c.now(),
	}
}

// Advance moves forward when the current step is complete. Partial progress
// is upserted before the index moves; on the last step the run is finalized
// instead. A store failure leaves the position and data untouched and is
// returned as an *Error of type ErrorTypeStore.
func (c *Controller) Advance(ctx context.Context) (Event, error) {
	if c.status != StatusActive {
		return EventNone, ErrFinished
	}
	from := c.index
	if !c.CanAdvance() {
		c.logger.Debug("advance blocked", "step", c.workflow.steps[from].Name)
		c.callbacks.OnBlocked(ctx, c.event(EventBlocked, from, from))
		return EventBlocked, nil
	}
	started := c.startedAt
	if started.IsZero() {
		c.startedAt = c.now()
	}

	if c.IsLastStep() {
		progress := c.Snapshot()
		progress.Status = StatusCompleted
		if err := c.write(ctx, "finalize", progress, c.store.Finalize); err != nil {
			c.startedAt = started
			return EventNone, err
		}
		c.status = StatusCompleted
		c.logger.Info("workflow completed", "steps", c.workflow.Len())
		c.callbacks.OnCompleted(ctx, c.event(EventCompleted, from, from))
		return EventCompleted, nil
	}

	if err := c.write(ctx, "upsert", c.Snapshot(), c.store.Upsert); err != nil {
		c.startedAt = started
		return EventNone, err
	}
	c.index++
	c.logger.Info("advanced", "from", c.workflow.steps[from].Name, "to", c.workflow.steps[c.index].Name)
	c.callbacks.OnAdvanced(ctx, c.event(EventAdvanced, from, c.index))
	return EventAdvanced, nil
}

// Retreat moves back one step without validation. At the first step it
// leaves the position alone and reports EventExitRequested so the caller can
// offer to save and exit.
func (c *Controller) Retreat(ctx context.Context) (Event, error) {
	if c.status != StatusActive {
		return EventNone, ErrFinished
	}
	from := c.index
	if from == 0 {
		c.callbacks.OnExitRequested(ctx, c.event(EventExitRequested, from, from))
		return EventExitRequested, nil
	}
	c.index--
	c.logger.Debug("retreated", "from", c.workflow.steps[from].Name, "to", c.workflow.steps[c.index].Name)
	c.callbacks.OnRetreated(ctx, c.event(EventRetreated, from, c.index))
	return EventRetreated, nil
}

// ExitSave upserts the current partial progress without requiring the step
// to be complete and ends the run.
func (c *Controller) ExitSave(ctx context.Context) error {
	if c.status != StatusActive {
		return ErrFinished
	}
	if err := c.write(ctx, "upsert", c.Snapshot(), c.store.Upsert); err != nil {
		return err
	}
	c.status = StatusExited
	c.logger.Info("saved and exited", "step", c.workflow.steps[c.index].Name)
	c.callbacks.OnExited(ctx, c.event(EventExited, c.index, c.index))
	return nil
}

func (c *Controller) write(ctx context.Context, op string, progress *Progress, fn func(context.Context, string, *Progress) error) error {
	opts := append([]retry.Option(nil), c.retryOpts...)
	opts = append(opts, retry.WithOnRetry(func(attempt int, err error) {
		c.logger.Warn("retrying store write", "op", op, "attempt", attempt, "error", err)
	}))
	err := retry.Do(ctx, func() error {
		return fn(ctx, c.recordID, progress)
	}, opts...)
	if err != nil {
		c.logger.Error("store write failed", "op", op, "error", err)
		return storeError(op, err)
	}
	return nil
}

func (c *Controller) event(e Event, from, to int) *TransitionEvent {
	return &TransitionEvent{
		Event:     e,
		RecordID:  c.recordID,
		Workflow:  c.workflow.Name(),
		FromIndex: from,
		FromStep:  c.workflow.steps[from].Name,
		ToIndex:   to,
		ToStep:    c.workflow.steps[to].Name,
		Time:      c.now(),
	}
}

// requireStep returns the current step if the run is active and the step is
// one of kinds.
func (c *Controller) requireStep(kinds ...StepKind) (*Step, error) {
	if c.status != StatusActive {
		return nil, ErrFinished
	}
	step := c.workflow.steps[c.index]
	for _, kind := range kinds {
		if step.Kind == kind {
			return step, nil
		}
	}
	return nil, inputError(step.Name, fmt.Errorf("%w: %s step", ErrWrongStepKind, step.Kind))
}

// AddImage appends an image reference to the current images step.
func (c *Controller) AddImage(ref string) error {
	step, err := c.requireStep(StepKindImages)
	if err != nil {
		return err
	}
	images := c.data.Images[step.Name]
	if step.MaxImages > 0 && len(images) >= step.MaxImages {
		return inputError(step.Name, fmt.Errorf("%w: maximum %d", ErrImageLimit, step.MaxImages))
	}
	c.data.Images[step.Name] = append(images, ref)
	return nil
}

// RemoveImage removes the image at position i of the current images step.
func (c *Controller) RemoveImage(i int) error {
	step, err := c.requireStep(StepKindImages)
	if err != nil {
		return err
	}
	images := c.data.Images[step.Name]
	if i < 0 || i >= len(images) {
		return inputError(step.Name, fmt.Errorf("no image at position %d", i))
	}
	c.data.Images[step.Name] = append(images[:i:i], images[i+1:]...)
	return nil
}

// ToggleItem flips a checklist item on the current checklist step.
func (c *Controller) ToggleItem(id string) error {
	step, err := c.requireStep(StepKindChecklist)
	if err != nil {
		return err
	}
	checklist := c.workflow.checklists[step.Name]
	if err := checklist.Toggle(c.checklistState(step.Name), id); err != nil {
		return inputError(step.Name, err)
	}
	return nil
}

// SetQuantity records a quantity for a checklist item on the current step.
func (c *Controller) SetQuantity(id string, quantity float64) error {
	step, err := c.requireStep(StepKindChecklist)
	if err != nil {
		return err
	}
	checklist := c.workflow.checklists[step.Name]
	if err := checklist.SetQuantity(c.checklistState(step.Name), id, quantity); err != nil {
		return inputError(step.Name, err)
	}
	return nil
}

func (c *Controller) checklistState(step string) ChecklistState {
	state, ok := c.data.Checklists[step]
	if !ok {
		state = ChecklistState{}
		c.data.Checklists[step] = state
	}
	return state
}

// SetField records the raw text of the current numeric step field.
func (c *Controller) SetField(value string) error {
	step, err := c.requireStep(StepKindNumeric)
	if err != nil {
		return err
	}
	c.data.Fields[step.Field] = value
	return nil
}

// SetNotes records free-form notes. Notes may be entered on any step.
func (c *Controller) SetNotes(notes string) error {
	if c.status != StatusActive {
		return ErrFinished
	}
	c.data.Notes = notes
	return nil
}

// SetRating records a customer rating from 1 to 5, or 0 for none.
func (c *Controller) SetRating(rating int) error {
	step, err := c.requireStep(StepKindSummary)
	if err != nil {
		return err
	}
	if rating < 0 || rating > 5 {
		return inputError(step.Name, fmt.Errorf("%w: %d", ErrRatingRange, rating))
	}
	c.data.Rating = rating
	return nil
}
