// Package session replays scripted user actions against a workflow
// controller. Scripts stand in for a host UI when exercising flows from the
// command line or in tests.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/deepnoodle-ai/captain"
	"github.com/deepnoodle-ai/captain/fieldops"
	"gopkg.in/yaml.v3"
)

// Op names a scripted action.
type Op string

const (
	OpAddImage    Op = "add_image"
	OpRemoveImage Op = "remove_image"
	OpToggle      Op = "toggle"
	OpQuantity    Op = "quantity"
	OpField       Op = "field"
	OpNotes       Op = "notes"
	OpRating      Op = "rating"
	OpAdvance     Op = "advance"
	OpRetreat     Op = "retreat"
	OpExit        Op = "exit"
	OpExpect      Op = "expect"
)

// Action is one scripted user action.
type Action struct {
	Op       Op      `yaml:"op"`
	Value    string  `yaml:"value,omitempty"`
	Item     string  `yaml:"item,omitempty"`
	Quantity float64 `yaml:"quantity,omitempty"`
	Index    int     `yaml:"index,omitempty"`
	Rating   int     `yaml:"rating,omitempty"`

	// Expect ops check the current step and, optionally, status.
	Step   string         `yaml:"step,omitempty"`
	Status captain.Status `yaml:"status,omitempty"`

	// ExpectError marks an input the flow is expected to refuse.
	ExpectError bool `yaml:"expect_error,omitempty"`
}

// Script describes which flow to run and the actions to replay.
type Script struct {
	// Flow is one of the built-in flows: job, check-in or check-out.
	Flow string `yaml:"flow,omitempty"`

	// Workflow is a path to a workflow definition, used instead of Flow.
	// Relative paths resolve against the script's directory.
	Workflow string `yaml:"workflow,omitempty"`

	Job       string `yaml:"job,omitempty"`
	Captain   string `yaml:"captain,omitempty"`
	RecordID  string `yaml:"record_id,omitempty"`
	TrackFuel bool   `yaml:"track_fuel,omitempty"`

	Actions []Action `yaml:"actions"`

	dir string
}

// LoadFile reads a script from a YAML file.
func LoadFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, err
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// Parse parses and validates a YAML script.
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that the script names a flow and only known ops.
func (s *Script) Validate() error {
	switch {
	case s.Flow == "" && s.Workflow == "":
		return fmt.Errorf("session requires a flow or a workflow")
	case s.Flow != "" && s.Workflow != "":
		return fmt.Errorf("session has both flow %q and workflow %q", s.Flow, s.Workflow)
	}
	switch s.Flow {
	case "", fieldops.CheckInFlow, fieldops.CheckOutFlow:
	case fieldops.JobFlow:
		if s.Job == "" {
			return fmt.Errorf("job flow requires a job id")
		}
	default:
		return fmt.Errorf("unknown flow %q", s.Flow)
	}
	for i, a := range s.Actions {
		switch a.Op {
		case OpAddImage, OpRemoveImage, OpToggle, OpQuantity, OpField, OpNotes,
			OpRating, OpAdvance, OpRetreat, OpExit, OpExpect:
		default:
			return fmt.Errorf("action %d: unknown op %q", i+1, a.Op)
		}
	}
	return nil
}

// Result is the outcome of a replay.
type Result struct {
	RecordID string
	Workflow string
	Events   []captain.Event
	Index    int
	Step     string
	Status   captain.Status
	Data     *captain.StepData
}

// Runner replays scripts.
type Runner struct {
	// Catalog defaults to fieldops.DefaultCatalog.
	Catalog *fieldops.Catalog

	// Repository backs the built-in flows.
	Repository fieldops.Repository

	// Store receives progress of workflow definition scripts.
	Store captain.Store

	Callbacks captain.Callbacks
	Logger    *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// ActionError reports the action a replay stopped at.
type ActionError struct {
	Index  int
	Action Action
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %d (%s): %s", e.Index+1, e.Action.Op, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Run replays the script. The result reflects the controller state when the
// replay ended, including when it ended with an error.
func (r *Runner) Run(ctx context.Context, s *Script) (*Result, error) {
	c, err := r.Start(ctx, s)
	if err != nil {
		return nil, err
	}
	result := &Result{RecordID: c.RecordID(), Workflow: c.Workflow().Name()}
	defer func() {
		result.Index = c.Index()
		result.Step = c.Step().Name
		result.Status = c.Status()
		result.Data = c.Data()
	}()

	for i, a := range s.Actions {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		event, err := apply(ctx, c, a)
		if event != captain.EventNone {
			result.Events = append(result.Events, event)
		}
		if a.ExpectError {
			if err == nil {
				return result, &ActionError{Index: i, Action: a, Err: fmt.Errorf("expected an error")}
			}
			continue
		}
		if err != nil {
			return result, &ActionError{Index: i, Action: a, Err: err}
		}
	}
	return result, nil
}

// Start returns a controller for the script's flow without replaying any
// actions.
func (r *Runner) Start(ctx context.Context, s *Script) (*captain.Controller, error) {
	catalog := r.Catalog
	if catalog == nil {
		catalog = fieldops.DefaultCatalog()
	}
	now := r.Now
	if now == nil {
		now = time.Now
	}
	opts := captain.ControllerOptions{
		RecordID:  s.RecordID,
		Callbacks: r.Callbacks,
		Logger:    r.Logger,
		Now:       now,
	}

	if s.Workflow != "" {
		path := s.Workflow
		if !filepath.IsAbs(path) && s.dir != "" {
			path = filepath.Join(s.dir, path)
		}
		w, err := captain.LoadFile(path)
		if err != nil {
			return nil, err
		}
		opts.Workflow = w
		opts.Store = r.Store
		return captain.NewController(opts)
	}

	if r.Repository == nil {
		return nil, fmt.Errorf("flow %q requires a repository", s.Flow)
	}
	captainID := s.Captain
	if captainID == "" {
		captainID = fieldops.SampleCaptain().ID
	}
	switch s.Flow {
	case fieldops.JobFlow:
		return fieldops.StartJob(ctx, catalog, r.Repository, s.Job, opts)
	case fieldops.CheckInFlow:
		return fieldops.StartCheckIn(catalog, r.Repository, captainID, opts)
	default:
		return fieldops.StartCheckOut(ctx, catalog, r.Repository, captainID, now(),
			fieldops.CheckOutOptions{TrackFuel: s.TrackFuel}, opts)
	}
}

func apply(ctx context.Context, c *captain.Controller, a Action) (captain.Event, error) {
	switch a.Op {
	case OpAddImage:
		return captain.EventNone, c.AddImage(a.Value)
	case OpRemoveImage:
		return captain.EventNone, c.RemoveImage(a.Index)
	case OpToggle:
		return captain.EventNone, c.ToggleItem(a.Item)
	case OpQuantity:
		return captain.EventNone, c.SetQuantity(a.Item, a.Quantity)
	case OpField:
		return captain.EventNone, c.SetField(a.Value)
	case OpNotes:
		return captain.EventNone, c.SetNotes(a.Value)
	case OpRating:
		return captain.EventNone, c.SetRating(a.Rating)
	case OpAdvance:
		return c.Advance(ctx)
	case OpRetreat:
		return c.Retreat(ctx)
	case OpExit:
		if err := c.ExitSave(ctx); err != nil {
			return captain.EventNone, err
		}
		return captain.EventExited, nil
	case OpExpect:
		if a.Step != "" && c.Step().Name != a.Step {
			return captain.EventNone, fmt.Errorf("expected step %q, at %q", a.Step, c.Step().Name)
		}
		if a.Status != "" && c.Status() != a.Status {
			return captain.EventNone, fmt.Errorf("expected status %q, got %q", a.Status, c.Status())
		}
		return captain.EventNone, nil
	}
	return captain.EventNone, fmt.Errorf("unknown op %q", a.Op)
}
