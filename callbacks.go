package captain

import (
	"context"
	"time"
)

// Event names a controller transition.
type Event string

const (
	EventNone          Event = ""
	EventAdvanced      Event = "advanced"
	EventBlocked       Event = "blocked"
	EventRetreated     Event = "retreated"
	EventExitRequested Event = "exit_requested"
	EventExited        Event = "exited"
	EventCompleted     Event = "completed"
)

// TransitionEvent provides context for a controller transition.
type TransitionEvent struct {
	Event     Event
	RecordID  string
	Workflow  string
	FromIndex int
	FromStep  string
	ToIndex   int
	ToStep    string
	Time      time.Time
}

// Callbacks receives controller transitions. A host UI maps these to page
// navigation.
type Callbacks interface {
	OnAdvanced(ctx context.Context, event *TransitionEvent)
	OnBlocked(ctx context.Context, event *TransitionEvent)
	OnRetreated(ctx context.Context, event *TransitionEvent)
	OnExitRequested(ctx context.Context, event *TransitionEvent)
	OnExited(ctx context.Context, event *TransitionEvent)
	OnCompleted(ctx context.Context, event *TransitionEvent)
}

// BaseCallbacks provides a default implementation that does nothing.
// Embed this in your own callbacks to handle only some events.
type BaseCallbacks struct{}

func (b *BaseCallbacks) OnAdvanced(ctx context.Context, event *TransitionEvent)      {}
func (b *BaseCallbacks) OnBlocked(ctx context.Context, event *TransitionEvent)       {}
func (b *BaseCallbacks) OnRetreated(ctx context.Context, event *TransitionEvent)     {}
func (b *BaseCallbacks) OnExitRequested(ctx context.Context, event *TransitionEvent) {}
func (b *BaseCallbacks) OnExited(ctx context.Context, event *TransitionEvent)        {}
func (b *BaseCallbacks) OnCompleted(ctx context.Context, event *TransitionEvent)     {}

// CallbackChain allows chaining multiple callback implementations
type CallbackChain struct {
	callbacks []Callbacks
}

// NewCallbackChain creates a new callback chain
func NewCallbackChain(callbacks ...Callbacks) *CallbackChain {
	return &CallbackChain{callbacks: callbacks}
}

// Add adds a callback to the chain
func (c *CallbackChain) Add(callback Callbacks) {
	c.callbacks = append(c.callbacks, callback)
}

func (c *CallbackChain) OnAdvanced(ctx context.Context, event *TransitionEvent) {
	for _, callback := range c.callbacks {
		callback.OnAdvanced(ctx, event)
	}
}

func (c *CallbackChain) OnBlocked(ctx context.Context, event *TransitionEvent) {
	for _, callback := range c.callbacks {
		callback.OnBlocked(ctx, event)
	}
}

func (c *CallbackChain) OnRetreated(ctx context.Context, event *TransitionEvent) {
	for _, callback := range c.callbacks {
		callback.OnRetreated(ctx, event)
	}
}

func (c *CallbackChain) OnExitRequested(ctx context.Context, event *TransitionEvent) {
	for _, callback := range c.callbacks {
		callback.OnExitRequested(ctx, event)
	}
}

func (c *CallbackChain) OnExited(ctx context.Context, event *TransitionEvent) {
	for _, callback := range c.callbacks {
		callback.OnExited(ctx, event)
	}
}

func (c *CallbackChain) OnCompleted(ctx context.Context, event *TransitionEvent) {
	for _, callback := range c.callbacks {
		callback.OnCompleted(ctx, event)
	}
}

// CallbackFunc adapts a single function to Callbacks, receiving every event.
type CallbackFunc func(ctx context.Context, event *TransitionEvent)

func (f CallbackFunc) OnAdvanced(ctx context.Context, event *TransitionEvent)      { f(ctx, event) }
func (f CallbackFunc) OnBlocked(ctx context.Context, event *TransitionEvent)       { f(ctx, event) }
func (f CallbackFunc) OnRetreated(ctx context.Context, event *TransitionEvent)     { f(ctx, event) }
func (f CallbackFunc) OnExitRequested(ctx context.Context, event *TransitionEvent) { f(ctx, event) }
func (f CallbackFunc) OnExited(ctx context.Context, event *TransitionEvent)        { f(ctx, event) }
func (f CallbackFunc) OnCompleted(ctx context.Context, event *TransitionEvent)     { f(ctx, event) }
