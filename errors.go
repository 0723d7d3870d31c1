package captain

import (
	"errors"
	"fmt"

	"github.com/deepnoodle-ai/captain/retry"
)

// Error type constants for classification and matching
const (
	// ErrorTypeConfiguration marks a workflow definition that can never run,
	// e.g. an unknown step kind or a checklist reference that does not resolve.
	// These are programmer errors and are reported at construction time.
	ErrorTypeConfiguration = "configuration"

	// ErrorTypeStore marks a failure writing progress to the external store.
	// The controller keeps its in-memory progress when this happens so the
	// caller may simply try the transition again.
	ErrorTypeStore = "store"

	// ErrorTypeInput marks user input the current step refuses.
	ErrorTypeInput = "input"
)

var (
	// ErrFinished is returned by any transition or input once the workflow
	// has completed or been exited.
	ErrFinished = errors.New("workflow finished")

	// ErrWrongStepKind is returned when an input does not apply to the
	// current step (for example adding an image on a checklist step).
	ErrWrongStepKind = errors.New("input does not apply to current step")

	// ErrImageLimit is returned when a step already holds its maximum images.
	ErrImageLimit = errors.New("image limit reached")

	// ErrUnknownItem is returned for a checklist item id not in the checklist.
	ErrUnknownItem = errors.New("unknown checklist item")

	// ErrOutOfOrder is returned when checking an item of a sequential
	// checklist before the item preceding it.
	ErrOutOfOrder = errors.New("previous checklist item not checked")

	// ErrNoQuantity is returned when recording a quantity for an item that
	// does not track one.
	ErrNoQuantity = errors.New("checklist item has no quantity")

	// ErrQuantityRange is returned for negative quantities or quantities
	// above the item maximum.
	ErrQuantityRange = errors.New("quantity out of range")

	// ErrRatingRange is returned for ratings outside 0..5.
	ErrRatingRange = errors.New("rating out of range")

	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")
)

// Error represents a structured error with classification.
// It supports Go's error wrapping patterns with Unwrap() method
type Error struct {
	Type    string `json:"type"`
	Cause   string `json:"cause"`
	Wrapped error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Cause)
}

// Unwrap implements the error unwrapping interface for Go's errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// IsRecoverable reports whether retrying the failed operation may succeed.
// Only store errors are recoverable, and only when their cause is.
func (e *Error) IsRecoverable() bool {
	if e.Type != ErrorTypeStore {
		return false
	}
	return e.Wrapped == nil || retry.IsRecoverable(e.Wrapped)
}

// NewError creates a new Error with the specified type and cause.
func NewError(errorType, cause string) *Error {
	return &Error{Type: errorType, Cause: cause}
}

func configError(format string, args ...any) *Error {
	return &Error{Type: ErrorTypeConfiguration, Cause: fmt.Sprintf(format, args...)}
}

func storeError(op string, err error) *Error {
	return &Error{
		Type:    ErrorTypeStore,
		Cause:   fmt.Sprintf("%s: %s", op, err),
		Wrapped: err,
	}
}

func inputError(step string, err error) *Error {
	return &Error{
		Type:    ErrorTypeInput,
		Cause:   fmt.Sprintf("step %q: %s", step, err),
		Wrapped: err,
	}
}

// IsErrorType reports whether err is, or wraps, an *Error of the given type.
func IsErrorType(err error, errorType string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errorType
}
