package captain

import (
	"context"
	"time"
)

// Status is the lifecycle state of a controller.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExited    Status = "exited"
)

// Progress is a snapshot of a workflow run handed to a Store. It owns its
// data; stores may keep it without copying.
type Progress struct {
	RecordID  string    `json:"record_id"`
	Workflow  string    `json:"workflow"`
	StepIndex int       `json:"step_index"`
	StepName  string    `json:"step_name"`
	Status    Status    `json:"status"`
	Data      *StepData `json:"data"`
	StartedAt time.Time `json:"started_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store receives workflow progress. The controller only ever writes to it.
type Store interface {
	// Upsert records partial progress. Repeated calls for the same id
	// overwrite earlier partial state.
	Upsert(ctx context.Context, id string, progress *Progress) error

	// Finalize records the completed run.
	Finalize(ctx context.Context, id string, progress *Progress) error
}
