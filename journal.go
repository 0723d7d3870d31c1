package captain

import (
	"context"
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// JournalEntry is one recorded controller transition. Entry IDs are ULIDs
// taken from the transition time, so they sort in the order entries happened.
type JournalEntry struct {
	ID        string    `json:"id"`
	RecordID  string    `json:"record_id"`
	Workflow  string    `json:"workflow"`
	Event     Event     `json:"event"`
	FromStep  string    `json:"from_step"`
	ToStep    string    `json:"to_step"`
	StepIndex int       `json:"step_index"`
	Time      time.Time `json:"time"`
}

// Journal keeps an append-only history of transitions per record.
type Journal interface {
	// Append records a transition
	Append(ctx context.Context, entry *JournalEntry) error

	// History retrieves the transitions recorded for a record
	History(ctx context.Context, recordID string) ([]*JournalEntry, error)
}

// JournalCallbacks appends every transition it receives to a Journal.
// Failures are reported to OnError and never interrupt the controller.
type JournalCallbacks struct {
	Journal Journal
	OnError func(err error)

	mutex   sync.Mutex
	entropy io.Reader
}

// NewJournalCallbacks returns callbacks that write to j.
func NewJournalCallbacks(j Journal) *JournalCallbacks {
	return &JournalCallbacks{Journal: j}
}

func (j *JournalCallbacks) record(ctx context.Context, event *TransitionEvent) {
	err := j.Journal.Append(ctx, &JournalEntry{
		ID:        j.newID(event.Time),
		RecordID:  event.RecordID,
		Workflow:  event.Workflow,
		Event:     event.Event,
		FromStep:  event.FromStep,
		ToStep:    event.ToStep,
		StepIndex: event.ToIndex,
		Time:      event.Time,
	})
	if err != nil && j.OnError != nil {
		j.OnError(err)
	}
}

func (j *JournalCallbacks) newID(t time.Time) string {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	if j.entropy == nil {
		j.entropy = ulid.Monotonic(rand.Reader, 0)
	}
	if t.Before(time.UnixMilli(0)) {
		t = time.Now()
	}
	return ulid.MustNew(ulid.Timestamp(t), j.entropy).String()
}

func (j *JournalCallbacks) OnAdvanced(ctx context.Context, event *TransitionEvent) {
	j.record(ctx, event)
}
func (j *JournalCallbacks) OnBlocked(ctx context.Context, event *TransitionEvent) {
	j.record(ctx, event)
}
func (j *JournalCallbacks) OnRetreated(ctx context.Context, event *TransitionEvent) {
	j.record(ctx, event)
}
func (j *JournalCallbacks) OnExitRequested(ctx context.Context, event *TransitionEvent) {
	j.record(ctx, event)
}
func (j *JournalCallbacks) OnExited(ctx context.Context, event *TransitionEvent) {
	j.record(ctx, event)
}
func (j *JournalCallbacks) OnCompleted(ctx context.Context, event *TransitionEvent) {
	j.record(ctx, event)
}
