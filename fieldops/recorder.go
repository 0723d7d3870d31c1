package fieldops

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/deepnoodle-ai/captain"
)

var (
	// ErrAlreadyCheckedIn is returned when a check-in record has already
	// been finalized.
	ErrAlreadyCheckedIn = errors.New("already checked in")

	// ErrAlreadyCheckedOut is returned when checking out twice.
	ErrAlreadyCheckedOut = errors.New("already checked out")
)

// JobRecorder stores job flow progress on the job itself. Progress is
// stored under the job id.
type JobRecorder struct {
	repo     Repository
	workflow *captain.Workflow

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewJobRecorder returns a store writing job progress to repo.
func NewJobRecorder(repo Repository, w *captain.Workflow) *JobRecorder {
	return &JobRecorder{repo: repo, workflow: w}
}

func (r *JobRecorder) Upsert(ctx context.Context, id string, progress *captain.Progress) error {
	job, err := r.load(ctx, id)
	if err != nil {
		return err
	}
	r.apply(job, progress)
	job.Status = JobOngoing
	if job.StartedAt == nil {
		started := progress.StartedAt
		if started.IsZero() {
			started = now(r.Now)
		}
		job.StartedAt = &started
	}
	return r.repo.SaveJob(ctx, job)
}

func (r *JobRecorder) Finalize(ctx context.Context, id string, progress *captain.Progress) error {
	job, err := r.load(ctx, id)
	if err != nil {
		return err
	}
	r.apply(job, progress)
	completed := now(r.Now)
	job.Status = JobCompleted
	job.CompletedAt = &completed
	if job.StartedAt == nil {
		job.StartedAt = &completed
	}
	return r.repo.SaveJob(ctx, job)
}

func (r *JobRecorder) load(ctx context.Context, id string) (*Job, error) {
	job, err := r.repo.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Closed() {
		return nil, fmt.Errorf("job %s: %w (%s)", id, ErrJobClosed, job.Status)
	}
	return job, nil
}

func (r *JobRecorder) apply(job *Job, progress *captain.Progress) {
	rec := NewJobExecutionRecord(r.workflow, progress.Data)
	job.BeforeImages = rec.BeforeImages
	job.CompletedSteps = rec.CompletedSteps
	job.AfterImages = rec.AfterImages
	job.Notes = rec.Notes
	job.Rating = rec.Rating
}

// CheckInRecorder stores check-in flow progress as the day's attendance
// record. The record stays pending until the flow completes.
type CheckInRecorder struct {
	repo      Repository
	workflow  *captain.Workflow
	captainID string

	// Location is recorded as the check-in position. Defaults to
	// MockLocation.
	Location *Location

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewCheckInRecorder returns a store writing a captain's check-in to repo.
func NewCheckInRecorder(repo Repository, w *captain.Workflow, captainID string) *CheckInRecorder {
	return &CheckInRecorder{repo: repo, workflow: w, captainID: captainID}
}

func (r *CheckInRecorder) Upsert(ctx context.Context, id string, progress *captain.Progress) error {
	return r.write(ctx, id, progress, false)
}

func (r *CheckInRecorder) Finalize(ctx context.Context, id string, progress *captain.Progress) error {
	return r.write(ctx, id, progress, true)
}

func (r *CheckInRecorder) write(ctx context.Context, id string, progress *captain.Progress, final bool) error {
	at := now(r.Now)
	record, err := r.repo.GetAttendance(ctx, id)
	switch {
	case errors.Is(err, captain.ErrNotFound):
		record = &AttendanceRecord{
			ID:        id,
			CaptainID: r.captainID,
			Date:      at.Format(DateLayout),
			Status:    AttendancePending,
		}
	case err != nil:
		return err
	case record.Status != AttendancePending:
		return fmt.Errorf("attendance %s: %w", id, ErrAlreadyCheckedIn)
	}

	data := progress.Data
	if selfie := data.ImagesFor(StepSelfie); len(selfie) > 0 {
		record.CheckInSelfie = selfie[0]
	}
	record.MaterialsChecked = []string{}
	record.MaterialQuantities = nil
	if checklist, ok := r.workflow.ChecklistFor(StepMaterials); ok {
		state := data.ChecklistFor(StepMaterials)
		record.MaterialsChecked = checklist.CheckedIDs(state)
		for _, itemID := range record.MaterialsChecked {
			if q := state[itemID].Quantity; q != nil {
				if record.MaterialQuantities == nil {
					record.MaterialQuantities = map[string]float64{}
				}
				record.MaterialQuantities[itemID] = *q
			}
		}
	}
	record.OpeningOdometer = parseReading(data.Field(FieldOpeningOdometer))

	if final {
		loc := MockLocation
		if r.Location != nil {
			loc = *r.Location
		}
		record.CheckInTime = &at
		record.CheckInLocation = &loc
		record.Status = AttendancePresent
	}
	return r.repo.SaveAttendance(ctx, record)
}

// CheckOutRecorder stores check-out flow progress on an existing attendance
// record. Progress is stored under the attendance record id.
type CheckOutRecorder struct {
	repo Repository

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewCheckOutRecorder returns a store closing attendance records in repo.
func NewCheckOutRecorder(repo Repository) *CheckOutRecorder {
	return &CheckOutRecorder{repo: repo}
}

func (r *CheckOutRecorder) Upsert(ctx context.Context, id string, progress *captain.Progress) error {
	return r.write(ctx, id, progress, false)
}

func (r *CheckOutRecorder) Finalize(ctx context.Context, id string, progress *captain.Progress) error {
	return r.write(ctx, id, progress, true)
}

func (r *CheckOutRecorder) write(ctx context.Context, id string, progress *captain.Progress, final bool) error {
	record, err := r.repo.GetAttendance(ctx, id)
	if err != nil {
		return err
	}
	if record.CheckInTime == nil {
		return fmt.Errorf("attendance %s: %w", id, ErrNotCheckedIn)
	}
	if record.CheckOutTime != nil {
		return fmt.Errorf("attendance %s: %w", id, ErrAlreadyCheckedOut)
	}

	data := progress.Data
	record.ClosingOdometer = parseReading(data.Field(FieldClosingOdometer))
	record.ClosingFuel = parseReading(data.Field(FieldClosingFuel))
	record.Notes = data.Notes

	if final {
		at := now(r.Now)
		record.CheckOutTime = &at
		record.Status = AttendancePresent
		if at.Sub(*record.CheckInTime) < HalfDayThreshold {
			record.Status = AttendanceHalfDay
		}
	}
	return r.repo.SaveAttendance(ctx, record)
}

func parseReading(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func now(fn func() time.Time) time.Time {
	if fn == nil {
		return time.Now()
	}
	return fn()
}
