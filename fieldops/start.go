package fieldops

import (
	"context"
	"fmt"
	"time"

	"github.com/deepnoodle-ai/captain"
)

// StartJob returns a controller for executing a job. Saved progress from an
// earlier exit seeds the run, which starts again from the first step.
// opts.Workflow, opts.RecordID, opts.Store and opts.Data are set here.
func StartJob(ctx context.Context, c *Catalog, repo Repository, jobID string, opts captain.ControllerOptions) (*captain.Controller, error) {
	job, err := repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Closed() {
		return nil, fmt.Errorf("job %s: %w (%s)", jobID, ErrJobClosed, job.Status)
	}
	service, ok := c.Service(job.ServiceType)
	if !ok {
		return nil, captain.NewError(captain.ErrorTypeConfiguration,
			fmt.Sprintf("job %s has unknown service %q", jobID, job.ServiceType))
	}
	w, err := JobExecutionWorkflow(service)
	if err != nil {
		return nil, err
	}
	recorder := NewJobRecorder(repo, w)
	recorder.Now = opts.Now
	opts.Workflow = w
	opts.RecordID = job.ID
	opts.Store = recorder
	opts.Data = job.ResumeData(service)
	return captain.NewController(opts)
}

// StartCheckIn returns a controller for a captain's check-in under a new
// attendance record id.
func StartCheckIn(c *Catalog, repo Repository, captainID string, opts captain.ControllerOptions) (*captain.Controller, error) {
	w, err := CheckInWorkflow(c)
	if err != nil {
		return nil, err
	}
	recorder := NewCheckInRecorder(repo, w, captainID)
	recorder.Now = opts.Now
	opts.Workflow = w
	if opts.RecordID == "" {
		opts.RecordID = captain.NewID("att")
	}
	opts.Store = recorder
	return captain.NewController(opts)
}

// StartCheckOut returns a controller closing the captain's attendance record
// for the day of at. A record that is already checked out is rejected.
func StartCheckOut(ctx context.Context, c *Catalog, repo Repository, captainID string, at time.Time, checkOut CheckOutOptions, opts captain.ControllerOptions) (*captain.Controller, error) {
	record, err := TodayAttendance(ctx, repo, captainID, at)
	if err != nil {
		return nil, err
	}
	if record.CheckOutTime != nil {
		return nil, fmt.Errorf("attendance %s: %w", record.ID, ErrAlreadyCheckedOut)
	}
	w, err := CheckOutWorkflow(c, checkOut)
	if err != nil {
		return nil, err
	}
	recorder := NewCheckOutRecorder(repo)
	recorder.Now = opts.Now
	opts.Workflow = w
	opts.RecordID = record.ID
	opts.Store = recorder
	return captain.NewController(opts)
}

// TodayAttendance returns the captain's checked in record for the day of at.
func TodayAttendance(ctx context.Context, history AttendanceHistory, captainID string, at time.Time) (*AttendanceRecord, error) {
	records, err := history.ListAttendance(ctx, captainID, at, at)
	if err != nil {
		return nil, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].CheckInTime != nil {
			return records[i], nil
		}
	}
	return nil, fmt.Errorf("captain %s on %s: %w", captainID, at.Format(DateLayout), ErrNotCheckedIn)
}
