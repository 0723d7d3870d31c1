package fieldops

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/deepnoodle-ai/captain"
)

// Repository persists jobs and attendance records. Lookups of missing
// records return an error wrapping captain.ErrNotFound.
type Repository interface {
	SaveJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	// ListJobs returns a captain's jobs ordered by scheduled time.
	ListJobs(ctx context.Context, captainID string) ([]*Job, error)

	SaveAttendance(ctx context.Context, record *AttendanceRecord) error
	GetAttendance(ctx context.Context, id string) (*AttendanceRecord, error)
	AttendanceHistory
}

// AttendanceHistory supplies past attendance records.
type AttendanceHistory interface {
	// ListAttendance returns a captain's records dated from..to inclusive,
	// ordered by date.
	ListAttendance(ctx context.Context, captainID string, from, to time.Time) ([]*AttendanceRecord, error)
}

// MemoryRepository is a Repository held in memory.
type MemoryRepository struct {
	mutex      sync.RWMutex
	jobs       map[string]*Job
	attendance map[string]*AttendanceRecord
}

// NewMemoryRepository returns a repository holding copies of jobs.
func NewMemoryRepository(jobs ...*Job) *MemoryRepository {
	r := &MemoryRepository{
		jobs:       map[string]*Job{},
		attendance: map[string]*AttendanceRecord{},
	}
	for _, job := range jobs {
		r.jobs[job.ID] = job.Clone()
	}
	return r
}

func (r *MemoryRepository) SaveJob(ctx context.Context, job *Job) error {
	if job.ID == "" {
		return fmt.Errorf("job id required")
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.jobs[job.ID] = job.Clone()
	return nil
}

func (r *MemoryRepository) GetJob(ctx context.Context, id string) (*Job, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, captain.ErrNotFound)
	}
	return job.Clone(), nil
}

func (r *MemoryRepository) ListJobs(ctx context.Context, captainID string) ([]*Job, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	var out []*Job
	for _, job := range r.jobs {
		if job.CaptainID == captainID {
			out = append(out, job.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out, nil
}

func (r *MemoryRepository) SaveAttendance(ctx context.Context, record *AttendanceRecord) error {
	if record.ID == "" {
		return fmt.Errorf("attendance id required")
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.attendance[record.ID] = record.Clone()
	return nil
}

func (r *MemoryRepository) GetAttendance(ctx context.Context, id string) (*AttendanceRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	record, ok := r.attendance[id]
	if !ok {
		return nil, fmt.Errorf("attendance %s: %w", id, captain.ErrNotFound)
	}
	return record.Clone(), nil
}

func (r *MemoryRepository) ListAttendance(ctx context.Context, captainID string, from, to time.Time) ([]*AttendanceRecord, error) {
	lo, hi := from.Format(DateLayout), to.Format(DateLayout)
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	var out []*AttendanceRecord
	for _, record := range r.attendance {
		if record.CaptainID == captainID && record.Date >= lo && record.Date <= hi {
			out = append(out, record.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date == out[j].Date {
			return out[i].ID < out[j].ID
		}
		return out[i].Date < out[j].Date
	})
	return out, nil
}
