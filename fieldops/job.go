package fieldops

import (
	"errors"
	"slices"
	"time"

	"github.com/deepnoodle-ai/captain"
)

// JobStatus is the lifecycle state of a customer job.
type JobStatus string

const (
	JobScheduled JobStatus = "scheduled"
	JobOngoing   JobStatus = "ongoing"
	JobCompleted JobStatus = "completed"
	JobCancelled JobStatus = "cancelled"
)

// PaymentStatus is how a job is paid for.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentCOD     PaymentStatus = "cod"
)

// ErrJobClosed is returned when writing progress for a job that is already
// completed or cancelled.
var ErrJobClosed = errors.New("job is closed")

// Location is a WGS84 coordinate.
type Location struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Captain is a field service worker.
type Captain struct {
	ID         string  `json:"id" yaml:"id"`
	Name       string  `json:"name" yaml:"name"`
	Phone      string  `json:"phone" yaml:"phone"`
	Rating     float64 `json:"rating" yaml:"rating"`
	TotalJobs  int     `json:"total_jobs" yaml:"total_jobs"`
	JoinedDate string  `json:"joined_date" yaml:"joined_date"`
}

// Job is a customer booking assigned to a captain.
type Job struct {
	ID                string        `json:"id" yaml:"id"`
	CaptainID         string        `json:"captain_id" yaml:"captain_id"`
	ServiceType       string        `json:"service_type" yaml:"service_type"`
	ServiceName       string        `json:"service_name" yaml:"service_name"`
	CustomerName      string        `json:"customer_name" yaml:"customer_name"`
	CustomerPhone     string        `json:"customer_phone" yaml:"customer_phone"`
	Address           string        `json:"address" yaml:"address"`
	Location          Location      `json:"location" yaml:"location"`
	ScheduledAt       time.Time     `json:"scheduled_at" yaml:"scheduled_at"`
	EstimatedDuration int           `json:"estimated_duration" yaml:"estimated_duration"`
	Status            JobStatus     `json:"status" yaml:"status"`
	PaymentStatus     PaymentStatus `json:"payment_status" yaml:"payment_status"`
	PaymentAmount     float64       `json:"payment_amount" yaml:"payment_amount"`
	DistanceKm        float64       `json:"distance_km,omitempty" yaml:"distance_km,omitempty"`
	BeforeImages      []string      `json:"before_images" yaml:"before_images"`
	AfterImages       []string      `json:"after_images" yaml:"after_images"`
	CompletedSteps    []string      `json:"completed_steps" yaml:"completed_steps"`
	StartedAt         *time.Time    `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Notes             string        `json:"notes,omitempty" yaml:"notes,omitempty"`
	Rating            int           `json:"rating,omitempty" yaml:"rating,omitempty"`
}

// Closed reports whether the job no longer accepts progress.
func (j *Job) Closed() bool {
	return j.Status == JobCompleted || j.Status == JobCancelled
}

// Clone returns a deep copy of the job.
func (j *Job) Clone() *Job {
	out := *j
	out.BeforeImages = slices.Clone(j.BeforeImages)
	out.AfterImages = slices.Clone(j.AfterImages)
	out.CompletedSteps = slices.Clone(j.CompletedSteps)
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// ResumeData returns step data seeded from the job's saved progress so an
// exited job can be picked up where it was left.
func (j *Job) ResumeData(service *ServiceConfig) *captain.StepData {
	data := captain.NewStepData()
	if len(j.BeforeImages) > 0 {
		data.Images[StepBeforeImages] = slices.Clone(j.BeforeImages)
	}
	if len(j.AfterImages) > 0 {
		data.Images[StepAfterImages] = slices.Clone(j.AfterImages)
	}
	if len(j.CompletedSteps) > 0 {
		state := captain.ChecklistState{}
		for _, id := range j.CompletedSteps {
			state[id] = captain.ItemState{Checked: true}
		}
		data.Checklists[StepServiceSteps] = state
	}
	data.Notes = j.Notes
	return data
}

// JobExecutionRecord is the evidence a completed job run produced.
type JobExecutionRecord struct {
	BeforeImages   []string `json:"before_images"`
	CompletedSteps []string `json:"completed_steps"`
	AfterImages    []string `json:"after_images"`
	Notes          string   `json:"notes,omitempty"`
	Rating         int      `json:"rating,omitempty"`
}

// NewJobExecutionRecord extracts the execution record from job flow data.
// Completed steps are listed in service order.
func NewJobExecutionRecord(w *captain.Workflow, data *captain.StepData) JobExecutionRecord {
	completed := []string{}
	if checklist, ok := w.ChecklistFor(StepServiceSteps); ok {
		completed = checklist.CheckedIDs(data.ChecklistFor(StepServiceSteps))
	}
	rec := JobExecutionRecord{
		BeforeImages:   slices.Clone(data.ImagesFor(StepBeforeImages)),
		CompletedSteps: completed,
		AfterImages:    slices.Clone(data.ImagesFor(StepAfterImages)),
	}
	if data != nil {
		rec.Notes = data.Notes
		rec.Rating = data.Rating
	}
	if rec.BeforeImages == nil {
		rec.BeforeImages = []string{}
	}
	if rec.AfterImages == nil {
		rec.AfterImages = []string{}
	}
	return rec
}

// SampleCaptain returns the demo captain.
func SampleCaptain() *Captain {
	return &Captain{
		ID:         "CAP001",
		Name:       "Rajesh Kumar",
		Phone:      "+91 98765 43210",
		Rating:     4.8,
		TotalJobs:  342,
		JoinedDate: "2023-06-15",
	}
}

// SampleJobs returns the demo jobs for a captain, scheduled on day.
func SampleJobs(captainID string, day time.Time) []*Job {
	at := func(hour, minute int) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
	}
	return []*Job{
		{
			ID:                "JOB001",
			CaptainID:         captainID,
			ServiceType:       "car_wash",
			ServiceName:       "Car Wash & Detailing",
			CustomerName:      "Amit Sharma",
			CustomerPhone:     "+91 99887 76655",
			Address:           "A-204, Green Valley Apartments, Sector 45, Gurugram",
			Location:          Location{Lat: 28.4595, Lng: 77.0266},
			ScheduledAt:       at(9, 0),
			EstimatedDuration: 45,
			Status:            JobScheduled,
			PaymentStatus:     PaymentPending,
			PaymentAmount:     599,
			DistanceKm:        2.5,
		},
		{
			ID:                "JOB002",
			CaptainID:         captainID,
			ServiceType:       "sofa_cleaning",
			ServiceName:       "Sofa Deep Cleaning",
			CustomerName:      "Priya Patel",
			CustomerPhone:     "+91 88776 65544",
			Address:           "B-12, Sunshine Towers, MG Road, Bangalore",
			Location:          Location{Lat: 12.9716, Lng: 77.5946},
			ScheduledAt:       at(11, 30),
			EstimatedDuration: 60,
			Status:            JobScheduled,
			PaymentStatus:     PaymentPaid,
			PaymentAmount:     1299,
			DistanceKm:        4.2,
		},
		{
			ID:                "JOB003",
			CaptainID:         captainID,
			ServiceType:       "home_cleaning",
			ServiceName:       "Home Deep Cleaning",
			CustomerName:      "Vikram Singh",
			CustomerPhone:     "+91 77665 54433",
			Address:           "C-78, Palm Grove Society, Andheri West, Mumbai",
			Location:          Location{Lat: 19.1196, Lng: 72.8463},
			ScheduledAt:       at(15, 0),
			EstimatedDuration: 120,
			Status:            JobScheduled,
			PaymentStatus:     PaymentCOD,
			PaymentAmount:     2499,
			DistanceKm:        6.8,
		},
	}
}
