package fieldops

import (
	"errors"
	"slices"
	"time"
)

// AttendanceStatus is the state of one day's attendance record.
type AttendanceStatus string

const (
	AttendancePending AttendanceStatus = "pending"
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceHalfDay AttendanceStatus = "half-day"
)

// DateLayout is the layout of AttendanceRecord.Date.
const DateLayout = "2006-01-02"

// HalfDayThreshold is the shortest shift that still counts as a full day.
const HalfDayThreshold = 5 * time.Hour

// MockLocation stands in for a GPS fix at check-in.
var MockLocation = Location{Lat: 28.6139, Lng: 77.209}

// ErrNotCheckedIn is returned when checking out of a record without a
// check-in time.
var ErrNotCheckedIn = errors.New("not checked in")

// AttendanceRecord is one captain's attendance for one day.
type AttendanceRecord struct {
	ID                 string             `json:"id"`
	CaptainID          string             `json:"captain_id"`
	Date               string             `json:"date"`
	CheckInTime        *time.Time         `json:"check_in_time,omitempty"`
	CheckOutTime       *time.Time         `json:"check_out_time,omitempty"`
	CheckInSelfie      string             `json:"check_in_selfie,omitempty"`
	CheckInLocation    *Location          `json:"check_in_location,omitempty"`
	MaterialsChecked   []string           `json:"materials_checked"`
	MaterialQuantities map[string]float64 `json:"material_quantities,omitempty"`
	OpeningOdometer    *float64           `json:"opening_odometer,omitempty"`
	ClosingOdometer    *float64           `json:"closing_odometer,omitempty"`
	ClosingFuel        *float64           `json:"closing_fuel,omitempty"`
	Status             AttendanceStatus   `json:"status"`
	Notes              string             `json:"notes,omitempty"`
}

// Hours returns the worked hours, zero until checked out.
func (r *AttendanceRecord) Hours() float64 {
	if r.CheckInTime == nil || r.CheckOutTime == nil {
		return 0
	}
	d := r.CheckOutTime.Sub(*r.CheckInTime)
	if d < 0 {
		return 0
	}
	return d.Hours()
}

// DistanceTravelled returns the odometer difference over the day when both
// readings are known.
func (r *AttendanceRecord) DistanceTravelled() (float64, bool) {
	if r.OpeningOdometer == nil || r.ClosingOdometer == nil {
		return 0, false
	}
	return *r.ClosingOdometer - *r.OpeningOdometer, true
}

// Clone returns a deep copy of the record.
func (r *AttendanceRecord) Clone() *AttendanceRecord {
	out := *r
	out.MaterialsChecked = slices.Clone(r.MaterialsChecked)
	if r.MaterialQuantities != nil {
		out.MaterialQuantities = make(map[string]float64, len(r.MaterialQuantities))
		for k, v := range r.MaterialQuantities {
			out.MaterialQuantities[k] = v
		}
	}
	out.CheckInTime = cloneTime(r.CheckInTime)
	out.CheckOutTime = cloneTime(r.CheckOutTime)
	out.OpeningOdometer = cloneFloat(r.OpeningOdometer)
	out.ClosingOdometer = cloneFloat(r.ClosingOdometer)
	out.ClosingFuel = cloneFloat(r.ClosingFuel)
	if r.CheckInLocation != nil {
		loc := *r.CheckInLocation
		out.CheckInLocation = &loc
	}
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
