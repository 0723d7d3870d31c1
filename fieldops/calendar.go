package fieldops

import (
	"context"
	"time"
)

// DayStatus classifies one calendar day.
type DayStatus string

const (
	DayPresent DayStatus = "present"
	DayAbsent  DayStatus = "absent"
	DayHalfDay DayStatus = "half-day"
	DayPending DayStatus = "pending"
	DayFuture  DayStatus = "future"
	DayWeekend DayStatus = "weekend"
)

// Day is one day of an attendance month.
type Day struct {
	Date   time.Time `json:"date"`
	Status DayStatus `json:"status"`
	Hours  float64   `json:"hours,omitempty"`
}

// Month summarizes a captain's attendance over a calendar month.
type Month struct {
	Year     int          `json:"year"`
	Month    time.Month   `json:"month"`
	Days     []Day        `json:"days"`
	Present  int          `json:"present"`
	Absent   int          `json:"absent"`
	HalfDays int          `json:"half_days"`
	Hours    float64      `json:"hours"`
	Offset   time.Weekday `json:"offset"` // weekday of the first day
}

// MonthSummary classifies every day of the month from the given records.
// Days after today are future. A weekend day without a record is a weekend
// and a past weekday without one is absent. Today without a record is still
// pending.
func MonthSummary(year int, month time.Month, records []*AttendanceRecord, today time.Time) *Month {
	loc := today.Location()
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	todayDate := today.Format(DateLayout)

	byDate := make(map[string]*AttendanceRecord, len(records))
	for _, r := range records {
		if prev, ok := byDate[r.Date]; ok && rank(prev) >= rank(r) {
			continue
		}
		byDate[r.Date] = r
	}

	m := &Month{Year: year, Month: month, Offset: first.Weekday()}
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		key := d.Format(DateLayout)
		day := Day{Date: d}
		record, ok := byDate[key]
		weekend := d.Weekday() == time.Saturday || d.Weekday() == time.Sunday
		switch {
		case key > todayDate:
			day.Status = DayFuture
		case ok:
			day.Status, day.Hours = recordDay(record, key == todayDate)
		case weekend:
			day.Status = DayWeekend
		case key == todayDate:
			day.Status = DayPending
		default:
			day.Status = DayAbsent
		}
		switch day.Status {
		case DayPresent:
			m.Present++
		case DayAbsent:
			m.Absent++
		case DayHalfDay:
			m.HalfDays++
		}
		m.Hours += day.Hours
		m.Days = append(m.Days, day)
	}
	return m
}

// recordDay classifies a day with a record. A shift still open today is
// pending; one left open on an earlier day counts as present without hours.
// An unfinished check-in only counts on the day itself.
func recordDay(r *AttendanceRecord, today bool) (DayStatus, float64) {
	switch r.Status {
	case AttendancePresent:
		if r.CheckOutTime == nil && today {
			return DayPending, 0
		}
		return DayPresent, r.Hours()
	case AttendanceHalfDay:
		return DayHalfDay, r.Hours()
	}
	if today && r.Status == AttendancePending {
		return DayPending, 0
	}
	return DayAbsent, 0
}

// rank orders records for the same day so the most complete one wins.
func rank(r *AttendanceRecord) int {
	switch {
	case r.CheckOutTime != nil:
		return 3
	case r.CheckInTime != nil:
		return 2
	case r.Status == AttendanceAbsent:
		return 1
	}
	return 0
}

// LoadMonth reads a captain's records for the month from history and
// summarizes them.
func LoadMonth(ctx context.Context, history AttendanceHistory, captainID string, year int, month time.Month, today time.Time) (*Month, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, today.Location())
	last := first.AddDate(0, 1, -1)
	records, err := history.ListAttendance(ctx, captainID, first, last)
	if err != nil {
		return nil, err
	}
	return MonthSummary(year, month, records, today), nil
}
