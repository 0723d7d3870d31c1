package fieldops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func shift(id, date string, in, out int, status AttendanceStatus) *AttendanceRecord {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		panic(err)
	}
	r := &AttendanceRecord{ID: id, CaptainID: "CAP001", Date: date, Status: status}
	if in > 0 {
		t := day.Add(time.Duration(in) * time.Hour)
		r.CheckInTime = &t
	}
	if out > 0 {
		t := day.Add(time.Duration(out) * time.Hour)
		r.CheckOutTime = &t
	}
	return r
}

func TestMonthSummary(t *testing.T) {
	// March 2025 starts on a Saturday.
	today := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	records := []*AttendanceRecord{
		shift("a", "2025-03-03", 8, 17, AttendancePresent),
		shift("b", "2025-03-04", 8, 12, AttendanceHalfDay),
		shift("c", "2025-03-05", 9, 0, AttendancePresent),
		shift("d", "2025-03-08", 9, 13, AttendanceHalfDay),
		shift("e", "2025-03-12", 8, 0, AttendancePresent),
	}

	m := MonthSummary(2025, time.March, records, today)
	require.Equal(t, time.Saturday, m.Offset)
	require.Len(t, m.Days, 31)

	status := func(day int) DayStatus { return m.Days[day-1].Status }
	require.Equal(t, DayWeekend, status(1))
	require.Equal(t, DayWeekend, status(2))
	require.Equal(t, DayPresent, status(3))
	require.Equal(t, 9.0, m.Days[2].Hours)
	require.Equal(t, DayHalfDay, status(4))
	require.Equal(t, DayPresent, status(5), "an earlier open shift still counts")
	require.Equal(t, 0.0, m.Days[4].Hours)
	require.Equal(t, DayAbsent, status(6))
	require.Equal(t, DayAbsent, status(7))
	require.Equal(t, DayHalfDay, status(8), "weekend work is recorded")
	require.Equal(t, DayWeekend, status(9))
	require.Equal(t, DayPending, status(12))
	require.Equal(t, DayFuture, status(13))
	require.Equal(t, DayFuture, status(31))

	// Present: 3, 5. Half days: 4, 8. Absent: 6, 7, 10, 11.
	require.Equal(t, 2, m.Present)
	require.Equal(t, 2, m.HalfDays)
	require.Equal(t, 4, m.Absent)
	require.Equal(t, 17.0, m.Hours)
}

func TestMonthSummaryTodayWithoutRecord(t *testing.T) {
	today := time.Date(2025, 3, 3, 7, 0, 0, 0, time.UTC)
	m := MonthSummary(2025, time.March, nil, today)
	require.Equal(t, DayPending, m.Days[2].Status)
	require.Zero(t, m.Absent)

	past := MonthSummary(2025, time.February, nil, today)
	require.Len(t, past.Days, 28)
	require.Equal(t, 20, past.Absent)
}

func TestMonthSummaryPrefersCompleteRecord(t *testing.T) {
	today := time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC)
	records := []*AttendanceRecord{
		shift("z-pending", "2025-03-03", 0, 0, AttendancePending),
		shift("a-done", "2025-03-03", 8, 18, AttendancePresent),
		shift("abandoned", "2025-03-04", 0, 0, AttendancePending),
	}
	m := MonthSummary(2025, time.March, records, today)
	require.Equal(t, DayPresent, m.Days[2].Status)
	require.Equal(t, 10.0, m.Days[2].Hours)
	require.Equal(t, DayAbsent, m.Days[3].Status)
}

func TestLoadMonth(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.SaveAttendance(ctx, shift("a", "2025-02-28", 8, 17, AttendancePresent)))
	require.NoError(t, repo.SaveAttendance(ctx, shift("b", "2025-03-03", 8, 17, AttendancePresent)))
	require.NoError(t, repo.SaveAttendance(ctx, shift("c", "2025-03-31", 8, 17, AttendancePresent)))
	require.NoError(t, repo.SaveAttendance(ctx, shift("d", "2025-04-01", 8, 17, AttendancePresent)))

	today := time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)
	m, err := LoadMonth(ctx, repo, "CAP001", 2025, time.March, today)
	require.NoError(t, err)
	require.Equal(t, 2, m.Present)
	require.Equal(t, 18.0, m.Hours)
}
