// Package fieldopstest provides shared checks for fieldops.Repository
// implementations.
package fieldopstest

import (
	"context"
	"testing"
	"time"

	"github.com/deepnoodle-ai/captain"
	"github.com/deepnoodle-ai/captain/fieldops"
	"github.com/stretchr/testify/require"
)

// RunRepositoryContract checks the behavior every fieldops.Repository must
// share. repo must be empty.
func RunRepositoryContract(t *testing.T, repo fieldops.Repository) {
	t.Helper()
	ctx := context.Background()
	day := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	_, err := repo.GetJob(ctx, "JOB001")
	require.ErrorIs(t, err, captain.ErrNotFound)

	jobs := fieldops.SampleJobs("CAP001", day)
	for i := len(jobs) - 1; i >= 0; i-- {
		require.NoError(t, repo.SaveJob(ctx, jobs[i]))
	}
	other := jobs[0].Clone()
	other.ID = "JOB900"
	other.CaptainID = "CAP002"
	require.NoError(t, repo.SaveJob(ctx, other))

	listed, err := repo.ListJobs(ctx, "CAP001")
	require.NoError(t, err)
	require.Len(t, listed, 3)
	require.Equal(t, []string{"JOB001", "JOB002", "JOB003"}, []string{listed[0].ID, listed[1].ID, listed[2].ID})

	job, err := repo.GetJob(ctx, "JOB001")
	require.NoError(t, err)
	started := day.Add(9 * time.Hour)
	job.Status = fieldops.JobOngoing
	job.BeforeImages = []string{"b1", "b2"}
	job.CompletedSteps = []string{"1"}
	job.StartedAt = &started
	require.NoError(t, repo.SaveJob(ctx, job))

	job, err = repo.GetJob(ctx, "JOB001")
	require.NoError(t, err)
	require.Equal(t, fieldops.JobOngoing, job.Status)
	require.Equal(t, []string{"b1", "b2"}, job.BeforeImages)
	require.Equal(t, []string{"1"}, job.CompletedSteps)
	require.Empty(t, job.AfterImages)
	require.True(t, started.Equal(*job.StartedAt))
	require.Nil(t, job.CompletedAt)
	require.Equal(t, 28.4595, job.Location.Lat)

	_, err = repo.GetAttendance(ctx, "att-1")
	require.ErrorIs(t, err, captain.ErrNotFound)

	checkIn := day.Add(8 * time.Hour)
	odometer := 45210.0
	record := &fieldops.AttendanceRecord{
		ID:                 "att-1",
		CaptainID:          "CAP001",
		Date:               "2025-03-04",
		CheckInTime:        &checkIn,
		CheckInSelfie:      "selfie.jpg",
		CheckInLocation:    &fieldops.MockLocation,
		MaterialsChecked:   []string{"1", "3"},
		MaterialQuantities: map[string]float64{"3": 0.5},
		OpeningOdometer:    &odometer,
		Status:             fieldops.AttendancePresent,
	}
	require.NoError(t, repo.SaveAttendance(ctx, record))
	require.NoError(t, repo.SaveAttendance(ctx, &fieldops.AttendanceRecord{
		ID: "att-0", CaptainID: "CAP001", Date: "2025-03-03", Status: fieldops.AttendanceAbsent,
	}))
	require.NoError(t, repo.SaveAttendance(ctx, &fieldops.AttendanceRecord{
		ID: "att-9", CaptainID: "CAP001", Date: "2025-03-05", Status: fieldops.AttendancePending,
	}))

	got, err := repo.GetAttendance(ctx, "att-1")
	require.NoError(t, err)
	require.Equal(t, []string{"1", "3"}, got.MaterialsChecked)
	require.Equal(t, 0.5, got.MaterialQuantities["3"])
	require.Equal(t, odometer, *got.OpeningOdometer)
	require.Equal(t, fieldops.MockLocation, *got.CheckInLocation)
	require.True(t, checkIn.Equal(*got.CheckInTime))
	require.Nil(t, got.CheckOutTime)
	require.Nil(t, got.ClosingFuel)

	checkOut := day.Add(17 * time.Hour)
	got.CheckOutTime = &checkOut
	got.Notes = "done"
	require.NoError(t, repo.SaveAttendance(ctx, got))
	got, err = repo.GetAttendance(ctx, "att-1")
	require.NoError(t, err)
	require.Equal(t, 9.0, got.Hours())
	require.Equal(t, "done", got.Notes)

	records, err := repo.ListAttendance(ctx, "CAP001", day.AddDate(0, 0, -1), day)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "att-0", records[0].ID)
	require.Equal(t, "att-1", records[1].ID)

	records, err = repo.ListAttendance(ctx, "CAP002", day.AddDate(0, 0, -1), day)
	require.NoError(t, err)
	require.Empty(t, records)
}
