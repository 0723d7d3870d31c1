package fieldops

import (
	"context"
	"testing"
	"time"

	"github.com/deepnoodle-ai/captain"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestJobRun(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)}
	repo := NewMemoryRepository(SampleJobs("CAP001", clk.t)...)

	c, err := StartJob(ctx, DefaultCatalog(), repo, "JOB001", captain.ControllerOptions{Now: clk.Now})
	require.NoError(t, err)
	require.Equal(t, "JOB001", c.RecordID())

	require.NoError(t, c.AddImage("before-1"))
	require.NoError(t, c.AddImage("before-2"))
	event, err := c.Advance(ctx)
	require.NoError(t, err)
	require.Equal(t, captain.EventAdvanced, event)

	job, err := repo.GetJob(ctx, "JOB001")
	require.NoError(t, err)
	require.Equal(t, JobOngoing, job.Status)
	require.Equal(t, []string{"before-1", "before-2"}, job.BeforeImages)
	require.NotNil(t, job.StartedAt)
	started := *job.StartedAt

	clk.Advance(20 * time.Minute)
	for _, id := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		require.NoError(t, c.ToggleItem(id))
	}
	_, err = c.Advance(ctx)
	require.NoError(t, err)

	job, err = repo.GetJob(ctx, "JOB001")
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7"}, job.CompletedSteps)
	require.True(t, started.Equal(*job.StartedAt), "started time is set once")

	require.NoError(t, c.AddImage("after-1"))
	require.NoError(t, c.AddImage("after-2"))
	_, err = c.Advance(ctx)
	require.NoError(t, err)

	require.NoError(t, c.SetNotes("Customer happy"))
	require.NoError(t, c.SetRating(5))
	clk.Advance(25 * time.Minute)
	event, err = c.Advance(ctx)
	require.NoError(t, err)
	require.Equal(t, captain.EventCompleted, event)

	job, err = repo.GetJob(ctx, "JOB001")
	require.NoError(t, err)
	require.Equal(t, JobCompleted, job.Status)
	require.Equal(t, []string{"after-1", "after-2"}, job.AfterImages)
	require.Equal(t, "Customer happy", job.Notes)
	require.Equal(t, 5, job.Rating)
	require.Equal(t, clk.t, *job.CompletedAt)

	_, err = StartJob(ctx, DefaultCatalog(), repo, "JOB001", captain.ControllerOptions{})
	require.ErrorIs(t, err, ErrJobClosed)
}

func TestJobSaveAndResume(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(SampleJobs("CAP001", time.Now())...)
	catalog := DefaultCatalog()

	c, err := StartJob(ctx, catalog, repo, "JOB002", captain.ControllerOptions{})
	require.NoError(t, err)
	require.NoError(t, c.AddImage("b1"))
	require.NoError(t, c.AddImage("b2"))
	_, err = c.Advance(ctx)
	require.NoError(t, err)
	require.NoError(t, c.ToggleItem("1"))
	require.NoError(t, c.ToggleItem("2"))
	require.NoError(t, c.ExitSave(ctx))

	job, err := repo.GetJob(ctx, "JOB002")
	require.NoError(t, err)
	require.Equal(t, JobOngoing, job.Status)
	require.Equal(t, []string{"1", "2"}, job.CompletedSteps)

	resumed, err := StartJob(ctx, catalog, repo, "JOB002", captain.ControllerOptions{})
	require.NoError(t, err)
	require.Equal(t, 0, resumed.Index())
	require.True(t, resumed.CanAdvance())
	_, err = resumed.Advance(ctx)
	require.NoError(t, err)
	require.NoError(t, resumed.ToggleItem("3"))

	rec := NewJobExecutionRecord(resumed.Workflow(), resumed.Data())
	require.Equal(t, []string{"b1", "b2"}, rec.BeforeImages)
	require.Equal(t, []string{"1", "2", "3"}, rec.CompletedSteps)
	require.Equal(t, []string{}, rec.AfterImages)
}

func TestJobRecorderRejectsClosedJobs(t *testing.T) {
	ctx := context.Background()
	job := SampleJobs("CAP001", time.Now())[0]
	job.Status = JobCancelled
	repo := NewMemoryRepository(job)

	service, _ := DefaultCatalog().Service(job.ServiceType)
	w, err := JobExecutionWorkflow(service)
	require.NoError(t, err)
	recorder := NewJobRecorder(repo, w)

	err = recorder.Upsert(ctx, job.ID, &captain.Progress{Data: captain.NewStepData()})
	require.ErrorIs(t, err, ErrJobClosed)
	err = recorder.Upsert(ctx, "JOB404", &captain.Progress{Data: captain.NewStepData()})
	require.ErrorIs(t, err, captain.ErrNotFound)
}

func TestCheckInAndCheckOut(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC)}
	repo := NewMemoryRepository()
	catalog := DefaultCatalog()

	in, err := StartCheckIn(catalog, repo, "CAP001", captain.ControllerOptions{Now: clk.Now})
	require.NoError(t, err)

	require.NoError(t, in.AddImage("selfie.jpg"))
	require.ErrorIs(t, in.AddImage("second.jpg"), captain.ErrImageLimit)
	_, err = in.Advance(ctx)
	require.NoError(t, err)

	pending, err := repo.GetAttendance(ctx, in.RecordID())
	require.NoError(t, err)
	require.Equal(t, AttendancePending, pending.Status)
	require.Equal(t, "selfie.jpg", pending.CheckInSelfie)
	require.Nil(t, pending.CheckInTime)

	event, err := in.Advance(ctx)
	require.NoError(t, err)
	require.Equal(t, captain.EventBlocked, event)

	for _, item := range catalog.Materials {
		if item.HasQuantity {
			require.NoError(t, in.SetQuantity(item.ID, item.MinQuantity))
		} else if item.Required {
			require.NoError(t, in.ToggleItem(item.ID))
		}
	}
	require.ErrorIs(t, in.SetQuantity("3", 11), captain.ErrQuantityRange)
	_, err = in.Advance(ctx)
	require.NoError(t, err)

	require.NoError(t, in.SetField("0"))
	event, err = in.Advance(ctx)
	require.NoError(t, err)
	require.Equal(t, captain.EventBlocked, event)
	require.NoError(t, in.SetField("45210"))
	event, err = in.Advance(ctx)
	require.NoError(t, err)
	require.Equal(t, captain.EventCompleted, event)

	record, err := repo.GetAttendance(ctx, in.RecordID())
	require.NoError(t, err)
	require.Equal(t, AttendancePresent, record.Status)
	require.Equal(t, "2025-03-04", record.Date)
	require.Equal(t, "CAP001", record.CaptainID)
	require.Equal(t, []string{"1", "2", "3", "4", "6", "7", "8"}, record.MaterialsChecked)
	require.Equal(t, 0.5, record.MaterialQuantities["3"])
	require.Equal(t, 45210.0, *record.OpeningOdometer)
	require.Equal(t, MockLocation, *record.CheckInLocation)
	require.Equal(t, clk.t, *record.CheckInTime)

	clk.Advance(9 * time.Hour)
	out, err := StartCheckOut(ctx, catalog, repo, "CAP001", clk.t, CheckOutOptions{}, captain.ControllerOptions{Now: clk.Now})
	require.NoError(t, err)
	require.Equal(t, record.ID, out.RecordID())

	require.NoError(t, out.SetField("45300"))
	_, err = out.Advance(ctx)
	require.NoError(t, err)
	require.NoError(t, out.SetNotes("Van needs a wash"))
	_, err = out.Advance(ctx)
	require.NoError(t, err)

	record, err = repo.GetAttendance(ctx, in.RecordID())
	require.NoError(t, err)
	require.Equal(t, AttendancePresent, record.Status)
	require.Equal(t, 9.0, record.Hours())
	require.Equal(t, "Van needs a wash", record.Notes)
	distance, ok := record.DistanceTravelled()
	require.True(t, ok)
	require.Equal(t, 90.0, distance)

	_, err = StartCheckOut(ctx, catalog, repo, "CAP001", clk.t, CheckOutOptions{}, captain.ControllerOptions{})
	require.ErrorIs(t, err, ErrAlreadyCheckedOut)
	err = NewCheckOutRecorder(repo).Finalize(ctx, record.ID, &captain.Progress{Data: captain.NewStepData()})
	require.ErrorIs(t, err, ErrAlreadyCheckedOut)
}

func TestShortShiftIsHalfDay(t *testing.T) {
	ctx := context.Background()
	checkIn := time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository()
	require.NoError(t, repo.SaveAttendance(ctx, &AttendanceRecord{
		ID: "att-1", CaptainID: "CAP001", Date: "2025-03-04",
		CheckInTime: &checkIn, Status: AttendancePresent,
	}))

	data := captain.NewStepData()
	data.Fields[FieldClosingFuel] = "40"
	recorder := NewCheckOutRecorder(repo)
	recorder.Now = func() time.Time { return checkIn.Add(4 * time.Hour) }
	require.NoError(t, recorder.Finalize(ctx, "att-1", &captain.Progress{Data: data}))

	record, err := repo.GetAttendance(ctx, "att-1")
	require.NoError(t, err)
	require.Equal(t, AttendanceHalfDay, record.Status)
	require.Equal(t, 40.0, *record.ClosingFuel)
	require.Nil(t, record.ClosingOdometer)
}

func TestCheckOutRequiresCheckIn(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	at := time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC)

	_, err := StartCheckOut(ctx, DefaultCatalog(), repo, "CAP001", at, CheckOutOptions{}, captain.ControllerOptions{})
	require.ErrorIs(t, err, ErrNotCheckedIn)

	require.NoError(t, repo.SaveAttendance(ctx, &AttendanceRecord{
		ID: "att-1", CaptainID: "CAP001", Date: "2025-03-04", Status: AttendancePending,
	}))
	err = NewCheckOutRecorder(repo).Upsert(ctx, "att-1", &captain.Progress{Data: captain.NewStepData()})
	require.ErrorIs(t, err, ErrNotCheckedIn)
}

func TestCheckInTwiceIsRejected(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	w, err := CheckInWorkflow(DefaultCatalog())
	require.NoError(t, err)
	recorder := NewCheckInRecorder(repo, w, "CAP001")

	progress := &captain.Progress{Data: captain.NewStepData()}
	require.NoError(t, recorder.Finalize(ctx, "att-1", progress))
	require.ErrorIs(t, recorder.Upsert(ctx, "att-1", progress), ErrAlreadyCheckedIn)
}

func TestParseReadingRejectsNonFinite(t *testing.T) {
	for _, raw := range []string{"NaN", "nan", "Inf", "-Inf", "+inf", "", "abc"} {
		require.Nil(t, parseReading(raw), raw)
	}
	require.Equal(t, 12.5, *parseReading(" 12.5 "))
}
