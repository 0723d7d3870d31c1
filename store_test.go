package captain

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func testProgress(id string, index int, updated time.Time) *Progress {
	data := NewStepData()
	data.Images["before"] = []string{"b1"}
	return &Progress{
		RecordID:  id,
		Workflow:  "job",
		StepIndex: index,
		StepName:  "before",
		Status:    StatusActive,
		Data:      data,
		UpdatedAt: updated,
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get("job-1")
	require.ErrorIs(t, err, ErrNotFound)

	p := testProgress("job-1", 0, time.Now())
	require.NoError(t, store.Upsert(ctx, "job-1", p))

	// Stored progress does not alias the caller's data.
	p.Data.Images["before"][0] = "changed"
	got, err := store.Get("job-1")
	require.NoError(t, err)
	require.Equal(t, "b1", got.Data.Images["before"][0])

	p = testProgress("job-1", 1, time.Now())
	p.Status = StatusCompleted
	require.NoError(t, store.Finalize(ctx, "job-1", p))
	require.Error(t, store.Upsert(ctx, "job-1", testProgress("job-1", 0, time.Now())))

	upserts, finalizes := store.Counts()
	require.Equal(t, 1, upserts)
	require.Equal(t, 1, finalizes)
}

func TestNullStore(t *testing.T) {
	store := NewNullStore()
	require.NoError(t, store.Upsert(context.Background(), "x", nil))
	require.NoError(t, store.Finalize(context.Background(), "x", nil))
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	store, err := NewFileStore(fs, "/data/progress")
	require.NoError(t, err)

	_, err = store.Load(ctx, "job-1")
	require.ErrorIs(t, err, ErrNotFound)

	older := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	require.NoError(t, store.Upsert(ctx, "job-1", testProgress("job-1", 0, older)))
	require.NoError(t, store.Upsert(ctx, "job-1", testProgress("job-1", 2, older)))
	require.NoError(t, store.Finalize(ctx, "job-2", testProgress("job-2", 3, newer)))

	loaded, err := store.Load(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, 2, loaded.StepIndex)
	require.Equal(t, []string{"b1"}, loaded.Data.Images["before"])
	require.True(t, older.Equal(loaded.UpdatedAt))

	// No temp files are left behind.
	entries, err := afero.ReadDir(fs, "/data/progress")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "job-2", all[0].RecordID)
	require.Equal(t, "job-1", all[1].RecordID)

	require.NoError(t, store.Delete(ctx, "job-1"))
	require.NoError(t, store.Delete(ctx, "job-1"))
	_, err = store.Load(ctx, "job-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreRejectsBadIDs(t *testing.T) {
	store, err := NewFileStore(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)
	for _, id := range []string{"", "..", "../escape", `a\b`} {
		require.Error(t, store.Upsert(context.Background(), id, testProgress(id, 0, time.Now())))
		_, err := store.Load(context.Background(), id)
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrNotFound)
		require.Error(t, store.Delete(context.Background(), id))
	}
}

func TestFileJournalRejectsBadIDs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/secret.jsonl", []byte(`{"event":"advanced"}`+"\n"), 0o644))
	journal := NewFileJournal(fs, "/journal")
	for _, id := range []string{"", "..", "../secret", `a\b`} {
		_, err := journal.History(context.Background(), id)
		require.Error(t, err, id)
		require.Error(t, journal.Append(context.Background(), &JournalEntry{RecordID: id}), id)
	}
}

func TestFileJournal(t *testing.T) {
	ctx := context.Background()
	journal := NewFileJournal(afero.NewMemMapFs(), "/journal")

	history, err := journal.History(ctx, "job-1")
	require.NoError(t, err)
	require.Empty(t, history)

	c, err := NewController(ControllerOptions{
		Workflow:  jobWorkflow(t),
		RecordID:  "job-1",
		Callbacks: NewJournalCallbacks(journal),
	})
	require.NoError(t, err)

	_, err = c.Advance(ctx)
	require.NoError(t, err)
	require.NoError(t, c.AddImage("b1"))
	require.NoError(t, c.AddImage("b2"))
	_, err = c.Advance(ctx)
	require.NoError(t, err)
	_, err = c.Retreat(ctx)
	require.NoError(t, err)

	history, err = journal.History(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, EventBlocked, history[0].Event)
	require.Equal(t, EventAdvanced, history[1].Event)
	require.Equal(t, "service", history[1].ToStep)
	require.Equal(t, EventRetreated, history[2].Event)
	require.Equal(t, 0, history[2].StepIndex)
	for i := 1; i < len(history); i++ {
		require.Len(t, history[i].ID, 26)
		require.Less(t, history[i-1].ID, history[i].ID)
	}
}

func TestJournalCallbacksReportErrors(t *testing.T) {
	var errs []error
	cb := &JournalCallbacks{
		Journal: NewFileJournal(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/journal"),
		OnError: func(err error) { errs = append(errs, err) },
	}
	cb.OnAdvanced(context.Background(), &TransitionEvent{Event: EventAdvanced, RecordID: "job-1"})
	require.Len(t, errs, 1)

	history, err := NewNullJournal().History(context.Background(), "job-1")
	require.NoError(t, err)
	require.Nil(t, history)
}
