package fieldops_test

import (
	"context"
	"testing"
	"time"

	"github.com/deepnoodle-ai/captain/fieldops"
	"github.com/deepnoodle-ai/captain/fieldops/fieldopstest"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository(t *testing.T) {
	fieldopstest.RunRepositoryContract(t, fieldops.NewMemoryRepository())
}

func TestMemoryRepositoryCopies(t *testing.T) {
	ctx := context.Background()
	job := fieldops.SampleJobs("CAP001", time.Now())[0]
	repo := fieldops.NewMemoryRepository(job)

	job.Status = fieldops.JobCancelled
	got, err := repo.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, fieldops.JobScheduled, got.Status)

	got.BeforeImages = append(got.BeforeImages, "x")
	again, err := repo.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Empty(t, again.BeforeImages)
}
