package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/deepnoodle-ai/captain"
	"github.com/deepnoodle-ai/captain/fieldops"
	"github.com/deepnoodle-ai/captain/postgres"
	"github.com/deepnoodle-ai/captain/sqlite"
	"github.com/spf13/afero"
)

// backend bundles the persistence a command needs.
type backend struct {
	repo    fieldops.Repository
	store   captain.Store
	journal captain.Journal
	close   func() error
}

func (cfg *config) openBackend(ctx context.Context) (*backend, error) {
	b := &backend{
		store:   captain.NewMemoryStore(),
		journal: captain.NewNullJournal(),
		close:   func() error { return nil },
	}

	if cfg.DataDir != "" {
		fs := afero.NewOsFs()
		store, err := captain.NewFileStore(fs, filepath.Join(cfg.DataDir, "progress"))
		if err != nil {
			return nil, err
		}
		b.store = store
		b.journal = captain.NewFileJournal(fs, filepath.Join(cfg.DataDir, "journal"))
	}

	switch cfg.Store {
	case "memory":
		b.repo = fieldops.NewMemoryRepository(cfg.sampleJobs()...)
		return b, nil
	case "sqlite":
		path := cfg.DSN
		if path == "" {
			if cfg.DataDir == "" {
				return nil, fmt.Errorf("sqlite store requires --dsn or --data-dir")
			}
			path = filepath.Join(cfg.DataDir, "captain.db")
		}
		repo, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		b.repo, b.close = repo, repo.Close
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres store requires --dsn")
		}
		repo, err := postgres.OpenDriver(ctx, cfg.PgDriver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		b.repo, b.close = repo, repo.Close
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	if cfg.Seed {
		if err := seed(ctx, b.repo, cfg.sampleJobs()); err != nil {
			b.close()
			return nil, err
		}
	}
	return b, nil
}

func (cfg *config) sampleJobs() []*fieldops.Job {
	return fieldops.SampleJobs(fieldops.SampleCaptain().ID, cfg.now())
}

// seed saves jobs the repository does not have yet.
func seed(ctx context.Context, repo fieldops.Repository, jobs []*fieldops.Job) error {
	for _, job := range jobs {
		_, err := repo.GetJob(ctx, job.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, captain.ErrNotFound) {
			return err
		}
		if err := repo.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("seed job %s: %w", job.ID, err)
		}
	}
	return nil
}
