package captain

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// FileStore persists progress as one JSON document per record. Writes go
// through a temp file and rename so a reader never sees a partial document.
type FileStore struct {
	fs      afero.Fs
	dataDir string
}

// NewFileStore creates a file-based store rooted at dataDir on fs. An empty
// dataDir defaults to ~/.captain/progress on the OS filesystem.
func NewFileStore(fs afero.Fs, dataDir string) (*FileStore, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".captain", "progress")
	}
	if err := fs.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}
	return &FileStore{fs: fs, dataDir: dataDir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dataDir, id+".json")
}

// Upsert overwrites the stored progress for id.
func (s *FileStore) Upsert(ctx context.Context, id string, progress *Progress) error {
	return s.write(id, progress)
}

// Finalize writes the completed progress for id.
func (s *FileStore) Finalize(ctx context.Context, id string, progress *Progress) error {
	return s.write(id, progress)
}

// checkRecordID rejects ids that cannot be used as a file name inside a
// single directory.
func checkRecordID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid record id %q", id)
	}
	return nil
}

func (s *FileStore) write(id string, progress *Progress) error {
	if err := checkRecordID(id); err != nil {
		return err
	}
	data, err := json.MarshalIndent(progress, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, s.dataDir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer s.fs.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write progress: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync progress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := s.fs.Rename(tmpPath, s.path(id)); err != nil {
		return fmt.Errorf("failed to rename progress file: %w", err)
	}
	return nil
}

// Load returns the stored progress for id.
func (s *FileStore) Load(ctx context.Context, id string) (*Progress, error) {
	if err := checkRecordID(id); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("progress %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read progress file: %w", err)
	}
	var progress Progress
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
	}
	return &progress, nil
}

// Delete removes the stored progress for id. Deleting a missing record is
// not an error.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := checkRecordID(id); err != nil {
		return err
	}
	if err := s.fs.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete progress: %w", err)
	}
	return nil
}

// List returns all stored progress, most recently updated first. Files that
// cannot be read are skipped.
func (s *FileStore) List(ctx context.Context) ([]*Progress, error) {
	entries, err := afero.ReadDir(s.fs, s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}
	var out []*Progress
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		progress, err := s.Load(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		out = append(out, progress)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}
