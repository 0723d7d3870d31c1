package captain

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileJournal is an implementation of Journal that writes one
// newline-delimited JSON file per record.
type FileJournal struct {
	fs        afero.Fs
	directory string
}

// NewFileJournal returns a journal rooted at directory on fs. A nil fs uses
// the OS filesystem.
func NewFileJournal(fs afero.Fs, directory string) *FileJournal {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileJournal{fs: fs, directory: directory}
}

func (l *FileJournal) path(recordID string) string {
	return filepath.Join(l.directory, fmt.Sprintf("%s.jsonl", recordID))
}

func (l *FileJournal) History(ctx context.Context, recordID string) ([]*JournalEntry, error) {
	if err := checkRecordID(recordID); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(l.fs, l.path(recordID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []*JournalEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry JournalEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, scanner.Err()
}

func (l *FileJournal) Append(ctx context.Context, entry *JournalEntry) error {
	if err := checkRecordID(entry.RecordID); err != nil {
		return err
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := l.fs.MkdirAll(l.directory, 0o755); err != nil {
		return err
	}
	f, err := l.fs.OpenFile(l.path(entry.RecordID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return err
	}
	return f.Sync()
}
