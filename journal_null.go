package captain

import "context"

// NullJournal is a no-op implementation of Journal.
type NullJournal struct{}

func NewNullJournal() *NullJournal {
	return &NullJournal{}
}

func (l *NullJournal) Append(ctx context.Context, entry *JournalEntry) error {
	return nil
}

func (l *NullJournal) History(ctx context.Context, recordID string) ([]*JournalEntry, error) {
	return nil, nil
}
