package captain

import "context"

// NullStore is a no-op implementation
type NullStore struct{}

func NewNullStore() *NullStore {
	return &NullStore{}
}

func (s *NullStore) Upsert(ctx context.Context, id string, progress *Progress) error {
	return nil
}

func (s *NullStore) Finalize(ctx context.Context, id string, progress *Progress) error {
	return nil
}
