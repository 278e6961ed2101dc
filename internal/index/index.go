package index

import "context"

// ImageIndex defines the interface for image index operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type ImageIndex interface {
	Rebuild(ctx context.Context, rows []ImageRow, sum string) error
	Checksum(ctx context.Context) (string, error)
	Count(ctx context.Context) (int, error)
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
	Close() error
}

// Verify *DB satisfies ImageIndex at compile time.
var _ ImageIndex = (*DB)(nil)
