package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/folio/internal/catalog"
	"github.com/starford/folio/internal/checksum"
)

// Loader reads the current catalog.
type Loader interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
}

// Searcher keeps the index in step with the stored catalog. Every Search
// loads the catalog first and rebuilds the index when its checksum changed,
// so results never lag behind a Save.
type Searcher struct {
	idx    ImageIndex
	loader Loader
	logger *slog.Logger

	mu sync.Mutex // serializes rebuilds
}

// NewSearcher returns a Searcher over idx fed by loader.
func NewSearcher(idx ImageIndex, loader Loader, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{idx: idx, loader: loader, logger: logger}
}

// Sync brings the index up to date and returns the catalog checksum.
func (s *Searcher) Sync(ctx context.Context) (string, error) {
	c, err := s.loader.Load(ctx)
	if err != nil {
		return "", err
	}
	return s.Apply(ctx, c)
}

// Apply indexes c unless it is already indexed, and returns its checksum.
func (s *Searcher) Apply(ctx context.Context, c *catalog.Catalog) (string, error) {
	sum, err := Fingerprint(c)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.idx.Checksum(ctx)
	if err != nil {
		return "", err
	}
	if current == sum {
		return sum, nil
	}
	if err := s.idx.Rebuild(ctx, RowsFrom(c.Images), sum); err != nil {
		return "", err
	}
	s.logger.Debug("index: rebuilt", slog.Int("images", len(c.Images)), slog.String("checksum", sum))
	return sum, nil
}

// Search syncs the index and runs query against it.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if _, err := s.Sync(ctx); err != nil {
		return nil, err
	}
	return s.idx.Search(ctx, query, limit)
}

// Fingerprint returns the checksum identifying a catalog's content.
func Fingerprint(c *catalog.Catalog) (string, error) {
	sum, err := checksum.SumJSON(c)
	if err != nil {
		return "", fmt.Errorf("index: fingerprint: %w", err)
	}
	return sum, nil
}
