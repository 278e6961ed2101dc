package index

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/folio/internal/catalog"
)

// stubLoader returns a fixed catalog and counts calls.
type stubLoader struct {
	cat   *catalog.Catalog
	err   error
	loads int
}

func (s *stubLoader) Load(context.Context) (*catalog.Catalog, error) {
	s.loads++
	return s.cat, s.err
}

// countingIndex wraps DB and counts rebuilds.
type countingIndex struct {
	*DB
	rebuilds int
}

func (c *countingIndex) Rebuild(ctx context.Context, rows []ImageRow, sum string) error {
	c.rebuilds++
	return c.DB.Rebuild(ctx, rows, sum)
}

func TestSearcherRebuildsOnlyOnChange(t *testing.T) {
	idx := &countingIndex{DB: testDB(t)}
	loader := &stubLoader{cat: &catalog.Catalog{Images: []catalog.Image{{ID: "1", Title: "Red dress"}}}}
	s := NewSearcher(idx, loader, nil)
	ctx := context.Background()

	hits, err := s.Search(ctx, "dress", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits = %+v", hits)
	}
	_, _ = s.Search(ctx, "red", 10)
	if idx.rebuilds != 1 {
		t.Errorf("rebuilds = %d, want 1 for an unchanged catalog", idx.rebuilds)
	}

	loader.cat = &catalog.Catalog{Images: []catalog.Image{{ID: "2", Title: "Blue suit"}}}
	hits, _ = s.Search(ctx, "suit", 10)
	if len(hits) != 1 || hits[0].ID != "2" {
		t.Errorf("search lagged behind the catalog: %+v", hits)
	}
	if idx.rebuilds != 2 {
		t.Errorf("rebuilds = %d, want 2", idx.rebuilds)
	}
	if loader.loads != 3 {
		t.Errorf("loads = %d, want one per search", loader.loads)
	}
}

func TestSearcherPropagatesLoadError(t *testing.T) {
	boom := errors.New("backend down")
	s := NewSearcher(testDB(t), &stubLoader{err: boom}, nil)
	if _, err := s.Search(context.Background(), "x", 1); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestSyncReturnsFingerprint(t *testing.T) {
	cat := catalog.Default()
	s := NewSearcher(testDB(t), &stubLoader{cat: cat}, nil)
	sum, err := s.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want, _ := Fingerprint(cat)
	if sum != want || sum == "" {
		t.Errorf("Sync = %q, want %q", sum, want)
	}
}
