// Package testutil provides shared test helpers for setting up repositories,
// blob stores and databases.
package testutil

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/folio/internal/blob"
	"github.com/starford/folio/internal/catalog"
	"github.com/starford/folio/internal/content"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/storage"
)

// Logger returns a logger that only reports errors.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "folio-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestRepository creates a repository backed by a document file in a
// temporary directory. It returns the document backend for direct inspection.
func TestRepository(t *testing.T, opts ...content.Option) (*content.Repository, *storage.DocumentFile) {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	doc, err := storage.NewDocumentFile(fs, "portfolio.json")
	if err != nil {
		t.Fatal(err)
	}
	opts = append([]content.Option{content.WithLogger(Logger())}, opts...)
	return content.NewRepository(doc, opts...), doc
}

// TestBlobs creates a local blob store in a temporary directory.
func TestBlobs(t *testing.T) *blob.Local {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return blob.NewLocal(fs)
}

// Seed saves the JSON object raw through repo.
func Seed(t *testing.T, repo *content.Repository, raw string) {
	t.Helper()
	doc, err := catalog.ParseDocument([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(context.Background(), doc); err != nil {
		t.Fatal(err)
	}
}
