package storage

import (
	"context"
	"fmt"
)

// DocumentFile stores one JSON document as a file under an FS root. It is the
// local mirror backend of the content repository.
type DocumentFile struct {
	fs   *FS
	name string
}

// NewDocumentFile returns a backend for the file name under fs.
func NewDocumentFile(fs *FS, name string) (*DocumentFile, error) {
	if _, err := fs.Resolve(name); err != nil {
		return nil, err
	}
	return &DocumentFile{fs: fs, name: name}, nil
}

// Name identifies the backend in logs and errors.
func (d *DocumentFile) Name() string { return "local" }

// Path returns the absolute path of the document file.
func (d *DocumentFile) Path() string {
	p, _ := d.fs.Resolve(d.name)
	return p
}

// Get reads the document. A missing file matches apperr.ErrNotFound.
func (d *DocumentFile) Get(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.fs.Read(d.name)
}

// Put replaces the document atomically.
func (d *DocumentFile) Put(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("storage: put %s: %w", d.name, err)
	}
	return d.fs.Write(d.name, data)
}
