package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/catalog"
	"github.com/starford/folio/internal/storage"
)

// Local keeps uploads in a directory served under /uploads/.
type Local struct {
	fs storage.Provider
}

// NewLocal returns a Local store over fs.
func NewLocal(fs storage.Provider) *Local {
	return &Local{fs: fs}
}

func (l *Local) Name() string { return "local" }

// Put writes the object atomically and returns its bare file name.
func (l *Local) Put(ctx context.Context, name string, r io.Reader, size int64, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", apperr.Validation("invalid object name %q", name)
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return "", fmt.Errorf("blob: read upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return "", apperr.Validation("file exceeds %d bytes", MaxUploadSize)
	}
	if size >= 0 && int64(len(data)) != size {
		return "", fmt.Errorf("blob: short upload: got %d of %d bytes", len(data), size)
	}
	if err := l.fs.Write(name, data); err != nil {
		return "", err
	}
	return name, nil
}

// Delete removes a local upload. References that point elsewhere (remote
// URLs) are reported as not found.
func (l *Local) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, ok := l.objectName(ref)
	if !ok {
		return fmt.Errorf("blob: %s is not a local upload: %w", ref, apperr.ErrNotFound)
	}
	return l.fs.Delete(name)
}

// Ref strips the public "/uploads/" prefix from local references.
func (l *Local) Ref(ref string) string {
	if name, ok := l.objectName(ref); ok {
		return name
	}
	return ref
}

// Path returns the absolute file path of a stored object.
func (l *Local) Path(name string) (string, error) {
	return l.fs.Resolve(name)
}

func (l *Local) objectName(ref string) (string, bool) {
	if ref == "" || catalog.IsRemote(ref) {
		return "", false
	}
	ref = strings.TrimPrefix(ref, "/uploads/")
	if ref != path.Base(ref) {
		return "", false
	}
	return ref, true
}
