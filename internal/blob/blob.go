// Package blob stores uploaded image files. The catalog only keeps the
// reference a Store returns: a bare file name for local storage, a full URL
// for object storage.
package blob

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

// MaxUploadSize is the largest accepted image, in bytes.
const MaxUploadSize = 10 << 20

// Store persists binary objects.
type Store interface {
	// Name identifies the driver in logs and errors.
	Name() string
	// Put stores r under name and returns the reference to record in the catalog.
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	// Delete removes the object behind ref. It returns an error matching
	// apperr.ErrNotFound when there is nothing to delete.
	Delete(ctx context.Context, ref string) error
	// Ref maps any accepted spelling of a reference to the form Put
	// returns. References the store does not own come back unchanged.
	Ref(ref string) string
}

var (
	whitespace = regexp.MustCompile(`\s+`)
	unsafeChar = regexp.MustCompile(`[^a-zA-Z0-9.-]`)
)

// ObjectName derives a unique, URL-safe object name from an uploaded file
// name: "<unix-ms>-<sanitized lowercase name>".
func ObjectName(now time.Time, filename string) string {
	name := whitespace.ReplaceAllString(strings.TrimSpace(filename), "-")
	name = strings.ToLower(unsafeChar.ReplaceAllString(name, ""))
	name = strings.TrimLeft(name, ".")
	if name == "" {
		name = "upload"
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), name)
}
