// Package storage holds the local file-system layer: an atomic, root-confined
// file provider and the document backend built on it.
package storage

// Provider is the interface for file operations relative to a root directory.
type Provider interface {
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Resolve returns the absolute location of path, rejecting traversal.
	Resolve(path string) (string, error)
}
