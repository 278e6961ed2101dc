// Package content implements the catalog repository: reads with remote-first
// fallback, normalized writes to a local mirror and an optional remote store.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/catalog"
)

// Backend stores the whole catalog document as one value. Get returns an
// error matching apperr.ErrNotFound when nothing has been stored yet.
type Backend interface {
	Name() string
	Get(ctx context.Context) ([]byte, error)
	Put(ctx context.Context, data []byte) error
}

// SaveHook runs after every successful Save with the normalized catalog.
type SaveHook func(ctx context.Context, c *catalog.Catalog)

// Option configures a Repository.
type Option func(*Repository)

// WithRemote adds a remote backend. It is read before the local mirror and
// written after it.
func WithRemote(b Backend) Option {
	return func(r *Repository) { r.remote = b }
}

// WithLogger sets the logger for tolerated backend failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// WithRemoteTimeout bounds each remote call. Zero leaves only the caller's deadline.
func WithRemoteTimeout(d time.Duration) Option {
	return func(r *Repository) { r.timeout = d }
}

// WithSaveHook registers fn to run after successful saves.
func WithSaveHook(fn SaveHook) Option {
	return func(r *Repository) { r.hooks = append(r.hooks, fn) }
}

// Repository is the single entry point for reading and writing the catalog.
// It holds no cached copy: every Load and Save goes to the backends, and the
// last successful Save wins.
type Repository struct {
	local   Backend
	remote  Backend
	logger  *slog.Logger
	timeout time.Duration
	hooks   []SaveHook
}

// NewRepository returns a repository over the local mirror and options.
func NewRepository(local Backend, opts ...Option) *Repository {
	r := &Repository{local: local, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Backends lists the active backend names in read order.
func (r *Repository) Backends() []string {
	var names []string
	for _, b := range r.readOrder() {
		names = append(names, b.Name())
	}
	return names
}

// Load returns the current catalog, normalized. The remote store is tried
// first; when it fails or holds nothing the local mirror is used. When no
// backend holds a document the default catalog is seeded into the empty
// backends and returned. Load fails only when every backend failed with a
// real I/O or decode error.
func (r *Repository) Load(ctx context.Context) (*catalog.Catalog, error) {
	var (
		failures []error
		empty    []Backend
	)
	for _, b := range r.readOrder() {
		c, err := r.read(ctx, b)
		switch {
		case err == nil:
			return c, nil
		case errors.Is(err, apperr.ErrNotFound):
			empty = append(empty, b)
		default:
			r.logger.Warn("content: backend read failed",
				slog.String("backend", b.Name()),
				slog.String("error", err.Error()))
			failures = append(failures, err)
		}
	}
	if len(empty) == 0 {
		return nil, errors.Join(failures...)
	}

	seed := catalog.Default()
	data, err := encode(seed)
	if err != nil {
		return nil, apperr.Storage("content", "encode", err)
	}
	for _, b := range empty {
		if err := r.put(ctx, b, data); err != nil {
			r.logger.Warn("content: seeding default catalog failed",
				slog.String("backend", b.Name()),
				slog.String("error", err.Error()))
		}
	}
	r.logger.Info("content: seeded default catalog", slog.Int("backends", len(empty)))
	return seed, nil
}

// Save normalizes doc and replaces the stored catalog. The local mirror is
// written first, then the remote store. A remote failure is returned even
// though the mirror was updated. A local failure is tolerated when a remote
// store is configured and returned otherwise.
func (r *Repository) Save(ctx context.Context, doc catalog.Document) error {
	c := catalog.Normalize(doc)
	data, err := encode(c)
	if err != nil {
		return apperr.Storage("content", "encode", err)
	}

	if err := r.put(ctx, r.local, data); err != nil {
		if r.remote == nil {
			return err
		}
		r.logger.Warn("content: local mirror write failed",
			slog.String("backend", r.local.Name()),
			slog.String("error", err.Error()))
	}
	if r.remote != nil {
		if err := r.put(ctx, r.remote, data); err != nil {
			return err
		}
	}

	for _, hook := range r.hooks {
		hook(ctx, c)
	}
	return nil
}

func (r *Repository) readOrder() []Backend {
	if r.remote != nil {
		return []Backend{r.remote, r.local}
	}
	return []Backend{r.local}
}

// read fetches and normalizes one backend's document. Empty values count as
// missing; undecodable ones are storage errors and are never overwritten.
func (r *Repository) read(ctx context.Context, b Backend) (*catalog.Catalog, error) {
	ctx, cancel := r.bound(ctx, b)
	defer cancel()

	data, err := b.Get(ctx)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, apperr.Storage(b.Name(), "get", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("content: %s holds an empty value: %w", b.Name(), apperr.ErrNotFound)
	}
	doc, err := catalog.ParseDocument(data)
	if err != nil {
		return nil, apperr.Storage(b.Name(), "decode", err)
	}
	return catalog.Normalize(doc), nil
}

func (r *Repository) put(ctx context.Context, b Backend, data []byte) error {
	ctx, cancel := r.bound(ctx, b)
	defer cancel()
	return apperr.Storage(b.Name(), "put", b.Put(ctx, data))
}

func (r *Repository) bound(ctx context.Context, b Backend) (context.Context, context.CancelFunc) {
	if r.timeout > 0 && b == r.remote {
		return context.WithTimeout(ctx, r.timeout)
	}
	return ctx, func() {}
}

func encode(c *catalog.Catalog) ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
