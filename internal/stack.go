package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/folio/internal/blob"
	"github.com/starford/folio/internal/content"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/lifecycle"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/storage/pgstore"
	"github.com/starford/folio/internal/storage/redisstore"
)

// remoteStore is a remote document backend with a connection to manage.
type remoteStore interface {
	content.Backend
	Ping(ctx context.Context) error
	Close() error
}

// stack is the set of components shared by the HTTP server and the MCP server.
type stack struct {
	doc      *storage.DocumentFile
	remote   remoteStore
	repo     *content.Repository
	blobs    blob.Store
	uploads  *blob.Local
	coord    *lifecycle.Coordinator
	db       *index.DB
	searcher *index.Searcher
}

// buildStack opens every backend named in cfg. extra options are applied to
// the content repository after the defaults.
func buildStack(ctx context.Context, cfg *Config, logger *slog.Logger, extra ...content.Option) (_ *stack, err error) {
	s := &stack{}
	defer func() {
		if err != nil {
			s.close()
		}
	}()

	dataFS, err := storage.NewFS(cfg.Data.Dir)
	if err != nil {
		return nil, fmt.Errorf("init data dir: %w", err)
	}
	if s.doc, err = storage.NewDocumentFile(dataFS, cfg.Data.Document); err != nil {
		return nil, fmt.Errorf("init document: %w", err)
	}

	if s.remote, err = openRemote(ctx, &cfg.Remote); err != nil {
		return nil, err
	}

	opts := []content.Option{
		content.WithLogger(logger),
		content.WithRemoteTimeout(cfg.Remote.Timeout),
	}
	// A nil remoteStore must not reach WithRemote as a non-nil interface.
	if s.remote != nil {
		opts = append(opts, content.WithRemote(s.remote))
	}
	s.repo = content.NewRepository(s.doc, append(opts, extra...)...)

	if s.blobs, s.uploads, err = openBlobs(ctx, &cfg.Blob); err != nil {
		return nil, err
	}
	s.coord = lifecycle.NewCoordinator(s.repo, s.blobs, logger)

	if s.db, err = index.Open(cfg.Index.Path); err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	s.searcher = index.NewSearcher(s.db, s.repo, logger)

	logger.Info("Storage ready",
		slog.Any("backends", s.repo.Backends()),
		slog.String("blob_store", s.blobs.Name()),
		slog.String("document", s.doc.Path()))
	return s, nil
}

func openRemote(ctx context.Context, cfg *RemoteConfig) (remoteStore, error) {
	switch cfg.Selected() {
	case RemoteRedis:
		store, err := redisstore.New(redisstore.Options{
			Addr:     cfg.Redis.Addr,
			URL:      cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
			Timeout:  cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		return store, nil
	case RemotePostgres:
		pool, err := pgstore.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		if err := pgstore.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("init postgres schema: %w", err)
		}
		return pgstore.New(pool, cfg.Postgres.Key), nil
	default:
		return nil, nil
	}
}

func openBlobs(ctx context.Context, cfg *BlobConfig) (blob.Store, *blob.Local, error) {
	if cfg.Driver == BlobS3 {
		store, err := blob.NewS3(blob.S3Options{
			Endpoint:      cfg.S3.Endpoint,
			AccessKey:     cfg.S3.AccessKey,
			SecretKey:     cfg.S3.SecretKey,
			Bucket:        cfg.S3.Bucket,
			Region:        cfg.S3.Region,
			UseSSL:        cfg.S3.UseSSL,
			PublicBaseURL: cfg.S3.PublicBaseURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init s3: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, nil, fmt.Errorf("init s3 bucket: %w", err)
		}
		return store, nil, nil
	}
	fs, err := storage.NewFS(cfg.LocalDir)
	if err != nil {
		return nil, nil, fmt.Errorf("init uploads dir: %w", err)
	}
	local := blob.NewLocal(fs)
	return local, local, nil
}

// ready checks the remote backend, when there is one.
func (s *stack) ready(ctx context.Context) error {
	if s.remote == nil {
		return nil
	}
	return s.remote.Ping(ctx)
}

func (s *stack) close() error {
	var errs []error
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	if s.remote != nil {
		errs = append(errs, s.remote.Close())
	}
	return errors.Join(errs...)
}
