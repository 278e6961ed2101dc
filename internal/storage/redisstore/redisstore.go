// Package redisstore keeps the catalog document under a single Redis key.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/starford/folio/internal/apperr"
)

// DefaultKey is the key the catalog lives under when none is configured.
const DefaultKey = "portfolio"

// Options configure the connection. URL, when set, takes precedence over
// Addr, Password and DB.
type Options struct {
	Addr     string
	URL      string
	Password string
	DB       int
	Key      string
	// Timeout bounds dial, read and write operations. Zero uses the client default.
	Timeout time.Duration
}

// Store is a remote document backend on Redis.
type Store struct {
	client *redis.Client
	key    string
}

// New builds a client from opts. It does not contact the server; call Ping
// for a readiness check.
func New(opts Options) (*Store, error) {
	var ro *redis.Options
	if opts.URL != "" {
		parsed, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("redisstore: parse url: %w", err)
		}
		ro = parsed
	} else {
		if opts.Addr == "" {
			return nil, errors.New("redisstore: addr or url is required")
		}
		ro = &redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB}
	}
	if opts.Timeout > 0 {
		ro.DialTimeout = opts.Timeout
		ro.ReadTimeout = opts.Timeout
		ro.WriteTimeout = opts.Timeout
	}
	return NewWithClient(redis.NewClient(ro), opts.Key), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

// Name identifies the backend in logs and errors.
func (s *Store) Name() string { return "redis" }

// Get returns the stored document. A missing key matches apperr.ErrNotFound.
func (s *Store) Get(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redisstore: get %s: %w", s.key, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: get %s: %w", s.key, err)
	}
	return data, nil
}

// Put replaces the stored document. The key never expires.
func (s *Store) Put(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redisstore: set %s: %w", s.key, err)
	}
	return nil
}

// Ping checks that the server answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redisstore: ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
