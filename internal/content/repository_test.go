package content

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/catalog"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/storage/redisstore"
)

// memBackend is an in-memory Backend with switchable failures.
type memBackend struct {
	mu      sync.Mutex
	name    string
	data    []byte
	getErr  error
	putErr  error
	puts    int
	lastCtx context.Context
}

func (m *memBackend) Name() string { return m.name }

func (m *memBackend) Get(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCtx = ctx
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.data == nil {
		return nil, apperr.ErrNotFound
	}
	return slices.Clone(m.data), nil
}

func (m *memBackend) Put(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCtx = ctx
	if m.putErr != nil {
		return m.putErr
	}
	m.puts++
	m.data = slices.Clone(data)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func localFile(t *testing.T) *storage.DocumentFile {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	doc, err := storage.NewDocumentFile(fs, "portfolio.json")
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func mustDoc(t *testing.T, raw string) catalog.Document {
	t.Helper()
	doc, err := catalog.ParseDocument([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestLoadEmptyStoreSeedsDefaults(t *testing.T) {
	local := localFile(t)
	repo := NewRepository(local, WithLogger(quietLogger()))
	ctx := context.Background()

	c, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Images) != 0 || len(c.Collections) != 0 {
		t.Errorf("unexpected content: %+v", c)
	}
	if !slices.Equal(c.Categories, []string{"Editorial", "Commercial", "Runway"}) {
		t.Errorf("categories = %v", c.Categories)
	}
	if c.ModelName != catalog.DefaultModelName || c.HeroTagline != catalog.DefaultHeroTagline {
		t.Errorf("metadata = %q / %q", c.ModelName, c.HeroTagline)
	}

	raw, err := local.Get(ctx)
	if err != nil {
		t.Fatalf("defaults were not persisted: %v", err)
	}
	var stored map[string]any
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatal(err)
	}
	if stored["modelName"] != catalog.DefaultModelName {
		t.Errorf("stored modelName = %v", stored["modelName"])
	}
}

func TestSaveThenLoadNormalizes(t *testing.T) {
	repo := NewRepository(localFile(t), WithLogger(quietLogger()))
	ctx := context.Background()

	err := repo.Save(ctx, mustDoc(t, `{"images":[{"id":"1","filename":"a.jpg","category":"Editorial"},{"id":"2","order":"5","isHero":"true"}]}`))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	c, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Images) != 2 {
		t.Fatalf("images = %d", len(c.Images))
	}
	if c.Images[0].Order != 0 || c.Images[0].IsHero {
		t.Errorf("image 1 = %+v, want order 0 and isHero false", c.Images[0])
	}
	if c.Images[1].Order != 5 || !c.Images[1].IsHero {
		t.Errorf("image 2 = %+v, want order 5 and isHero true", c.Images[1])
	}
}

func TestSaveWritesTypedValues(t *testing.T) {
	local := &memBackend{name: "local"}
	repo := NewRepository(local, WithLogger(quietLogger()))
	if err := repo.Save(context.Background(), mustDoc(t, `{"images":[{"id":"x","order":"2","isHero":"true"}]}`)); err != nil {
		t.Fatal(err)
	}
	var stored struct {
		Images []map[string]any `json:"images"`
	}
	if err := json.Unmarshal(local.data, &stored); err != nil {
		t.Fatal(err)
	}
	if _, ok := stored.Images[0]["order"].(float64); !ok {
		t.Errorf("order stored as %T", stored.Images[0]["order"])
	}
	if _, ok := stored.Images[0]["isHero"].(bool); !ok {
		t.Errorf("isHero stored as %T", stored.Images[0]["isHero"])
	}
}

func TestRemoteReadFirst(t *testing.T) {
	local := &memBackend{name: "local", data: []byte(`{"modelName":"local"}`)}
	remote := &memBackend{name: "remote", data: []byte(`{"modelName":"remote"}`)}
	repo := NewRepository(local, WithRemote(remote), WithLogger(quietLogger()))

	c, err := repo.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if c.ModelName != "remote" {
		t.Errorf("modelName = %q, want remote", c.ModelName)
	}
	if got := repo.Backends(); !slices.Equal(got, []string{"remote", "local"}) {
		t.Errorf("Backends = %v", got)
	}
}

func TestRemoteEmptyFallsBackToLocal(t *testing.T) {
	local := &memBackend{name: "local", data: []byte(`{"modelName":"local"}`)}
	remote := &memBackend{name: "remote", data: []byte{}}
	repo := NewRepository(local, WithRemote(remote), WithLogger(quietLogger()))

	c, err := repo.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if c.ModelName != "local" {
		t.Errorf("modelName = %q, want local", c.ModelName)
	}
}

func TestRemoteDownDuringSave(t *testing.T) {
	mr := miniredis.RunT(t)
	remote, err := redisstore.New(redisstore.Options{Addr: mr.Addr(), Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = remote.Close() })
	local := localFile(t)
	repo := NewRepository(local, WithRemote(remote), WithLogger(quietLogger()))
	ctx := context.Background()

	mr.Close()

	err = repo.Save(ctx, mustDoc(t, `{"modelName":"Updated","images":[{"id":"1","filename":"a.jpg"}]}`))
	if !errors.Is(err, apperr.ErrStorage) {
		t.Fatalf("Save error = %v, want StorageError", err)
	}
	var se *apperr.StorageError
	if !errors.As(err, &se) || se.Backend != "redis" {
		t.Errorf("error = %#v, want redis StorageError", err)
	}

	c, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load with remote down: %v", err)
	}
	if c.ModelName != "Updated" || len(c.Images) != 1 {
		t.Errorf("Load returned %+v, want the locally updated catalog", c)
	}
}

func TestLocalFailureToleratedWithRemote(t *testing.T) {
	local := &memBackend{name: "local", putErr: errors.New("read-only file system")}
	remote := &memBackend{name: "remote"}
	repo := NewRepository(local, WithRemote(remote), WithLogger(quietLogger()))

	if err := repo.Save(context.Background(), mustDoc(t, `{"modelName":"M"}`)); err != nil {
		t.Fatalf("Save = %v, want nil", err)
	}
	if remote.puts != 1 {
		t.Errorf("remote puts = %d, want 1", remote.puts)
	}
}

func TestLocalFailureWithoutRemote(t *testing.T) {
	local := &memBackend{name: "local", putErr: errors.New("disk full")}
	repo := NewRepository(local, WithLogger(quietLogger()))

	err := repo.Save(context.Background(), mustDoc(t, `{}`))
	if !errors.Is(err, apperr.ErrStorage) {
		t.Errorf("Save = %v, want StorageError", err)
	}
}

func TestSaveWritesLocalExactlyOnce(t *testing.T) {
	local := &memBackend{name: "local"}
	remote := &memBackend{name: "remote"}
	repo := NewRepository(local, WithRemote(remote), WithLogger(quietLogger()))
	if err := repo.Save(context.Background(), mustDoc(t, `{}`)); err != nil {
		t.Fatal(err)
	}
	if local.puts != 1 || remote.puts != 1 {
		t.Errorf("puts local=%d remote=%d, want 1 and 1", local.puts, remote.puts)
	}
}

func TestAllBackendsFail(t *testing.T) {
	local := &memBackend{name: "local", getErr: errors.New("permission denied")}
	remote := &memBackend{name: "remote", getErr: errors.New("connection refused")}
	repo := NewRepository(local, WithRemote(remote), WithLogger(quietLogger()))

	_, err := repo.Load(context.Background())
	if !errors.Is(err, apperr.ErrStorage) {
		t.Errorf("Load = %v, want StorageError", err)
	}
	if local.puts != 0 || remote.puts != 0 {
		t.Error("failing backends must not be seeded")
	}
}

func TestCorruptDocumentIsNotOverwritten(t *testing.T) {
	local := &memBackend{name: "local", data: []byte(`[1,2,3]`)}
	repo := NewRepository(local, WithLogger(quietLogger()))

	if _, err := repo.Load(context.Background()); !errors.Is(err, apperr.ErrStorage) {
		t.Errorf("Load = %v, want StorageError", err)
	}
	if string(local.data) != `[1,2,3]` {
		t.Errorf("corrupt document was overwritten: %s", local.data)
	}
}

func TestRemoteFailureSeedsOnlyEmptyBackends(t *testing.T) {
	local := &memBackend{name: "local"}
	remote := &memBackend{name: "remote", getErr: errors.New("timeout")}
	repo := NewRepository(local, WithRemote(remote), WithLogger(quietLogger()))

	c, err := repo.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if c.ModelName != catalog.DefaultModelName {
		t.Errorf("modelName = %q", c.ModelName)
	}
	if local.puts != 1 || remote.puts != 0 {
		t.Errorf("puts local=%d remote=%d, want 1 and 0", local.puts, remote.puts)
	}
}

func TestLastWriteWins(t *testing.T) {
	repo := NewRepository(localFile(t), WithLogger(quietLogger()))
	ctx := context.Background()

	first, _ := repo.Load(ctx)
	second, _ := repo.Load(ctx)

	first.ModelName = "First"
	second.ModelName = "Second"
	if err := repo.Save(ctx, first.Document()); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, second.Document()); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.ModelName != "Second" {
		t.Errorf("modelName = %q, want Second", got.ModelName)
	}
}

func TestSaveHookRunsOnSuccess(t *testing.T) {
	local := &memBackend{name: "local"}
	var got []*catalog.Catalog
	repo := NewRepository(local,
		WithLogger(quietLogger()),
		WithSaveHook(func(_ context.Context, c *catalog.Catalog) { got = append(got, c) }))
	ctx := context.Background()

	if err := repo.Save(ctx, mustDoc(t, `{"modelName":"Hooked"}`)); err != nil {
		t.Fatal(err)
	}
	local.putErr = errors.New("boom")
	_ = repo.Save(ctx, mustDoc(t, `{}`))

	if len(got) != 1 || got[0].ModelName != "Hooked" {
		t.Errorf("hook calls = %+v, want one with Hooked", got)
	}
}

func TestRemoteTimeoutApplied(t *testing.T) {
	local := &memBackend{name: "local"}
	remote := &memBackend{name: "remote"}
	repo := NewRepository(local, WithRemote(remote), WithRemoteTimeout(time.Minute), WithLogger(quietLogger()))

	if err := repo.Save(context.Background(), mustDoc(t, `{}`)); err != nil {
		t.Fatal(err)
	}
	if _, ok := remote.lastCtx.Deadline(); !ok {
		t.Error("remote call had no deadline")
	}
	if _, ok := local.lastCtx.Deadline(); ok {
		t.Error("local call should not get the remote deadline")
	}
}
