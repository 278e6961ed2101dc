package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/folio/internal/storage"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startWatch(t *testing.T, path string) *atomic.Int32 {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, path, quietLogger(), func(context.Context) { calls.Add(1) })
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
	return &calls
}

func TestWatcher_AtomicWriteDetected(t *testing.T) {
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	calls := startWatch(t, filepath.Join(dir, "portfolio.json"))

	if err := fs.Write("portfolio.json", []byte(`{"images":[]}`)); err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "atomic write not reported")

	// A second write after the first settles is reported again.
	time.Sleep(300 * time.Millisecond)
	before := calls.Load()
	_ = fs.Write("portfolio.json", []byte(`{"images":[{"id":"1"}]}`))
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return calls.Load() > before
	}, "second write not reported")
}

func TestWatcher_BurstIsDebounced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portfolio.json")
	calls := startWatch(t, path)

	for i := 0; i < 5; i++ {
		_ = os.WriteFile(path, []byte(`{}`), 0o644)
		time.Sleep(10 * time.Millisecond)
	}
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "burst not reported")
	time.Sleep(400 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("callback ran %d times for one burst, want 1", n)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	calls := startWatch(t, filepath.Join(dir, "portfolio.json"))

	_ = os.WriteFile(filepath.Join(dir, "1700000000000-look.jpg"), []byte("img"), 0o644)
	time.Sleep(500 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("callback ran %d times for an unrelated file", n)
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope", "portfolio.json"), quietLogger(), nil)
	if err == nil {
		t.Error("expected error watching a missing directory")
	}
}
