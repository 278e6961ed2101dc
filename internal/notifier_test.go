package internal

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/starford/folio/internal/catalog"
	"github.com/starford/folio/internal/content"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishCatalogUpdated(source, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, source)
}

func (p *recordingPublisher) sources() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func newNotifierEnv(t *testing.T) (*content.Repository, *changeNotifier, *recordingPublisher, string) {
	t.Helper()
	pub := &recordingPublisher{}
	var n *changeNotifier
	repo, doc := testutil.TestRepository(t, content.WithSaveHook(func(ctx context.Context, c *catalog.Catalog) {
		n.saved(ctx, c)
	}))
	searcher := index.NewSearcher(testutil.TestDB(t), repo, testutil.Logger())
	n = newChangeNotifier(searcher, pub, testutil.Logger())
	return repo, n, pub, doc.Path()
}

func TestNotifierPublishesDistinctSaves(t *testing.T) {
	repo, _, pub, _ := newNotifierEnv(t)

	testutil.Seed(t, repo, `{"modelName":"A"}`)
	testutil.Seed(t, repo, `{"modelName":"A"}`)
	testutil.Seed(t, repo, `{"modelName":"B"}`)

	if got := pub.sources(); len(got) != 2 || got[0] != "api" || got[1] != "api" {
		t.Errorf("events = %v, want two api events", got)
	}
}

func TestNotifierIgnoresOwnWritesSeenByWatcher(t *testing.T) {
	repo, n, pub, _ := newNotifierEnv(t)

	testutil.Seed(t, repo, `{"modelName":"A"}`)
	// The watcher reports the file the save just wrote.
	n.changed(context.Background())

	if got := pub.sources(); len(got) != 1 || got[0] != "api" {
		t.Errorf("events = %v, want one api event", got)
	}
}

func TestNotifierReportsExternalEdits(t *testing.T) {
	repo, n, pub, path := newNotifierEnv(t)
	testutil.Seed(t, repo, `{"modelName":"A"}`)

	if err := os.WriteFile(path, []byte(`{"modelName":"edited by hand"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	n.changed(context.Background())

	got := pub.sources()
	if len(got) != 2 || got[1] != "watcher" {
		t.Errorf("events = %v, want api then watcher", got)
	}
}

func TestNotifierWithWatcher(t *testing.T) {
	repo, n, pub, path := newNotifierEnv(t)
	testutil.Seed(t, repo, `{"modelName":"A"}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = index.Watch(ctx, path, testutil.Logger(), n.changed)
	}()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte(`{"modelName":"external"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if got := pub.sources(); len(got) == 2 && got[1] == "watcher" {
			cancel()
			<-done
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("events = %v, want a watcher event", pub.sources())
}
