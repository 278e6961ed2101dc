package internal

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starford/folio/internal/catalog"
	"github.com/starford/folio/internal/index"
)

// publisher is the part of the SSE broker the notifier needs.
type publisher interface {
	PublishCatalogUpdated(source, checksum string)
}

// changeNotifier publishes catalog.updated once per distinct catalog
// content. API saves and the document watcher both report here, and the
// watcher also sees the process's own atomic writes, so repeats of the last
// published checksum are dropped.
type changeNotifier struct {
	searcher *index.Searcher
	pub      publisher
	logger   *slog.Logger

	mu   sync.Mutex
	last string
}

func newChangeNotifier(searcher *index.Searcher, pub publisher, logger *slog.Logger) *changeNotifier {
	return &changeNotifier{searcher: searcher, pub: pub, logger: logger}
}

// prime records the checksum of the catalog already on disk at startup.
func (n *changeNotifier) prime(sum string) {
	n.mu.Lock()
	n.last = sum
	n.mu.Unlock()
}

// saved is the repository save hook. It refreshes the search index and
// notifies clients.
func (n *changeNotifier) saved(ctx context.Context, c *catalog.Catalog) {
	sum, err := n.searcher.Apply(ctx, c)
	if err != nil {
		n.logger.Warn("index refresh after save failed", slog.String("error", err.Error()))
		if sum, err = index.Fingerprint(c); err != nil {
			return
		}
	}
	n.publish("api", sum)
}

// changed is the watcher callback for edits made outside the API.
func (n *changeNotifier) changed(ctx context.Context) {
	sum, err := n.searcher.Sync(ctx)
	if err != nil {
		n.logger.Warn("index sync after file change failed", slog.String("error", err.Error()))
		return
	}
	n.publish("watcher", sum)
}

func (n *changeNotifier) publish(source, sum string) {
	n.mu.Lock()
	if sum == n.last {
		n.mu.Unlock()
		return
	}
	n.last = sum
	n.mu.Unlock()

	n.logger.Info("catalog updated", slog.String("source", source), slog.String("checksum", sum))
	n.pub.PublishCatalogUpdated(source, sum)
}
