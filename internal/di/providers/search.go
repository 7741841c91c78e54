package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/search"
	"github.com/shelfwise/shelfwise-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.Data.Path,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{SearchIndex: index}, nil
}

// EnsureCatalog seeds the catalog on first start and rebuilds an empty
// search index from the stored books. It runs before the server accepts
// requests so shelf operations always resolve against a populated catalog.
func EnsureCatalog(i do.Injector) error {
	cfg := do.MustInvoke[*config.Config](i)
	books := do.MustInvoke[*service.BookService](i)

	return books.EnsureCatalog(context.Background(), cfg.Catalog.Path)
}
