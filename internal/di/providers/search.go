package providers

import (
	"github.com/samber/do/v2"

	"github.com/tourhubapp/tourhub-server/internal/config"
	"github.com/tourhubapp/tourhub-server/internal/logger"
	"github.com/tourhubapp/tourhub-server/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the full-text and geo search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	idx, err := search.NewIndex(search.Options{
		DataPath: cfg.SearchIndexPath(),
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	count, err := idx.DocumentCount()
	if err != nil {
		count = 0
	}
	log.Info("Search index opened", "path", cfg.SearchIndexPath(), "documents", count)

	return &SearchIndexHandle{Index: idx}, nil
}
