package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/store"
	"github.com/shelfwise/shelfwise-server/internal/store/sqlite"
)

// DatabaseHandle wraps the relational store with shutdown capability.
type DatabaseHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *DatabaseHandle) Shutdown() error {
	return h.Close()
}

// ProvideDatabase opens the SQLite database and applies pending migrations.
func ProvideDatabase(i do.Injector) (*DatabaseHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := filepath.Join(cfg.Data.Path, "shelfwise.db")
	db, err := sqlite.Open(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &DatabaseHandle{Store: db}, nil
}

// ShelfStoreHandle wraps the Badger shelf store with shutdown capability.
type ShelfStoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *ShelfStoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideShelfStore opens the key-value store holding shelf state.
func ProvideShelfStore(i do.Injector) (*ShelfStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	shelfPath := filepath.Join(cfg.Data.Path, "shelves")
	s, err := store.New(shelfPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Shelf store initialized", "path", shelfPath)

	return &ShelfStoreHandle{Store: s}, nil
}
