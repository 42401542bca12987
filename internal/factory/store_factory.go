package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chbs/lead-outreach/internal/adapters/store"
	"github.com/chbs/lead-outreach/internal/config"
	"github.com/chbs/lead-outreach/internal/core"
	"go.uber.org/zap"
)

// StoreFactory creates contact stores based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// Backend bundles the two store-side ports, which every backend implements
// over the same database handle
type Backend interface {
	core.ContactStore
	core.SendHistory
}

// CreateBackend creates a store backend based on the configuration
func (f *StoreFactory) CreateBackend() (Backend, error) {
	storeType := f.cfg.GetString("store.type")

	switch storeType {
	case "memory":
		return store.NewMemoryStore(f.logger), nil
	case "sqlite":
		sqlitePath := f.cfg.GetString("store.sqlite_path")
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return store.NewSQLiteStore(sqlitePath, f.logger)
	case "mysql":
		mysqlDSN := f.cfg.GetString("store.mysql_dsn")
		return store.NewMySQLStore(mysqlDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeType)
	}
}
