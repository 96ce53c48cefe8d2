package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/kyleking/askdb/internal/config"
)

// OpenSQLiteFromConfig opens the business database described by cfg
func OpenSQLiteFromConfig(cfg config.DatabaseConfig) (*SQLiteDatabase, error) {
	if _, err := time.ParseDuration(cfg.QueryTimeout); err != nil {
		return nil, fmt.Errorf("invalid query_timeout: %w", err)
	}

	return OpenSQLite(config.ExpandPath(cfg.Path))
}

// NewHistoryStoreFromConfig opens and migrates the history database
func NewHistoryStoreFromConfig(ctx context.Context, cfg config.HistoryConfig) (*HistoryStore, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("history is disabled")
	}

	store, err := NewHistoryStore(config.ExpandPath(cfg.Path))
	if err != nil {
		return nil, err
	}

	if err := store.Initialize(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	return store, nil
}
