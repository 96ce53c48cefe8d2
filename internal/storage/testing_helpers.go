package storage

import (
	"context"
	"path/filepath"
	"testing"
)

// NewTestHistoryStore creates a migrated history store in a temporary
// directory. It is closed when the test ends.
func NewTestHistoryStore(t *testing.T) *HistoryStore {
	t.Helper()

	store, err := NewHistoryStore(filepath.Join(t.TempDir(), "history.duckdb"))
	if err != nil {
		t.Fatalf("failed to create test history store: %v", err)
	}

	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close test history store: %v", err)
		}
	})

	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("failed to initialize test history store: %v", err)
	}

	return store
}
