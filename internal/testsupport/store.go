package testsupport

import (
	"context"
	"testing"

	"relic/internal/config"
	"relic/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewFolder creates a new queue item for tests using the provided store.
func NewFolder(t testing.TB, store *queue.Store, folderPath string) *queue.Item {
	t.Helper()

	item, err := store.NewFolder(context.Background(), folderPath)
	if err != nil {
		t.Fatalf("store.NewFolder: %v", err)
	}
	return item
}
