package testsupport

import (
	"context"
	"testing"
	"time"

	"morningcast/internal/config"
	"morningcast/internal/runstore"
)

// MustOpenStore opens a runstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *runstore.Store {
	t.Helper()

	store, err := runstore.Open(cfg)
	if err != nil {
		t.Fatalf("runstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// BeginRun records a running run for tests using the provided store.
func BeginRun(t testing.TB, store *runstore.Store, id, slug string, startedAt time.Time) {
	t.Helper()

	if err := store.Begin(context.Background(), id, slug, startedAt); err != nil {
		t.Fatalf("store.Begin: %v", err)
	}
}
