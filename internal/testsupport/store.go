package testsupport

import (
	"context"
	"testing"

	"gitreel/internal/config"
	"gitreel/internal/gitlog"
	"gitreel/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// AddRepository registers a repository for tests using the provided store.
func AddRepository(t testing.TB, st *store.Store, name, path string) gitlog.Repository {
	t.Helper()

	repo, err := st.AddRepository(context.Background(), gitlog.Repository{Name: name, Path: path})
	if err != nil {
		t.Fatalf("store.AddRepository: %v", err)
	}
	return repo
}
