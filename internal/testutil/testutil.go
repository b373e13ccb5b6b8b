// Package testutil provides shared test helpers for setting up stores and
// clinic services.
package testutil

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/physiodesk/internal/clinic"
	"github.com/starford/physiodesk/internal/kvstore"
)

// Logger returns a logger that only reports errors.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestSQLite creates a temporary SQLite store that is automatically cleaned up.
func TestSQLite(t *testing.T) *kvstore.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "physiodesk-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	store, err := kvstore.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestService creates a loaded clinic service over a temporary SQLite store.
// seed, if non-nil, is written to the store before loading.
func TestService(t *testing.T, seed map[string]string) (*clinic.Service, kvstore.Provider) {
	t.Helper()
	store := TestSQLite(t)
	if seed != nil {
		if err := store.SetAll(seed); err != nil {
			t.Fatal(err)
		}
	}
	svc := clinic.NewService(store, Logger())
	if err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return svc, store
}
