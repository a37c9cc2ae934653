// Package testutil provides shared test helpers for databases, key-value
// stores and loggers.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/calloway/fixport/internal/index"
	"github.com/calloway/fixport/internal/kvstore"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "fixport-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestKV creates a temporary on-disk key-value store.
func TestKV(t *testing.T) (string, kvstore.Provider) {
	t.Helper()
	dir := t.TempDir()
	kv, err := kvstore.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, kv
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
