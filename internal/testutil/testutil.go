// Package testutil provides shared test helpers for setting up media roots
// and databases.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/ehwaz/internal/index"
	"github.com/starford/ehwaz/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ehwaz-test-*.db")
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

// TestStore creates temporary input/output roots with a storage.Provider.
func TestStore(t *testing.T) (inputDir, outputDir string, store storage.Provider) {
	t.Helper()
	inputDir = t.TempDir()
	outputDir = t.TempDir()
	s, err := storage.NewFS(inputDir, outputDir, nil)
	if err != nil {
		t.Fatal(err)
	}
	return inputDir, outputDir, s
}
