package index_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/ehwaz/internal/index"
	"github.com/starford/ehwaz/internal/models"
	"github.com/starford/ehwaz/internal/testutil"
)

func TestWatch_IndexesNewFile(t *testing.T) {
	db := testutil.TestDB(t)
	inDir, outDir, store := testutil.TestStore(t)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan string, 16)
	go func() {
		_ = index.Watch(ctx, db, store, map[models.Scope]string{
			models.ScopeInput:  inDir,
			models.ScopeOutput: outDir,
		}, logger, func(kind string, scope models.Scope, rel string) {
			events <- kind + ":" + string(scope) + ":" + rel
		})
	}()

	// Give the watcher a moment to attach.
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(outDir, "new.png"), []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev == "indexed:output:new.png" {
				got, _ := db.GetAsset(models.ScopeOutput, "", "", "new.png")
				if got == nil || got.Kind != models.KindImage {
					t.Fatalf("row = %+v", got)
				}
				return
			}
		case <-deadline:
			t.Fatal("watcher never indexed the new file")
		}
	}
}

func TestWatch_RemovalDeletesRow(t *testing.T) {
	db := testutil.TestDB(t)
	inDir, outDir, store := testutil.TestStore(t)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	path := filepath.Join(outDir, "gone.mp4")
	if err := os.WriteFile(path, []byte("vid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := index.Sync(db, store, models.ScopeOutput, logger); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan string, 16)
	go func() {
		_ = index.Watch(ctx, db, store, map[models.Scope]string{
			models.ScopeInput:  inDir,
			models.ScopeOutput: outDir,
		}, logger, func(kind string, scope models.Scope, rel string) {
			events <- kind + ":" + rel
		})
	}()
	time.Sleep(200 * time.Millisecond)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev == "removed:gone.mp4" {
				got, _ := db.GetAsset(models.ScopeOutput, "", "", "gone.mp4")
				if got != nil {
					t.Fatalf("row survived removal: %+v", got)
				}
				return
			}
		case <-deadline:
			t.Fatal("watcher never removed the row")
		}
	}
}
