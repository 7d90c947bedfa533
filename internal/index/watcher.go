package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/ehwaz/internal/checksum"
	"github.com/starford/ehwaz/internal/models"
	"github.com/starford/ehwaz/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "indexed", "removed".
type EventCallback func(kind string, scope models.Scope, rel string)

// Watch starts an fsnotify watcher over the given scope roots and keeps
// the index current until ctx is cancelled. It calls cb (if non-nil) after
// each successful index mutation.
//
// New directories created at runtime are added to the watch list. Rename
// events trigger a debounced reconciliation pass that re-syncs the
// affected roots.
func Watch(ctx context.Context, db AssetIndex, store storage.Provider, roots map[models.Scope]string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs := make(map[models.Scope]string, len(roots))
	for scope, root := range roots {
		a, err := filepath.Abs(root)
		if err != nil {
			return err
		}
		abs[scope] = a
		if err := addDirsRecursive(w, a); err != nil {
			return err
		}
		logger.Info("watcher: started", slog.String("scope", string(scope)), slog.String("root", a))
	}

	// reconcileTimer debounces rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			for scope := range abs {
				if err := Sync(db, store, scope, logger); err != nil {
					logger.Warn("watcher: reconcile failed",
						slog.String("scope", string(scope)), slog.String("error", err.Error()))
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			scope, rel, found := classify(abs, ev.Name)
			if !found {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name), slog.String("error", addErr.Error()))
					}
					scheduleReconcile()
					continue
				}
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				indexPath(db, store, scope, rel, logger, cb)
			case ev.Op&fsnotify.Remove != 0:
				sub, name := splitRel(rel)
				if err := db.DeleteAsset(scope, "", sub, name); err == nil {
					logger.Debug("watcher: removed", slog.String("path", rel))
					if cb != nil {
						cb("removed", scope, rel)
					}
				}
			case ev.Op&fsnotify.Rename != 0:
				scheduleReconcile()
			}

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher: error", slog.String("error", werr.Error()))
		}
	}
}

// classify maps an absolute event path onto (scope, relative path).
func classify(roots map[models.Scope]string, absPath string) (models.Scope, string, bool) {
	for scope, root := range roots {
		prefix := root + string(os.PathSeparator)
		if strings.HasPrefix(absPath, prefix) {
			return scope, filepath.ToSlash(strings.TrimPrefix(absPath, prefix)), true
		}
	}
	return "", "", false
}

func indexPath(db AssetIndex, store storage.Provider, scope models.Scope, rel string, logger *slog.Logger, cb EventCallback) {
	data, err := store.Read(scope, "", rel)
	if err != nil {
		// File may have vanished between event and read.
		return
	}
	sub, name := splitRel(rel)
	if strings.HasPrefix(name, ".") {
		return
	}
	kind, _ := models.KindForName(name)
	row := AssetRow{
		Scope:     scope,
		Subfolder: sub,
		Filename:  name,
		Kind:      kind,
		Size:      int64(len(data)),
		Checksum:  checksum.Sum(data),
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertAsset(row); err != nil {
		logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	logger.Debug("watcher: indexed", slog.String("path", rel))
	if cb != nil {
		cb("indexed", scope, rel)
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
}
