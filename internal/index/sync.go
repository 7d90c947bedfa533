package index

import (
	"log/slog"
	"time"

	"github.com/starford/ehwaz/internal/checksum"
	"github.com/starford/ehwaz/internal/models"
	"github.com/starford/ehwaz/internal/storage"
)

// Sync walks one scope root and brings the index up to date:
//   - new/changed files are upserted with a fresh checksum
//   - files removed from disk are deleted from the index
func Sync(db AssetIndex, store storage.Provider, scope models.Scope, logger *slog.Logger) error {
	metas, err := store.List(scope, "")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums(scope, "")
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		rel := m.RelPath()
		disk[rel] = struct{}{}

		if checksums[rel] == m.Checksum {
			continue
		}
		kind, _ := models.KindForName(m.Filename)
		row := AssetRow{
			Scope:     scope,
			Subfolder: m.Subfolder,
			Filename:  m.Filename,
			Kind:      kind,
			Size:      m.Size,
			Checksum:  m.Checksum,
			UpdatedAt: m.UpdatedAt,
		}
		if err := db.UpsertAsset(row); err != nil {
			logger.Warn("sync: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", rel))
		}
	}

	// Remove stale entries.
	for rel := range checksums {
		if _, ok := disk[rel]; ok {
			continue
		}
		sub, name := splitRel(rel)
		if err := db.DeleteAsset(scope, "", sub, name); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("path", rel))
		}
	}

	return nil
}

// SyncOne reads and indexes a single file within a scope root.
func SyncOne(db AssetIndex, store storage.Provider, scope models.Scope, rel string) error {
	data, err := store.Read(scope, "", rel)
	if err != nil {
		return err
	}
	sub, name := splitRel(rel)
	kind, _ := models.KindForName(name)
	return db.UpsertAsset(AssetRow{
		Scope:     scope,
		Subfolder: sub,
		Filename:  name,
		Kind:      kind,
		Size:      int64(len(data)),
		Checksum:  checksum.Sum(data),
		UpdatedAt: time.Now(),
	})
}

func splitRel(rel string) (subfolder, filename string) {
	for i := len(rel) - 1; i >= 0; i-- {
		if rel[i] == '/' {
			return rel[:i], rel[i+1:]
		}
	}
	return "", rel
}
