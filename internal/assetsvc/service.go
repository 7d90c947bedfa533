// Package assetsvc is the host-side service layer: it composes the media
// store, the asset index, workflow extraction and the event log behind
// the operations the HTTP API exposes.
package assetsvc

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/events"
	"github.com/starford/ehwaz/internal/index"
	"github.com/starford/ehwaz/internal/metadata"
	"github.com/starford/ehwaz/internal/models"
	"github.com/starford/ehwaz/internal/storage"
	"github.com/starford/ehwaz/internal/workflow"
)

// PurposePreview marks a staged copy as short-lived; such copies skip
// the index even when the request asks for indexing.
const PurposePreview = "preview"

// Service implements the host-side asset operations.
type Service struct {
	store     storage.Provider
	idx       index.AssetIndex
	broker    *events.Broker
	workflows *workflow.Cache
	logger    *slog.Logger

	archiveDir string

	mu       sync.Mutex
	archives map[string]*archiveJob
}

type archiveJob struct {
	done chan struct{}
	path string
	err  error
}

// New creates a Service. archiveDir is where batch-export archives are
// materialized; it is created on demand. workflows caches extraction
// results (including confirmed absences); nil falls back to the cache
// defaults.
func New(store storage.Provider, idx index.AssetIndex, broker *events.Broker, archiveDir string, workflows *workflow.Cache, logger *slog.Logger) *Service {
	if workflows == nil {
		workflows = workflow.NewCache(0, 0)
	}
	return &Service{
		store:      store,
		idx:        idx,
		broker:     broker,
		workflows:  workflows,
		logger:     logger,
		archiveDir: archiveDir,
		archives:   map[string]*archiveJob{},
	}
}

// StageFile identifies one file to copy into the input root.
type StageFile struct {
	Filename      string
	Subfolder     string
	Scope         models.Scope
	RootID        string
	DestSubfolder string
}

// Stage copies each file into the input root. When indexRequested is set
// and purpose does not mark the copies as previews, the staged copies are
// also upserted into the asset index.
func (s *Service) Stage(files []StageFile, indexRequested bool, purpose string) ([]storage.StagedFile, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("assetsvc: %w: no files", apperr.ErrInvalidPayload)
	}
	doIndex := indexRequested && purpose != PurposePreview

	staged := make([]storage.StagedFile, 0, len(files))
	for _, f := range files {
		if !models.ValidScope(f.Scope) {
			return nil, fmt.Errorf("assetsvc: %w: scope %q", apperr.ErrInvalidPayload, f.Scope)
		}
		rel := f.Filename
		if f.Subfolder != "" {
			rel = f.Subfolder + "/" + f.Filename
		}
		sf, err := s.store.Stage(f.Scope, f.RootID, rel, f.DestSubfolder)
		if err != nil {
			return nil, fmt.Errorf("assetsvc: stage %s: %w", rel, err)
		}
		staged = append(staged, *sf)

		if doIndex {
			s.indexStaged(sf)
		}
		s.broker.Publish(events.Event{Type: events.TypeAssetStaged, Data: map[string]any{
			"name":      sf.Name,
			"subfolder": sf.Subfolder,
		}})
	}
	return staged, nil
}

func (s *Service) indexStaged(sf *storage.StagedFile) {
	rel := sf.Name
	if sf.Subfolder != "" {
		rel = sf.Subfolder + "/" + sf.Name
	}
	if err := index.SyncOne(s.idx, s.store, models.ScopeInput, rel); err != nil {
		s.logger.Warn("index staged copy failed",
			slog.String("rel", rel), slog.String("error", err.Error()))
	}
}

// Workflow returns the embedded workflow JSON for the given asset, or
// apperr.ErrNotFound when the asset carries none. Results, including
// confirmed absences, are cached so repeated lookups skip re-reading the
// media file; staleness is bounded by the cache TTL.
func (s *Service) Workflow(scope models.Scope, rootID, subfolder, filename string) ([]byte, error) {
	if !models.ValidScope(scope) {
		return nil, fmt.Errorf("assetsvc: %w: scope %q", apperr.ErrInvalidPayload, scope)
	}
	rel := filename
	if subfolder != "" {
		rel = subfolder + "/" + filename
	}

	key := string(scope) + "/" + rootID + "/" + rel
	if doc, ok := s.workflows.Get(key); ok {
		if doc == nil {
			return nil, fmt.Errorf("assetsvc: %s: %w", filename, apperr.ErrNotFound)
		}
		return doc.Raw, nil
	}

	wf, err := metadata.ExtractWorkflow(s.store, scope, rootID, rel)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.workflows.Set(key, nil)
		}
		return nil, err
	}
	// Shape validation stays with the canvas-side consumer; the cache
	// only needs the raw bytes.
	s.workflows.Set(key, &workflow.Document{Raw: wf})
	return wf, nil
}

// Info is the metadata view of one asset.
type Info struct {
	Filename  string          `json:"filename"`
	Subfolder string          `json:"subfolder"`
	Scope     models.Scope    `json:"type"`
	Kind      models.Kind     `json:"kind,omitempty"`
	Size      int64           `json:"size"`
	Checksum  string          `json:"checksum,omitempty"`
	Workflow  json.RawMessage `json:"workflow,omitempty"`
}

// Metadata returns the indexed view of an asset plus its embedded
// workflow, if any. With workflowOnly set, the index is not consulted.
func (s *Service) Metadata(scope models.Scope, rootID, subfolder, filename string, workflowOnly bool) (*Info, error) {
	info := &Info{
		Filename:  filename,
		Subfolder: subfolder,
		Scope:     scope,
	}
	if wf, err := s.Workflow(scope, rootID, subfolder, filename); err == nil {
		info.Workflow = wf
	}
	if workflowOnly {
		if info.Workflow == nil {
			return nil, fmt.Errorf("assetsvc: %s: %w", filename, apperr.ErrNotFound)
		}
		return info, nil
	}
	row, err := s.idx.GetAsset(scope, rootID, subfolder, filename)
	if err != nil {
		return nil, fmt.Errorf("assetsvc: metadata: %w", err)
	}
	if row == nil {
		// Not indexed; fall back to the file itself.
		abs, err := s.store.Abs(scope, rootID, info.relPath())
		if err != nil {
			return nil, fmt.Errorf("assetsvc: %s: %w", filename, apperr.ErrNotFound)
		}
		st, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("assetsvc: %s: %w", filename, apperr.ErrNotFound)
		}
		info.Size = st.Size()
		kind, _ := models.KindForName(filename)
		info.Kind = kind
		return info, nil
	}
	info.Kind = row.Kind
	info.Size = row.Size
	info.Checksum = row.Checksum
	return info, nil
}

func (i *Info) relPath() string {
	if i.Subfolder != "" {
		return i.Subfolder + "/" + i.Filename
	}
	return i.Filename
}

// List returns a page of indexed assets plus the unfiltered total.
func (s *Service) List(limit, offset int, scope models.Scope, kind models.Kind) ([]index.AssetRow, int, error) {
	return s.idx.ListAssets(limit, offset, scope, kind)
}

// Search returns indexed assets whose filename or subfolder matches query.
func (s *Service) Search(query string, limit int) ([]index.AssetRow, error) {
	return s.idx.SearchAssets(query, limit)
}

// ViewPath resolves an asset reference to an absolute path for serving.
func (s *Service) ViewPath(scope models.Scope, rootID, rel string) (string, error) {
	if !models.ValidScope(scope) {
		return "", fmt.Errorf("assetsvc: %w: scope %q", apperr.ErrInvalidPayload, scope)
	}
	return s.store.Abs(scope, rootID, rel)
}

// ArchiveItem identifies one asset to include in a batch-export archive.
type ArchiveItem struct {
	Filename  string       `json:"filename"`
	Subfolder string       `json:"subfolder"`
	Scope     models.Scope `json:"type"`
	RootID    string       `json:"root_id,omitempty"`
}

// BuildArchive starts building a zip of items addressed by token. The
// build runs asynchronously; ArchivePath blocks callers on readiness via
// apperr.ErrArchiveNotReady until the build settles.
func (s *Service) BuildArchive(token string, items []ArchiveItem) error {
	if token == "" || len(items) == 0 {
		return fmt.Errorf("assetsvc: %w: empty archive request", apperr.ErrInvalidPayload)
	}
	job := &archiveJob{done: make(chan struct{})}

	s.mu.Lock()
	if _, exists := s.archives[token]; exists {
		s.mu.Unlock()
		return fmt.Errorf("assetsvc: %w: duplicate archive token", apperr.ErrInvalidPayload)
	}
	s.archives[token] = job
	s.mu.Unlock()

	go s.buildArchive(token, job, items)
	return nil
}

func (s *Service) buildArchive(token string, job *archiveJob, items []ArchiveItem) {
	defer close(job.done)

	path, err := s.writeArchive(token, items)
	if err != nil {
		s.logger.Warn("archive build failed",
			slog.String("token", token), slog.String("error", err.Error()))
		job.err = err
		return
	}
	job.path = path
	s.broker.Publish(events.Event{Type: events.TypeArchiveReady, Data: map[string]any{
		"token": token,
		"items": len(items),
	}})
}

func (s *Service) writeArchive(token string, items []ArchiveItem) (string, error) {
	if err := os.MkdirAll(s.archiveDir, 0o755); err != nil {
		return "", fmt.Errorf("assetsvc: archive dir: %w", err)
	}
	path := filepath.Join(s.archiveDir, token+".zip")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("assetsvc: create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	seen := map[string]int{}
	for _, it := range items {
		rel := it.Filename
		if it.Subfolder != "" {
			rel = it.Subfolder + "/" + it.Filename
		}
		abs, err := s.store.Abs(it.Scope, it.RootID, rel)
		if err != nil {
			return "", fmt.Errorf("assetsvc: archive item %s: %w", rel, err)
		}
		name := archiveEntryName(it.Filename, seen)
		w, err := zw.Create(name)
		if err != nil {
			return "", fmt.Errorf("assetsvc: archive entry %s: %w", name, err)
		}
		src, err := os.Open(abs)
		if err != nil {
			return "", fmt.Errorf("assetsvc: archive item %s: %w", rel, err)
		}
		_, err = io.Copy(w, src)
		src.Close()
		if err != nil {
			return "", fmt.Errorf("assetsvc: archive item %s: %w", rel, err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("assetsvc: finalize archive: %w", err)
	}
	return path, nil
}

// archiveEntryName keeps entries flat and disambiguates duplicate
// filenames across subfolders.
func archiveEntryName(filename string, seen map[string]int) string {
	n := seen[filename]
	seen[filename] = n + 1
	if n == 0 {
		return filename
	}
	ext := filepath.Ext(filename)
	base := filename[:len(filename)-len(ext)]
	return fmt.Sprintf("%s (%d)%s", base, n, ext)
}

// ArchivePath returns the absolute path of a finished archive.
// It returns apperr.ErrArchiveNotReady while the build is in flight and
// apperr.ErrNotFound for unknown tokens.
func (s *Service) ArchivePath(token string) (string, error) {
	s.mu.Lock()
	job, ok := s.archives[token]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("assetsvc: archive %s: %w", token, apperr.ErrNotFound)
	}
	select {
	case <-job.done:
	default:
		return "", fmt.Errorf("assetsvc: archive %s: %w", token, apperr.ErrArchiveNotReady)
	}
	if job.err != nil {
		return "", job.err
	}
	return job.path, nil
}
