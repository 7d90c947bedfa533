package assetsvc_test

import (
	"archive/zip"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/assetsvc"
	"github.com/starford/ehwaz/internal/events"
	"github.com/starford/ehwaz/internal/models"
	"github.com/starford/ehwaz/internal/testutil"
	"github.com/starford/ehwaz/internal/workflow"
)

func newService(t *testing.T) (*assetsvc.Service, string, string) {
	t.Helper()
	db := testutil.TestDB(t)
	inDir, outDir, store := testutil.TestStore(t)
	broker := events.NewBroker()
	t.Cleanup(broker.Close)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	svc := assetsvc.New(store, db, broker, t.TempDir(), nil, logger)
	return svc, inDir, outDir
}

func TestStage_CopiesAndIndexes(t *testing.T) {
	svc, inDir, outDir := newService(t)
	if err := os.WriteFile(filepath.Join(outDir, "render.png"), []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}

	staged, err := svc.Stage([]assetsvc.StageFile{{
		Filename: "render.png",
		Scope:    models.ScopeOutput,
	}}, true, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(staged) != 1 || staged[0].Name != "render.png" {
		t.Fatalf("staged = %+v", staged)
	}
	if _, err := os.Stat(filepath.Join(inDir, "render.png")); err != nil {
		t.Fatalf("staged copy missing: %v", err)
	}

	// The copy should also be indexed under the input scope.
	rows, err := svc.Search("render", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Scope != models.ScopeInput {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestStage_PreviewPurposeSkipsIndex(t *testing.T) {
	svc, _, outDir := newService(t)
	if err := os.WriteFile(filepath.Join(outDir, "peek.png"), []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Stage([]assetsvc.StageFile{{
		Filename: "peek.png",
		Scope:    models.ScopeOutput,
	}}, true, assetsvc.PurposePreview); err != nil {
		t.Fatal(err)
	}

	rows, err := svc.Search("peek", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("preview copies must not be indexed, got %+v", rows)
	}
}

func TestStage_RejectsInvalidScope(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Stage([]assetsvc.StageFile{{
		Filename: "a.png",
		Scope:    models.Scope("temp"),
	}}, false, "")
	if !errors.Is(err, apperr.ErrInvalidPayload) {
		t.Fatalf("err = %v, want ErrInvalidPayload", err)
	}
}

func TestMetadata_WorkflowOnly(t *testing.T) {
	svc, _, outDir := newService(t)
	if err := os.WriteFile(filepath.Join(outDir, "clip.mp4"), []byte("vid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "clip.mp4.json"), []byte(`{"nodes":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := svc.Metadata(models.ScopeOutput, "", "", "clip.mp4", true)
	if err != nil {
		t.Fatal(err)
	}
	if string(info.Workflow) != `{"nodes":[]}` {
		t.Fatalf("workflow = %q", info.Workflow)
	}

	_, err = svc.Metadata(models.ScopeOutput, "", "", "bare.mp4", true)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMetadata_FallsBackToDisk(t *testing.T) {
	svc, _, outDir := newService(t)
	if err := os.WriteFile(filepath.Join(outDir, "loose.webm"), []byte("vid"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Never synced, so the index knows nothing about it.
	info, err := svc.Metadata(models.ScopeOutput, "", "", "loose.webm", false)
	if err != nil {
		t.Fatal(err)
	}
	if info.Kind != models.KindVideo {
		t.Fatalf("kind = %q", info.Kind)
	}
}

func TestWorkflow_CachedAcrossFileChanges(t *testing.T) {
	db := testutil.TestDB(t)
	_, outDir, store := testutil.TestStore(t)
	broker := events.NewBroker()
	t.Cleanup(broker.Close)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	svc := assetsvc.New(store, db, broker, t.TempDir(), workflow.NewCache(time.Hour, 10), logger)

	if err := os.WriteFile(filepath.Join(outDir, "clip.mp4"), []byte("vid"), 0o644); err != nil {
		t.Fatal(err)
	}
	sidecar := filepath.Join(outDir, "clip.mp4.json")
	if err := os.WriteFile(sidecar, []byte(`{"nodes":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	wf, err := svc.Workflow(models.ScopeOutput, "", "", "clip.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if string(wf) != `{"nodes":[]}` {
		t.Fatalf("workflow = %q", wf)
	}

	// A cached hit must not re-read the media file.
	if err := os.Remove(sidecar); err != nil {
		t.Fatal(err)
	}
	wf, err = svc.Workflow(models.ScopeOutput, "", "", "clip.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if string(wf) != `{"nodes":[]}` {
		t.Fatalf("cached workflow = %q", wf)
	}

	// Absence is cached too: a sidecar appearing later stays invisible
	// until the entry expires.
	if err := os.WriteFile(filepath.Join(outDir, "bare.mp4"), []byte("vid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Workflow(models.ScopeOutput, "", "", "bare.mp4"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "bare.mp4.json"), []byte(`{"nodes":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Workflow(models.ScopeOutput, "", "", "bare.mp4"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want cached ErrNotFound", err)
	}
}

func TestWorkflow_TTLBoundsStaleness(t *testing.T) {
	db := testutil.TestDB(t)
	_, outDir, store := testutil.TestStore(t)
	broker := events.NewBroker()
	t.Cleanup(broker.Close)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	svc := assetsvc.New(store, db, broker, t.TempDir(), workflow.NewCache(time.Nanosecond, 10), logger)

	if err := os.WriteFile(filepath.Join(outDir, "clip.mp4"), []byte("vid"), 0o644); err != nil {
		t.Fatal(err)
	}
	sidecar := filepath.Join(outDir, "clip.mp4.json")
	if err := os.WriteFile(sidecar, []byte(`{"nodes":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Workflow(models.ScopeOutput, "", "", "clip.mp4"); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(sidecar); err != nil {
		t.Fatal(err)
	}

	// With a nanosecond TTL the entry is already expired, so the lookup
	// sees the deletion.
	time.Sleep(time.Millisecond)
	if _, err := svc.Workflow(models.ScopeOutput, "", "", "clip.mp4"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after expiry", err)
	}
}

func TestArchive_BuildAndFetch(t *testing.T) {
	svc, _, outDir := newService(t)
	for _, name := range []string{"a.png", "b.png"} {
		if err := os.WriteFile(filepath.Join(outDir, name), []byte("img-"+name), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	token := "tok-archive"
	err := svc.BuildArchive(token, []assetsvc.ArchiveItem{
		{Filename: "a.png", Scope: models.ScopeOutput},
		{Filename: "b.png", Scope: models.ScopeOutput},
	})
	if err != nil {
		t.Fatal(err)
	}

	var path string
	deadline := time.Now().Add(5 * time.Second)
	for {
		path, err = svc.ArchivePath(token)
		if err == nil {
			break
		}
		if !errors.Is(err, apperr.ErrArchiveNotReady) {
			t.Fatal(err)
		}
		if time.Now().After(deadline) {
			t.Fatal("archive never became ready")
		}
		time.Sleep(10 * time.Millisecond)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	if len(zr.File) != 2 {
		t.Fatalf("entries = %d", len(zr.File))
	}
}

func TestArchive_UnknownToken(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.ArchivePath("missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestArchive_DuplicateNamesDisambiguated(t *testing.T) {
	svc, _, outDir := newService(t)
	if err := os.MkdirAll(filepath.Join(outDir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "x.png"), []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "sub", "x.png"), []byte("two"), 0o644); err != nil {
		t.Fatal(err)
	}

	token := "tok-dupes"
	err := svc.BuildArchive(token, []assetsvc.ArchiveItem{
		{Filename: "x.png", Scope: models.ScopeOutput},
		{Filename: "x.png", Subfolder: "sub", Scope: models.ScopeOutput},
	})
	if err != nil {
		t.Fatal(err)
	}

	var path string
	deadline := time.Now().Add(5 * time.Second)
	for {
		path, err = svc.ArchivePath(token)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("archive never became ready: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if !names["x.png"] || !names["x (1).png"] {
		t.Fatalf("names = %v", names)
	}
}
