package index_test

import (
	"testing"
	"time"

	"github.com/starford/ehwaz/internal/index"
	"github.com/starford/ehwaz/internal/models"
	"github.com/starford/ehwaz/internal/testutil"
)

func row(name, sub string) index.AssetRow {
	kind, _ := models.KindForName(name)
	return index.AssetRow{
		Scope:     models.ScopeOutput,
		Subfolder: sub,
		Filename:  name,
		Kind:      kind,
		Size:      3,
		Checksum:  "cs-" + name,
		UpdatedAt: time.Now(),
	}
}

func TestUpsertAndGet(t *testing.T) {
	db := testutil.TestDB(t)

	if err := db.UpsertAsset(row("clip.mp4", "renders")); err != nil {
		t.Fatalf("UpsertAsset: %v", err)
	}
	got, err := db.GetAsset(models.ScopeOutput, "", "renders", "clip.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Kind != models.KindVideo || got.Checksum != "cs-clip.mp4" {
		t.Errorf("row = %+v", got)
	}

	// Upsert with a new checksum replaces.
	r := row("clip.mp4", "renders")
	r.Checksum = "cs-2"
	if err := db.UpsertAsset(r); err != nil {
		t.Fatal(err)
	}
	got, _ = db.GetAsset(models.ScopeOutput, "", "renders", "clip.mp4")
	if got.Checksum != "cs-2" {
		t.Errorf("checksum = %q after upsert", got.Checksum)
	}
}

func TestListAssets_Filters(t *testing.T) {
	db := testutil.TestDB(t)
	for _, r := range []index.AssetRow{row("a.mp4", ""), row("b.png", ""), row("c.wav", "")} {
		if err := db.UpsertAsset(r); err != nil {
			t.Fatal(err)
		}
	}

	all, total, err := db.ListAssets(10, 0, models.ScopeOutput, "")
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(all) != 3 {
		t.Errorf("total=%d len=%d", total, len(all))
	}

	vids, total, err := db.ListAssets(10, 0, models.ScopeOutput, models.KindVideo)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(vids) != 1 || vids[0].Filename != "a.mp4" {
		t.Errorf("video filter: total=%d rows=%+v", total, vids)
	}
}

func TestSearchAssets(t *testing.T) {
	db := testutil.TestDB(t)
	for _, r := range []index.AssetRow{row("sunset.mp4", "beach"), row("other.png", "")} {
		if err := db.UpsertAsset(r); err != nil {
			t.Fatal(err)
		}
	}
	hits, err := db.SearchAssets("sunset", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Filename != "sunset.mp4" {
		t.Errorf("hits = %+v", hits)
	}
	// Subfolder matches too.
	hits, _ = db.SearchAssets("beach", 10)
	if len(hits) != 1 {
		t.Errorf("subfolder search hits = %+v", hits)
	}
}

func TestDeleteAndChecksums(t *testing.T) {
	db := testutil.TestDB(t)
	if err := db.UpsertAsset(row("a.mp4", "sub")); err != nil {
		t.Fatal(err)
	}
	cs, err := db.AllChecksums(models.ScopeOutput, "")
	if err != nil {
		t.Fatal(err)
	}
	if cs["sub/a.mp4"] != "cs-a.mp4" {
		t.Errorf("checksums = %v", cs)
	}

	if err := db.DeleteAsset(models.ScopeOutput, "", "sub", "a.mp4"); err != nil {
		t.Fatal(err)
	}
	cs, _ = db.AllChecksums(models.ScopeOutput, "")
	if len(cs) != 0 {
		t.Errorf("checksums after delete = %v", cs)
	}
}
