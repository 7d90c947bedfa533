package staging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/models"
	"github.com/starford/ehwaz/internal/transfer"
)

func payload() transfer.Payload {
	return transfer.Payload{Filename: "clip.mp4", Subfolder: "renders", Scope: models.ScopeOutput, RootID: "r1"}
}

func TestStage_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/stage" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req struct {
			Index   bool   `json:"index"`
			Purpose string `json:"purpose"`
			Files   []struct {
				Filename      string `json:"filename"`
				Subfolder     string `json:"subfolder"`
				DestSubfolder string `json:"dest_subfolder"`
				Scope         string `json:"type"`
				RootID        string `json:"root_id"`
			} `json:"files"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if !req.Index || req.Purpose != "preview" {
			t.Errorf("index=%v purpose=%q", req.Index, req.Purpose)
		}
		if len(req.Files) != 1 || req.Files[0].Filename != "clip.mp4" || req.Files[0].Scope != "output" {
			t.Errorf("files = %+v", req.Files)
		}
		if req.Files[0].DestSubfolder != "" {
			t.Errorf("dest_subfolder = %q, want empty", req.Files[0].DestSubfolder)
		}
		w.Write([]byte(`{"ok":true,"data":{"staged":[{"name":"clip.mp4","subfolder":"renders","path":"/data/input/renders/clip.mp4"}]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	res, err := c.Stage(context.Background(), payload(), Options{Index: true, Purpose: "preview"})
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if res.RelativePath != "renders/clip.mp4" {
		t.Errorf("RelativePath = %q", res.RelativePath)
	}
	if res.AbsolutePath != "/data/input/renders/clip.mp4" {
		t.Errorf("AbsolutePath = %q", res.AbsolutePath)
	}
}

func TestStage_BareNameWithoutSubfolder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"data":{"staged":[{"name":"clip.mp4","subfolder":"","path":"/data/input/clip.mp4"}]}}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, nil).Stage(context.Background(), payload(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.RelativePath != "clip.mp4" {
		t.Errorf("RelativePath = %q, want bare name", res.RelativePath)
	}
}

func TestStage_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Stage(context.Background(), payload(), Options{})
	if !errors.Is(err, apperr.ErrStagingFailed) {
		t.Errorf("err = %v, want ErrStagingFailed", err)
	}
}

func TestStage_HostRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error":"source missing"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Stage(context.Background(), payload(), Options{})
	if !errors.Is(err, apperr.ErrStagingFailed) {
		t.Errorf("err = %v, want ErrStagingFailed", err)
	}
}
