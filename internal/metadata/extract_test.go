package metadata_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/metadata"
	"github.com/starford/ehwaz/internal/models"
	"github.com/starford/ehwaz/internal/testutil"
)

func chunk(typ string, body []byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(body)))
	buf.WriteString(typ)
	buf.Write(body)
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(body)
	_ = binary.Write(&buf, binary.BigEndian, crc.Sum32())
	return buf.Bytes()
}

func pngWith(chunks ...[]byte) []byte {
	out := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	for _, c := range chunks {
		out = append(out, c...)
	}
	out = append(out, chunk("IEND", nil)...)
	return out
}

func textChunk(key, value string) []byte {
	body := append([]byte(key), 0)
	body = append(body, value...)
	return chunk("tEXt", body)
}

func itxtChunk(key, value string) []byte {
	body := append([]byte(key), 0, 0, 0) // keyword, flag, method
	body = append(body, 0, 0)            // empty language + translated keyword
	body = append(body, value...)
	return chunk("iTXt", body)
}

func TestExtractWorkflow_PNGTextChunk(t *testing.T) {
	_, outDir, store := testutil.TestStore(t)
	png := pngWith(textChunk("workflow", `{"nodes":[],"links":[]}`))
	if err := os.WriteFile(filepath.Join(outDir, "gen.png"), png, 0o644); err != nil {
		t.Fatal(err)
	}

	wf, err := metadata.ExtractWorkflow(store, models.ScopeOutput, "", "gen.png")
	if err != nil {
		t.Fatal(err)
	}
	if string(wf) != `{"nodes":[],"links":[]}` {
		t.Fatalf("workflow = %q", wf)
	}
}

func TestExtractWorkflow_PreferWorkflowOverPrompt(t *testing.T) {
	_, outDir, store := testutil.TestStore(t)
	png := pngWith(
		textChunk("prompt", `{"from":"prompt"}`),
		itxtChunk("workflow", `{"from":"workflow"}`),
	)
	if err := os.WriteFile(filepath.Join(outDir, "gen.png"), png, 0o644); err != nil {
		t.Fatal(err)
	}

	wf, err := metadata.ExtractWorkflow(store, models.ScopeOutput, "", "gen.png")
	if err != nil {
		t.Fatal(err)
	}
	if string(wf) != `{"from":"workflow"}` {
		t.Fatalf("workflow = %q", wf)
	}
}

func TestExtractWorkflow_SidecarFallback(t *testing.T) {
	_, outDir, store := testutil.TestStore(t)
	if err := os.WriteFile(filepath.Join(outDir, "clip.mp4"), []byte("vid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "clip.mp4.json"), []byte(`{"sidecar":true}`), 0o644); err != nil {
		t.Fatal(err)
	}

	wf, err := metadata.ExtractWorkflow(store, models.ScopeOutput, "", "clip.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if string(wf) != `{"sidecar":true}` {
		t.Fatalf("workflow = %q", wf)
	}
}

func TestExtractWorkflow_RawJSONFile(t *testing.T) {
	_, outDir, store := testutil.TestStore(t)
	if err := os.WriteFile(filepath.Join(outDir, "graph.json"), []byte(`{"nodes":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	wf, err := metadata.ExtractWorkflow(store, models.ScopeOutput, "", "graph.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(wf) != `{"nodes":[]}` {
		t.Fatalf("workflow = %q", wf)
	}
}

func TestExtractWorkflow_NoneFound(t *testing.T) {
	_, outDir, store := testutil.TestStore(t)
	png := pngWith(textChunk("comment", "just a note"))
	if err := os.WriteFile(filepath.Join(outDir, "plain.png"), png, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := metadata.ExtractWorkflow(store, models.ScopeOutput, "", "plain.png")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestExtractWorkflow_TruncatedPNG(t *testing.T) {
	full := pngWith(textChunk("comment", "just a note"))
	cases := []struct {
		name string
		data []byte
	}{
		{"signature only", full[:8]},
		{"header cut mid-length", full[:10]},
		{"body cut short", full[:8+8+3]},
		{"crc cut short", chunkless(full)[:len(chunkless(full))-2]},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, outDir, store := testutil.TestStore(t)
			if err := os.WriteFile(filepath.Join(outDir, "cut.png"), tc.data, 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := metadata.ExtractWorkflow(store, models.ScopeOutput, "", "cut.png")
			if !errors.Is(err, apperr.ErrNotFound) {
				t.Fatalf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

// chunkless strips the trailing IEND so truncation lands inside the last
// real chunk's CRC.
func chunkless(png []byte) []byte {
	return png[:len(png)-len(chunk("IEND", nil))]
}

func TestExtractWorkflow_InvalidChunkJSON(t *testing.T) {
	_, outDir, store := testutil.TestStore(t)
	png := pngWith(textChunk("workflow", "not json"))
	if err := os.WriteFile(filepath.Join(outDir, "bad.png"), png, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := metadata.ExtractWorkflow(store, models.ScopeOutput, "", "bad.png")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
