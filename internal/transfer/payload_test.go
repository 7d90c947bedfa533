package transfer

import (
	"testing"

	"github.com/starford/ehwaz/internal/models"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	a := models.Asset{
		Filename:  "clip.mp4",
		Subfolder: "renders/day1",
		Scope:     models.ScopeOutput,
		RootID:    "r1",
		Kind:      models.KindVideo,
	}
	raw, ok := Encode(a)
	if !ok {
		t.Fatal("Encode returned ok=false for a well-formed asset")
	}
	p := Decode(raw)
	if p == nil {
		t.Fatal("Decode returned nil for encoded payload")
	}
	if p.Filename != a.Filename || p.Subfolder != a.Subfolder || p.Scope != a.Scope || p.RootID != a.RootID || p.Kind != a.Kind {
		t.Errorf("round trip mismatch: %+v", p)
	}
}

func TestEncodeRejectsPathyFilename(t *testing.T) {
	if _, ok := Encode(models.Asset{Filename: "a/b.mp4"}); ok {
		t.Error("Encode accepted filename containing a path separator")
	}
}

func TestDecodeRejections(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty string", ""},
		{"unparsable json", "{not json"},
		{"empty filename", `{"filename":"","type":"output"}`},
		{"slash in filename", `{"filename":"a/b.mp4","type":"output"}`},
		{"backslash in filename", `{"filename":"a\\b.mp4","type":"output"}`},
		{"nul in filename", `{"filename":"a\u0000b.mp4","type":"output"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if p := Decode(tc.raw); p != nil {
				t.Errorf("Decode(%q) = %+v, want nil", tc.raw, p)
			}
		})
	}
}

func TestDecodeSanitizes(t *testing.T) {
	p := Decode(`{"filename":"a.png","subfolder":"sub\u0000dir","type":"bogus","kind":"weird"}`)
	if p == nil {
		t.Fatal("Decode returned nil")
	}
	if p.Subfolder != "subdir" {
		t.Errorf("subfolder = %q, want NUL stripped", p.Subfolder)
	}
	if p.Scope != models.ScopeOutput {
		t.Errorf("scope = %q, want coerced to output", p.Scope)
	}
	if p.Kind != "" {
		t.Errorf("kind = %q, want cleared", p.Kind)
	}
}

func TestRelPath(t *testing.T) {
	if got := (Payload{Filename: "a.png"}).RelPath(); got != "a.png" {
		t.Errorf("RelPath = %q", got)
	}
	if got := (Payload{Filename: "a.png", Subfolder: "sub"}).RelPath(); got != "sub/a.png" {
		t.Errorf("RelPath = %q", got)
	}
}
