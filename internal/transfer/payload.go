// Package transfer implements the cross-boundary drag payload codec.
//
// The payload travels through an untrusted transfer channel (the drag
// source and the drop target are separate surfaces), so Decode re-validates
// every field regardless of what Encode produced.
package transfer

import (
	"encoding/json"
	"strings"

	"github.com/starford/ehwaz/internal/models"
)

// Transfer channel MIME types.
const (
	// MimeAsset carries the JSON-encoded Payload.
	MimeAsset = "application/x-ehwaz-asset"
	// MimeText is the plain-text fallback carrying the bare filename.
	MimeText = "text/plain"
	// MimeURIList is the standard uri-list entry set on drag-out.
	MimeURIList = "text/uri-list"
	// MimeDownloadURL is the OS download entry (mime:filename:url).
	MimeDownloadURL = "DownloadURL"
)

// Payload is the drag payload exchanged between the gallery and the canvas.
type Payload struct {
	Filename  string       `json:"filename"`
	Subfolder string       `json:"subfolder"`
	Scope     models.Scope `json:"type"`
	RootID    string       `json:"root_id,omitempty"`
	Kind      models.Kind  `json:"kind,omitempty"`
}

// RelPath returns the payload's path relative to its scope root.
func (p Payload) RelPath() string {
	if p.Subfolder != "" {
		return p.Subfolder + "/" + p.Filename
	}
	return p.Filename
}

// CacheKey returns the composite identity used by the workflow cache.
func (p Payload) CacheKey() string {
	return string(p.Scope) + "/" + p.Filename + "/" + p.Subfolder + "/" + p.RootID
}

// Encode builds the transfer string for an asset record at drag-start time.
// The boolean is false when the asset cannot produce a valid payload; the
// drag then proceeds without the custom transfer type.
func Encode(a models.Asset) (string, bool) {
	p := Payload{
		Filename:  a.Filename,
		Subfolder: a.Subfolder,
		Scope:     a.Scope,
		RootID:    a.RootID,
		Kind:      a.Kind,
	}
	if !validFilename(p.Filename) {
		return "", false
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", false
	}
	return string(raw), true
}

// Decode parses and sanitizes a raw transfer string. It returns nil on any
// parse or shape failure; callers must treat nil as "not a managed drag".
func Decode(raw string) *Payload {
	if raw == "" {
		return nil
	}
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil
	}
	if !validFilename(p.Filename) {
		return nil
	}
	p.Subfolder = strings.ReplaceAll(p.Subfolder, "\x00", "")
	if !models.ValidScope(p.Scope) {
		p.Scope = models.ScopeOutput
	}
	switch p.Kind {
	case models.KindVideo, models.KindAudio, models.KindImage:
	default:
		p.Kind = ""
	}
	return &p
}

// validFilename reports whether name is a bare file name: non-empty, no
// path separators, no NUL bytes.
func validFilename(name string) bool {
	if name == "" {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}
