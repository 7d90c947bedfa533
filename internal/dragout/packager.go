// Package dragout prepares transfer entries for exporting assets to the
// operating system via native drag semantics. Everything here is
// best-effort enhancement: failures are logged and swallowed, never
// surfaced to the drag gesture.
package dragout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"

	"github.com/google/uuid"

	"github.com/starford/ehwaz/internal/models"
)

// Doer is the http client surface the packager consumes.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Transfer holds the entries to place on the drag's data transfer.
type Transfer struct {
	// DownloadURL is the OS download entry, "mimeType:filename:url".
	DownloadURL string
	// URIList is the text/uri-list entry.
	URIList string
	// Token is the archive token for batch exports, empty for single.
	Token string
}

type archiveItem struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Scope     string `json:"type"`
	RootID    string `json:"root_id,omitempty"`
}

// Packager builds drag-out transfers against the graph host at base.
type Packager struct {
	base string
	http Doer
	// newToken is swapped in tests for deterministic tokens.
	newToken func() string
}

// NewPackager creates a Packager.
func NewPackager(base string, client Doer) *Packager {
	if client == nil {
		client = http.DefaultClient
	}
	return &Packager{
		base:     base,
		http:     client,
		newToken: func() string { return uuid.NewString() },
	}
}

// Package prepares the transfer for a drag-out of selection. A single
// asset exports directly by its view URL; two or more assets are exported
// as a server-side archive addressed by an opaque token that is expected
// to materialize before the OS requests the bytes.
func (p *Packager) Package(ctx context.Context, selection []models.Asset) *Transfer {
	switch len(selection) {
	case 0:
		return nil
	case 1:
		return p.single(selection[0])
	default:
		return p.batch(ctx, selection)
	}
}

func (p *Packager) single(a models.Asset) *Transfer {
	u := p.viewURL(a)
	mt := mime.TypeByExtension(path.Ext(a.Filename))
	if mt == "" {
		mt = "application/octet-stream"
	}
	return &Transfer{
		DownloadURL: fmt.Sprintf("%s:%s:%s", mt, a.Filename, u),
		URIList:     u,
	}
}

func (p *Packager) batch(ctx context.Context, selection []models.Asset) *Transfer {
	token := p.newToken()
	items := make([]archiveItem, len(selection))
	for i, a := range selection {
		items[i] = archiveItem{
			Filename:  a.Filename,
			Subfolder: a.Subfolder,
			Scope:     string(a.Scope),
			RootID:    a.RootID,
		}
	}

	// Fire and forget: the archive builds asynchronously while the OS
	// drag is still in progress.
	go p.requestArchive(ctx, token, items)

	u := p.base + "/archive/" + url.PathEscape(token)
	name := "assets-" + token[:8] + ".zip"
	return &Transfer{
		DownloadURL: fmt.Sprintf("application/zip:%s:%s", name, u),
		URIList:     u,
		Token:       token,
	}
}

func (p *Packager) requestArchive(ctx context.Context, token string, items []archiveItem) {
	body, err := json.Marshal(map[string]any{"token": token, "items": items})
	if err != nil {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.base+"/archive", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.http.Do(req)
	if err != nil {
		slog.Warn("dragout: archive request failed",
			slog.String("token", token), slog.String("error", err.Error()))
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		slog.Warn("dragout: archive request rejected",
			slog.String("token", token), slog.Int("status", resp.StatusCode))
	}
}

func (p *Packager) viewURL(a models.Asset) string {
	u := p.base + "/view/" + url.PathEscape(string(a.Scope))
	if a.Subfolder != "" {
		for _, seg := range splitPath(a.Subfolder) {
			u += "/" + url.PathEscape(seg)
		}
	}
	return u + "/" + url.PathEscape(a.Filename)
}

func splitPath(s string) []string {
	var out []string
	for _, seg := range bytes.Split([]byte(s), []byte("/")) {
		if len(seg) > 0 {
			out = append(out, string(seg))
		}
	}
	return out
}
