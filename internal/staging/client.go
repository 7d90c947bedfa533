// Package staging copies remote assets into the graph host's local
// writable directory so the host can read them as inputs.
package staging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/transfer"
)

// Doer is the http client surface the staging client consumes.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options tune a staging call.
type Options struct {
	// Index requests that the staged copy also be added to the asset
	// index.
	Index bool
	// Purpose is an optional tag letting the host pick a faster,
	// index-skipping code path.
	Purpose string
}

// Result describes one staged file. It is never mutated after return.
type Result struct {
	RelativePath string
	AbsolutePath string
	Name         string
	Subfolder    string
}

// fileDescriptor is the wire form of one file in a stage request.
type fileDescriptor struct {
	Filename      string `json:"filename"`
	Subfolder     string `json:"subfolder"`
	DestSubfolder string `json:"dest_subfolder"`
	Scope         string `json:"type"`
	RootID        string `json:"root_id,omitempty"`
}

type stageRequest struct {
	Index   bool             `json:"index"`
	Purpose string           `json:"purpose,omitempty"`
	Files   []fileDescriptor `json:"files"`
}

type stageResponse struct {
	OK   bool `json:"ok"`
	Data struct {
		Staged []struct {
			Name      string `json:"name"`
			Subfolder string `json:"subfolder"`
			Path      string `json:"path"`
		} `json:"staged"`
	} `json:"data"`
	Error string `json:"error"`
}

// Client issues staging requests against the graph host.
type Client struct {
	base string
	http Doer
}

// NewClient creates a staging client against the host at base.
func NewClient(base string, client Doer) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{base: base, http: client}
}

// Stage copies the asset p identifies into the host's input directory.
// A nil result with an error means staging failed; callers must not read
// it as "file already staged".
func (c *Client) Stage(ctx context.Context, p transfer.Payload, opts Options) (*Result, error) {
	body := stageRequest{
		Index:   opts.Index,
		Purpose: opts.Purpose,
		Files: []fileDescriptor{{
			Filename:      p.Filename,
			Subfolder:     p.Subfolder,
			DestSubfolder: "",
			Scope:         string(p.Scope),
			RootID:        p.RootID,
		}},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("staging: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/stage", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("staging: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Warn("staging: request failed",
			slog.String("filename", p.Filename), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", apperr.ErrStagingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		slog.Warn("staging: non-success status",
			slog.String("filename", p.Filename), slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", apperr.ErrStagingFailed, resp.StatusCode)
	}

	var sr stageResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", apperr.ErrStagingFailed, err)
	}
	if !sr.OK || len(sr.Data.Staged) == 0 {
		slog.Warn("staging: host rejected request",
			slog.String("filename", p.Filename), slog.String("error", sr.Error))
		return nil, fmt.Errorf("%w: %s", apperr.ErrStagingFailed, sr.Error)
	}

	staged := sr.Data.Staged[0]
	res := &Result{
		AbsolutePath: staged.Path,
		Name:         staged.Name,
		Subfolder:    staged.Subfolder,
	}
	if staged.Subfolder != "" {
		res.RelativePath = staged.Subfolder + "/" + staged.Name
	} else {
		res.RelativePath = staged.Name
	}
	return res, nil
}
