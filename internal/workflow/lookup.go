package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/starford/ehwaz/internal/transfer"
)

// Doer is the http client surface the lookup consumes.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Resolver recovers embedded graphs for assets: cache, then the quick
// lookup endpoint, then the metadata endpoint fallback, then shape
// validation.
type Resolver struct {
	base  string
	http  Doer
	cache *Cache
}

// NewResolver creates a Resolver against the host at base.
func NewResolver(base string, client Doer, cache *Cache) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	if cache == nil {
		cache = NewCache(0, 0)
	}
	return &Resolver{base: base, http: client, cache: cache}
}

// Cache exposes the underlying cache (shared with path-addressed lookups).
func (r *Resolver) Cache() *Cache { return r.cache }

// Resolve returns the embedded graph for the asset p identifies, or
// (nil, nil) when the asset provably has none. Network failures return an
// error and are not cached.
func (r *Resolver) Resolve(ctx context.Context, p transfer.Payload) (*Document, error) {
	key := p.CacheKey()
	if doc, ok := r.cache.Get(key); ok {
		return doc, nil
	}

	raw, err := r.quickFetch(ctx, p)
	if err != nil {
		slog.Debug("workflow: quick lookup failed, trying metadata",
			slog.String("filename", p.Filename), slog.String("error", err.Error()))
		raw, err = r.metadataFetch(ctx, p)
		if err != nil {
			return nil, err
		}
	}
	if raw == nil {
		r.cache.Set(key, nil)
		return nil, nil
	}
	// Shape validation happens once, after whichever endpoint answered.
	doc, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, doc)
	return doc, nil
}

// quickFetch returns the raw embedded graph, nil when the asset has none.
func (r *Resolver) quickFetch(ctx context.Context, p transfer.Payload) (json.RawMessage, error) {
	var body struct {
		OK       bool            `json:"ok"`
		Workflow json.RawMessage `json:"workflow"`
	}
	if err := r.getJSON(ctx, "/workflow/quick", p, nil, &body); err != nil {
		return nil, err
	}
	if !body.OK || len(body.Workflow) == 0 || string(body.Workflow) == "null" {
		return nil, nil
	}
	return body.Workflow, nil
}

func (r *Resolver) metadataFetch(ctx context.Context, p transfer.Payload) (json.RawMessage, error) {
	var body struct {
		OK   bool `json:"ok"`
		Data struct {
			Workflow json.RawMessage `json:"workflow"`
		} `json:"data"`
	}
	extra := url.Values{"workflow_only": {"1"}}
	if err := r.getJSON(ctx, "/metadata", p, extra, &body); err != nil {
		return nil, err
	}
	if !body.OK || len(body.Data.Workflow) == 0 || string(body.Data.Workflow) == "null" {
		return nil, nil
	}
	return body.Data.Workflow, nil
}

func (r *Resolver) getJSON(ctx context.Context, path string, p transfer.Payload, extra url.Values, out any) error {
	q := url.Values{
		"type":      {string(p.Scope)},
		"filename":  {p.Filename},
		"subfolder": {p.Subfolder},
		"root_id":   {p.RootID},
	}
	for k, vs := range extra {
		q[k] = vs
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("workflow: build request: %w", err)
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("workflow: %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return fmt.Errorf("workflow: %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("workflow: decode %s: %w", path, err)
	}
	return nil
}
