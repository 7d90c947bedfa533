// Package workflow recovers and validates computational graphs embedded in
// media-file metadata. Documents originate from untrusted files, so every
// graph passes structural validation before it reaches the canvas host.
package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/ehwaz/internal/apperr"
)

// Structural ceilings for recovered graph documents.
const (
	MaxNodes       = 5000
	MaxLinks       = 20000
	MaxDocumentLen = 5 << 20 // serialized bytes
	maxTypeLen     = 256
	maxWidgetLen   = 8192
)

// Document is a validated embedded graph, retaining the raw serialized form
// for the canvas host's load routine.
type Document struct {
	Raw   []byte           `json:"-"`
	Nodes []NodeDescriptor `json:"nodes"`
	Links []Link           `json:"links"`
}

// NodeDescriptor is one node of an embedded graph.
type NodeDescriptor struct {
	ID      json.Number `json:"id"`
	Type    string      `json:"type"`
	Widgets []any       `json:"widgets_values"`
}

// Link is one edge of an embedded graph. The wire form is either a tuple
// of 4+ elements or an object carrying a numeric id; both unmarshal here.
type Link struct {
	raw json.RawMessage
}

// UnmarshalJSON stores the raw form; structural checks happen in Parse.
func (l *Link) UnmarshalJSON(b []byte) error {
	l.raw = append(l.raw[:0], b...)
	return nil
}

// MarshalJSON round-trips the original wire form.
func (l Link) MarshalJSON() ([]byte, error) {
	if l.raw == nil {
		return []byte("null"), nil
	}
	return l.raw, nil
}

func (l Link) validate() error {
	var tuple []any
	if err := json.Unmarshal(l.raw, &tuple); err == nil {
		if len(tuple) < 4 {
			return fmt.Errorf("link tuple has %d elements, want at least 4", len(tuple))
		}
		return nil
	}
	var obj struct {
		ID *float64 `json:"id"`
	}
	if err := json.Unmarshal(l.raw, &obj); err != nil {
		return fmt.Errorf("link is neither a tuple nor an object")
	}
	if obj.ID == nil {
		return fmt.Errorf("link object is missing a numeric id")
	}
	return nil
}

// Parse validates raw as an embedded graph document. Any single violation
// rejects the whole graph with apperr.ErrGraphRejected.
func Parse(raw []byte) (*Document, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty document", apperr.ErrGraphRejected)
	}
	if len(raw) > MaxDocumentLen {
		return nil, fmt.Errorf("%w: document is %d bytes, limit %d", apperr.ErrGraphRejected, len(raw), MaxDocumentLen)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrGraphRejected, err)
	}
	if len(doc.Nodes) == 0 {
		return nil, fmt.Errorf("%w: no nodes", apperr.ErrGraphRejected)
	}
	if len(doc.Nodes) > MaxNodes {
		return nil, fmt.Errorf("%w: %d nodes, limit %d", apperr.ErrGraphRejected, len(doc.Nodes), MaxNodes)
	}
	if len(doc.Links) > MaxLinks {
		return nil, fmt.Errorf("%w: %d links, limit %d", apperr.ErrGraphRejected, len(doc.Links), MaxLinks)
	}
	for i, n := range doc.Nodes {
		if err := validateNode(n); err != nil {
			return nil, fmt.Errorf("%w: node %d: %v", apperr.ErrGraphRejected, i, err)
		}
	}
	for i, l := range doc.Links {
		if err := l.validate(); err != nil {
			return nil, fmt.Errorf("%w: link %d: %v", apperr.ErrGraphRejected, i, err)
		}
	}
	doc.Raw = raw
	return &doc, nil
}

func validateNode(n NodeDescriptor) error {
	if n.Type == "" {
		return fmt.Errorf("empty type")
	}
	if len(n.Type) > maxTypeLen {
		return fmt.Errorf("type length %d exceeds %d", len(n.Type), maxTypeLen)
	}
	for _, r := range n.Type {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("type contains control characters")
		}
	}
	for wi, w := range n.Widgets {
		s, ok := w.(string)
		if !ok {
			continue
		}
		if len(s) > maxWidgetLen {
			return fmt.Errorf("widget %d length %d exceeds %d", wi, len(s), maxWidgetLen)
		}
		if strings.ContainsRune(s, 0) {
			return fmt.Errorf("widget %d contains NUL", wi)
		}
	}
	return nil
}
