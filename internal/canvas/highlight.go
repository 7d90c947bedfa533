package canvas

import "sync"

// Highlight feedback colors applied to a candidate drop target.
const (
	highlightColor      = "#41b883"
	highlightBackground = "#1f3a2e"
)

type highlightRecord struct {
	node  *Node
	saved Colors
}

// Highlighter tracks the highlighted drop-target node per host. Each host
// owns at most one highlight at a time; records for different hosts never
// interfere. Callers must Detach a host when its canvas is torn down so the
// record does not outlive it.
type Highlighter struct {
	mu      sync.Mutex
	records map[Host]*highlightRecord
}

// NewHighlighter creates an empty Highlighter.
func NewHighlighter() *Highlighter {
	return &Highlighter{records: make(map[Host]*highlightRecord)}
}

// Apply highlights node on h, first reverting any previously highlighted
// node for that host. It is a no-op when node is already highlighted.
func (hl *Highlighter) Apply(h Host, node *Node) {
	if h == nil || node == nil {
		return
	}
	hl.mu.Lock()
	rec := hl.records[h]
	if rec != nil && rec.node == node {
		hl.mu.Unlock()
		return
	}
	if rec != nil {
		rec.node.Display = rec.saved
	}
	hl.records[h] = &highlightRecord{node: node, saved: node.Display}
	node.Display = Colors{Color: highlightColor, Background: highlightBackground}
	hl.mu.Unlock()
	h.Redraw()
}

// Clear reverts the highlighted node for h, if any. Calling it with nothing
// highlighted is a safe no-op.
func (hl *Highlighter) Clear(h Host) {
	if h == nil {
		return
	}
	hl.mu.Lock()
	rec := hl.records[h]
	if rec == nil {
		hl.mu.Unlock()
		return
	}
	rec.node.Display = rec.saved
	delete(hl.records, h)
	hl.mu.Unlock()
	h.Redraw()
}

// Highlighted returns the currently highlighted node for h, or nil.
func (hl *Highlighter) Highlighted(h Host) *Node {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	if rec := hl.records[h]; rec != nil {
		return rec.node
	}
	return nil
}

// Detach drops h's record without touching node colors. Call on canvas
// teardown.
func (hl *Highlighter) Detach(h Host) {
	hl.mu.Lock()
	delete(hl.records, h)
	hl.mu.Unlock()
}
