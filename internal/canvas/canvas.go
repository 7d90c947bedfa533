// Package canvas models the node-graph editing surface the drop subsystem
// targets. It does not render anything; it exposes just enough geometry and
// node state for drop-target resolution and highlight feedback.
package canvas

// Point is a position in canvas space.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in screen (client) space.
type Rect struct {
	Left, Top, Width, Height float64
}

// Contains reports whether the client-space point (x, y) is inside r.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.Left && x < r.Left+r.Width && y >= r.Top && y < r.Top+r.Height
}

// Field is one editable property on a node.
type Field struct {
	Name     string
	Type     string // "text", "combo", "number", "toggle", ...
	Value    any
	Options  []string  // combo option set, nil otherwise
	OnChange func(any) // value-change callback, nil when absent
}

// IsEmpty reports whether the field currently holds no usable value.
func (f *Field) IsEmpty() bool {
	s, ok := f.Value.(string)
	return f.Value == nil || (ok && s == "")
}

// Colors is a node's display color pair, saved and restored around
// highlight feedback.
type Colors struct {
	Color      string
	Background string
}

// Node is one node on the canvas.
type Node struct {
	ID        int
	Type      string
	Title     string
	Pos       Point
	Width     float64
	Height    float64
	Collapsed bool
	Fields    []*Field
	Display   Colors
}

// Bounds returns the node's logical-space bounding box, accounting for the
// collapsed height variant.
func (n *Node) Bounds() (x, y, w, h float64) {
	h = n.Height
	if n.Collapsed {
		h = collapsedHeight
	}
	return n.Pos.X, n.Pos.Y, n.Width, h
}

const collapsedHeight = 30

// Host is the canvas surface the drop subsystem drives. Scale and Offset
// are read fresh on every resolve because pan/zoom can change between
// pointer ticks.
type Host interface {
	// Rect returns the canvas element's bounding rectangle in client space.
	Rect() (Rect, bool)
	// Scale returns the current zoom factor.
	Scale() float64
	// Offset returns the current pan offset in logical space.
	Offset() Point
	// Nodes returns all nodes in z-order, bottom to top.
	Nodes() []*Node
	// Redraw requests a repaint.
	Redraw()
	// MarkDirty flags the graph as modified.
	MarkDirty()
	// LoadGraph replaces the canvas contents with a validated graph
	// document serialized as JSON.
	LoadGraph(doc []byte) error
}

// PositionQuerier is implemented by hosts with a native node-at-position
// query; the resolver delegates to it when available.
type PositionQuerier interface {
	NodeAt(logical Point) *Node
}
