package canvas

// ResolveNodeAt maps a client-space pointer position onto the host's
// logical space and returns the topmost node under it, or nil.
//
// It never panics; a missing rectangle, a zero scale, or any other
// geometry failure yields nil. Cost is O(1) when the host implements
// PositionQuerier, O(n) in nodes otherwise.
func ResolveNodeAt(h Host, clientX, clientY float64) *Node {
	if h == nil {
		return nil
	}
	rect, ok := h.Rect()
	if !ok {
		return nil
	}
	// Cheap reject before any transform math.
	if !rect.Contains(clientX, clientY) {
		return nil
	}

	scale := h.Scale()
	if scale <= 0 {
		return nil
	}
	off := h.Offset()
	logical := Point{
		X: (clientX-rect.Left)/scale - off.X,
		Y: (clientY-rect.Top)/scale - off.Y,
	}

	if q, ok := h.(PositionQuerier); ok {
		return q.NodeAt(logical)
	}

	// Manual hit test, top to bottom.
	nodes := h.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if n == nil {
			continue
		}
		x, y, w, hh := n.Bounds()
		if logical.X >= x && logical.X < x+w && logical.Y >= y && logical.Y < y+hh {
			return n
		}
	}
	return nil
}
