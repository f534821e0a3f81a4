package scene

import "github.com/tessera-wm/core/internal/geom"

// Layout resolves rect into absolute rectangles for id and every visible
// descendant (§4.G "Layout algorithm (tiling)"). It is the single entry
// point layout-affecting mutations call after touching the tree; callers
// are responsible for marking the affected outputs damaged afterwards.
func (g *Graph) Layout(id NodeID, rect geom.Rect) {
	n := g.Get(id)
	if n == nil {
		return
	}
	n.rect = rect
	n.visible = true

	switch n.Kind {
	case KindWorkspace:
		g.layoutWorkspace(n, rect)
	case KindContainer:
		g.layoutContainer(n, rect)
	default:
		for _, c := range n.children {
			g.Layout(c, rect)
		}
	}
}

// layoutWorkspace implements the fullscreen-override / tiled-root /
// floats precedence (§4.G).
func (g *Graph) layoutWorkspace(n *Node, usable geom.Rect) {
	if n.fullscreen != Nil {
		for _, c := range n.children {
			g.hide(c)
		}
		g.Layout(n.fullscreen, usable)
		return
	}
	for _, c := range n.children {
		child := g.Get(c)
		switch child.Kind {
		case KindFloat:
			// Floats keep their own absolute rect; only re-stamp
			// visibility, they are not distributed by the workspace.
			child.visible = true
			g.Layout(c, child.rect)
		default:
			g.Layout(c, usable)
		}
	}
}

// layoutContainer distributes rect among visible children along n.split,
// weighted by n.factor, with rounding remainder spread across the
// trailing children so the sum always equals the container's extent
// exactly (§4.G invariant 2).
func (g *Graph) layoutContainer(n *Node, rect geom.Rect) {
	if n.mono {
		for i, c := range n.children {
			if i == n.active {
				g.Layout(c, rect)
			} else {
				g.hide(c)
			}
		}
		return
	}
	if len(n.children) == 0 {
		return
	}

	var total float32
	for _, f := range n.factor {
		total += f
	}
	if total <= 0 {
		total = float32(len(n.children))
		for i := range n.factor {
			n.factor[i] = 1
		}
	}

	g.distributeAxis(n, rect, n.split == SplitHorizontal, total)
}

// distributeAxis performs the weighted split along the horizontal axis
// (if horiz) or vertical axis, filling the non-split axis fully.
func (g *Graph) distributeAxis(n *Node, rect geom.Rect, horiz bool, total float32) {
	extent := rect.W
	if !horiz {
		extent = rect.H
	}
	shares := make([]int32, len(n.children))
	var sum int32
	for i, f := range n.factor {
		shares[i] = int32(float32(extent) * f / total)
		sum += shares[i]
	}
	// Spread rounding remainder across the trailing children so widths
	// sum to exactly extent (§4.G invariant 2).
	remainder := extent - sum
	for i := len(shares) - 1; remainder != 0 && i >= 0; i-- {
		if remainder > 0 {
			shares[i]++
			remainder--
		} else {
			shares[i]--
			remainder++
		}
	}

	off := rect.X
	if !horiz {
		off = rect.Y
	}
	for i, c := range n.children {
		var childRect geom.Rect
		if horiz {
			childRect = geom.Rect{X: off, Y: rect.Y, W: shares[i], H: rect.H}
		} else {
			childRect = geom.Rect{X: rect.X, Y: off, W: rect.W, H: shares[i]}
		}
		g.Layout(c, childRect)
		off += shares[i]
	}
}

// hide marks id and its whole subtree invisible without discarding
// layout state, so it can become visible again without recomputation
// (mono-mode siblings, workspace switches).
func (g *Graph) hide(id NodeID) {
	n := g.Get(id)
	if n == nil {
		return
	}
	n.visible = false
	for _, c := range n.children {
		g.hide(c)
	}
}

// SetSplit changes a container's split axis and relays it out.
func (g *Graph) SetSplit(id NodeID, axis SplitAxis) {
	n := g.Get(id)
	if n == nil || n.Kind != KindContainer {
		return
	}
	n.split = axis
	g.Layout(id, n.rect)
}

// ToggleMono flips a container between tiled and mono presentation.
func (g *Graph) ToggleMono(id NodeID) {
	n := g.Get(id)
	if n == nil || n.Kind != KindContainer {
		return
	}
	n.mono = !n.mono
	g.Layout(id, n.rect)
}

// SetFullscreen installs target as the workspace's fullscreen override,
// hiding the tiled root and floats (§4.G).
func (g *Graph) SetFullscreen(workspace, target NodeID) {
	n := g.Get(workspace)
	if n == nil || n.Kind != KindWorkspace {
		return
	}
	n.fullscreen = target
	g.Layout(workspace, n.rect)
}

// Unfullscreen clears the workspace's fullscreen override.
func (g *Graph) Unfullscreen(workspace NodeID) {
	n := g.Get(workspace)
	if n == nil || n.Kind != KindWorkspace {
		return
	}
	n.fullscreen = Nil
	g.Layout(workspace, n.rect)
}

// Anchor bits for LayerRect/ExclusiveInset (§4.G "anchor/margins/
// exclusive-zone protocol").
const (
	AnchorTop uint8 = 1 << iota
	AnchorBottom
	AnchorLeft
	AnchorRight
)

// LayerRect computes a layer surface's rect from the output's usable area
// and the surface's anchor/margins/exclusive zone, mirroring the wlr
// layer-shell anchoring algorithm.
func LayerRect(usable geom.Rect, anchor uint8, margins [4]int32, width, height int32) geom.Rect {
	r := geom.Rect{}
	horiz := anchor&AnchorLeft != 0 && anchor&AnchorRight != 0
	vert := anchor&AnchorTop != 0 && anchor&AnchorBottom != 0

	switch {
	case horiz:
		r.X = usable.X + margins[2]
		r.W = usable.X + usable.W - margins[3] - r.X
	case anchor&AnchorLeft != 0:
		r.X = usable.X + margins[2]
		r.W = width
	case anchor&AnchorRight != 0:
		right := usable.X + usable.W - margins[3]
		r.X = right - width
		r.W = width
	default:
		mid := usable.X + usable.W/2
		r.X = mid - width/2
		r.W = width
	}

	switch {
	case vert:
		r.Y = usable.Y + margins[0]
		r.H = usable.Y + usable.H - margins[1] - r.Y
	case anchor&AnchorTop != 0:
		r.Y = usable.Y + margins[0]
		r.H = height
	case anchor&AnchorBottom != 0:
		bottom := usable.Y + usable.H - margins[1]
		r.Y = bottom - height
		r.H = height
	default:
		mid := usable.Y + usable.H/2
		r.Y = mid - height/2
		r.H = height
	}
	return r
}

// ExclusiveInset reduces usable by a layer surface's exclusive zone on the
// single edge it is anchored to, for the next layer surface's (or the
// workspace's) usable-area computation. Surfaces anchored to more than one
// edge (or to none) reserve no exclusive zone.
func ExclusiveInset(usable geom.Rect, anchor uint8, exclusive int32) geom.Rect {
	if exclusive <= 0 {
		return usable
	}
	switch anchor {
	case AnchorTop:
		usable.Y += exclusive
		usable.H -= exclusive
	case AnchorBottom:
		usable.H -= exclusive
	case AnchorLeft:
		usable.X += exclusive
		usable.W -= exclusive
	case AnchorRight:
		usable.W -= exclusive
	}
	return usable
}
