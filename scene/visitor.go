package scene

import (
	"github.com/tessera-wm/core/internal/bitvec"
	"github.com/tessera-wm/core/internal/geom"
)

// Visitor enumerates nodes in declared (display) order; Visit returns
// false to stop descending into id's children (§4.G "a visitor interface
// enumerates nodes in declared order").
type Visitor interface {
	Visit(g *Graph, id NodeID) (descend bool)
}

// VisitorFunc adapts a function to a Visitor.
type VisitorFunc func(g *Graph, id NodeID) bool

func (f VisitorFunc) Visit(g *Graph, id NodeID) bool { return f(g, id) }

// Walk visits id and its descendants in display order, depth-first.
func (g *Graph) Walk(id NodeID, v Visitor) {
	if id == Nil {
		return
	}
	if !v.Visit(g, id) {
		return
	}
	for _, c := range g.Children(id) {
		g.Walk(c, v)
	}
}

// DamageVisitor accumulates the union of every visible, damaged node's
// rect, for the present package's per-output damage accumulation (§4.J).
type DamageVisitor struct {
	Union geom.Rect
	any   bool
}

func (d *DamageVisitor) Visit(g *Graph, id NodeID) bool {
	n := g.Get(id)
	if !n.visible {
		return false
	}
	if n.damaged {
		if d.any {
			d.Union = d.Union.Union(n.rect)
		} else {
			d.Union = n.rect
			d.any = true
		}
	}
	return true
}

// ClearDamage walks the tree clearing every node's damaged flag, called
// once a present pass has consumed the accumulated damage.
func (g *Graph) ClearDamage(root NodeID) {
	g.Walk(root, VisitorFunc(func(g *Graph, id NodeID) bool {
		g.Get(id).damaged = false
		return true
	}))
}

// MarkDamaged flags id (and, since an ancestor's rect is the union of its
// children's, every node between id and the output root needs no
// separate marking: present only inspects leaves and containers with
// their own draw content) as damaged.
func (g *Graph) MarkDamaged(id NodeID) {
	n := g.Get(id)
	if n != nil {
		n.damaged = true
	}
}

// ContributorVisitor collects the ordered, deduplicated NodeIDs of visible
// drawable nodes for present's per-frame draw list (§4.J "the ordered draw
// list ... layers bottom-up, workspace tree, floats, overlay layers,
// software cursor"). seen guards against queuing the same node twice — a
// Walk from the display root only visits each node once, but a caller
// composing the list from several independent Walk calls (one per layer
// band, one for the workspace tree, one for floats) can otherwise hand
// present a contributor twice if a node is reachable from more than one of
// those calls.
type ContributorVisitor struct {
	IDs  []NodeID
	seen bitvec.V[uint64]
}

func (c *ContributorVisitor) Visit(g *Graph, id NodeID) bool {
	n := g.Get(id)
	if !n.visible {
		return false
	}
	if n.Kind == KindSurface || n.Kind == KindLayerSurface {
		c.add(id)
	}
	return true
}

func (c *ContributorVisitor) add(id NodeID) {
	idx := int(id)
	for idx >= c.seen.Len() {
		c.seen.Grow(1)
	}
	if c.seen.IsSet(idx) {
		return
	}
	c.seen.Set(idx)
	c.IDs = append(c.IDs, id)
}

// FindTreeAt descends from root, appending every visited node into path,
// returning the innermost leaf whose rect contains (x, y), or Nil if none
// does (§4.G "find_tree_at(x, y)"). The Display root has no rect of its
// own, so it is descended into without a containment check.
func (g *Graph) FindTreeAt(root NodeID, x, y int32, path *[]NodeID) NodeID {
	n := g.Get(root)
	if n == nil || !n.visible || (n.Kind != KindDisplay && !n.rect.Contains(geom.Point{X: x, Y: y})) {
		return Nil
	}
	*path = append(*path, root)

	children := g.Children(root)
	// Later children are drawn on top (floats/overlay layers appended
	// last); search topmost-first so overlapping nodes resolve correctly.
	for i := len(children) - 1; i >= 0; i-- {
		if hit := g.FindTreeAt(children[i], x, y, path); hit != Nil {
			return hit
		}
	}
	if n.Kind == KindSurface || n.Kind == KindLayerSurface {
		return root
	}
	if len(children) == 0 {
		return root
	}
	return Nil
}
