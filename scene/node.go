// Package scene implements the compositor's scene tree (§4.G): the
// Display/Output/Workspace/Container/Float/Fullscreen/LayerSurface/
// Surface hierarchy, its tiling layout algorithm, and the visitors that
// walk it for damage, hit-testing and foreign-toplevel publication.
//
// The arena is adapted from node/node.go's Graph: a bitm-backed slot
// pool plus intrusive next/prev/sub links addressed by a 1-based NodeID
// so the zero value means "no node" without a sentinel check at every
// call site. Graph there carried one Interface payload per node (a local
// transform); this Graph carries a tagged Node payload (kind + geometry +
// visibility + per-seat focus bitset + damage), since the scene tree has
// no notion of a shared parent transform to compose.
package scene

import (
	"github.com/tessera-wm/core/internal/bitm"
	"github.com/tessera-wm/core/internal/geom"
)

// NodeID identifies a node in a Graph. The zero value, Nil, means "no
// node" (node/node.go's Node/Nil convention).
type NodeID int

const Nil NodeID = 0

// Kind tags which scene-tree variant a Node represents (§3 Node).
type Kind int

const (
	KindDisplay Kind = iota
	KindOutput
	KindWorkspace
	KindContainer
	KindFloat
	KindFullscreen
	KindLayerSurface
	KindSurface
)

// LayerShell selects which of the four layer-surface bands a
// KindLayerSurface node draws in (§4.G "background and bottom draw below
// the workspace, top and overlay above").
type LayerShell int

const (
	LayerBackground LayerShell = iota
	LayerBottom
	LayerTop
	LayerOverlay
)

// SplitAxis is a Container's distribution axis.
type SplitAxis int

const (
	SplitHorizontal SplitAxis = iota
	SplitVertical
)

// Node is the payload carried by every arena slot. Only the fields
// relevant to its Kind are meaningful; callers that need variant-specific
// state type-assert through the accessor methods below rather than
// reading fields that don't apply to their Kind, mirroring how node.go's
// Interface wrapped a single concrete type per node without a tagged
// union.
type Node struct {
	Kind Kind

	parent NodeID // weak: the arena never refuses to free a node whose children still reference it as parent
	id     NodeID

	rect    geom.Rect // absolute, in output-space pixels
	local   geom.Rect // parent-relative, set by layout
	visible bool

	// seat-focus bitset: bit i set means this node has been focused on
	// seat index i at some point and is a focus-stack candidate.
	focusBits uint64

	damaged bool

	// Container
	split    SplitAxis
	mono     bool
	active   int // index into children for mono mode

	// Workspace
	fullscreen NodeID // Nil unless a fullscreen override is active

	// LayerSurface
	layer    LayerShell
	anchor   uint8 // bitmask: top|bottom|left|right
	margins  [4]int32
	exclusive int32

	// Container/Workspace children, in display order; factor[i] is the
	// weight of children[i] along the split axis (Container only).
	children []NodeID
	factor   []float32
}

// Parent returns n's parent, or Nil for the Display root.
func (n *Node) Parent() NodeID { return n.parent }

// Rect returns n's absolute rectangle.
func (n *Node) Rect() geom.Rect { return n.rect }

// Visible reports whether n is on the active path of every ancestor that
// selects a single child (§3 Node invariant).
func (n *Node) Visible() bool { return n.visible }

// FocusedOn reports whether n has ever been the focus of seat.
func (n *Node) FocusedOn(seat int) bool { return n.focusBits&(1<<uint(seat)) != 0 }

// Damaged reports whether n has pending damage not yet consumed by a
// present pass.
func (n *Node) Damaged() bool { return n.damaged }

// arenaNode is the intrusive-link entry; Graph indexes this slice by
// NodeID-1, same as node.go's node/data split.
type arenaNode struct {
	next, prev, sub NodeID
	data            int
}

// Graph is the scene tree. The zero value is an empty, usable graph with
// a Display root created lazily by Root.
type Graph struct {
	slots   []arenaNode
	slotMap bitm.Bitm[uint32]
	data    []Node
	root    NodeID
}

// Root returns the Display root, creating it on first use.
func (g *Graph) Root() NodeID {
	if g.root == Nil {
		g.root = g.insert(Node{Kind: KindDisplay, visible: true}, Nil)
	}
	return g.root
}

// Get returns the Node for id, or nil if id is Nil.
func (g *Graph) Get(id NodeID) *Node {
	if id == Nil {
		return nil
	}
	return &g.data[g.slots[id-1].data]
}

// Children returns id's children in display order.
func (g *Graph) Children(id NodeID) []NodeID {
	n := g.Get(id)
	if n == nil {
		return nil
	}
	return n.children
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.data) }

// Insert creates a new node of kind under parent (Nil for an unconnected
// root, which only Root itself should pass) and returns its id.
func (g *Graph) Insert(kind Kind, parent NodeID) NodeID {
	return g.insert(Node{Kind: kind}, parent)
}

func (g *Graph) insert(n Node, parent NodeID) NodeID {
	if g.slotMap.Rem() == 0 {
		switch x := g.slotMap.Len(); {
		case x > 0:
			cnt := 1 + (x-31)/32
			g.slots = append(g.slots, g.slots...)
			g.slotMap.Grow(cnt)
		default:
			var elems [32]arenaNode
			g.slots = append(g.slots, elems[:]...)
			g.slotMap.Grow(1)
		}
	}
	idx, ok := g.slotMap.Search()
	if !ok {
		panic("scene: bitm.Search unexpectedly failed")
	}
	g.slotMap.Set(idx)
	id := NodeID(idx + 1)

	if parent != Nil {
		pdata := g.slots[parent-1].data
		if sub := g.slots[parent-1].sub; sub != Nil {
			g.slots[id-1].next = sub
			g.slots[sub-1].prev = id
		}
		g.slots[id-1].prev = parent
		g.slots[parent-1].sub = id
		g.data[pdata].children = append([]NodeID{id}, g.data[pdata].children...)
		g.data[pdata].factor = append([]float32{1}, g.data[pdata].factor...)
	}
	g.slots[id-1].sub = Nil
	g.slots[id-1].data = len(g.data)
	n.parent = parent
	n.id = id
	g.data = append(g.data, n)
	return id
}

// removeData frees data slot d, filling the hole with the last entry
// (swap-and-pop) and fixing up the displaced node's slot back-reference.
func (g *Graph) removeData(d int) {
	last := len(g.data) - 1
	if d < last {
		swap := g.data[last].id
		g.slots[swap-1].data = d
		g.data[d] = g.data[last]
	}
	g.data[last] = Node{}
	g.data = g.data[:last]
}

// Remove deletes id and every descendant, bottom-up (§3 Lifecycles
// "destruction is bottom-up"), and detaches it from its parent's children
// list. If id's removal leaves a Container parent with exactly one
// remaining child, that container collapses into the survivor (§3
// Container policy "removing its last child collapses it into its
// parent"; §8 "A container with one child and no split collapses to that
// child when the only other sibling is removed"). It returns the removed
// NodeIDs, id first, followed by any container collapsed away as a
// result.
func (g *Graph) Remove(id NodeID) []NodeID {
	if id == Nil {
		return nil
	}
	removeData := g.removeData

	parent := g.slots[id-1].prev
	next := g.slots[id-1].next
	sub := g.slots[id-1].sub
	pid := g.Get(id).parent

	if pid != Nil {
		pdata := g.slots[pid-1].data
		g.data[pdata].children = removeChild(g.data[pdata].children, &g.data[pdata].factor, id)
	}
	if parent != Nil {
		if g.slots[parent-1].sub == id {
			g.slots[parent-1].sub = next
		} else {
			g.slots[parent-1].next = next
		}
	}
	if next != Nil {
		g.slots[next-1].prev = parent
	}

	removed := []NodeID{id}
	removeData(g.slots[id-1].data)
	g.slots[id-1] = arenaNode{}
	g.slotMap.Unset(int(id - 1))

	if sub != Nil {
		stk := []NodeID{sub}
		for len(stk) > 0 {
			cur := stk[len(stk)-1]
			stk = stk[:len(stk)-1]
			removed = append(removed, cur)
			if next := g.slots[cur-1].next; next != Nil {
				stk = append(stk, next)
			}
			if s := g.slots[cur-1].sub; s != Nil {
				stk = append(stk, s)
			}
			removeData(g.slots[cur-1].data)
			g.slots[cur-1] = arenaNode{}
			g.slotMap.Unset(int(cur - 1))
		}
	}

	if collapsed := g.collapseIfSingleton(pid); collapsed != Nil {
		removed = append(removed, collapsed)
	}
	return removed
}

// collapseIfSingleton collapses pid into its one remaining child when pid
// is a Container left with exactly one child, splicing the survivor into
// pid's own position among its siblings and freeing pid's slot. It
// returns pid if a collapse happened, Nil otherwise.
func (g *Graph) collapseIfSingleton(pid NodeID) NodeID {
	if pid == Nil {
		return Nil
	}
	pdata := g.slots[pid-1].data
	pnode := &g.data[pdata]
	if pnode.Kind != KindContainer || len(pnode.children) != 1 {
		return Nil
	}
	survivor := pnode.children[0]
	gp := pnode.parent

	// Splice survivor into pid's slot among its own siblings, mirroring
	// Remove's detach pattern (slots[x].prev doubles as "parent" when x is
	// the first child, or "previous sibling" otherwise).
	link := g.slots[pid-1].prev
	next := g.slots[pid-1].next
	if link != Nil {
		if g.slots[link-1].sub == pid {
			g.slots[link-1].sub = survivor
		} else {
			g.slots[link-1].next = survivor
		}
	}
	if next != Nil {
		g.slots[next-1].prev = survivor
	}
	g.slots[survivor-1].prev = link
	g.slots[survivor-1].next = next

	survivorNode := g.Get(survivor)
	survivorNode.parent = gp
	if gp != Nil {
		gdata := g.slots[gp-1].data
		for i, c := range g.data[gdata].children {
			if c == pid {
				g.data[gdata].children[i] = survivor
				break
			}
		}
	}

	g.removeData(pdata)
	g.slots[pid-1] = arenaNode{}
	g.slotMap.Unset(int(pid - 1))
	return pid
}

func removeChild(children []NodeID, factor *[]float32, id NodeID) []NodeID {
	for i, c := range children {
		if c == id {
			*factor = append((*factor)[:i], (*factor)[i+1:]...)
			return append(children[:i], children[i+1:]...)
		}
	}
	return children
}
