// Package matcher implements the declarative criteria engine (§4.L): a
// DAG of predicate nodes over a target type T, aggregated by not/all/
// any/exactly(n) combinators, terminating in leaf sinks that coalesce
// match/unmatch transitions per target.
//
// The upstream->downstream edge/detach discipline is grounded on
// scene.Graph's cascading Remove (itself adapted from node/node.go's
// Graph): destroying a node must not leave any surviving node pointing
// at it, so detachment walks downstream exactly the way Graph.Remove
// walks children, clearing the edge and forcing the affected state to
// false before the node disappears.
package matcher

// NodeID identifies one node in a Graph.
type NodeID int

// Kind distinguishes leaf predicate roots from internal combinators and
// the terminal sink.
type Kind int

const (
	KindRoot Kind = iota
	KindNot
	KindAll
	KindAny
	KindExactlyN
	KindLeaf
)

// Predicate tests one field of a target, the leaf-root building block
// (§4.L "Leaf roots test one field").
type Predicate[T any] func(target T) bool

type node[T any] struct {
	kind Kind

	pred Predicate[T]

	upstream   []NodeID
	downstream []NodeID

	n int // threshold for KindExactlyN

	state map[any]bool

	onMatch func(target T) func()
	unmatch map[any]func()

	// delivered is the last state actually handed to onMatch/the unmatch
	// callback for each target, distinct from the live state cache so
	// that several transitions inside one coalescing window collapse
	// into at most one call (§4.L "Events are coalesced per target").
	delivered map[any]bool
}

// dirty records one (leaf, key, target) pair whose live state changed
// during the current coalescing window and may need delivering at Flush.
type dirty[T any] struct {
	leaf   NodeID
	key    any
	target T
}

// Graph owns every matcher node for one target type T. Zero value is
// ready to use.
type Graph[T any] struct {
	nodes []node[T]
	free  []NodeID
	keyOf func(T) any

	pending []dirty[T]
}

// NewGraph constructs a Graph whose per-target cache is keyed by keyOf(target)
// — T itself when T is comparable, or a derived stable key (an id field)
// when it is not.
func NewGraph[T any](keyOf func(T) any) *Graph[T] {
	return &Graph[T]{keyOf: keyOf}
}

func (g *Graph[T]) alloc(n node[T]) NodeID {
	if len(g.free) > 0 {
		id := g.free[len(g.free)-1]
		g.free = g.free[:len(g.free)-1]
		g.nodes[id] = n
		return id
	}
	g.nodes = append(g.nodes, n)
	return NodeID(len(g.nodes) - 1)
}

// Root adds a leaf predicate root testing pred against each poked target.
func (g *Graph[T]) Root(pred Predicate[T]) NodeID {
	return g.alloc(node[T]{kind: KindRoot, pred: pred, state: map[any]bool{}})
}

// Not adds a combinator negating upstream's state.
func (g *Graph[T]) Not(upstream NodeID) NodeID {
	id := g.alloc(node[T]{kind: KindNot, state: map[any]bool{}})
	g.link(upstream, id)
	return id
}

// All adds a combinator true iff every upstream is true (empty is
// vacuously true).
func (g *Graph[T]) All(upstreams ...NodeID) NodeID {
	id := g.alloc(node[T]{kind: KindAll, state: map[any]bool{}})
	for _, u := range upstreams {
		g.link(u, id)
	}
	return id
}

// Any adds a combinator true iff at least one upstream is true.
func (g *Graph[T]) Any(upstreams ...NodeID) NodeID {
	id := g.alloc(node[T]{kind: KindAny, state: map[any]bool{}})
	for _, u := range upstreams {
		g.link(u, id)
	}
	return id
}

// ExactlyN adds a combinator true iff exactly n of its upstreams are true.
func (g *Graph[T]) ExactlyN(n int, upstreams ...NodeID) NodeID {
	id := g.alloc(node[T]{kind: KindExactlyN, n: n, state: map[any]bool{}})
	for _, u := range upstreams {
		g.link(u, id)
	}
	return id
}

// Leaf registers a sink on upstream: onMatch is invoked the first time a
// target transitions to true, and the callback it returns runs when that
// same target later transitions to false (§4.L "registers on_match(...)
// -> on_unmatch_callback").
func (g *Graph[T]) Leaf(upstream NodeID, onMatch func(target T) func()) NodeID {
	id := g.alloc(node[T]{
		kind: KindLeaf, onMatch: onMatch,
		state: map[any]bool{}, unmatch: map[any]func(){}, delivered: map[any]bool{},
	})
	g.link(upstream, id)
	return id
}

func (g *Graph[T]) link(upstream, downstream NodeID) {
	g.nodes[upstream].downstream = append(g.nodes[upstream].downstream, downstream)
	g.nodes[downstream].upstream = append(g.nodes[downstream].upstream, upstream)
}

// Poke re-evaluates target's state starting at root and propagates any
// change through root's downstream set (§4.L "it pokes the corresponding
// root; the root recomputes its per-target state, and if changed,
// notifies its downstream set; downstreams recompute and propagate").
// Leaf delivery is deferred to Flush so several Pokes inside one
// coalescing window collapse into at most one on_match/on_unmatch call.
func (g *Graph[T]) Poke(root NodeID, target T) {
	key := g.keyOf(target)
	n := &g.nodes[root]
	old, had := n.state[key]
	neu := n.pred(target)
	n.state[key] = neu
	if had && old == neu {
		return
	}
	g.propagate(root, target, key)
}

func (g *Graph[T]) propagate(id NodeID, target T, key any) {
	for _, d := range g.nodes[id].downstream {
		old, had := g.nodes[d].state[key]
		neu := g.recompute(d, key)
		g.nodes[d].state[key] = neu
		if had && old == neu {
			continue
		}
		if g.nodes[d].kind == KindLeaf {
			g.pending = append(g.pending, dirty[T]{leaf: d, key: key, target: target})
			continue
		}
		g.propagate(d, target, key)
	}
}

// Flush delivers one on_match or on_unmatch call per (leaf, target) pair
// that actually changed state since the last Flush, skipping pairs whose
// net state across the window is unchanged (§4.L "multiple match/unmatch
// transitions between two coalescing points produce one call in the
// final state").
func (g *Graph[T]) Flush() {
	seen := make(map[dirtyKey]bool, len(g.pending))
	pending := g.pending
	g.pending = nil
	for _, d := range pending {
		dk := dirtyKey{leaf: d.leaf, key: d.key}
		if seen[dk] {
			continue
		}
		seen[dk] = true
		n := &g.nodes[d.leaf]
		live := n.state[d.key]
		if n.delivered[d.key] == live {
			continue
		}
		n.delivered[d.key] = live
		g.fireLeaf(d.leaf, d.target, d.key, live)
	}
}

type dirtyKey struct {
	leaf NodeID
	key  any
}

func (g *Graph[T]) recompute(id NodeID, key any) bool {
	n := &g.nodes[id]
	switch n.kind {
	case KindNot:
		if len(n.upstream) == 0 {
			return true
		}
		return !g.nodes[n.upstream[0]].state[key]
	case KindAll:
		for _, u := range n.upstream {
			if !g.nodes[u].state[key] {
				return false
			}
		}
		return true
	case KindAny:
		for _, u := range n.upstream {
			if g.nodes[u].state[key] {
				return true
			}
		}
		return false
	case KindExactlyN:
		count := 0
		for _, u := range n.upstream {
			if g.nodes[u].state[key] {
				count++
			}
		}
		return count == n.n
	case KindLeaf:
		if len(n.upstream) == 0 {
			return false
		}
		return g.nodes[n.upstream[0]].state[key]
	default:
		return false
	}
}

func (g *Graph[T]) fireLeaf(id NodeID, target T, key any, matched bool) {
	n := &g.nodes[id]
	if matched {
		if n.onMatch != nil {
			n.unmatch[key] = n.onMatch(target)
		}
		return
	}
	if un, ok := n.unmatch[key]; ok {
		delete(n.unmatch, key)
		if un != nil {
			un()
		}
	}
}

// Destroy removes id, detaching it from every downstream node and
// forcing each downstream's cached state to false for every target it
// had a true state for, firing on_unmatch as needed — the same
// top-down-then-detach discipline scene.Graph.Remove applies when a
// parent node disappears out from under its children (§4.L
// "destruction of an upstream atomically detaches all downstream edges
// that mention it and marks them false").
func (g *Graph[T]) Destroy(id NodeID) {
	n := &g.nodes[id]
	for _, d := range n.downstream {
		g.detachUpstream(d, id)
	}
	for _, u := range n.upstream {
		g.detachDownstream(u, id)
	}
	g.nodes[id] = node[T]{}
	g.free = append(g.free, id)
}

// detachUpstream removes the edge from removed into id, then forces id's
// cached state false for every target that was true and cascades that
// forced-false through id's own downstream set (§4.L "marks them
// false").
func (g *Graph[T]) detachUpstream(id, removed NodeID) {
	dn := &g.nodes[id]
	for i, u := range dn.upstream {
		if u == removed {
			dn.upstream = append(dn.upstream[:i], dn.upstream[i+1:]...)
			break
		}
	}
	for key, wasTrue := range dn.state {
		if wasTrue {
			g.forceFalse(id, key)
		}
	}
}

// forceFalse marks id false for key unconditionally and cascades to
// downstream nodes that were true because of it, firing leaf unmatch
// callbacks as it goes.
func (g *Graph[T]) forceFalse(id NodeID, key any) {
	n := &g.nodes[id]
	if v, ok := n.state[key]; !ok || !v {
		return
	}
	n.state[key] = false
	if n.kind == KindLeaf {
		n.delivered[key] = false
		if un, ok := n.unmatch[key]; ok {
			delete(n.unmatch, key)
			if un != nil {
				un()
			}
		}
		return
	}
	for _, d := range n.downstream {
		g.forceFalse(d, key)
	}
}

func (g *Graph[T]) detachDownstream(id, removed NodeID) {
	un := &g.nodes[id]
	for i, d := range un.downstream {
		if d == removed {
			un.downstream = append(un.downstream[:i], un.downstream[i+1:]...)
			break
		}
	}
}
