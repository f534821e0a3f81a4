package matcher

import "testing"

type window struct {
	id    int
	title string
	class string
}

func keyOf(w window) any { return w.id }

func TestRootMatchesAndUnmatches(t *testing.T) {
	g := NewGraph[window](keyOf)
	root := g.Root(func(w window) bool { return w.class == "term" })

	var matched, unmatched int
	g.Leaf(root, func(w window) func() {
		matched++
		return func() { unmatched++ }
	})

	w := window{id: 1, class: "term"}
	g.Poke(root, w)
	g.Flush()
	if matched != 1 {
		t.Fatalf("got %d matches, want 1", matched)
	}

	w.class = "browser"
	g.Poke(root, w)
	g.Flush()
	if unmatched != 1 {
		t.Fatalf("got %d unmatches, want 1", unmatched)
	}
}

func TestPokeIsIdempotentWithoutChange(t *testing.T) {
	g := NewGraph[window](keyOf)
	root := g.Root(func(w window) bool { return w.class == "term" })
	var matched int
	g.Leaf(root, func(w window) func() { matched++; return func() {} })

	w := window{id: 1, class: "term"}
	g.Poke(root, w)
	g.Poke(root, w)
	g.Flush()
	if matched != 1 {
		t.Fatalf("got %d matches, want 1 (re-poking with no change should not refire)", matched)
	}
}

func TestNotNegatesUpstream(t *testing.T) {
	g := NewGraph[window](keyOf)
	root := g.Root(func(w window) bool { return w.class == "term" })
	not := g.Not(root)
	var matched int
	g.Leaf(not, func(w window) func() { matched++; return func() {} })

	w := window{id: 1, class: "browser"}
	g.Poke(root, w)
	g.Flush()
	if matched != 1 {
		t.Fatalf("got %d matches, want 1 (not-term should match a browser)", matched)
	}
}

func TestAllRequiresEveryUpstream(t *testing.T) {
	g := NewGraph[window](keyOf)
	isTerm := g.Root(func(w window) bool { return w.class == "term" })
	hasTitle := g.Root(func(w window) bool { return w.title != "" })
	all := g.All(isTerm, hasTitle)
	var matched int
	g.Leaf(all, func(w window) func() { matched++; return func() {} })

	w := window{id: 1, class: "term"}
	g.Poke(isTerm, w)
	g.Poke(hasTitle, w)
	g.Flush()
	if matched != 0 {
		t.Fatalf("got %d matches, want 0 (title still empty)", matched)
	}

	w.title = "shell"
	g.Poke(hasTitle, w)
	g.Flush()
	if matched != 1 {
		t.Fatalf("got %d matches, want 1", matched)
	}
}

func TestAnyMatchesOnFirstTrueUpstream(t *testing.T) {
	g := NewGraph[window](keyOf)
	isTerm := g.Root(func(w window) bool { return w.class == "term" })
	isBrowser := g.Root(func(w window) bool { return w.class == "browser" })
	any := g.Any(isTerm, isBrowser)
	var matched int
	g.Leaf(any, func(w window) func() { matched++; return func() {} })

	w := window{id: 1, class: "browser"}
	g.Poke(isTerm, w)
	g.Poke(isBrowser, w)
	g.Flush()
	if matched != 1 {
		t.Fatalf("got %d matches, want 1", matched)
	}
}

func TestExactlyNCountsTrueUpstreams(t *testing.T) {
	g := NewGraph[window](keyOf)
	a := g.Root(func(w window) bool { return w.class == "a" })
	b := g.Root(func(w window) bool { return w.class == "b" })
	c := g.Root(func(w window) bool { return w.class == "c" })
	exactly1 := g.ExactlyN(1, a, b, c)
	var matched int
	g.Leaf(exactly1, func(w window) func() { matched++; return func() {} })

	w := window{id: 1, class: "b"}
	g.Poke(a, w)
	g.Poke(b, w)
	g.Poke(c, w)
	g.Flush()
	if matched != 1 {
		t.Fatalf("got %d matches, want 1", matched)
	}
}

func TestDestroyForcesDownstreamFalse(t *testing.T) {
	g := NewGraph[window](keyOf)
	root := g.Root(func(w window) bool { return w.class == "term" })
	var matched, unmatched int
	g.Leaf(root, func(w window) func() {
		matched++
		return func() { unmatched++ }
	})

	w := window{id: 1, class: "term"}
	g.Poke(root, w)
	g.Flush()
	if matched != 1 {
		t.Fatal("expected initial match")
	}

	g.Destroy(root)
	if unmatched != 1 {
		t.Fatalf("got %d unmatches after Destroy, want 1", unmatched)
	}
}

func TestCoalescesMultipleTransitionsWithinOneFlushIntoOneCall(t *testing.T) {
	g := NewGraph[window](keyOf)
	root := g.Root(func(w window) bool { return w.class == "term" })
	var matched, unmatched int
	g.Leaf(root, func(w window) func() {
		matched++
		return func() { unmatched++ }
	})

	w := window{id: 1, class: "term"}
	g.Poke(root, w)
	g.Flush()
	if matched != 1 {
		t.Fatalf("got %d matches, want 1 after the first flush", matched)
	}

	// Two transitions (true->false->true) inside the same coalescing
	// window, before any Flush: the net state is unchanged, so Flush
	// should deliver nothing at all.
	w.class = "browser"
	g.Poke(root, w)
	w.class = "term"
	g.Poke(root, w)
	g.Flush()

	if matched != 1 || unmatched != 0 {
		t.Fatalf("got matched=%d unmatched=%d, want 1/0 (net-unchanged window delivers nothing)", matched, unmatched)
	}
}

func TestFlushDeliversNetStateAcrossMultiplePokes(t *testing.T) {
	g := NewGraph[window](keyOf)
	root := g.Root(func(w window) bool { return w.class == "term" })
	var matched, unmatched int
	g.Leaf(root, func(w window) func() {
		matched++
		return func() { unmatched++ }
	})

	w := window{id: 1, class: "browser"}
	g.Poke(root, w)
	w.class = "term"
	g.Poke(root, w)
	w.class = "browser"
	g.Poke(root, w)
	w.class = "term"
	g.Poke(root, w)
	g.Flush()

	if matched != 1 || unmatched != 0 {
		t.Fatalf("got matched=%d unmatched=%d, want 1/0 (net true across the window)", matched, unmatched)
	}
}
