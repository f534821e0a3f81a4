package scene

import (
	"testing"

	"github.com/tessera-wm/core/internal/geom"
)

func TestInsertRemoveBottomUp(t *testing.T) {
	var g Graph
	root := g.Root()
	ws := g.Insert(KindWorkspace, root)
	c1 := g.Insert(KindContainer, ws)
	_ = g.Insert(KindSurface, c1)
	_ = g.Insert(KindSurface, c1)

	before := g.Len()
	removed := g.Remove(c1)
	if len(removed) != 3 {
		t.Fatalf("got %d removed, want 3 (container + 2 surfaces)", len(removed))
	}
	if removed[0] != c1 {
		t.Fatalf("removed[0] = %v, want the removed root %v", removed[0], c1)
	}
	if g.Len() != before-3 {
		t.Fatalf("got %d nodes after remove, want %d", g.Len(), before-3)
	}
	if len(g.Children(ws)) != 0 {
		t.Fatal("workspace still references removed container")
	}
}

func TestRemoveCollapsesSingletonContainer(t *testing.T) {
	var g Graph
	root := g.Root()
	ws := g.Insert(KindWorkspace, root)
	c := g.Insert(KindContainer, ws)
	a := g.Insert(KindSurface, c)
	b := g.Insert(KindSurface, c)

	removed := g.Remove(a)
	if len(removed) != 2 {
		t.Fatalf("got %d removed, want 2 (surface + collapsed container)", len(removed))
	}
	if removed[0] != a {
		t.Fatalf("removed[0] = %v, want a %v", removed[0], a)
	}
	if removed[1] != c {
		t.Fatalf("removed[1] = %v, want the collapsed container %v", removed[1], c)
	}

	wsChildren := g.Children(ws)
	if len(wsChildren) != 1 || wsChildren[0] != b {
		t.Fatalf("workspace children = %v, want [%v] (b spliced in place of c)", wsChildren, b)
	}
	if g.Get(b).Parent() != ws {
		t.Fatalf("b.Parent() = %v, want ws %v", g.Get(b).Parent(), ws)
	}
}

func TestRemoveDoesNotCollapseContainerWithMultipleChildren(t *testing.T) {
	var g Graph
	root := g.Root()
	ws := g.Insert(KindWorkspace, root)
	c := g.Insert(KindContainer, ws)
	a := g.Insert(KindSurface, c)
	_ = g.Insert(KindSurface, c)
	_ = g.Insert(KindSurface, c)

	removed := g.Remove(a)
	if len(removed) != 1 {
		t.Fatalf("got %d removed, want 1 (no collapse with 2 remaining children)", len(removed))
	}
	if len(g.Children(c)) != 2 {
		t.Fatalf("container still has %d children, want 2", len(g.Children(c)))
	}
	if len(g.Children(ws)) != 1 || g.Children(ws)[0] != c {
		t.Fatal("container should still be ws's child, uncollapsed")
	}
}

func TestContainerSplitSumsToExtent(t *testing.T) {
	var g Graph
	root := g.Root()
	ws := g.Insert(KindWorkspace, root)
	c := g.Insert(KindContainer, ws)
	a := g.Insert(KindSurface, c)
	b := g.Insert(KindSurface, c)
	_ = a
	_ = b
	g.Get(c).split = SplitHorizontal

	g.Layout(ws, geom.Rect{X: 0, Y: 0, W: 1001, H: 600})

	childA, childB := g.Get(c).children[0], g.Get(c).children[1]
	ra, rb := g.Get(childA).Rect(), g.Get(childB).Rect()
	if ra.W+rb.W != 1001 {
		t.Fatalf("widths sum to %d, want 1001", ra.W+rb.W)
	}
	if ra.X != 0 || rb.X != ra.X+ra.W {
		t.Fatalf("children not contiguous: a=%v b=%v", ra, rb)
	}
}

func TestMonoModeHidesSiblings(t *testing.T) {
	var g Graph
	root := g.Root()
	ws := g.Insert(KindWorkspace, root)
	c := g.Insert(KindContainer, ws)
	a := g.Insert(KindSurface, c)
	b := g.Insert(KindSurface, c)
	g.Get(c).mono = true
	g.Get(c).active = 0

	g.Layout(ws, geom.Rect{X: 0, Y: 0, W: 800, H: 600})

	active := g.Get(c).children[0]
	other := g.Get(c).children[1]
	if !g.Get(active).Visible() {
		t.Error("active mono child should be visible")
	}
	if g.Get(other).Visible() {
		t.Error("inactive mono sibling should be hidden")
	}
	_, _ = a, b
}

func TestFullscreenHidesTiledRootAndFloats(t *testing.T) {
	var g Graph
	root := g.Root()
	ws := g.Insert(KindWorkspace, root)
	c := g.Insert(KindContainer, ws)
	_ = g.Insert(KindSurface, c)
	float := g.Insert(KindFloat, ws)
	fs := g.Insert(KindFullscreen, ws)

	g.SetFullscreen(ws, fs)
	g.Layout(ws, geom.Rect{X: 0, Y: 0, W: 800, H: 600})

	if !g.Get(fs).Visible() {
		t.Error("fullscreen node should be visible")
	}
	if g.Get(c).Visible() {
		t.Error("tiled root should be hidden under fullscreen override")
	}
	if g.Get(float).Visible() {
		t.Error("floats should be hidden under fullscreen override")
	}
}

func TestFindTreeAtReturnsInnermostLeaf(t *testing.T) {
	var g Graph
	root := g.Root()
	ws := g.Insert(KindWorkspace, root)
	c := g.Insert(KindContainer, ws)
	g.Get(c).split = SplitVertical
	_ = g.Insert(KindSurface, c)
	_ = g.Insert(KindSurface, c)

	g.Layout(ws, geom.Rect{X: 0, Y: 0, W: 800, H: 600})

	var path []NodeID
	hit := g.FindTreeAt(root, 10, 10, &path)
	if hit == Nil {
		t.Fatal("expected a hit at (10, 10)")
	}
	if g.Get(hit).Kind != KindSurface {
		t.Fatalf("hit kind = %v, want KindSurface", g.Get(hit).Kind)
	}
	if path[0] != root {
		t.Fatalf("path[0] = %v, want root %v", path[0], root)
	}
}

func TestFocusStackPromotesOnForget(t *testing.T) {
	var g Graph
	root := g.Root()
	ws := g.Insert(KindWorkspace, root)
	a := g.Insert(KindSurface, ws)
	b := g.Insert(KindSurface, ws)

	fs := NewFocusStack(0)
	fs.Focus(&g, a)
	fs.Focus(&g, b)
	if fs.Top() != b {
		t.Fatalf("top = %v, want b", fs.Top())
	}
	fs.Forget(b)
	if fs.Top() != a {
		t.Fatalf("top after forget = %v, want a", fs.Top())
	}
	if !g.Get(a).FocusedOn(0) {
		t.Error("a should be marked as having been focused on seat 0")
	}
}

func TestContributorVisitorDedupesAcrossMultipleWalks(t *testing.T) {
	var g Graph
	root := g.Root()
	ws := g.Insert(KindWorkspace, root)
	c := g.Insert(KindContainer, ws)
	a := g.Insert(KindSurface, c)
	b := g.Insert(KindSurface, c)
	g.Layout(ws, geom.Rect{X: 0, Y: 0, W: 800, H: 600})

	var cv ContributorVisitor
	g.Walk(ws, &cv)
	g.Walk(c, &cv) // a second, overlapping walk must not double-count a or b

	if len(cv.IDs) != 2 {
		t.Fatalf("got %d contributors, want 2 (deduplicated): %v", len(cv.IDs), cv.IDs)
	}
	seen := map[NodeID]bool{}
	for _, id := range cv.IDs {
		if seen[id] {
			t.Fatalf("id %v appears more than once in %v", id, cv.IDs)
		}
		seen[id] = true
	}
	if !seen[a] || !seen[b] {
		t.Fatalf("contributors %v missing a=%v or b=%v", cv.IDs, a, b)
	}
}

func TestDamageVisitorUnionsDamagedRects(t *testing.T) {
	var g Graph
	root := g.Root()
	ws := g.Insert(KindWorkspace, root)
	c := g.Insert(KindContainer, ws)
	g.Get(c).split = SplitHorizontal
	a := g.Insert(KindSurface, c)
	b := g.Insert(KindSurface, c)

	g.Layout(ws, geom.Rect{X: 0, Y: 0, W: 800, H: 600})
	g.MarkDamaged(a)
	g.MarkDamaged(b)

	var dv DamageVisitor
	g.Walk(root, &dv)
	want := g.Get(a).Rect().Union(g.Get(b).Rect())
	if dv.Union != want {
		t.Fatalf("got %v, want %v", dv.Union, want)
	}
}

func TestLayerRectAnchoredTopStretchesWidth(t *testing.T) {
	usable := geom.Rect{X: 0, Y: 0, W: 1920, H: 1080}
	r := LayerRect(usable, AnchorTop|AnchorLeft|AnchorRight, [4]int32{}, 0, 32)
	if r.W != 1920 {
		t.Fatalf("got width %d, want 1920", r.W)
	}
	if r.Y != 0 || r.H != 32 {
		t.Fatalf("got y=%d h=%d, want y=0 h=32", r.Y, r.H)
	}
}

func TestExclusiveInsetReservesTopEdge(t *testing.T) {
	usable := geom.Rect{X: 0, Y: 0, W: 1920, H: 1080}
	got := ExclusiveInset(usable, AnchorTop, 32)
	if got.Y != 32 || got.H != 1048 {
		t.Fatalf("got %v, want y=32 h=1048", got)
	}
}
