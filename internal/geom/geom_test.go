package geom

import "testing"

func TestRectIntersect(t *testing.T) {
	a := Rect{0, 0, 10, 10}
	b := Rect{5, 5, 10, 10}
	got := a.Intersect(b)
	want := Rect{5, 5, 5, 5}
	if got != want {
		t.Fatalf("Intersect: got %+v, want %+v", got, want)
	}
}

func TestRectDisjoint(t *testing.T) {
	a := Rect{0, 0, 10, 10}
	b := Rect{20, 20, 10, 10}
	if !a.Disjoint(b) {
		t.Fatal("expected disjoint rects")
	}
}

func TestRectUnion(t *testing.T) {
	a := Rect{0, 0, 10, 10}
	b := Rect{5, 5, 10, 10}
	got := a.Union(b)
	want := Rect{0, 0, 15, 15}
	if got != want {
		t.Fatalf("Union: got %+v, want %+v", got, want)
	}
}

func TestRectUnionEmpty(t *testing.T) {
	a := Rect{0, 0, 10, 10}
	var empty Rect
	if got := a.Union(empty); got != a {
		t.Fatalf("Union with empty: got %+v, want %+v", got, a)
	}
}

func TestTransformApply(t *testing.T) {
	w, h := Rot90.Apply(100, 50)
	if w != 50 || h != 100 {
		t.Fatalf("Rot90.Apply: got (%d,%d), want (50,100)", w, h)
	}
	w, h = Normal.Apply(100, 50)
	if w != 100 || h != 50 {
		t.Fatalf("Normal.Apply: got (%d,%d), want (100,50)", w, h)
	}
}

func TestTransformInverse(t *testing.T) {
	if Rot90.Inverse() != Rot270 {
		t.Fatal("Rot90 inverse should be Rot270")
	}
	if Flipped.Inverse() != Flipped {
		t.Fatal("Flipped should be self-inverse")
	}
}

func TestNegativeOffsetContainment(t *testing.T) {
	// A surface whose buffer is attached at (-w, -h) has
	// extents [-w, -h, 0, 0]; find-at-point at (-1, -1) hits it.
	r := Rect{-10, -10, 10, 10}
	if !r.Contains(Point{-1, -1}) {
		t.Fatal("expected (-1,-1) to be contained")
	}
	if r.Contains(Point{0, 0}) {
		t.Fatal("did not expect (0,0) to be contained (half-open)")
	}
}
