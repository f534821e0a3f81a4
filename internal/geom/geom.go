// Package geom implements integer 2D geometry used throughout the scene
// tree, the surface pipeline and output presentation: points, axis-aligned
// rectangles and the eight Wayland output/buffer transforms.
package geom

// Point is an integer 2D point.
type Point struct {
	X, Y int32
}

// Add sets p to contain l + r.
func (p *Point) Add(l, r Point) { p.X = l.X + r.X; p.Y = l.Y + r.Y }

// Rect is an axis-aligned integer rectangle, half-open on [X, X+W) and
// [Y, Y+H). A Rect with W <= 0 or H <= 0 is empty.
type Rect struct {
	X, Y int32
	W, H int32
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Contains reports whether p lies within r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// Translate returns r shifted by (dx, dy).
func (r Rect) Translate(dx, dy int32) Rect {
	return Rect{r.X + dx, r.Y + dy, r.W, r.H}
}

// Intersect returns the intersection of r and s. The result is empty
// (W <= 0 or H <= 0) when the rectangles do not overlap.
func (r Rect) Intersect(s Rect) Rect {
	x0, y0 := max(r.X, s.X), max(r.Y, s.Y)
	x1, y1 := min(r.X+r.W, s.X+s.W), min(r.Y+r.H, s.Y+s.H)
	return Rect{x0, y0, x1 - x0, y1 - y0}
}

// Union returns the smallest Rect containing both r and s.
// An empty operand is ignored; if both are empty the result is empty.
func (r Rect) Union(s Rect) Rect {
	switch {
	case r.Empty():
		return s
	case s.Empty():
		return r
	}
	x0, y0 := min(r.X, s.X), min(r.Y, s.Y)
	x1, y1 := max(r.X+r.W, s.X+s.W), max(r.Y+r.H, s.Y+s.H)
	return Rect{x0, y0, x1 - x0, y1 - y0}
}

// Disjoint reports whether r and s share no area.
func (r Rect) Disjoint(s Rect) bool { return r.Intersect(s).Empty() }

// Clamp returns r clamped so that it lies entirely within bound.
// Used to clamp surface/subsurface damage to surface extents (§4.H).
func (r Rect) Clamp(bound Rect) Rect { return r.Intersect(bound) }

// Transform identifies one of the eight Wayland output/buffer transforms:
// the four cardinal rotations, each optionally preceded by a horizontal
// flip (the dihedral group of the square, D4).
type Transform int

const (
	Normal Transform = iota
	Rot90
	Rot180
	Rot270
	Flipped
	FlippedRot90
	FlippedRot180
	FlippedRot270
)

// Flip reports whether t includes a flip component.
func (t Transform) Flip() bool { return t >= Flipped }

// Apply returns the dimensions of a w x h rectangle after transform t.
// Rotations by 90 or 270 degrees swap width and height.
func (t Transform) Apply(w, h int32) (int32, int32) {
	switch t % 4 {
	case Rot90, Rot270:
		return h, w
	default:
		return w, h
	}
}

// Inverse returns the transform that undoes t.
func (t Transform) Inverse() Transform {
	if t.Flip() {
		// Every flipped member of D4 is a reflection,
		// and reflections are self-inverse, so the
		// inverse of a flipped transform is itself.
		return t
	}
	switch t {
	case Rot90:
		return Rot270
	case Rot270:
		return Rot90
	default:
		return t
	}
}
