package seat

import "github.com/tessera-wm/core/scene"

// GrabKind distinguishes the event classes a Grab can capture (§4.I
// "Grab kinds").
type GrabKind int

const (
	GrabImplicitPointer GrabKind = iota
	GrabKeyboard
	GrabTouch
	GrabTabletTool
	GrabTabletPad
	GrabDrag
)

// Grab is the interface every pushed grab satisfies; while active, it is
// the sole recipient of events of its Kind (§4.I).
type Grab interface {
	Kind() GrabKind
	Target() scene.NodeID
}

// baseGrab is embedded by the concrete grab kinds to share Target
// bookkeeping.
type baseGrab struct {
	target scene.NodeID
}

func (b baseGrab) Target() scene.NodeID { return b.target }

// ImplicitPointerGrab starts when any mouse button is pressed over a
// surface and ends when the last button releases; all motion/button/
// scroll route to Target until then (§4.I).
type ImplicitPointerGrab struct{ baseGrab }

func (ImplicitPointerGrab) Kind() GrabKind { return GrabImplicitPointer }

// NewImplicitPointerGrab returns a grab routing pointer events to target.
func NewImplicitPointerGrab(target scene.NodeID) *ImplicitPointerGrab {
	return &ImplicitPointerGrab{baseGrab{target}}
}

// KeyboardGrab is held by e.g. a popup or input-method while it wants
// exclusive keyboard input.
type KeyboardGrab struct{ baseGrab }

func (KeyboardGrab) Kind() GrabKind { return GrabKeyboard }

func NewKeyboardGrab(target scene.NodeID) *KeyboardGrab {
	return &KeyboardGrab{baseGrab{target}}
}

// TouchGrab tracks one touch point; TouchPointsDown decides whether an
// ending touch frame should pop the grab (§4.I "frame events end a grab
// iff no points remain down").
type TouchGrab struct {
	baseGrab
	pointsDown map[int32]struct{}
}

func (TouchGrab) Kind() GrabKind { return GrabTouch }

func NewTouchGrab(target scene.NodeID) *TouchGrab {
	return &TouchGrab{baseGrab{target}, map[int32]struct{}{}}
}

func (g *TouchGrab) Down(id int32)  { g.pointsDown[id] = struct{}{} }
func (g *TouchGrab) Up(id int32)    { delete(g.pointsDown, id) }
func (g *TouchGrab) AnyDown() bool  { return len(g.pointsDown) > 0 }

// TabletToolGrab and TabletPadGrab are analogous single-target grabs for
// tablet tool and pad events (§4.I "Tablet tool / pad grab: analogous").
type TabletToolGrab struct{ baseGrab }

func (TabletToolGrab) Kind() GrabKind { return GrabTabletTool }

func NewTabletToolGrab(target scene.NodeID) *TabletToolGrab {
	return &TabletToolGrab{baseGrab{target}}
}

type TabletPadGrab struct{ baseGrab }

func (TabletPadGrab) Kind() GrabKind { return GrabTabletPad }

func NewTabletPadGrab(target scene.NodeID) *TabletPadGrab {
	return &TabletPadGrab{baseGrab{target}}
}

// DragGrab overrides pointer routing for the duration of a data transfer
// (§4.I "Drag grab: for data transfers; overrides pointer").
type DragGrab struct {
	baseGrab
	Origin scene.NodeID
}

func (DragGrab) Kind() GrabKind { return GrabDrag }

func NewDragGrab(origin, target scene.NodeID) *DragGrab {
	return &DragGrab{baseGrab{target}, origin}
}
