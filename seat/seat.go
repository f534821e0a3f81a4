// Package seat implements input state machines (§4.I): the default
// focus policy, the grab stack, keyboard key handling with compose-state
// tracking, key repeat, and virtual input injection.
//
// Keycode-to-keysym translation follows wsi/keymap.go's array-indexed
// lookup idiom (keyFrom in that file): keymap.go here generalizes it from
// a single OS-specific static table into a per-KeyboardState Keymap value
// so each seat's keyboard can carry a distinct layout.
package seat

import (
	"github.com/tessera-wm/core/scene"
)

// PointerButton identifies a physical mouse button by its Linux evdev
// code (BTN_LEFT and friends).
type PointerButton uint32

// Seat holds one independent focus/pointer/keyboard context (§3 Seat).
type Seat struct {
	Index int // bit index into scene.Node.focusBits; must stay below 64

	PointerX, PointerY float64 // subpixel
	PointerFocus       scene.NodeID
	KeyboardFocus      scene.NodeID
	TabletToolFocus    scene.NodeID
	TabletPadFocus     scene.NodeID

	pressedButtons map[PointerButton]struct{}

	grabs []Grab

	Keyboard KeyboardState
	Compose  ComposeState
	Repeat   *RepeatTimer

	CursorOwner        scene.NodeID
	CursorShapeOverride string

	listeners []func()

	// focus is the keyboard-focus history for this seat (§3 Node
	// invariant 4 "popping the top yields the next candidate when a
	// focused node is destroyed"). Pointer focus follows position rather
	// than a stack discipline, so it has no entry here.
	focus *scene.FocusStack
}

// New returns a Seat with the given seat index (§3 Seat.focusBits bit
// position).
func New(index int) *Seat {
	return &Seat{
		Index:          index,
		pressedButtons: map[PointerButton]struct{}{},
		focus:          scene.NewFocusStack(index),
	}
}

// OnChange registers a listener notified whenever focus or grab state
// changes (§4.I step 5 "Notify listeners").
func (s *Seat) OnChange(f func()) { s.listeners = append(s.listeners, f) }

func (s *Seat) notify() {
	for _, l := range s.listeners {
		l()
	}
}

// currentGrab returns the active grab, or nil for the default policy.
func (s *Seat) currentGrab() Grab {
	if len(s.grabs) == 0 {
		return nil
	}
	return s.grabs[len(s.grabs)-1]
}

// PushGrab installs g as the sole recipient of events of its kind,
// preserving whatever grab (if any) was previously active underneath it
// (§4.I "Grab is a stack discipline").
func (s *Seat) PushGrab(g Grab) {
	s.grabs = append(s.grabs, g)
}

// PopGrab removes the topmost grab, restoring the one beneath it.
func (s *Seat) PopGrab() {
	if len(s.grabs) == 0 {
		return
	}
	s.grabs = s.grabs[:len(s.grabs)-1]
}

// FocusPointer changes PointerFocus to target following the ordering in
// §4.I "Focus change ordering": leave, update, enter, notify. Pointer
// focus carries no modifier/repeat step (keyboard-only).
func (s *Seat) FocusPointer(g *scene.Graph, target scene.NodeID, leave, enter func(scene.NodeID)) {
	prev := s.PointerFocus
	if leave != nil && prev != scene.Nil && prev != target {
		leave(prev)
	}
	s.PointerFocus = target
	if enter != nil && target != scene.Nil && target != prev {
		enter(target)
	}
	s.notify()
}

// FocusKeyboard changes KeyboardFocus to target, running the full
// ordering from §4.I: leave previous, update reference, enter new,
// re-send modifiers/repeat info if the keymap changed, then notify. target
// is pushed onto the seat's focus stack, so a later CancelFocus on it can
// promote whatever was focused before (§3 Node invariant 4).
func (s *Seat) FocusKeyboard(g *scene.Graph, target scene.NodeID, leave, enter func(scene.NodeID), sendModifiers func()) {
	prev := s.KeyboardFocus
	if leave != nil && prev != scene.Nil && prev != target {
		leave(prev)
	}
	s.KeyboardFocus = target
	s.focus.Focus(g, target)
	if enter != nil && target != scene.Nil && target != prev {
		enter(target)
	}
	if sendModifiers != nil {
		sendModifiers()
	}
	s.notify()
}

// PressButton records button as pressed and reports whether it is the
// first pressed button, the point at which the implicit pointer grab
// begins (§4.I). It does not push a grab itself.
func (s *Seat) PressButton(b PointerButton) (firstPress bool) {
	_, already := s.pressedButtons[b]
	s.pressedButtons[b] = struct{}{}
	return !already && len(s.pressedButtons) == 1
}

// ReleaseButton clears button and reports whether it was the last one
// pressed, meaning any implicit pointer grab should end (§4.I "ends when
// the last button releases").
func (s *Seat) ReleaseButton(b PointerButton) (lastRelease bool) {
	delete(s.pressedButtons, b)
	return len(s.pressedButtons) == 0
}

// CancelFocus releases all pressed buttons with synthetic release events
// and pops any grab held on target, called when target is destroyed while
// focused (§4.I "Cancellation"). If target held keyboard focus, it is
// forgotten from the focus stack and whatever candidate is now on top is
// promoted through the normal FocusKeyboard ordering (§3 Node invariant 4
// "popping the top yields the next candidate when a focused node is
// destroyed"); leave/enter/sendModifiers are the same callbacks FocusKeyboard
// takes, and graph is needed to mark the promoted node's focusBits.
func (s *Seat) CancelFocus(graph *scene.Graph, target scene.NodeID, syntheticRelease func(PointerButton), leave, enter func(scene.NodeID), sendModifiers func()) {
	if s.PointerFocus == target {
		for b := range s.pressedButtons {
			if syntheticRelease != nil {
				syntheticRelease(b)
			}
			delete(s.pressedButtons, b)
		}
		s.PointerFocus = scene.Nil
	}
	if s.KeyboardFocus == target {
		s.focus.Forget(target)
		s.FocusKeyboard(graph, s.focus.Top(), leave, enter, sendModifiers)
	}
	if g := s.currentGrab(); g != nil && g.Target() == target {
		s.PopGrab()
	}
}
