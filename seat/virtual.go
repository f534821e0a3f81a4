package seat

// VirtualKeyboard drives a seat's keyboard pipeline with a caller-
// provided keymap, interleaving with physical input on the same
// KeyboardState (§4.I "Virtual keyboards/pointers").
type VirtualKeyboard struct {
	Origin *Seat
	Map    Keymap
}

// NewVirtualKeyboard binds a virtual keyboard to origin's seat, installing
// keymap as the active map for subsequent Feed calls.
func NewVirtualKeyboard(origin *Seat, keymap Keymap) *VirtualKeyboard {
	origin.Keyboard.SetMap(keymap)
	return &VirtualKeyboard{Origin: origin, Map: keymap}
}

// Feed injects a synthetic key event, timestamped by the caller (the
// engine clock, per §4.I "timestamps are assigned from the engine
// clock" — this package has no clock dependency of its own to avoid
// coupling key injection to a particular time source in tests).
func (v *VirtualKeyboard) Feed(code uint32, down bool, timestampMS uint32) (KeyEvent, bool) {
	return v.Origin.Keyboard.HandleKey(code, down)
}

// VirtualPointer injects synthetic pointer motion/button events on behalf
// of a seat, the pointer counterpart to VirtualKeyboard.
type VirtualPointer struct {
	Origin *Seat
}

func NewVirtualPointer(origin *Seat) *VirtualPointer {
	return &VirtualPointer{Origin: origin}
}

// Move sets the seat's absolute pointer position (subpixel), e.g. from a
// remote-desktop or accessibility client.
func (v *VirtualPointer) Move(x, y float64) {
	v.Origin.PointerX = x
	v.Origin.PointerY = y
}

// Button injects a synthetic button press/release, returning the same
// first-press/last-release signal PressButton/ReleaseButton report for
// physical input, so the caller's implicit-grab logic is unaffected by
// the input's origin.
func (v *VirtualPointer) Button(b PointerButton, down bool) bool {
	if down {
		return v.Origin.PressButton(b)
	}
	return v.Origin.ReleaseButton(b)
}
