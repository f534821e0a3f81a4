package seat

import (
	"sync/atomic"

	"github.com/tessera-wm/core/internal/bitvec"
)

// Keymap translates a physical (evdev) keycode into a keysym. It follows
// wsi/keymap.go's array-indexed lookup rather than a map, for the same
// reason that file calls out: a dense table is both faster and simpler
// than hashing for the small, bounded evdev keycode range.
//
// There is no ecosystem xkbcommon binding in the retrieved corpus to
// generalize from, so keymap resolution stays on this minimal table
// abstraction rather than reaching for a fabricated dependency; a real
// deployment would populate Table from a compiled XKB keymap at seat
// creation time.
type Keymap struct {
	Table []uint32 // indexed by evdev keycode; 0 means "unmapped"
}

// Keysym returns the keysym for code, or (0, false) if code is out of
// range or unmapped.
func (k Keymap) Keysym(code uint32) (uint32, bool) {
	if int(code) >= len(k.Table) {
		return 0, false
	}
	sym := k.Table[code]
	return sym, sym != 0
}

// ModState is the four xkb modifier components (§3 KeyboardState).
type ModState struct {
	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

var nextKeyboardStateID uint64

// KeyboardStateID identifies one (keymap, modifier-state) generation so
// listeners can cheaply detect "the map changed" (§3 KeyboardState).
type KeyboardStateID uint64

func newKeyboardStateID() KeyboardStateID {
	return KeyboardStateID(atomic.AddUint64(&nextKeyboardStateID, 1))
}

// KeyboardState is the opaque keymap value plus pressed-keys set and
// modifier components §3 describes. Pressed keys are tracked in a bit
// vector rather than a map: evdev keycodes are a small, dense, bounded
// range, the same shape bitvec.V targets, and a seat rarely sees codes
// much past the low hundreds so the vector stays a handful of words.
type KeyboardState struct {
	ID      KeyboardStateID
	Map     Keymap
	Pressed bitvec.V[uint64]
	Mods    ModState
}

// NewKeyboardState starts a fresh generation bound to m.
func NewKeyboardState(m Keymap) KeyboardState {
	return KeyboardState{ID: newKeyboardStateID(), Map: m}
}

// IsPressed reports whether code is currently held down.
func (ks *KeyboardState) IsPressed(code uint32) bool {
	if int(code) >= ks.Pressed.Len() {
		return false
	}
	return ks.Pressed.IsSet(int(code))
}

// growPressed grows Pressed, one backing Uint at a time, until index is in
// range (bitvec.V has no "grow to fit" helper of its own since its callers
// usually know their extent up front; a keycode range isn't known until
// the first key bearing it arrives).
func (ks *KeyboardState) growPressed(index int) {
	for index >= ks.Pressed.Len() {
		ks.Pressed.Grow(1)
	}
}

// SetMap installs a new keymap, bumping ID so listeners resend modifiers
// (§4.I "Emit modifier state and repeat info if the keyboard map
// changed").
func (ks *KeyboardState) SetMap(m Keymap) {
	ks.Map = m
	ks.ID = newKeyboardStateID()
}

// KeyEvent is the result of resolving one physical keycode through the
// active keymap: it may produce a key-down, a modifier update, and/or a
// compose-output event (§4.I "Key handling").
type KeyEvent struct {
	Keysym      uint32
	ModsChanged bool
}

// HandleKey resolves code (pressed if down) against ks, updating Pressed
// and returning the resolved event. Modifier keysyms are applied to Mods
// by the caller's xkb state machine; this method only reports the raw
// keysym and whether the press/release toggled membership.
func (ks *KeyboardState) HandleKey(code uint32, down bool) (KeyEvent, bool) {
	sym, ok := ks.Map.Keysym(code)
	if !ok {
		return KeyEvent{}, false
	}
	ks.growPressed(int(code))
	wasDown := ks.Pressed.IsSet(int(code))
	if down {
		ks.Pressed.Set(int(code))
	} else {
		ks.Pressed.Unset(int(code))
	}
	return KeyEvent{Keysym: sym, ModsChanged: wasDown != down}, true
}
