package seat

import (
	"testing"

	"github.com/tessera-wm/core/scene"
)

func TestFocusChangeOrdering(t *testing.T) {
	var g scene.Graph
	root := g.Root()
	a := g.Insert(scene.KindSurface, root)
	b := g.Insert(scene.KindSurface, root)

	s := New(0)
	var events []string
	s.FocusKeyboard(&g, a,
		func(scene.NodeID) { events = append(events, "leave") },
		func(scene.NodeID) { events = append(events, "enter") },
		func() { events = append(events, "mods") },
	)
	if s.KeyboardFocus != a {
		t.Fatalf("focus = %v, want a", s.KeyboardFocus)
	}
	s.FocusKeyboard(&g, b,
		func(scene.NodeID) { events = append(events, "leave") },
		func(scene.NodeID) { events = append(events, "enter") },
		func() { events = append(events, "mods") },
	)
	want := []string{"enter", "mods", "leave", "enter", "mods"}
	if len(events) != len(want) {
		t.Fatalf("got %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("got %v, want %v", events, want)
		}
	}
}

func TestFocusPointerOrdering(t *testing.T) {
	var g scene.Graph
	root := g.Root()
	a := g.Insert(scene.KindSurface, root)
	b := g.Insert(scene.KindSurface, root)

	s := New(0)
	var events []string
	s.FocusPointer(&g, a,
		func(scene.NodeID) { events = append(events, "leave") },
		func(scene.NodeID) { events = append(events, "enter") },
	)
	if s.PointerFocus != a {
		t.Fatalf("PointerFocus = %v, want a", s.PointerFocus)
	}
	s.FocusPointer(&g, b,
		func(scene.NodeID) { events = append(events, "leave") },
		func(scene.NodeID) { events = append(events, "enter") },
	)
	want := []string{"enter", "leave", "enter"}
	if len(events) != len(want) {
		t.Fatalf("got %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("got %v, want %v", events, want)
		}
	}
	if s.PointerFocus != b {
		t.Fatalf("PointerFocus = %v, want b", s.PointerFocus)
	}
}

func TestImplicitPointerGrabLifecycle(t *testing.T) {
	s := New(0)
	if first := s.PressButton(0x110); !first {
		t.Fatal("first press should report firstPress=true")
	}
	if first := s.PressButton(0x111); first {
		t.Fatal("second concurrent button should not report firstPress")
	}
	if last := s.ReleaseButton(0x110); last {
		t.Fatal("releasing one of two pressed buttons should not report lastRelease")
	}
	if last := s.ReleaseButton(0x111); !last {
		t.Fatal("releasing the last pressed button should report lastRelease")
	}
}

func TestGrabStackPushPop(t *testing.T) {
	s := New(0)
	g1 := NewKeyboardGrab(1)
	g2 := NewKeyboardGrab(2)
	s.PushGrab(g1)
	s.PushGrab(g2)
	if s.currentGrab().Target() != scene.NodeID(2) {
		t.Fatal("top of grab stack should be g2")
	}
	s.PopGrab()
	if s.currentGrab().Target() != scene.NodeID(1) {
		t.Fatal("popping should restore g1")
	}
}

func TestCancelFocusReleasesPressedButtons(t *testing.T) {
	var g scene.Graph
	s := New(0)
	s.PointerFocus = 5
	s.PressButton(0x110)
	s.PressButton(0x111)

	var released []PointerButton
	s.CancelFocus(&g, 5, func(b PointerButton) { released = append(released, b) }, nil, nil, nil)

	if len(released) != 2 {
		t.Fatalf("got %d synthetic releases, want 2", len(released))
	}
	if s.PointerFocus != 0 {
		t.Fatal("pointer focus should be cleared")
	}
}

func TestCancelFocusPromotesPreviousKeyboardFocus(t *testing.T) {
	var g scene.Graph
	root := g.Root()
	a := g.Insert(scene.KindSurface, root)
	b := g.Insert(scene.KindSurface, root)

	s := New(0)
	var events []string
	noop := func(scene.NodeID) {}
	s.FocusKeyboard(&g, a, noop, noop, nil)
	s.FocusKeyboard(&g, b, noop, noop, nil)

	s.CancelFocus(&g, b,
		nil,
		func(scene.NodeID) { events = append(events, "leave") },
		func(scene.NodeID) { events = append(events, "enter") },
		func() { events = append(events, "mods") },
	)

	if s.KeyboardFocus != a {
		t.Fatalf("keyboard focus after cancel = %v, want a (promoted)", s.KeyboardFocus)
	}
	want := []string{"leave", "enter", "mods"}
	if len(events) != len(want) {
		t.Fatalf("got %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("got %v, want %v", events, want)
		}
	}
	if !g.Get(a).FocusedOn(0) {
		t.Error("a should remain marked as having been focused on seat 0")
	}
}

func TestCancelFocusClearsKeyboardFocusWhenStackEmpty(t *testing.T) {
	var g scene.Graph
	root := g.Root()
	a := g.Insert(scene.KindSurface, root)

	s := New(0)
	noop := func(scene.NodeID) {}
	s.FocusKeyboard(&g, a, noop, noop, nil)

	s.CancelFocus(&g, a, nil, noop, noop, nil)

	if s.KeyboardFocus != scene.Nil {
		t.Fatalf("keyboard focus = %v, want Nil", s.KeyboardFocus)
	}
}

func TestKeyboardStateHandleKey(t *testing.T) {
	ks := NewKeyboardState(Keymap{Table: []uint32{0, 0x61, 0x62}})
	ev, ok := ks.HandleKey(1, true)
	if !ok || ev.Keysym != 0x61 {
		t.Fatalf("got (%v, %v), want keysym 0x61", ev, ok)
	}
	if !ks.IsPressed(1) {
		t.Fatal("key 1 should be marked pressed")
	}
	ks.HandleKey(1, false)
	if ks.IsPressed(1) {
		t.Fatal("key 1 should be released")
	}
}

func TestKeyboardStateIDChangesOnSetMap(t *testing.T) {
	ks := NewKeyboardState(Keymap{})
	id1 := ks.ID
	ks.SetMap(Keymap{Table: []uint32{1}})
	if ks.ID == id1 {
		t.Fatal("expected KeyboardStateID to change after SetMap")
	}
}

func TestComposeStatePendingThenComposed(t *testing.T) {
	table := ComposeTable{}
	seqAE := sequenceKey([]uint32{'`', 'e'})
	seqA := sequenceKey([]uint32{'`'})
	table[seqAE] = "è"
	_ = seqA

	var c ComposeState
	c.Table = table
	out, _ := c.Feed('`', false)
	if out != ComposePending {
		t.Fatalf("got %v, want ComposePending", out)
	}
	out, s := c.Feed('e', false)
	if out != ComposeComposed || s != "è" {
		t.Fatalf("got (%v, %q), want (ComposeComposed, \"è\")", out, s)
	}
}

func TestComposeStateAbortsOnEscape(t *testing.T) {
	table := ComposeTable{sequenceKey([]uint32{'`', 'e'}): "è"}
	var c ComposeState
	c.Table = table
	c.Feed('`', false)
	out, _ := c.Feed(KeysymEscape, false)
	if out != ComposeAborted {
		t.Fatalf("got %v, want ComposeAborted", out)
	}
	if len(c.Sequence) != 0 {
		t.Fatal("sequence should be cleared after escape")
	}
}

func TestComposeStateNoneForUnrelatedKey(t *testing.T) {
	var c ComposeState
	c.Table = ComposeTable{}
	out, _ := c.Feed('x', false)
	if out != ComposeNone {
		t.Fatalf("got %v, want ComposeNone", out)
	}
}

func TestVirtualPointerButtonMatchesPhysicalSemantics(t *testing.T) {
	s := New(0)
	vp := NewVirtualPointer(s)
	if first := vp.Button(0x110, true); !first {
		t.Fatal("expected firstPress=true")
	}
	if last := vp.Button(0x110, false); !last {
		t.Fatal("expected lastRelease=true")
	}
}
