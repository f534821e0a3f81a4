package scene

// FocusStack is a total order over nodes that have ever been focused on
// one seat (§3 Node invariant 4). Focusing a node moves it to the top.
// FocusStack itself never observes node destruction — seat.Seat owns one
// per seat, pushes onto it from FocusKeyboard, and calls Forget from
// CancelFocus when the destroyed node held keyboard focus, then
// re-invokes FocusKeyboard with the new Top to promote the next
// candidate through the normal leave/enter ordering.
type FocusStack struct {
	seat  int
	order []NodeID
}

// NewFocusStack returns a stack tracking focus history for the given seat
// index (seat indices index Node.focusBits, so must stay below 64).
func NewFocusStack(seat int) *FocusStack {
	return &FocusStack{seat: seat}
}

// Top returns the current focus candidate, or Nil if nothing has ever
// been focused on this seat.
func (s *FocusStack) Top() NodeID {
	if len(s.order) == 0 {
		return Nil
	}
	return s.order[len(s.order)-1]
}

// Focus moves id to the top of the stack, marking it as having been
// focused on this seat (§3 Node.focusBits).
func (s *FocusStack) Focus(g *Graph, id NodeID) {
	if id == Nil {
		return
	}
	s.removeFromOrder(id)
	s.order = append(s.order, id)
	if n := g.Get(id); n != nil {
		n.focusBits |= 1 << uint(s.seat)
	}
}

// Forget removes id from the stack, e.g. because the node was destroyed;
// the new Top is the next most-recently-focused surviving node (§3 Node
// invariant 4).
func (s *FocusStack) Forget(id NodeID) {
	s.removeFromOrder(id)
}

func (s *FocusStack) removeFromOrder(id NodeID) {
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
