// Package alloc implements the ID allocation and small-collection
// primitives that the scene tree, surface pipeline, seat and client
// registry (D–K) build on: monotonic linear IDs, client-scoped protocol
// IDs, bounded slot IDs, and the ordered/copy-on-read maps used pervasively
// by callers that need cheap snapshot iteration.
//
// Adapted from engine/id.go's dataMap, generalized from one concrete
// (engine-internal) ID type into the three flavors named by the spec.
package alloc

import (
	"sync/atomic"

	"github.com/tessera-wm/core/internal/bitm"
)

// Linear is a process-wide monotonically increasing 64-bit ID generator.
// Values are never reused. Used for NodeId, KeyboardStateId, ImageId and
// similar opaque object keys.
type Linear struct {
	next atomic.Uint64
}

// Next returns the next unused ID. The zero value is never returned, so
// callers may reserve 0 as a sentinel "invalid" value.
func (l *Linear) Next() uint64 { return l.next.Add(1) }

// Slot is a bounded pool of small integer IDs with explicit free, backed by
// a bitm.Bitm for O(1) allocation and reuse. Used for seat IDs and other
// small, explicitly-freed pools (§4.E "Slot ID").
type Slot struct {
	m bitm.Bitm[uint32]
}

// Alloc reserves and returns the lowest free slot, growing the pool if
// necessary.
func (s *Slot) Alloc() int {
	if s.m.Rem() == 0 {
		s.m.Grow(1)
	}
	idx, ok := s.m.Search()
	if !ok {
		// Grow guarantees Rem() > 0 afterwards.
		panic("alloc: Slot.Alloc: unexpected Search failure")
	}
	s.m.Set(idx)
	return idx
}

// Free releases a previously allocated slot for reuse.
func (s *Slot) Free(id int) { s.m.Unset(id) }

// ProtocolKind distinguishes client-allocated from server-allocated
// protocol object IDs, per the Wayland wire convention (§4.E).
type ProtocolKind int

const (
	// ClientSide IDs occupy the low half of the 32-bit ID space.
	ClientSide ProtocolKind = iota
	// ServerSide IDs occupy the high half.
	ServerSide
)

// serverIDBase is the first ID in the server-allocated half of the
// protocol ID space, matching the Wayland wire convention (ids below this
// value are reserved for client-side allocation).
const serverIDBase = 0xff000000

// Protocol allocates client-scoped 32-bit object IDs, reused within a
// client's lifetime. Each Client owns one Protocol allocator.
type Protocol struct {
	server Slot // offsets from serverIDBase
}

// NewServerID allocates the next free server-side (high half) ID.
func (p *Protocol) NewServerID() uint32 {
	return serverIDBase + uint32(p.server.Alloc())
}

// FreeServerID releases a server-side ID for reuse.
func (p *Protocol) FreeServerID(id uint32) {
	if id < serverIDBase {
		panic("alloc: FreeServerID: id not in server-side range")
	}
	p.server.Free(int(id - serverIDBase))
}

// Kind reports which half of the ID space id falls into.
func Kind(id uint32) ProtocolKind {
	if id >= serverIDBase {
		return ServerSide
	}
	return ClientSide
}
