// Package surface implements the Wayland surface commit pipeline (§4.H):
// double-buffered pending/current state, subsurface commit-sync
// deferral, the fifo_v1 barrier, explicit sync wait/signal points, frame
// callbacks and presentation feedback.
package surface

import (
	"github.com/tessera-wm/core/internal/geom"
)

// SyncMode selects whether a subsurface's commits apply immediately or
// only when its parent's non-synced ancestor commits (§4.H "Synchronized
// subsurface").
type SyncMode int

const (
	Desynchronized SyncMode = iota
	Synchronized
)

// SyncPoint is an explicit-sync timeline point: a syncobj handle plus a
// 64-bit value (§GLOSSARY "Explicit sync").
type SyncPoint struct {
	Syncobj uint32
	Value   uint64
	set     bool
}

func (p SyncPoint) IsSet() bool { return p.set }

// NewSyncPoint constructs a set SyncPoint.
func NewSyncPoint(syncobj uint32, value uint64) SyncPoint {
	return SyncPoint{Syncobj: syncobj, Value: value, set: true}
}

// Viewport resolves a surface's source rect and destination size, both
// optional (§3 Surface "viewport").
type Viewport struct {
	HasSrc    bool
	Src       geom.Rect // buffer-local, may be fractional in a real implementation; kept integer here
	HasDst    bool
	DstW, DstH int32
}

// FrameCallback is a client's request to be notified at the next
// after_latch of the output displaying the surface (§4.H).
type FrameCallback struct {
	Done func(timestampMS uint32)
}

// PresentationFeedback is notified once the containing image is actually
// presented (§4.H "Presentation-feedback listeners").
type PresentationFeedback struct {
	Notify func(tvSec, tvNsec uint64, refreshNS uint32, seq uint64, flags uint32)
}

// State is one buffered half (pending or current) of a surface's state
// (§3 Surface).
type State struct {
	Buffer       BufferRef
	AttachX      int32
	AttachY      int32
	DamageSurf   []geom.Rect
	DamageBuffer []geom.Rect
	InputRegion  *geom.Rect
	OpaqueRegion *geom.Rect
	Viewport     Viewport
	BufferScale  int32
	Transform    geom.Transform

	FrameCallbacks []FrameCallback
	Feedback       []PresentationFeedback

	FIFOBarrier   bool
	WaitBarrier   bool
	AcquirePoint  SyncPoint
	ReleasePoint  SyncPoint
}

// BufferRef is an opaque client buffer handle; the gfx package's Texture
// is the eventual backing once a commit is actually rendered, but the
// surface package itself stays independent of gfx so protocol-level
// commit bookkeeping can be tested without a GPU.
type BufferRef struct {
	ID     uint32
	Width  int32
	Height int32
	valid  bool
}

func (b BufferRef) Valid() bool { return b.valid }

// NewBufferRef constructs a valid BufferRef.
func NewBufferRef(id uint32, w, h int32) BufferRef {
	return BufferRef{ID: id, Width: w, Height: h, valid: true}
}

// cachedState holds a synchronized subsurface's pending state until its
// ancestor commits (§4.H "Synchronized subsurface").
type cachedState struct {
	state State
	valid bool
}

// Surface is one Wayland-surface-shaped tree leaf: buffer state, sync
// mode, barrier state and its subsurface children.
type Surface struct {
	Pending State
	Current State

	Sync    SyncMode
	parent  *Surface
	subs    []*Surface

	cached      cachedState
	barrierSet  bool // a commit on this surface has a pending, uncleared fifo barrier
	releaseFunc func(BufferRef)

	damagedCurrent bool
}

// SetReleaseFunc installs the callback invoked when Current's previously
// attached buffer is no longer read, e.g. to send wl_buffer.release or,
// under explicit sync, to signal ReleasePoint instead (§4.H).
func (s *Surface) SetReleaseFunc(f func(BufferRef)) { s.releaseFunc = f }

// AddSubsurface registers child as a synchronized or desynchronized
// subsurface of s.
func (s *Surface) AddSubsurface(child *Surface, mode SyncMode) {
	child.parent = s
	child.Sync = mode
	s.subs = append(s.subs, child)
}

// Commit moves Pending into Current, honoring synchronized-subsurface
// deferral and the fifo_v1 barrier (§4.H).
//
// Returns true if Current actually changed (i.e. the commit was not
// deferred), which callers use to decide whether to mark the owning
// scene node damaged.
func (s *Surface) Commit() bool {
	if s.Sync == Synchronized && s.parent != nil {
		// Deferred: cache pending, do not touch Current yet. The
		// ancestor's own commit (see applyCached) will apply it.
		s.cached.state = s.Pending
		s.cached.valid = true
		s.Pending = State{}
		return false
	}

	if s.Pending.WaitBarrier {
		// wait_barrier defers application until the next after_latch
		// clears the surface's output barrier; callers record this
		// surface on the output's pending-barrier list instead of
		// applying immediately (§4.H fifo_v1).
		s.barrierSet = true
		return false
	}

	s.apply()

	// A desynchronized commit on s also flushes any synchronized
	// children's cached state, since s is their nearest non-synced
	// ancestor (§4.H).
	for _, c := range s.subs {
		c.applyCached()
	}
	return true
}

// AfterLatch is called once the output displaying s reaches the next
// latch point (vblank for tearing presentation, frame boundary
// otherwise); it applies any barrier-deferred commit and delivers queued
// frame callbacks (§4.H, §4.J "Vblank handler").
func (s *Surface) AfterLatch(timestampMS uint32) {
	if s.barrierSet {
		s.barrierSet = false
		s.apply()
		for _, c := range s.subs {
			c.applyCached()
		}
	}
	for _, cb := range s.Current.FrameCallbacks {
		if cb.Done != nil {
			cb.Done(timestampMS)
		}
	}
	s.Current.FrameCallbacks = nil
}

// applyCached promotes a synchronized subsurface's cached pending state
// into Current, called by the nearest non-synced ancestor's Commit.
func (s *Surface) applyCached() {
	if !s.cached.valid {
		return
	}
	prev := s.Current.Buffer
	s.Current = s.cached.state
	s.cached = cachedState{}
	s.resolveBufferSize()
	s.damagedCurrent = true
	s.releasePrevious(prev)
	for _, c := range s.subs {
		c.applyCached()
	}
}

func (s *Surface) apply() {
	prev := s.Current.Buffer
	s.Current = s.Pending
	s.Pending = State{
		// Damage and frame-callback lists always start empty for the
		// next cycle; other fields persist as "last explicitly set"
		// per Wayland double-buffering semantics, so copy them forward.
		AttachX: s.Pending.AttachX, AttachY: s.Pending.AttachY,
		BufferScale: s.Current.BufferScale,
		Transform:   s.Current.Transform,
		Viewport:    s.Current.Viewport,
		InputRegion: s.Current.InputRegion,
		OpaqueRegion: s.Current.OpaqueRegion,
		Buffer:      s.Current.Buffer,
	}
	s.resolveBufferSize()
	s.damagedCurrent = true
	s.releasePrevious(prev)
}

// resolveBufferSize computes Current's effective buffer_size per §4.H's
// invariant: buffer.size × viewport.dst / viewport.src after transform, or
// buffer.size / buffer_scale with no viewport.
func (s *Surface) resolveBufferSize() (w, h int32) {
	b := s.Current.Buffer
	if !b.Valid() {
		return 0, 0
	}
	bw, bh := s.Current.Transform.Apply(b.Width, b.Height)
	vp := s.Current.Viewport
	switch {
	case vp.HasDst:
		// With a source rect too, scale the whole buffer by dst/src,
		// rounding up; with dst alone the source is the whole buffer,
		// so the result is dst itself.
		if vp.HasSrc && vp.Src.W > 0 && vp.Src.H > 0 {
			return ceilDiv(bw*vp.DstW, vp.Src.W), ceilDiv(bh*vp.DstH, vp.Src.H)
		}
		return vp.DstW, vp.DstH
	case vp.HasSrc:
		// With a source rect and no dst, the source rect's own extent is
		// the size; the dst/src scaling above is not applied (§4.H).
		return vp.Src.W, vp.Src.H
	}
	scale := s.Current.BufferScale
	if scale < 1 {
		scale = 1
	}
	return ceilDiv(bw, scale), ceilDiv(bh, scale)
}

func ceilDiv(a, b int32) int32 {
	if b == 0 {
		return a
	}
	return (a + b - 1) / b
}

// releasePrevious invokes releaseFunc for the buffer Current just
// stopped referencing, or signals its ReleasePoint under explicit sync
// (§4.H "The previous attached buffer is released...").
func (s *Surface) releasePrevious(prev BufferRef) {
	if !prev.Valid() || prev.ID == s.Current.Buffer.ID {
		return
	}
	if s.releaseFunc != nil {
		s.releaseFunc(prev)
	}
}

// DamagedAndClear reports whether Current changed since the last call and
// clears the flag, for the scene node wrapping this surface to decide
// whether to mark itself damaged.
func (s *Surface) DamagedAndClear() bool {
	d := s.damagedCurrent
	s.damagedCurrent = false
	return d
}

// ClampDamage intersects every rect in damage against bound, per §4.H's
// "Damage is clamped to the surface extents before propagation"
// invariant.
func ClampDamage(damage []geom.Rect, bound geom.Rect) []geom.Rect {
	out := damage[:0]
	for _, r := range damage {
		c := r.Clamp(bound)
		if !c.Empty() {
			out = append(out, c)
		}
	}
	return out
}
