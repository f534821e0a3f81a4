// Package present drives per-output frame production (§4.J): the
// Idle/NeedsFrame/Composing/Submitted state machine, damage
// accumulation, direct-scanout eligibility, VRR-aware cursor pacing, and
// the atomic DRM/KMS commit with its gamma-less fallback.
package present

import (
	"time"

	"github.com/tessera-wm/core/gfx"
	"github.com/tessera-wm/core/internal/geom"
	"github.com/tessera-wm/core/scene"
)

// FrameState is the per-output state machine §4.J defines.
type FrameState int

const (
	Idle FrameState = iota
	NeedsFrame
	Composing
	Submitted
)

func (s FrameState) String() string {
	switch s {
	case Idle:
		return "idle"
	case NeedsFrame:
		return "needs-frame"
	case Composing:
		return "composing"
	case Submitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// Mode is an output's active display mode.
type Mode struct {
	Width, Height int32
	RefreshMilliHz int32
}

// ColorState is an output's color pipeline configuration.
type ColorState struct {
	VRREnabled bool
	Gamma      []uint16 // one LUT entry per channel step; nil means identity
}

// Output tracks one display's frame-production state.
type Output struct {
	Name  string
	Mode  Mode
	Scale int32
	Transform geom.Transform
	Rect  geom.Rect // position + size in the global output-space layout

	Color ColorState

	state       FrameState
	damage      geom.Rect
	hasDamage   bool
	lastPresent time.Duration
	cursorHz    float64 // 0 disables the coalescing cap

	// contributors is the set of surfaces whose commit contributed to the
	// in-flight frame, so the vblank handler knows who to deliver
	// frame-callbacks and release-points to (§4.J "Vblank handler").
	contributors []scene.NodeID

	gpu gfx.Context
}

// NewOutput constructs an Output bound to ctx for rendering.
func NewOutput(name string, ctx gfx.Context) *Output {
	return &Output{Name: name, gpu: ctx, state: Idle}
}

// State returns the output's current FrameState.
func (o *Output) State() FrameState { return o.state }

// MarkDamaged unions rect (in output space) into the accumulated damage
// and requests a frame if the output was Idle (§4.J "NeedsFrame is set
// by ... damage on a visible node").
func (o *Output) MarkDamaged(rect geom.Rect) {
	if rect.Empty() {
		return
	}
	if o.hasDamage {
		o.damage = o.damage.Union(rect)
	} else {
		o.damage = rect
		o.hasDamage = true
	}
	o.requestFrame()
}

// MarkSoftwareCursorMoved requests a frame for pointer motion when the
// output has no hardware cursor plane available (§4.J).
func (o *Output) MarkSoftwareCursorMoved() { o.requestFrame() }

// MarkColorChange requests a frame for a pending color/transform change.
func (o *Output) MarkColorChange() { o.requestFrame() }

// MarkTimerFire requests a frame from an explicit output timer (used for
// the VRR cursor-coalescing cap).
func (o *Output) MarkTimerFire() { o.requestFrame() }

func (o *Output) requestFrame() {
	if o.state == Idle {
		o.state = NeedsFrame
	}
}

// ScanoutCandidate is a fullscreen surface eligible for direct scanout
// (§4.J step 1).
type ScanoutCandidate struct {
	Buffer      gfx.DMABuf
	Width, Height int32
	Fourcc      uint32
	Transform   geom.Transform
	HasOverlay  bool
	AcquireReady bool
}

// EligibleForScanout reports whether c can bypass composition entirely:
// exact output dimensions and transform match, no overlay, acquire point
// ready (§4.J step 1). c.Fourcc and c.Buffer are not examined: neither the
// format nor the kind of buffer is compared against the output.
func (o *Output) EligibleForScanout(c ScanoutCandidate) bool {
	if c.HasOverlay || !c.AcquireReady {
		return false
	}
	if c.Width != o.Mode.Width || c.Height != o.Mode.Height {
		return false
	}
	if c.Transform != o.Transform {
		return false
	}
	return true
}

// Compose transitions a NeedsFrame output into Composing (any other state
// returns (nil, false) and changes nothing), builds the
// pass (or takes the direct-scanout path), and returns the pass to submit
// (nil for a direct-scanout frame, whose fb is handed straight to the
// atomic commit instead).
//
// contributors is the ordered draw list the caller already resolved from
// the scene tree: layers bottom-up, workspace tree, floats, overlay
// layers, software cursor (§4.J step 2).
func (o *Output) Compose(scanout *ScanoutCandidate, contributors []scene.NodeID, target gfx.Framebuffer, build func(*gfx.Pass)) (*gfx.Pass, bool) {
	if o.state != NeedsFrame {
		return nil, false
	}
	o.state = Composing
	o.contributors = contributors

	if scanout != nil && o.EligibleForScanout(*scanout) {
		return nil, true
	}

	pass := gfx.NewPass(target)
	region := o.damage
	if !o.hasDamage {
		region = o.Rect
	}
	pass.ClearRect(int(region.X), int(region.Y), int(region.W), int(region.H), [4]float32{0, 0, 0, 1})
	if build != nil {
		build(pass)
	}
	return pass, true
}

// Submit finalizes an atomic commit attempt: gamma+cursor+frame plane+VRR
// as one transaction, falling back to a gamma-less retry on failure
// (§4.J "Atomic commit").
func (o *Output) Submit(commit Committer) error {
	req := commitRequest{
		fb:    commit.Framebuffer(),
		gamma: o.Color.Gamma,
		vrr:   o.Color.VRREnabled,
	}
	req.cursor.fbID, req.cursor.x, req.cursor.y, req.cursor.active = commit.Cursor()
	if err := commit.Atomic(req); err != nil {
		req.gamma = nil
		if err2 := commit.Atomic(req); err2 != nil {
			o.state = Idle
			return errDisable(o, err2)
		}
	}
	o.state = Submitted
	o.hasDamage = false
	return nil
}

// Committer abstracts the DRM atomic ioctl path so present's state
// machine can be tested without a real KMS device (see drm.go for the
// concrete implementation).
type Committer interface {
	Framebuffer() uint32
	Cursor() (uint32, int32, int32, bool)
	Atomic(commitRequest) error
}

type commitRequest struct {
	fb     uint32
	cursor struct {
		fbID   uint32
		x, y   int32
		active bool
	}
	gamma []uint16
	vrr    bool
}

func errDisable(o *Output, err error) error {
	o.state = Idle
	return &DisabledError{Output: o.Name, Cause: err}
}

// DisabledError is what Submit returns when the gamma-less retry also
// fails. The Output is only set back to Idle: it keeps accepting frame
// requests, and nothing is logged here.
type DisabledError struct {
	Output string
	Cause  error
}

func (e *DisabledError) Error() string {
	return "present: output " + e.Output + " disabled: " + e.Cause.Error()
}

func (e *DisabledError) Unwrap() error { return e.Cause }

// Vblank marks the output Idle, delivers frame-callback/release-point
// bookkeeping for every contributor, and re-examines whether damage
// arrived during composition (§4.J "Vblank handler").
func (o *Output) Vblank(now time.Duration, deliver func(scene.NodeID)) {
	o.state = Idle
	o.lastPresent = now
	for _, n := range o.contributors {
		if deliver != nil {
			deliver(n)
		}
	}
	o.contributors = nil
	if o.hasDamage {
		o.state = NeedsFrame
	}
}

// ShouldCoalesceCursor reports whether a cursor-only update should be
// held back under VRR-aware pacing rather than presented immediately
// (§4.J "VRR-aware pacing").
func (o *Output) ShouldCoalesceCursor(now time.Duration, contentChanged bool) bool {
	if contentChanged || !o.Color.VRREnabled || o.cursorHz <= 0 {
		return false
	}
	interval := time.Duration(float64(time.Second) / o.cursorHz)
	return now < o.lastPresent+interval
}

// SetCursorRefreshCap installs the adaptive-sync cursor coalescing cap
// (0 disables coalescing).
func (o *Output) SetCursorRefreshCap(hz float64) { o.cursorHz = hz }
