package present

import (
	"testing"
	"time"

	"github.com/tessera-wm/core/gfx"
	"github.com/tessera-wm/core/internal/geom"
	"github.com/tessera-wm/core/scene"
)

type fakeCommitter struct {
	fb       uint32
	failN    int
	calls    int
	lastReq  commitRequest
}

func (f *fakeCommitter) Framebuffer() uint32 { return f.fb }
func (f *fakeCommitter) Cursor() (uint32, int32, int32, bool) { return 0, 0, 0, false }
func (f *fakeCommitter) Atomic(req commitRequest) error {
	f.calls++
	f.lastReq = req
	if f.calls <= f.failN {
		return ErrCommitFailed
	}
	return nil
}

func TestOutputRequestsFrameOnDamage(t *testing.T) {
	o := NewOutput("eDP-1", nil)
	if o.State() != Idle {
		t.Fatalf("got %v, want Idle", o.State())
	}
	o.MarkDamaged(geom.Rect{X: 0, Y: 0, W: 10, H: 10})
	if o.State() != NeedsFrame {
		t.Fatalf("got %v, want NeedsFrame", o.State())
	}
}

func TestOutputMarkDamagedIgnoresEmptyRect(t *testing.T) {
	o := NewOutput("eDP-1", nil)
	o.MarkDamaged(geom.Rect{})
	if o.State() != Idle {
		t.Fatalf("got %v, want Idle", o.State())
	}
}

func TestEligibleForScanoutRequiresExactMatch(t *testing.T) {
	o := NewOutput("eDP-1", nil)
	o.Mode = Mode{Width: 1920, Height: 1080}
	o.Transform = geom.Normal

	ok := ScanoutCandidate{Width: 1920, Height: 1080, Transform: geom.Normal, AcquireReady: true}
	if !o.EligibleForScanout(ok) {
		t.Fatal("expected exact-match candidate to be scanout-eligible")
	}

	wrongSize := ok
	wrongSize.Width = 1280
	if o.EligibleForScanout(wrongSize) {
		t.Fatal("mismatched size should not be scanout-eligible")
	}

	overlay := ok
	overlay.HasOverlay = true
	if o.EligibleForScanout(overlay) {
		t.Fatal("candidate with overlay should not be scanout-eligible")
	}

	notReady := ok
	notReady.AcquireReady = false
	if o.EligibleForScanout(notReady) {
		t.Fatal("candidate without a ready acquire point should not be scanout-eligible")
	}
}

func TestComposeRequiresNeedsFrame(t *testing.T) {
	o := NewOutput("eDP-1", nil)
	pass, ok := o.Compose(nil, nil, nil, nil)
	if ok {
		t.Fatal("expected Compose to refuse an Idle output")
	}
	if pass != nil {
		t.Fatal("expected nil pass for refused Compose")
	}
}

func TestComposeTakesDirectScanoutPath(t *testing.T) {
	o := NewOutput("eDP-1", nil)
	o.Mode = Mode{Width: 1920, Height: 1080}
	o.MarkDamaged(geom.Rect{X: 0, Y: 0, W: 1920, H: 1080})

	sc := ScanoutCandidate{Width: 1920, Height: 1080, Transform: geom.Normal, AcquireReady: true}
	pass, ok := o.Compose(&sc, nil, nil, nil)
	if !ok {
		t.Fatal("expected Compose to succeed")
	}
	if pass != nil {
		t.Fatal("expected nil pass for a direct-scanout frame")
	}
	if o.State() != Composing {
		t.Fatalf("got %v, want Composing", o.State())
	}
}

func TestComposeClipsClearToDamageRect(t *testing.T) {
	o := NewOutput("eDP-1", nil)
	o.Mode = Mode{Width: 1920, Height: 1080}
	o.MarkDamaged(geom.Rect{X: 100, Y: 200, W: 300, H: 400})

	pass, ok := o.Compose(nil, nil, nil, nil)
	if !ok {
		t.Fatal("expected Compose to succeed")
	}
	if pass == nil || len(pass.Ops) == 0 {
		t.Fatal("expected a non-empty pass for a non-scanout frame")
	}
	clear, ok := pass.Ops[0].(gfx.OpClear)
	if !ok {
		t.Fatalf("op 0 = %T, want gfx.OpClear", pass.Ops[0])
	}
	if clear.X != 100 || clear.Y != 200 || clear.W != 300 || clear.H != 400 {
		t.Fatalf("got clear rect %+v, want the damage rect", clear)
	}
}

func TestSubmitFallsBackWithoutGamma(t *testing.T) {
	o := NewOutput("eDP-1", nil)
	o.Color.Gamma = BuildGammaLUT(256, 2.2)
	o.MarkDamaged(geom.Rect{X: 0, Y: 0, W: 10, H: 10})
	o.state = Composing

	fc := &fakeCommitter{failN: 1}
	if err := o.Submit(fc); err != nil {
		t.Fatalf("Submit returned %v, want nil after gamma-less retry", err)
	}
	if fc.calls != 2 {
		t.Fatalf("got %d commit attempts, want 2", fc.calls)
	}
	if len(fc.lastReq.gamma) != 0 {
		t.Fatal("retry should have dropped gamma from the request")
	}
	if o.State() != Submitted {
		t.Fatalf("got %v, want Submitted", o.State())
	}
}

func TestSubmitDisablesOutputOnSecondFailure(t *testing.T) {
	o := NewOutput("eDP-1", nil)
	o.state = Composing
	fc := &fakeCommitter{failN: 2}

	err := o.Submit(fc)
	if err == nil {
		t.Fatal("expected an error after two consecutive commit failures")
	}
	var disabled *DisabledError
	if !errorsAs(err, &disabled) {
		t.Fatalf("got %T, want *DisabledError", err)
	}
	if o.State() != Idle {
		t.Fatalf("got %v, want Idle after disable", o.State())
	}
}

func TestVblankRedeliversContributorsAndClearsState(t *testing.T) {
	o := NewOutput("eDP-1", nil)
	o.state = Submitted
	o.contributors = []scene.NodeID{1, 2, 3}

	var delivered []scene.NodeID
	o.Vblank(5*time.Millisecond, func(id scene.NodeID) { delivered = append(delivered, id) })

	if len(delivered) != 3 {
		t.Fatalf("got %d deliveries, want 3", len(delivered))
	}
	if o.State() != Idle {
		t.Fatalf("got %v, want Idle", o.State())
	}
}

func TestVblankReEntersNeedsFrameWhenDamagePending(t *testing.T) {
	o := NewOutput("eDP-1", nil)
	o.state = Submitted
	o.hasDamage = true

	o.Vblank(0, nil)
	if o.State() != NeedsFrame {
		t.Fatalf("got %v, want NeedsFrame", o.State())
	}
}

func TestShouldCoalesceCursorOnlyUnderVRRWithNoContentChange(t *testing.T) {
	o := NewOutput("eDP-1", nil)
	o.Color.VRREnabled = true
	o.SetCursorRefreshCap(60)
	o.lastPresent = 100 * time.Millisecond

	if o.ShouldCoalesceCursor(105*time.Millisecond, false) != true {
		t.Fatal("expected coalescing within the refresh interval")
	}
	if o.ShouldCoalesceCursor(105*time.Millisecond, true) != false {
		t.Fatal("content change must never be coalesced")
	}
	o.Color.VRREnabled = false
	if o.ShouldCoalesceCursor(105*time.Millisecond, false) != false {
		t.Fatal("non-VRR outputs must never coalesce")
	}
}

func errorsAs(err error, target **DisabledError) bool {
	d, ok := err.(*DisabledError)
	if ok {
		*target = d
	}
	return ok
}
