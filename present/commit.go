package present

// deviceCommitter adapts a Device + a fixed CRTC/connector/plane trio to
// the Committer interface Output.Submit consumes, keeping present.go
// free of any cgo dependency so its state machine can be unit tested
// without a DRM device.
type deviceCommitter struct {
	dev  *Device
	plan CommitPlan

	fb     uint32
	cursorFb uint32
	cursorX, cursorY int32
	cursorActive bool

	allowModeset bool
}

// NewCommitter builds a Committer bound to dev for the given object ids.
func NewCommitter(dev *Device, crtc, connector, plane uint32) *deviceCommitter {
	return &deviceCommitter{
		dev: dev,
		plan: CommitPlan{
			CrtcID:      crtc,
			ConnectorID: connector,
			PlaneID:     plane,
			Active:      true,
		},
	}
}

// SetFramebuffer records the frame plane's fb id and scanout geometry for
// the next Atomic call.
func (c *deviceCommitter) SetFramebuffer(fbID uint32, srcW, srcH, crtcX, crtcY, crtcW, crtcH uint32) {
	c.fb = fbID
	c.plan.SrcW, c.plan.SrcH = srcW, srcH
	c.plan.CrtcX, c.plan.CrtcY, c.plan.CrtcW, c.plan.CrtcH = crtcX, crtcY, crtcW, crtcH
}

// SetMode records the blob id for the CRTC's MODE_ID property and whether
// this commit is allowed to perform a modeset (§6 "an atomic commit with
// DRM_MODE_ATOMIC_ALLOW_MODESET ... only on mode changes").
func (c *deviceCommitter) SetMode(blobID uint32, allowModeset bool) {
	c.plan.ModeBlobID = blobID
	c.allowModeset = allowModeset
}

func (c *deviceCommitter) Framebuffer() uint32 { return c.fb }

func (c *deviceCommitter) Cursor() (uint32, int32, int32, bool) {
	return c.cursorFb, c.cursorX, c.cursorY, c.cursorActive
}

// SetCursor records the hardware-cursor-plane state for the next commit.
func (c *deviceCommitter) SetCursor(fbID uint32, x, y int32, active bool) {
	c.cursorFb, c.cursorX, c.cursorY, c.cursorActive = fbID, x, y, active
}

func (c *deviceCommitter) Atomic(req commitRequest) error {
	plan := c.plan
	plan.FbID = c.fb
	if len(req.gamma) > 0 {
		// req.gamma is not uploaded: no GAMMA_LUT blob is created and
		// plan.GammaBlobID stays 0, so CommitAtomic omits GAMMA_LUT.
		// req.cursor is not added to the plan either.
	}
	plan.VRREnabled = req.vrr
	return c.dev.CommitAtomic(plan, c.allowModeset)
}
