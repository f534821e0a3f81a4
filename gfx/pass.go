package gfx

// Pass is a straight-line script of ops recorded by the caller and handed
// to Context.Submit as one unit (§4.F "A pass is a straight-line script of
// ops"). It carries no control flow: the scene/present packages decide
// ordering and branch before recording.
type Pass struct {
	Target Framebuffer
	Ops    []Op
}

// Op is one recorded drawing or synchronization operation.
type Op interface {
	isOp()
}

// OpClear clears the X,Y,W,H rect of Target (target-space pixels) to
// Color. A zero W or H means "the whole target" — the common case for a
// pass with no prior damage tracking.
type OpClear struct {
	X, Y, W, H int
	Color      [4]float32
}

// OpFillRect fills Rect (target-space pixels) with Color, alpha-blended
// against the existing contents when Blend is true.
type OpFillRect struct {
	X, Y, W, H int
	Color      [4]float32
	Blend      bool
}

// OpCopyTexture blits Src onto the pass target, mapping SrcRect to
// DstRect and applying Transform (§internal/geom.Transform) and Alpha.
type OpCopyTexture struct {
	Src                Texture
	SrcRect            [4]int
	DstRect            [4]int
	Transform          uint8
	Alpha              float32
	Blend              bool
}

// OpSync inserts a GPU-side barrier: everything recorded after OpSync
// waits for everything recorded before it to complete. Used when a pass
// both reads and writes overlapping regions of the same image (e.g. a
// blend buffer reused as both source and destination across sub-passes).
type OpSync struct{}

func (OpClear) isOp()       {}
func (OpFillRect) isOp()    {}
func (OpCopyTexture) isOp() {}
func (OpSync) isOp()        {}

// NewPass starts recording a pass against target.
func NewPass(target Framebuffer) *Pass {
	return &Pass{Target: target}
}

// Clear records a full-target clear.
func (p *Pass) Clear(color [4]float32) *Pass {
	p.Ops = append(p.Ops, OpClear{Color: color})
	return p
}

// ClearRect records a clear scoped to x,y,w,h (target-space pixels),
// letting a caller that tracked damage avoid repainting the whole target
// (§4.J step 2 "clip to output rect").
func (p *Pass) ClearRect(x, y, w, h int, color [4]float32) *Pass {
	p.Ops = append(p.Ops, OpClear{X: x, Y: y, W: w, H: h, Color: color})
	return p
}

func (p *Pass) FillRect(x, y, w, h int, color [4]float32, blend bool) *Pass {
	p.Ops = append(p.Ops, OpFillRect{X: x, Y: y, W: w, H: h, Color: color, Blend: blend})
	return p
}

func (p *Pass) CopyTexture(src Texture, srcRect, dstRect [4]int, transform uint8, alpha float32, blend bool) *Pass {
	p.Ops = append(p.Ops, OpCopyTexture{
		Src: src, SrcRect: srcRect, DstRect: dstRect,
		Transform: transform, Alpha: alpha, Blend: blend,
	})
	return p
}

func (p *Pass) Sync() *Pass {
	p.Ops = append(p.Ops, OpSync{})
	return p
}
