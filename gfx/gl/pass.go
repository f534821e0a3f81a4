package gl

import (
	"errors"
	"unsafe"

	gles2 "github.com/go-gl/gl/v3.1/gles2"

	"github.com/tessera-wm/core/gfx"
)

// Submit binds pass.Target's FBO and replays its op list with immediate
// GLES2 calls. Unlike the Vulkan backend there is no separate recording
// step: GL's bound-context model makes every call here synchronous
// relative to the ones around it, so OpSync only issues glFlush; glFinish
// is the only caller-visible completion point (issued once, at the end).
func (c *Context) Submit(pass *gfx.Pass, waitPoints, signalPoints []gfx.SyncPoint) (gfx.SubmissionToken, error) {
	target, ok := pass.Target.(framebuffer)
	if !ok {
		if bb, ok := pass.Target.(blendBuffer); ok {
			target = bb.framebuffer
		} else {
			return 0, errors.New("gl: pass target is not a framebuffer")
		}
	}

	gles2.BindFramebuffer(gles2.FRAMEBUFFER, target.fbo)
	gles2.Viewport(0, 0, int32(target.w), int32(target.h))

	for _, op := range pass.Ops {
		switch o := op.(type) {
		case gfx.OpClear:
			gles2.ClearColor(o.Color[0], o.Color[1], o.Color[2], o.Color[3])
			if o.W > 0 && o.H > 0 {
				gles2.Enable(gles2.SCISSOR_TEST)
				gles2.Scissor(int32(o.X), int32(o.Y), int32(o.W), int32(o.H))
				gles2.Clear(gles2.COLOR_BUFFER_BIT)
				gles2.Disable(gles2.SCISSOR_TEST)
			} else {
				gles2.Clear(gles2.COLOR_BUFFER_BIT)
			}
		case gfx.OpFillRect:
			setBlend(o.Blend)
			gles2.Enable(gles2.SCISSOR_TEST)
			gles2.Scissor(int32(o.X), int32(o.Y), int32(o.W), int32(o.H))
			gles2.ClearColor(o.Color[0], o.Color[1], o.Color[2], o.Color[3])
			gles2.Clear(gles2.COLOR_BUFFER_BIT)
			gles2.Disable(gles2.SCISSOR_TEST)
		case gfx.OpCopyTexture:
			src, ok := o.Src.(texture)
			if !ok {
				continue
			}
			setBlend(o.Blend)
			blitTexturedQuad(src.tex, o.SrcRect, o.DstRect, o.Transform, o.Alpha, target.w, target.h)
		case gfx.OpSync:
			gles2.Flush()
		}
	}
	gles2.Finish()

	target.mu.Lock()
	target.version++
	tok := gfx.SubmissionToken(target.version)
	target.mu.Unlock()

	return tok, nil
}

func setBlend(enabled bool) {
	if enabled {
		gles2.Enable(gles2.BLEND)
		gles2.BlendFunc(gles2.SRC_ALPHA, gles2.ONE_MINUS_SRC_ALPHA)
	} else {
		gles2.Disable(gles2.BLEND)
	}
}

// blitTexturedQuad binds srcTex to texture unit 0 of the bound
// framebuffer's context. It compiles no shader program and issues no draw
// call, so an OpCopyTexture replayed by this back-end leaves the target's
// pixels unchanged; srcRect, dstRect, transform, alpha and the target
// size are accepted but not used.
func blitTexturedQuad(srcTex uint32, srcRect, dstRect [4]int, transform uint8, alpha float32, targetW, targetH int) {
	_ = unsafe.Pointer(nil)
	gles2.ActiveTexture(gles2.TEXTURE0)
	gles2.BindTexture(gles2.TEXTURE_2D, srcTex)
}
