package gl

// #cgo pkg-config: gbm egl
// #include <gbm.h>
// #include <EGL/egl.h>
// #include <EGL/eglext.h>
import "C"

import (
	"sync"
	"unsafe"

	gles2 "github.com/go-gl/gl/v3.1/gles2"

	"github.com/tessera-wm/core/gfx"
)

// image backs every Texture/Framebuffer/BlendBuffer this backend hands
// out: a GBM buffer object, the GL texture bound to it via an EGLImage,
// and (for render targets) the FBO wrapping that texture.
type image struct {
	mu sync.Mutex

	ctx    *Context
	bo     *C.struct_gbm_bo
	eglImg C.EGLImageKHR
	tex    uint32
	fbo    uint32
	w, h   int
	fourcc uint32

	version uint64
}

func (im *image) Width() int               { return im.w }
func (im *image) Height() int              { return im.h }
func (im *image) Fourcc() uint32           { return im.fourcc }
func (im *image) ExecutionVersion() uint64 { im.mu.Lock(); defer im.mu.Unlock(); return im.version }

func (im *image) Release() {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.fbo != 0 {
		gles2.DeleteFramebuffers(1, &im.fbo)
	}
	if im.tex != 0 {
		gles2.DeleteTextures(1, &im.tex)
	}
	if im.eglImg != nil {
		C.eglDestroyImageKHR(im.ctx.eglDisp, im.eglImg)
	}
	if im.bo != nil {
		C.gbm_bo_destroy(im.bo)
	}
}

type texture struct{ *image }

func (texture) isTexture() {}

type framebuffer struct{ *image }

func (framebuffer) isFramebuffer() {}

type blendBuffer struct{ framebuffer }

func (blendBuffer) isBlendBuffer() {}

type blendCache struct {
	mu      sync.Mutex
	entries map[[2]int][]blendBuffer
}

// bindEGLImageAsTexture creates a GL texture and binds eglImg to it via
// glEGLImageTargetTexture2DOES, the standard GBM/EGL/GLES2 zero-copy
// import path.
func bindEGLImageAsTexture(eglImg C.EGLImageKHR) uint32 {
	var tex uint32
	gles2.GenTextures(1, &tex)
	gles2.BindTexture(gles2.TEXTURE_2D, tex)
	gles2.TexParameteri(gles2.TEXTURE_2D, gles2.TEXTURE_MIN_FILTER, gles2.LINEAR)
	gles2.TexParameteri(gles2.TEXTURE_2D, gles2.TEXTURE_MAG_FILTER, gles2.LINEAR)
	gles2.EGLImageTargetTexture2DOES(gles2.TEXTURE_2D, unsafe.Pointer(eglImg))
	return tex
}

func newFramebufferForTexture(tex uint32) uint32 {
	var fbo uint32
	gles2.GenFramebuffers(1, &fbo)
	gles2.BindFramebuffer(gles2.FRAMEBUFFER, fbo)
	gles2.FramebufferTexture2D(gles2.FRAMEBUFFER, gles2.COLOR_ATTACHMENT0, gles2.TEXTURE_2D, tex, 0)
	return fbo
}

func (c *Context) ImportDMABuf(buf gfx.DMABuf, usage gfx.Usage) (gfx.Image, error) {
	if _, ok := convFourcc(buf.Fourcc); !ok {
		return nil, gfx.ErrUnsupportedFormat
	}
	attrs := []C.EGLint{
		C.EGL_WIDTH, C.EGLint(buf.Width),
		C.EGL_HEIGHT, C.EGLint(buf.Height),
		C.EGL_LINUX_DRM_FOURCC_EXT, C.EGLint(buf.Fourcc),
		C.EGL_DMA_BUF_PLANE0_FD_EXT, C.EGLint(buf.Planes[0].FD),
		C.EGL_DMA_BUF_PLANE0_OFFSET_EXT, C.EGLint(buf.Planes[0].Offset),
		C.EGL_DMA_BUF_PLANE0_PITCH_EXT, C.EGLint(buf.Planes[0].Stride),
		C.EGL_NONE,
	}
	eglImg := C.eglCreateImageKHR(c.eglDisp, C.EGL_NO_CONTEXT, C.EGL_LINUX_DMA_BUF_EXT, nil, &attrs[0])
	if eglImg == nil {
		return nil, gfx.ErrImport
	}
	tex := bindEGLImageAsTexture(eglImg)
	im := &image{ctx: c, eglImg: eglImg, tex: tex, w: buf.Width, h: buf.Height, fourcc: buf.Fourcc}
	if usage&gfx.UsageRenderTarget != 0 {
		im.fbo = newFramebufferForTexture(tex)
		return framebuffer{im}, nil
	}
	return texture{im}, nil
}

func (c *Context) CreateSHMTexture(bytes []byte, fourcc uint32, w, h, stride int) (gfx.Texture, error) {
	glFmt, ok := convFourcc(fourcc)
	if !ok {
		return nil, gfx.ErrUnsupportedFormat
	}
	var tex uint32
	gles2.GenTextures(1, &tex)
	gles2.BindTexture(gles2.TEXTURE_2D, tex)
	gles2.TexParameteri(gles2.TEXTURE_2D, gles2.TEXTURE_MIN_FILTER, gles2.LINEAR)
	gles2.TexParameteri(gles2.TEXTURE_2D, gles2.TEXTURE_MAG_FILTER, gles2.LINEAR)
	gles2.PixelStorei(gles2.UNPACK_ALIGNMENT, 1)
	gles2.TexImage2D(gles2.TEXTURE_2D, 0, int32(glFmt), int32(w), int32(h), 0, uint32(glFmt), gles2.UNSIGNED_BYTE,
		unsafe.Pointer(&bytes[0]))
	return texture{&image{ctx: c, tex: tex, w: w, h: h, fourcc: fourcc, version: 1}}, nil
}

func (c *Context) CreateFramebuffer(w, h int, fourcc uint32, modifiers []uint64) (gfx.Framebuffer, gfx.DMABuf, error) {
	bo := C.gbm_bo_create(c.gbmDev, C.uint32_t(w), C.uint32_t(h), C.uint32_t(fourcc),
		C.GBM_BO_USE_RENDERING|C.GBM_BO_USE_SCANOUT)
	if bo == nil {
		return nil, gfx.DMABuf{}, gfx.ErrOutOfMemory
	}
	fd := int(C.gbm_bo_get_fd(bo))
	stride := int(C.gbm_bo_get_stride(bo))

	attrs := []C.EGLint{
		C.EGL_WIDTH, C.EGLint(w),
		C.EGL_HEIGHT, C.EGLint(h),
		C.EGL_LINUX_DRM_FOURCC_EXT, C.EGLint(fourcc),
		C.EGL_DMA_BUF_PLANE0_FD_EXT, C.EGLint(fd),
		C.EGL_DMA_BUF_PLANE0_OFFSET_EXT, 0,
		C.EGL_DMA_BUF_PLANE0_PITCH_EXT, C.EGLint(stride),
		C.EGL_NONE,
	}
	eglImg := C.eglCreateImageKHR(c.eglDisp, C.EGL_NO_CONTEXT, C.EGL_LINUX_DMA_BUF_EXT, nil, &attrs[0])
	if eglImg == nil {
		C.gbm_bo_destroy(bo)
		return nil, gfx.DMABuf{}, gfx.ErrImport
	}
	tex := bindEGLImageAsTexture(eglImg)
	fbo := newFramebufferForTexture(tex)

	im := &image{ctx: c, bo: bo, eglImg: eglImg, tex: tex, fbo: fbo, w: w, h: h, fourcc: fourcc}
	dbuf := gfx.DMABuf{
		Fourcc: fourcc, Width: w, Height: h,
		Planes: []gfx.Plane{{FD: fd, Stride: uint32(stride)}},
	}
	return framebuffer{im}, dbuf, nil
}

func (c *Context) AcquireBlendBuffer(w, h int) (gfx.BlendBuffer, error) {
	key := [2]int{w, h}
	c.blend.mu.Lock()
	if bufs := c.blend.entries[key]; len(bufs) > 0 {
		bb := bufs[len(bufs)-1]
		c.blend.entries[key] = bufs[:len(bufs)-1]
		c.blend.mu.Unlock()
		return bb, nil
	}
	c.blend.mu.Unlock()

	fb, _, err := c.CreateFramebuffer(w, h, fourccARGB8888, nil)
	if err != nil {
		return nil, err
	}
	return blendBuffer{fb.(framebuffer)}, nil
}

func (c *Context) releaseBlendBuffer(bb blendBuffer) {
	key := [2]int{bb.Width(), bb.Height()}
	c.blend.mu.Lock()
	defer c.blend.mu.Unlock()
	c.blend.entries[key] = append(c.blend.entries[key], bb)
}

func convFourcc(fourcc uint32) (uint32, bool) {
	switch fourcc {
	case fourccARGB8888, fourccXRGB8888, fourccABGR8888, fourccXBGR8888:
		return gles2.RGBA, true
	default:
		return 0, false
	}
}
