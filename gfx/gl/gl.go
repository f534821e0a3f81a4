// Package gl implements gfx.Context using GBM+EGL for context/surface
// management and OpenGL ES 2 for rendering, the "Legacy" back-end §4.F
// calls for on devices without a usable Vulkan ICD.
//
// The teacher never wrote this back-end (its driver/vk package was the
// only one it shipped); this package follows driver/vk's file layout
// (driver.go, image.go, pass.go renamed to their gl.go/image.go/pass.go
// equivalents, plus device.go for the render-node fd) and its cgo-against-the-
// native-API idiom, substituting GBM/EGL/GLES2 headers for the Vulkan
// ones. GL entry points themselves come from github.com/go-gl/gl, the
// pure-Go GL binding already used for the same purpose elsewhere in the
// retrieved corpus, loaded once a context is current.
package gl

// #cgo pkg-config: gbm egl
// #include <gbm.h>
// #include <EGL/egl.h>
// #include <EGL/eglext.h>
// #include <stdlib.h>
import "C"

import (
	"sync"
	"unsafe"

	gles2 "github.com/go-gl/gl/v3.1/gles2"
	"github.com/pkg/errors"

	"github.com/tessera-wm/core/gfx"
)

// Context implements gfx.Context on top of a GBM device and a headless
// EGL context (no EGL surface; every render target is an EGL image bound
// to an FBO, since this process never owns a window of its own).
type Context struct {
	gbmFd     int
	gbmDev    *C.struct_gbm_device
	eglDisp   C.EGLDisplay
	eglCtx    C.EGLContext
	node      string
	formats   map[uint32]gfx.FormatInfo
	blend     blendCache

	resetMu sync.Mutex
	reset   gfx.ResetStatus
	guilty  bool
}

// New opens renderNode, creates a GBM device over it, and brings up a
// surfaceless EGL context on the EGL_PLATFORM_GBM_KHR display of that
// device.
func New(renderNode string) (*Context, error) {
	cpath := C.CString(renderNode)
	defer C.free(unsafe.Pointer(cpath))
	fd, err := openRenderNode(renderNode)
	if err != nil {
		return nil, errors.Wrap(gfx.ErrNoDevice, err.Error())
	}

	gbmDev := C.gbm_create_device(C.int(fd))
	if gbmDev == nil {
		closeFd(fd)
		return nil, errors.Wrap(gfx.ErrNotInstalled, "gbm_create_device failed")
	}

	disp := C.eglGetPlatformDisplayEXT(C.EGL_PLATFORM_GBM_KHR, unsafe.Pointer(gbmDev), nil)
	if disp == C.EGL_NO_DISPLAY {
		C.gbm_device_destroy(gbmDev)
		closeFd(fd)
		return nil, errors.Wrap(gfx.ErrNoDevice, "eglGetPlatformDisplayEXT failed")
	}
	var maj, min C.EGLint
	if C.eglInitialize(disp, &maj, &min) == 0 {
		C.gbm_device_destroy(gbmDev)
		closeFd(fd)
		return nil, errors.Wrap(gfx.ErrFatal, "eglInitialize failed")
	}
	if C.eglBindAPI(C.EGL_OPENGL_ES_API) == 0 {
		return nil, errors.Wrap(gfx.ErrFatal, "eglBindAPI failed")
	}

	cfgAttrs := []C.EGLint{
		C.EGL_SURFACE_TYPE, C.EGL_PBUFFER_BIT,
		C.EGL_RENDERABLE_TYPE, C.EGL_OPENGL_ES2_BIT,
		C.EGL_RED_SIZE, 8, C.EGL_GREEN_SIZE, 8, C.EGL_BLUE_SIZE, 8, C.EGL_ALPHA_SIZE, 8,
		C.EGL_NONE,
	}
	var cfg C.EGLConfig
	var nCfg C.EGLint
	if C.eglChooseConfig(disp, &cfgAttrs[0], &cfg, 1, &nCfg) == 0 || nCfg == 0 {
		return nil, errors.Wrap(gfx.ErrNoDevice, "eglChooseConfig failed")
	}

	ctxAttrs := []C.EGLint{C.EGL_CONTEXT_CLIENT_VERSION, 2, C.EGL_NONE}
	ctx := C.eglCreateContext(disp, cfg, C.EGL_NO_CONTEXT, &ctxAttrs[0])
	if ctx == C.EGL_NO_CONTEXT {
		return nil, errors.Wrap(gfx.ErrFatal, "eglCreateContext failed")
	}
	if C.eglMakeCurrent(disp, C.EGL_NO_SURFACE, C.EGL_NO_SURFACE, ctx) == 0 {
		return nil, errors.Wrap(gfx.ErrFatal, "eglMakeCurrent failed")
	}
	if err := gles2.Init(); err != nil {
		return nil, errors.Wrap(gfx.ErrNotInstalled, err.Error())
	}

	c := &Context{
		gbmFd: fd, gbmDev: gbmDev, eglDisp: disp, eglCtx: ctx,
		node:    renderNode,
		formats: defaultFormats(),
		blend:   blendCache{entries: map[[2]int][]blendBuffer{}},
	}
	return c, nil
}

func defaultFormats() map[uint32]gfx.FormatInfo {
	const drmFormatModLinear = 0
	return map[uint32]gfx.FormatInfo{
		fourccARGB8888: {Modifiers: []uint64{drmFormatModLinear}},
		fourccXRGB8888: {Modifiers: []uint64{drmFormatModLinear}},
		fourccABGR8888: {Modifiers: []uint64{drmFormatModLinear}},
		fourccXBGR8888: {Modifiers: []uint64{drmFormatModLinear}},
	}
}

func (c *Context) Formats() map[uint32]gfx.FormatInfo { return c.formats }
func (c *Context) RenderNode() string                 { return c.node }

// ResetStatus reports the last reset recorded by markReset. GLES2
// without GL_EXT_robustness gives no portable way to query device-loss
// directly. Submit does not inspect GL errors and nothing in this package
// calls markReset, so ResetStatus reports (ResetNone, false).
func (c *Context) ResetStatus() (gfx.ResetStatus, bool) {
	c.resetMu.Lock()
	defer c.resetMu.Unlock()
	return c.reset, c.guilty
}

func (c *Context) markReset(guilty bool) {
	c.resetMu.Lock()
	defer c.resetMu.Unlock()
	c.reset = gfx.ResetUnknown
	c.guilty = guilty
}

func (c *Context) Destroy() {
	C.eglMakeCurrent(c.eglDisp, C.EGL_NO_SURFACE, C.EGL_NO_SURFACE, C.EGL_NO_CONTEXT)
	C.eglDestroyContext(c.eglDisp, c.eglCtx)
	C.eglTerminate(c.eglDisp)
	C.gbm_device_destroy(c.gbmDev)
	closeFd(c.gbmFd)
}

const (
	fourccARGB8888 = 0x34325241
	fourccXRGB8888 = 0x34325258
	fourccABGR8888 = 0x34324241
	fourccXBGR8888 = 0x34324258
)
