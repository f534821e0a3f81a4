// Package gfx abstracts a GPU device behind the back-end-agnostic
// interface §4.F names: image import from dmabuf, framebuffer/texture/
// blend-buffer creation, sampler descriptors, timeline-based command
// submission, and format/modifier enumeration. Two interchangeable
// back-ends (gfx/gl, a GBM+EGL-driven OpenGL-ES2-shaped API, and gfx/vk, a
// Vulkan-shaped API) implement Context.
//
// Adapted from driver/core.go (the GPU interface) and driver/driver.go
// (the back-end registry); driver/vk becomes gfx/vk, generalized from a
// general-purpose rendering driver into the compositor's narrower pass
// vocabulary (§4.F "A pass is a straight-line script of ops").
package gfx

import (
	"github.com/pkg/errors"
)

// Context is the interface the rest of the core consumes, independent of
// which back-end implements it (§4.F).
type Context interface {
	// Formats returns the device's advertised fourcc -> {modifiers,
	// is-external} table. Immutable for the Context's life.
	Formats() map[uint32]FormatInfo

	// ImportDMABuf imports a client or backend-allocated dmabuf as a
	// Texture (sampled input) or, when usage allows render-target use, a
	// Framebuffer.
	ImportDMABuf(buf DMABuf, usage Usage) (Image, error)

	// CreateSHMTexture copies bytes into a newly allocated Texture. bytes
	// may be dropped by the caller immediately after this call returns
	// (§4.F "copy on upload").
	CreateSHMTexture(bytes []byte, fourcc uint32, w, h, stride int) (Texture, error)

	// CreateFramebuffer creates a renderable Framebuffer and exports it as
	// a DMABuf so it can be handed to DRM/KMS as a scanout candidate.
	CreateFramebuffer(w, h int, fourcc uint32, modifiers []uint64) (Framebuffer, DMABuf, error)

	// AcquireBlendBuffer returns a BlendBuffer sized w x h, reused across
	// frames via a weak cache keyed on (w, h) (§4.F).
	AcquireBlendBuffer(w, h int) (BlendBuffer, error)

	// Submit submits pass for execution, ordered after waitPoints and
	// signalling signalPoints on GPU completion.
	Submit(pass *Pass, waitPoints, signalPoints []SyncPoint) (SubmissionToken, error)

	// ResetStatus reports whether the device has reset since the last
	// call, and whether this Context's workload was at fault (§4.F, §8
	// scenario 6).
	ResetStatus() (ResetStatus, bool)

	// RenderNode returns the DRM render node device path clients should
	// allocate dmabufs against.
	RenderNode() string

	// Destroy releases the context and everything it allocated. Callers
	// must not use the Context afterwards.
	Destroy()
}

// FormatInfo describes one advertised pixel format.
type FormatInfo struct {
	Modifiers  []uint64
	IsExternal bool
}

// Usage is a bitmask of how an Image will be used.
type Usage uint32

const (
	UsageSampled Usage = 1 << iota
	UsageRenderTarget
	UsageScanout
)

// ResetStatus reports GPU-hang recovery classification (§4.F
// "reset_status").
type ResetStatus int

const (
	ResetNone ResetStatus = iota
	ResetGuilty
	ResetInnocent
	ResetUnknown
)

// SyncPoint identifies a timeline syncobj point: (object, monotonically
// increasing 64-bit value). Readers wait on points; writers signal them
// (§GLOSSARY "Explicit sync").
type SyncPoint struct {
	Object uint32
	Value  uint64
}

// SubmissionToken identifies one Submit call, used to order later queries
// of execution_version (§3 GraphicsImage).
type SubmissionToken uint64

// Common back-end errors, mirrored from driver.go's Err* sentinels.
var (
	ErrUnsupportedFormat = errors.New("gfx: unsupported format")
	ErrImport            = errors.New("gfx: import failed")
	ErrOutOfMemory       = errors.New("gfx: out of memory")
	ErrNotInstalled      = errors.New("gfx: missing required library")
	ErrNoDevice          = errors.New("gfx: no suitable device found")
	ErrFatal             = errors.New("gfx: fatal device error")
)
