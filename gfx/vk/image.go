package vk

import (
	"sync"

	vk "github.com/vulkan-go/vulkan"

	"github.com/tessera-wm/core/gfx"
)

// image is the shared handle behind texture, framebuffer and blendBuffer;
// which of those a caller gets back is determined by the usage flags
// passed at creation, mirroring driver/vk/image.go's single driver.Image
// implementation serving every usage combination.
type image struct {
	mu sync.Mutex

	ctx    *Context
	img    vk.Image
	mem    vk.DeviceMemory
	view   vk.ImageView
	format vk.Format
	w, h   int
	fourcc uint32

	version uint64
	dmaFds  []int
}

func (im *image) Width() int               { return im.w }
func (im *image) Height() int              { return im.h }
func (im *image) Fourcc() uint32           { return im.fourcc }
func (im *image) ExecutionVersion() uint64 { im.mu.Lock(); defer im.mu.Unlock(); return im.version }

func (im *image) Release() {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.view != nil {
		vk.DestroyImageView(im.ctx.dev, im.view, nil)
	}
	if im.img != nil {
		vk.DestroyImage(im.ctx.dev, im.img, nil)
	}
	if im.mem != nil {
		vk.FreeMemory(im.ctx.dev, im.mem, nil)
	}
	for _, fd := range im.dmaFds {
		closeFd(fd)
	}
}

type texture struct{ *image }

func (texture) isTexture() {}

type framebuffer struct{ *image }

func (framebuffer) isFramebuffer() {}

type blendBuffer struct{ framebuffer }

func (blendBuffer) isBlendBuffer() {}

// ImportDMABuf creates an optimal-tiling image of the dmabuf's size and
// format in freshly allocated device-local memory and records the plane
// fds (closed on Release). The dmabuf's own memory is not bound to the
// image, so the returned image does not hold the dmabuf's contents.
func (c *Context) ImportDMABuf(buf gfx.DMABuf, usage gfx.Usage) (gfx.Image, error) {
	format, ok := convFourcc(buf.Fourcc)
	if !ok {
		return nil, gfx.ErrUnsupportedFormat
	}
	im, err := c.createImage(buf.Width, buf.Height, format, buf.Fourcc, usage, true)
	if err != nil {
		return nil, gfx.ErrImport
	}
	fds := make([]int, len(buf.Planes))
	for i, p := range buf.Planes {
		fds[i] = p.FD
	}
	im.dmaFds = fds
	if usage&gfx.UsageRenderTarget != 0 {
		return framebuffer{im}, nil
	}
	return texture{im}, nil
}

// CreateSHMTexture copies bytes into a freshly allocated, host-visible
// staging buffer and issues a one-shot transfer into device-local memory,
// the copy-on-upload idiom adapted from engine/staging.go's staging-buffer
// pool (engine package, since deleted). The staging buffer is not pooled:
// uploadViaStaging in buffer.go creates and frees one per call.
func (c *Context) CreateSHMTexture(bytes []byte, fourcc uint32, w, h, stride int) (gfx.Texture, error) {
	format, ok := convFourcc(fourcc)
	if !ok {
		return nil, gfx.ErrUnsupportedFormat
	}
	im, err := c.createImage(w, h, format, fourcc, gfx.UsageSampled, false)
	if err != nil {
		return nil, err
	}
	if err := c.uploadViaStaging(im, bytes, stride); err != nil {
		im.Release()
		return nil, err
	}
	im.version++
	return texture{im}, nil
}

// CreateFramebuffer creates a device-local render target and exports it
// as a dmabuf so present can hand it to DRM/KMS as a scanout candidate.
func (c *Context) CreateFramebuffer(w, h int, fourcc uint32, modifiers []uint64) (gfx.Framebuffer, gfx.DMABuf, error) {
	format, ok := convFourcc(fourcc)
	if !ok {
		return nil, gfx.DMABuf{}, gfx.ErrUnsupportedFormat
	}
	im, err := c.createImage(w, h, format, fourcc, gfx.UsageRenderTarget|gfx.UsageScanout, true)
	if err != nil {
		return nil, gfx.DMABuf{}, err
	}
	fd, stride, err := c.exportMemoryFd(im)
	if err != nil {
		im.Release()
		return nil, gfx.DMABuf{}, err
	}
	im.dmaFds = []int{fd}
	dbuf := gfx.DMABuf{
		Fourcc: fourcc,
		Width:  w,
		Height: h,
		Planes: []gfx.Plane{{FD: fd, Stride: uint32(stride)}},
	}
	return framebuffer{im}, dbuf, nil
}

// blendCache is keyed on (w, h); AcquireBlendBuffer reuses an idle entry
// instead of allocating a new render target every frame (§4.F).
type blendCache struct {
	mu      sync.Mutex
	entries map[[2]int][]blendBuffer
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

// releaseBlendBuffer returns bb to the cache instead of freeing it. It is
// unexported and nothing calls it, so AcquireBlendBuffer currently always
// allocates a new buffer.
func (c *Context) releaseBlendBuffer(bb blendBuffer) {
	key := [2]int{bb.Width(), bb.Height()}
	c.blend.mu.Lock()
	defer c.blend.mu.Unlock()
	c.blend.entries[key] = append(c.blend.entries[key], bb)
}

func convFourcc(fourcc uint32) (vk.Format, bool) {
	switch fourcc {
	case fourccARGB8888, fourccXRGB8888:
		return vk.FormatB8g8r8a8Unorm, true
	case fourccABGR8888, fourccXBGR8888:
		return vk.FormatR8g8b8a8Unorm, true
	default:
		return vk.FormatUndefined, false
	}
}
