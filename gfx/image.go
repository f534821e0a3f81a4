package gfx

// DMABuf describes a dmabuf-backed image: one fd per plane, plus the
// layout metadata needed to import it (§3 GraphicsImage, §GLOSSARY
// "dmabuf").
type DMABuf struct {
	Fourcc   uint32
	Modifier uint64
	Width    int
	Height   int
	Planes   []Plane
}

// Plane is one dmabuf plane.
type Plane struct {
	FD     int
	Offset uint32
	Stride uint32
}

// Image is the common handle returned by ImportDMABuf: either a Texture
// (sampled-only) or a Framebuffer (also a render target), distinguished
// by a type switch.
type Image interface {
	Width() int
	Height() int
	Fourcc() uint32

	// ExecutionVersion is bumped every time a GPU submission writes this
	// image, letting readers detect they raced a write without an
	// explicit sync point (§3 GraphicsImage "execution_version").
	ExecutionVersion() uint64

	Release()
}

// Texture is a sampled-only image: client buffers (shm or dmabuf) and
// cached decode targets.
type Texture interface {
	Image
	isTexture()
}

// Framebuffer is a render-target image: scanout candidates and offscreen
// composition targets.
type Framebuffer interface {
	Image
	isFramebuffer()
}

// BlendBuffer is a Framebuffer earmarked for the composition pass that
// blends layer-surface and regular-surface content before scanout, kept
// in a per-(width,height) cache across frames (§4.F).
type BlendBuffer interface {
	Framebuffer
	isBlendBuffer()
}

// baseImage is a minimal Image core holding size, format and execution
// version. The gfx/gl and gfx/vk back-ends define their own image types
// and do not embed it.
type baseImage struct {
	w, h    int
	fourcc  uint32
	version uint64
}

func (b *baseImage) Width() int               { return b.w }
func (b *baseImage) Height() int              { return b.h }
func (b *baseImage) Fourcc() uint32           { return b.fourcc }
func (b *baseImage) ExecutionVersion() uint64 { return b.version }
func (b *baseImage) bumpVersion()             { b.version++ }
