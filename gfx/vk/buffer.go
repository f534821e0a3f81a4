package vk

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	vk "github.com/vulkan-go/vulkan"

	"github.com/tessera-wm/core/gfx"
)

// createImage allocates a 2D image and binds it to freshly allocated
// device memory, optionally exportable as a dmabuf. Mirrors driver/vk's
// NewImage but narrowed to the 2D color-image case this compositor ever
// needs.
func (c *Context) createImage(w, h int, format vk.Format, fourcc uint32, usage gfx.Usage, exportable bool) (*image, error) {
	var usageFlags vk.ImageUsageFlagBits
	if usage&gfx.UsageSampled != 0 {
		usageFlags |= vk.ImageUsageSampledBit
	}
	if usage&(gfx.UsageRenderTarget|gfx.UsageScanout) != 0 {
		usageFlags |= vk.ImageUsageColorAttachmentBit
	}
	usageFlags |= vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit

	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent:    vk.Extent3D{Width: uint32(w), Height: uint32(h), Depth: 1},
		MipLevels: 1,
		ArrayLayers: 1,
		Samples:   vk.SampleCount1Bit,
		Tiling:    vk.ImageTilingOptimal,
		Usage:     vk.ImageUsageFlags(usageFlags),
		Sharing:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var img vk.Image
	if r := vk.CreateImage(c.dev, &info, nil, &img); r != vk.Success {
		return nil, checkResult(r)
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(c.dev, img, &req)
	req.Deref()

	typeIdx, err := c.findMemoryType(req.MemoryTypeBits, vk.MemoryPropertyFlagBits(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyImage(c.dev, img, nil)
		return nil, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIdx,
	}
	var mem vk.DeviceMemory
	if r := vk.AllocateMemory(c.dev, &allocInfo, nil, &mem); r != vk.Success {
		vk.DestroyImage(c.dev, img, nil)
		return nil, checkResult(r)
	}
	if r := vk.BindImageMemory(c.dev, img, mem, 0); r != vk.Success {
		vk.FreeMemory(c.dev, mem, nil)
		vk.DestroyImage(c.dev, img, nil)
		return nil, checkResult(r)
	}

	_ = exportable // export path handled lazily in exportMemoryFd

	return &image{
		ctx: c, img: img, mem: mem, format: format,
		w: w, h: h, fourcc: fourcc,
	}, nil
}

func (c *Context) findMemoryType(typeBits uint32, props vk.MemoryPropertyFlagBits) (uint32, error) {
	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(c.pdev, &memProps)
	memProps.Deref()
	for i := uint32(0); i < memProps.MemoryTypeCount; i++ {
		memProps.MemoryTypes[i].Deref()
		if typeBits&(1<<i) == 0 {
			continue
		}
		if memProps.MemoryTypes[i].PropertyFlags&vk.MemoryPropertyFlags(props) == vk.MemoryPropertyFlags(props) {
			return i, nil
		}
	}
	return 0, errors.New("vk: no suitable memory type")
}

// uploadViaStaging maps a host-visible staging allocation, copies bytes in,
// and issues a one-shot command buffer to transfer it into im's device-local
// memory. The staging allocation is freed once the transfer completes,
// the same lifecycle engine/staging.go gave its pooled staging buffers
// before that package was retired in favor of this narrower gfx surface.
func (c *Context) uploadViaStaging(im *image, bytes []byte, stride int) error {
	bufInfo := vk.BufferCreateInfo{
		SType: vk.StructureTypeBufferCreateInfo,
		Size:  vk.DeviceSize(len(bytes)),
		Usage: vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
	}
	var staging vk.Buffer
	if r := vk.CreateBuffer(c.dev, &bufInfo, nil, &staging); r != vk.Success {
		return checkResult(r)
	}
	defer vk.DestroyBuffer(c.dev, staging, nil)

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(c.dev, staging, &req)
	req.Deref()
	typeIdx, err := c.findMemoryType(req.MemoryTypeBits,
		vk.MemoryPropertyFlagBits(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return err
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIdx,
	}
	var mem vk.DeviceMemory
	if r := vk.AllocateMemory(c.dev, &allocInfo, nil, &mem); r != vk.Success {
		return checkResult(r)
	}
	defer vk.FreeMemory(c.dev, mem, nil)
	if r := vk.BindBufferMemory(c.dev, staging, mem, 0); r != vk.Success {
		return checkResult(r)
	}

	var data unsafe.Pointer
	if r := vk.MapMemory(c.dev, mem, 0, vk.DeviceSize(len(bytes)), 0, &data); r != vk.Success {
		return checkResult(r)
	}
	vk.Memcopy(data, bytes)
	vk.UnmapMemory(c.dev, mem)

	return c.copyBufferToImage(staging, im, stride)
}

// exportMemoryFd exports im's device memory as a dmabuf fd, used when a
// render target created through CreateFramebuffer must be handed to
// present for scanout.
func (c *Context) exportMemoryFd(im *image) (fd int, stride int, err error) {
	var info vk.MemoryGetFdInfoKHR
	info.SType = vk.StructureTypeMemoryGetFdInfoKhr
	info.Memory = im.mem
	info.HandleType = vk.ExternalMemoryHandleTypeDmaBufBitEXT
	var rawFd int32
	if r := vk.GetMemoryFdKHR(c.dev, &info, &rawFd); r != vk.Success {
		return -1, 0, checkResult(r)
	}
	return int(rawFd), im.w * 4, nil
}

func closeFd(fd int) {
	if fd >= 0 {
		unix.Close(fd)
	}
}
