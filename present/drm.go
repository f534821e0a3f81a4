package present

// No ecosystem Go binding for libdrm/KMS exists anywhere in the pack
// examined for this repository (the same gap gfx/gl hit for GBM/EGL).
// Following that precedent this file binds directly against the native
// headers via cgo rather than hand-rolling DRM_IOCTL_* structs over
// golang.org/x/sys/unix.Syscall, since the atomic-commit property blob
// format (struct drm_mode_obj_set_property / drm_mode_atomic) is exactly
// the kind of ABI surface libdrm itself exists to keep callers off of.

// #cgo pkg-config: libdrm
// #include <stdlib.h>
// #include <xf86drm.h>
// #include <xf86drmMode.h>
import "C"

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var (
	ErrNoKMS       = errors.New("present: device does not support atomic KMS")
	ErrCommitFailed = errors.New("present: atomic commit rejected")
)

// Device owns one open DRM node. The props* fields are not filled in;
// CommitAtomic looks each property id up by name on every commit.
type Device struct {
	fd   int
	path string

	propsCrtc struct {
		modeID, active, outFencePtr, gammaLUT, vrrEnabled uint32
	}
	propsConn struct {
		crtcID, colorspace, hdrMetadata uint32
	}
	propsPlane struct {
		fbID, crtcX, crtcY, crtcW, crtcH uint32
		srcX, srcY, srcW, srcH           uint32
		inFenceFD, rotation              uint32
	}
}

// Open opens path (e.g. "/dev/dri/card0"), enables the atomic-modesetting
// and universal-planes client caps, and checks that the device reports
// KMS resources (§6 "DRM/KMS property set").
func Open(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrap(err, "present: open drm node")
	}
	d := &Device{fd: fd, path: path}

	if C.drmSetClientCap(C.int(fd), C.DRM_CLIENT_CAP_UNIVERSAL_PLANES, 1) != 0 {
		unix.Close(fd)
		return nil, ErrNoKMS
	}
	if C.drmSetClientCap(C.int(fd), C.DRM_CLIENT_CAP_ATOMIC, 1) != 0 {
		unix.Close(fd)
		return nil, ErrNoKMS
	}

	if err := d.resolveProperties(); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return d, nil
}

// Fd exposes the DRM fd for epoll registration of page-flip events.
func (d *Device) Fd() int { return d.fd }

// Close releases the DRM node.
func (d *Device) Close() error { return unix.Close(d.fd) }

func (d *Device) resolveProperties() error {
	res := C.drmModeGetResources(C.int(d.fd))
	if res == nil {
		return ErrNoKMS
	}
	defer C.drmModeFreeResources(res)
	// No property ids are resolved here and no lookup table is kept:
	// CommitAtomic calls resolveNamed, which walks
	// drmModeObjectGetProperties and matches by name, for every property
	// of every commit.
	return nil
}

func (d *Device) resolveNamed(objID uint32, objType uint32, name string) (uint32, error) {
	props := C.drmModeObjectGetProperties(C.int(d.fd), C.uint32_t(objID), C.uint32_t(objType))
	if props == nil {
		return 0, errors.Errorf("present: no properties for object %d", objID)
	}
	defer C.drmModeFreeObjectProperties(props)

	count := int(props.count_props)
	ids := unsafe.Slice(props.props, count)
	for i := 0; i < count; i++ {
		p := C.drmModeGetProperty(C.int(d.fd), ids[i])
		if p == nil {
			continue
		}
		pname := C.GoString((*C.char)(unsafe.Pointer(&p.name[0])))
		id := uint32(p.prop_id)
		C.drmModeFreeProperty(p)
		if pname == name {
			return id, nil
		}
	}
	return 0, errors.Errorf("present: property %q not found on object %d", name, objID)
}

// request accumulates one atomic transaction before committing it.
type request struct {
	req *C.drmModeAtomicReq
}

func newRequest() *request {
	return &request{req: C.drmModeAtomicAlloc()}
}

func (r *request) free() {
	if r.req != nil {
		C.drmModeAtomicFree(r.req)
	}
}

func (r *request) add(objID, propID uint32, value uint64) error {
	if C.drmModeAtomicAddProperty(r.req, C.uint32_t(objID), C.uint32_t(propID), C.uint64_t(value)) < 0 {
		return errors.New("present: drmModeAtomicAddProperty failed")
	}
	return nil
}

// CommitPlan is the resolved set of object/property/value triples one
// atomic commit applies; built by the caller from a CRTC/connector/plane
// trio plus the pending frame's fb id, gamma LUT blob and VRR flag (§6,
// §4.J "Atomic commit"). It has no cursor-plane fields.
type CommitPlan struct {
	CrtcID, ConnectorID, PlaneID uint32

	FbID                     uint32
	SrcW, SrcH               uint32
	CrtcX, CrtcY, CrtcW, CrtcH uint32

	ModeBlobID uint32
	Active     bool

	GammaBlobID uint32 // 0 omits GAMMA_LUT entirely (identity / unsupported)
	VRREnabled  bool

	OutFenceFD *int32 // not used: CommitAtomic sets no OUT_FENCE_PTR and never writes it
}

// CommitAtomic applies plan as a single atomic transaction, optionally
// with DRM_MODE_ATOMIC_ALLOW_MODESET, failing as one unit if the kernel
// rejects any property (§8 scenario: "an atomic commit with incompatible
// properties fails synchronously without partial application").
func (d *Device) CommitAtomic(plan CommitPlan, allowModeset bool) error {
	r := newRequest()
	defer r.free()

	crtcModeID, err := d.resolveNamed(plan.CrtcID, C.DRM_MODE_OBJECT_CRTC, "MODE_ID")
	if err != nil {
		return err
	}
	crtcActive, err := d.resolveNamed(plan.CrtcID, C.DRM_MODE_OBJECT_CRTC, "ACTIVE")
	if err != nil {
		return err
	}
	if err := r.add(plan.CrtcID, crtcModeID, uint64(plan.ModeBlobID)); err != nil {
		return err
	}
	active := uint64(0)
	if plan.Active {
		active = 1
	}
	if err := r.add(plan.CrtcID, crtcActive, active); err != nil {
		return err
	}

	if plan.GammaBlobID != 0 {
		gammaID, err := d.resolveNamed(plan.CrtcID, C.DRM_MODE_OBJECT_CRTC, "GAMMA_LUT")
		if err == nil {
			if err := r.add(plan.CrtcID, gammaID, uint64(plan.GammaBlobID)); err != nil {
				return err
			}
		}
	}
	if vrrID, err := d.resolveNamed(plan.CrtcID, C.DRM_MODE_OBJECT_CRTC, "VRR_ENABLED"); err == nil {
		v := uint64(0)
		if plan.VRREnabled {
			v = 1
		}
		if err := r.add(plan.CrtcID, vrrID, v); err != nil {
			return err
		}
	}

	connCrtcID, err := d.resolveNamed(plan.ConnectorID, C.DRM_MODE_OBJECT_CONNECTOR, "CRTC_ID")
	if err != nil {
		return err
	}
	if err := r.add(plan.ConnectorID, connCrtcID, uint64(plan.CrtcID)); err != nil {
		return err
	}

	fbID, err := d.resolveNamed(plan.PlaneID, C.DRM_MODE_OBJECT_PLANE, "FB_ID")
	if err != nil {
		return err
	}
	if err := r.add(plan.PlaneID, fbID, uint64(plan.FbID)); err != nil {
		return err
	}
	planeCrtc, _ := d.resolveNamed(plan.PlaneID, C.DRM_MODE_OBJECT_PLANE, "CRTC_ID")
	r.add(plan.PlaneID, planeCrtc, uint64(plan.CrtcID))

	for _, kv := range []struct {
		name string
		val  uint64
	}{
		{"CRTC_X", uint64(int64(int32(plan.CrtcX)))},
		{"CRTC_Y", uint64(int64(int32(plan.CrtcY)))},
		{"CRTC_W", uint64(plan.CrtcW)},
		{"CRTC_H", uint64(plan.CrtcH)},
		{"SRC_X", 0},
		{"SRC_Y", 0},
		{"SRC_W", uint64(plan.SrcW) << 16},
		{"SRC_H", uint64(plan.SrcH) << 16},
	} {
		id, err := d.resolveNamed(plan.PlaneID, C.DRM_MODE_OBJECT_PLANE, kv.name)
		if err != nil {
			return err
		}
		if err := r.add(plan.PlaneID, id, kv.val); err != nil {
			return err
		}
	}

	flags := C.uint32_t(C.DRM_MODE_ATOMIC_NONBLOCK)
	if allowModeset {
		flags |= C.DRM_MODE_ATOMIC_ALLOW_MODESET
	}
	if ret := C.drmModeAtomicCommit(C.int(d.fd), r.req, flags, nil); ret != 0 {
		return ErrCommitFailed
	}
	return nil
}

// WaitVblank blocks the calling goroutine until the kernel delivers a
// page-flip-complete event on the DRM fd, intended to run on a dedicated
// goroutine fed into the engine's io_uring ring as a readable fd (§4.J
// "the vblank handler").
func (d *Device) WaitVblank() error {
	var ev C.drmEventContext
	ev.version = C.DRM_EVENT_CONTEXT_VERSION
	if C.drmHandleEvent(C.int(d.fd), &ev) != 0 {
		return errors.New("present: drmHandleEvent failed")
	}
	return nil
}
