// Package client implements one Wayland client's transport, object
// table and dispatch (§4.K): a seqpacket socket pair, an 8-byte wire
// header parser, a protocol-id-keyed object table, a capability
// bitmask, and a per-client serial counter. Framing uses only
// encoding/binary — full wire-message encoding is out of scope (§1
// Non-goals), but the header shape itself is in scope and small enough
// that no protocol library belongs here.
package client

import (
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tessera-wm/core/alloc"
)

// Capability is a bitmask of protocol globals a client may bind, gating
// what the registry advertises at connect time (§3 Client "capabilities
// bitmask").
type Capability uint32

const (
	CapCore Capability = 1 << iota
	CapLayerShell
	CapXDGDecoration
	CapScreencopy
	CapVirtualInput
	CapTabletTool
)

// Has reports whether caps includes c.
func (caps Capability) Has(c Capability) bool { return caps&c != 0 }

// SandboxInfo captures the metadata an accept-time credential lookup
// establishes, used by the matcher engine's sandbox-tuple leaves (§3
// Client "sandbox metadata (engine/app-id/instance-id, if any)").
type SandboxInfo struct {
	Engine     string
	AppID      string
	InstanceID uuid.UUID
}

// NewSandboxInfo stamps a fresh InstanceID for a newly accepted client
// carrying engine/app-id metadata (e.g. read from /proc/<pid>/cgroup or
// a bundled manifest by the caller).
func NewSandboxInfo(engine, appID string) SandboxInfo {
	return SandboxInfo{Engine: engine, AppID: appID, InstanceID: uuid.New()}
}

// Credentials is the pid/uid/exe/comm snapshot captured via SO_PEERCRED
// at accept time (§3 Client).
type Credentials struct {
	PID  int32
	UID  uint32
	Exe  string
	Comm string
}

// Object is anything reachable by a protocol id in a Client's object
// table: a surface, a seat, an output, a layer surface, etc. Dispatch
// does not know or care what concrete type implements it.
type Object interface {
	// Dispatch handles one incoming message addressed to this object.
	// body excludes the 8-byte header. A non-nil error terminates the
	// client with a protocol error (§4.K "Dispatch").
	Dispatch(opcode uint16, body []byte) error
}

// Header is the 8-byte wire header every message carries: a 32-bit
// object id, a 16-bit opcode and a 16-bit total message length
// (including this header), matching the layout §6 names.
type Header struct {
	ObjectID uint32
	Opcode   uint16
	Length   uint16
}

const HeaderSize = 8

// ParseHeader decodes the first HeaderSize bytes of buf.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, errors.New("client: short header")
	}
	return Header{
		ObjectID: binary.LittleEndian.Uint32(buf[0:4]),
		Opcode:   binary.LittleEndian.Uint16(buf[4:6]),
		Length:   binary.LittleEndian.Uint16(buf[6:8]),
	}, nil
}

// PutHeader encodes h into the first HeaderSize bytes of buf.
func PutHeader(buf []byte, h Header) {
	binary.LittleEndian.PutUint32(buf[0:4], h.ObjectID)
	binary.LittleEndian.PutUint16(buf[4:6], h.Opcode)
	binary.LittleEndian.PutUint16(buf[6:8], h.Length)
}

// ProtocolError is returned by Dispatch handlers and by the dispatcher
// itself (unknown object id) to signal the connection must be torn down
// (§4.K "a typed error that is converted into a protocol error
// terminating the client").
type ProtocolError struct {
	ObjectID uint32
	Code     uint32
	Message  string
}

func (e *ProtocolError) Error() string {
	return errors.Errorf("client: protocol error on object %d (code %d): %s",
		e.ObjectID, e.Code, e.Message).Error()
}

// ErrUnknownObject is wrapped into a ProtocolError when Dispatch is asked
// to route to an id with no registered Object.
var ErrUnknownObject = errors.New("client: unknown object id")

// Client holds one connected peer's transport-independent state: its
// object table, capability set, serial counter, credentials and sandbox
// metadata, and the outgoing buffer swap-chain (§4.K).
type Client struct {
	Fd       int
	WakeupFd int // eventfd the write-ready task signals (§4.K)

	Caps  Capability
	Creds Credentials
	Sandbox SandboxInfo

	XWayland bool

	ids     alloc.Protocol
	objects map[uint32]Object

	serial uint32

	out *OutputChain

	in inbuf
}

// New constructs a Client bound to an already-accepted seqpacket fd.
func New(fd, wakeupFd int, caps Capability, creds Credentials) *Client {
	return &Client{
		Fd:       fd,
		WakeupFd: wakeupFd,
		Caps:     caps,
		Creds:    creds,
		objects:  make(map[uint32]Object),
		out:      newOutputChain(),
	}
}

// NextSerial returns the next per-client serial, used to correlate
// request/event pairs that need an opaque monotonic tag (enter/leave,
// button press, configure, ...).
func (c *Client) NextSerial() uint32 {
	c.serial++
	return c.serial
}

// Register installs obj under id, replacing any previous occupant.
func (c *Client) Register(id uint32, obj Object) { c.objects[id] = obj }

// Unregister removes id from the object table and, if it is a
// server-allocated id, frees it back to the Protocol allocator.
func (c *Client) Unregister(id uint32) {
	delete(c.objects, id)
	if alloc.Kind(id) == alloc.ServerSide {
		c.ids.FreeServerID(id)
	}
}

// NewServerObjectID allocates a fresh server-side protocol id.
func (c *Client) NewServerObjectID() uint32 { return c.ids.NewServerID() }

// Lookup returns the object registered under id.
func (c *Client) Lookup(id uint32) (Object, bool) {
	o, ok := c.objects[id]
	return o, ok
}

// Dispatch feeds one newly-received message to its target object,
// converting an unknown id or a handler error into a *ProtocolError
// (§4.K "Dispatch").
func (c *Client) Dispatch(buf []byte) error {
	h, err := ParseHeader(buf)
	if err != nil {
		return err
	}
	if int(h.Length) > len(buf) {
		return &ProtocolError{ObjectID: h.ObjectID, Code: 1, Message: "length exceeds buffer"}
	}
	obj, ok := c.Lookup(h.ObjectID)
	if !ok {
		return &ProtocolError{ObjectID: h.ObjectID, Code: 0, Message: ErrUnknownObject.Error()}
	}
	body := buf[HeaderSize:h.Length]
	if err := obj.Dispatch(h.Opcode, body); err != nil {
		if pe, ok := err.(*ProtocolError); ok {
			return pe
		}
		return &ProtocolError{ObjectID: h.ObjectID, Code: 2, Message: err.Error()}
	}
	return nil
}

// QueueEvent appends a pre-encoded event message to the client's current
// output buffer, to be flushed by the write-ready task (§4.K "Sent
// events are appended to a swap-chain of output buffers").
func (c *Client) QueueEvent(msg []byte) { c.out.Append(msg) }

// DrainOutgoing returns the buffers ready to be written and rotates to a
// fresh one, mirroring a swap-chain present.
func (c *Client) DrainOutgoing() [][]byte { return c.out.Drain() }

// inbuf holds the most recently received datagram between Feed and
// Dispatch. recvmsg on a SOCK_SEQPACKET transport always returns whole
// datagrams (never partial messages split across reads per the POSIX
// seqpacket contract), so it does not accumulate partial reads.
type inbuf struct {
	buf []byte
}

// Feed stores the most recently received datagram for dispatch.
func (b *inbuf) Feed(buf []byte) { b.buf = buf }
