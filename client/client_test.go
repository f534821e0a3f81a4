package client

import (
	"errors"
	"testing"

	"github.com/tessera-wm/core/alloc"
)

type recordingObject struct {
	opcodes []uint16
	fail    error
}

func (o *recordingObject) Dispatch(opcode uint16, body []byte) error {
	o.opcodes = append(o.opcodes, opcode)
	return o.fail
}

func encodeMsg(objID uint32, opcode uint16, body []byte) []byte {
	buf := make([]byte, HeaderSize+len(body))
	PutHeader(buf, Header{ObjectID: objID, Opcode: opcode, Length: uint16(len(buf))})
	copy(buf[HeaderSize:], body)
	return buf
}

func TestParseHeaderRoundTrips(t *testing.T) {
	buf := encodeMsg(7, 3, []byte("hi"))
	h, err := ParseHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if h.ObjectID != 7 || h.Opcode != 3 || int(h.Length) != len(buf) {
		t.Fatalf("got %+v", h)
	}
}

func TestDispatchRoutesToRegisteredObject(t *testing.T) {
	c := New(-1, -1, CapCore, Credentials{})
	obj := &recordingObject{}
	c.Register(1, obj)

	if err := c.Dispatch(encodeMsg(1, 5, nil)); err != nil {
		t.Fatal(err)
	}
	if len(obj.opcodes) != 1 || obj.opcodes[0] != 5 {
		t.Fatalf("got %v, want [5]", obj.opcodes)
	}
}

func TestDispatchUnknownObjectIsProtocolError(t *testing.T) {
	c := New(-1, -1, CapCore, Credentials{})
	err := c.Dispatch(encodeMsg(99, 0, nil))
	var pe *ProtocolError
	if err == nil {
		t.Fatal("expected a protocol error")
	}
	if pe2, ok := err.(*ProtocolError); !ok {
		t.Fatalf("got %T, want *ProtocolError", err)
	} else {
		pe = pe2
	}
	if pe.ObjectID != 99 {
		t.Fatalf("got ObjectID %d, want 99", pe.ObjectID)
	}
}

func TestDispatchHandlerErrorBecomesProtocolError(t *testing.T) {
	c := New(-1, -1, CapCore, Credentials{})
	obj := &recordingObject{fail: errUnderlying}
	c.Register(1, obj)

	err := c.Dispatch(encodeMsg(1, 0, nil))
	if _, ok := err.(*ProtocolError); !ok {
		t.Fatalf("got %T, want *ProtocolError", err)
	}
}

var errUnderlying = errors.New("boom")

func TestNewServerObjectIDsAreInServerHalf(t *testing.T) {
	c := New(-1, -1, CapCore, Credentials{})
	id := c.NewServerObjectID()
	if alloc.Kind(id) != alloc.ServerSide {
		t.Fatalf("got id %#x, want a server-side id", id)
	}
	obj := &recordingObject{}
	c.Register(id, obj)
	c.Unregister(id)
	if _, ok := c.Lookup(id); ok {
		t.Fatal("expected object to be gone after Unregister")
	}
}

func TestSerialIsMonotonicPerClient(t *testing.T) {
	c := New(-1, -1, CapCore, Credentials{})
	if c.NextSerial() == c.NextSerial() {
		t.Fatal("expected distinct serials")
	}
}

func TestOutputChainDrainClearsCurrent(t *testing.T) {
	c := New(-1, -1, CapCore, Credentials{})
	c.QueueEvent([]byte("a"))
	c.QueueEvent([]byte("b"))
	got := c.DrainOutgoing()
	if len(got) != 2 {
		t.Fatalf("got %d buffers, want 2", len(got))
	}
	if more := c.DrainOutgoing(); len(more) != 0 {
		t.Fatalf("expected empty drain after first, got %d", len(more))
	}
}

func TestRegistryAddRemove(t *testing.T) {
	var r Registry
	c := New(-1, -1, CapCore, Credentials{})
	id := r.Add(c)
	if got, ok := r.Get(id); !ok || got != c {
		t.Fatal("expected to retrieve the same client")
	}
	r.Remove(id)
	if _, ok := r.Get(id); ok {
		t.Fatal("expected client gone after Remove")
	}
}

func TestCapabilityHas(t *testing.T) {
	caps := CapCore | CapLayerShell
	if !caps.Has(CapLayerShell) {
		t.Fatal("expected CapLayerShell to be set")
	}
	if caps.Has(CapScreencopy) {
		t.Fatal("did not expect CapScreencopy to be set")
	}
}
