package ring

import (
	"io"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// op is one outstanding kernel operation, keyed by a monotonically
// increasing user_data id (§3 SubmittedOp). It is also the Future that
// async.Engine polls: the SQE is submitted when the op is created, and
// each poll checks done and records the waker.
type op struct {
	id     uint64
	opcode uint8
	ring   *Ring

	buf  []byte   // pinned for the op's lifetime (§4.A)
	bufs [][]byte // for sendmsg batches

	waker     func()
	done      bool
	result    int
	errno     error
	oob       []byte // ancillary data (SCM_RIGHTS) for recvmsg
	oobFds    []int
	started   bool
	cancelled bool // Cancel already submitted a paired cancel op
}

// Future is the interface async.Engine polls to drive a ring operation to
// completion. Poll returns (result, error, true) once the operation's
// completion has been reaped; otherwise it arranges for wake to be called
// when that happens and returns (0, nil, false).
type Future interface {
	Poll(wake func()) (n int, err error, ready bool)
	// Cancel submits a paired cancel op for this operation and arranges
	// for any pinned buffers to be released once the cancellation is
	// acknowledged (§4.A drop semantics).
	Cancel()
}

func (o *op) Poll(wake func()) (int, error, bool) {
	if o.done {
		return o.result, o.errno, true
	}
	o.waker = wake
	return 0, nil, false
}

// Cancel drops this future before its completion arrived. Per §4.A
// "dropping the future before completion must submit a cancel for the op
// and then wait for the cancel to be acknowledged before releasing any
// buffers referenced by the op," it submits a paired
// IORING_OP_ASYNC_CANCEL and defers releasing o.buf/o.bufs/o.oob (which
// the kernel may still be writing into) until that cancel's own
// completion is reaped.
func (o *op) Cancel() {
	if o.done || o.cancelled {
		// Already completed normally, or already being cancelled: the
		// kernel either no longer holds the buffers or a release is
		// already pending from an earlier Cancel call.
		return
	}
	o.cancelled = true

	f, err := o.ring.Cancel(o.id)
	if err != nil {
		// The cancel itself couldn't be submitted (ring closed, queue
		// full): nothing will ever reap it, so release now rather than
		// leak the buffers forever.
		o.release()
		return
	}
	if _, _, ready := f.Poll(o.release); ready {
		o.release()
	}
}

// release unpins the buffers this op referenced, once the kernel is known
// to be done with them.
func (o *op) release() {
	o.buf = nil
	o.bufs = nil
	o.oob = nil
}

// newID allocates a fresh, never-reused user_data value.
func (r *Ring) newID() uint64 {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.mu.Unlock()
	return id
}

// submit pushes one SQE onto the submission queue and registers the
// corresponding op as a waiter, then calls io_uring_enter to notify the
// kernel a new entry is available for consumption. It does not block for a
// completion; that happens in reap, driven by the event loop or by the
// async engine's own tick (§5 "Between commits ... strictly sequential";
// ring ops have no such ordering requirement against each other).
func (r *Ring) submit(o *op, sqe unix.IoUringSqe) (Future, error) {
	o.ring = r

	r.sqMu.Lock()
	defer r.sqMu.Unlock()

	mask := *r.sq.mask
	tail := *r.sq.tail
	idx := tail & mask

	sqe.User_data = o.id
	r.sqEs[idx] = sqe

	arrPtr := unsafe.Pointer(uintptr(unsafe.Pointer(r.sq.array)) + uintptr(idx)*4)
	*(*uint32)(arrPtr) = idx

	*r.sq.tail = tail + 1

	r.mu.Lock()
	r.waiters[o.id] = o
	r.mu.Unlock()

	_, err := unix.IoUringEnter(r.fd, 1, 0, 0, nil)
	if err != nil {
		return nil, errors.Wrap(err, "ring: io_uring_enter")
	}
	return o, nil
}

// Reap drains completions from the completion queue, resolving the
// matching waiter for each and invoking its waker. async.Engine.Tick
// calls it once at the start of every tick, without waiting for
// completions first (§4.C).
//
// "Fairness: completions are drained in batches; the engine polls wakers
// in CQE order" (§4.A) — this loop does exactly that, calling each waker
// as its completion is found rather than batching them into a slice
// first, since no waker may itself block on another Future synchronously.
func (r *Ring) Reap() int {
	n := 0
	mask := *r.cq.mask
	for {
		head := *r.cq.head
		tail := *r.cq.tail
		if head == tail {
			break
		}
		idx := head & mask
		cqe := (*unix.IoUringCqe)(unsafe.Pointer(
			uintptr(r.cq.cqes) + uintptr(idx)*sizeofCqe))

		r.mu.Lock()
		o, ok := r.waiters[cqe.User_data]
		if ok {
			delete(r.waiters, cqe.User_data)
		}
		r.mu.Unlock()

		*r.cq.head = head + 1
		n++

		if !ok {
			// Completion for a cancelled op whose waiter was already
			// dropped; nothing to wake, nothing to release but the
			// pinned buffer, which the canceller already holds.
			continue
		}
		o.done = true
		if cqe.Res < 0 {
			o.errno = errors.Wrap(unix.Errno(-cqe.Res), "ring: op failed")
		} else {
			o.result = int(cqe.Res)
		}
		if o.waker != nil {
			o.waker()
		}
	}
	return n
}

// Read submits an asynchronous read of len(buf) bytes from fd.
func (r *Ring) Read(fd int, buf []byte) (Future, error) {
	o := &op{id: r.newID(), opcode: opRead, buf: buf}
	var sqe unix.IoUringSqe
	sqe.Opcode = opRead
	sqe.Fd = int32(fd)
	sqe.Addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	sqe.Len = uint32(len(buf))
	return r.submit(o, sqe)
}

// Write submits an asynchronous write of buf to fd.
func (r *Ring) Write(fd int, buf []byte) (Future, error) {
	o := &op{id: r.newID(), opcode: opWrite, buf: buf}
	var sqe unix.IoUringSqe
	sqe.Opcode = opWrite
	sqe.Fd = int32(fd)
	sqe.Addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	sqe.Len = uint32(len(buf))
	return r.submit(o, sqe)
}

// Accept submits an asynchronous accept on a listening fd.
func (r *Ring) Accept(listenFd int, flags int) (Future, error) {
	o := &op{id: r.newID(), opcode: opAccept}
	var sqe unix.IoUringSqe
	sqe.Opcode = opAccept
	sqe.Fd = int32(listenFd)
	sqe.Accept_flags = uint32(flags)
	return r.submit(o, sqe)
}

// Poll submits an asynchronous poll for the given event mask, for fds not
// adopted by the event loop (§4.A).
func (r *Ring) Poll(fd int, events uint32) (Future, error) {
	o := &op{id: r.newID(), opcode: opPollAdd}
	var sqe unix.IoUringSqe
	sqe.Opcode = opPollAdd
	sqe.Fd = int32(fd)
	sqe.SetPollEvents(uint16(events))
	return r.submit(o, sqe)
}

// Timeout submits a relative timeout of ns nanoseconds.
func (r *Ring) Timeout(ns int64) (Future, error) {
	ts := unix.Timespec{Sec: ns / 1e9, Nsec: ns % 1e9}
	buf := (*[unsafe.Sizeof(ts)]byte)(unsafe.Pointer(&ts))[:]
	o := &op{id: r.newID(), opcode: opTimeout, buf: buf}
	var sqe unix.IoUringSqe
	sqe.Opcode = opTimeout
	sqe.Addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	sqe.Len = 1
	return r.submit(o, sqe)
}

// Cancel submits a cancel targeting a previously submitted operation's
// user_data id, per §3 "Cancellation submits a paired cancel op carrying
// the original id."
func (r *Ring) Cancel(targetID uint64) (Future, error) {
	o := &op{id: r.newID(), opcode: opAsyncCancel}
	var sqe unix.IoUringSqe
	sqe.Opcode = opAsyncCancel
	sqe.Addr = targetID
	return r.submit(o, sqe)
}

// EventfdRead submits an asynchronous 8-byte read of an eventfd's counter.
func (r *Ring) EventfdRead(fd int) (Future, error) {
	buf := make([]byte, 8)
	f, err := r.Read(fd, buf)
	return f, err
}

// Recvmsg submits an asynchronous recvmsg with room for ancillary data,
// returning the bytes read plus any file descriptors received via
// SCM_RIGHTS (§4.A).
func (r *Ring) Recvmsg(fd int, buf []byte, oobLen int) (Future, error) {
	o := &op{id: r.newID(), opcode: opRecvmsg, buf: buf, oob: make([]byte, oobLen)}
	msg := &unix.Msghdr{}
	iov := unix.Iovec{Base: &buf[0]}
	iov.SetLen(len(buf))
	msg.Iov = &iov
	msg.Iovlen = 1
	if oobLen > 0 {
		msg.Control = &o.oob[0]
		msg.SetControllen(oobLen)
	}
	var sqe unix.IoUringSqe
	sqe.Opcode = opRecvmsg
	sqe.Fd = int32(fd)
	sqe.Addr = uint64(uintptr(unsafe.Pointer(msg)))
	return r.submit(o, sqe)
}

// Sendmsg submits an asynchronous sendmsg carrying bufs (possibly several
// chunks, for a zero-copy batch write that spans a boundary) and, on the
// first chunk only, fds transferred via SCM_RIGHTS. MSG_NOSIGNAL is always
// set (§4.A).
func (r *Ring) Sendmsg(fd int, bufs [][]byte, fds []int) (Future, error) {
	if len(bufs) == 0 {
		return nil, errors.New("ring: Sendmsg: no buffers")
	}
	o := &op{id: r.newID(), opcode: opSendmsg, bufs: bufs}
	iovs := make([]unix.Iovec, len(bufs))
	for i, b := range bufs {
		if len(b) == 0 {
			continue
		}
		iovs[i].Base = &b[0]
		iovs[i].SetLen(len(b))
	}
	msg := &unix.Msghdr{Iov: &iovs[0], Iovlen: uint64(len(iovs))}
	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
		msg.Control = &oob[0]
		msg.SetControllen(len(oob))
	}
	var sqe unix.IoUringSqe
	sqe.Opcode = opSendmsg
	sqe.Fd = int32(fd)
	sqe.Addr = uint64(uintptr(unsafe.Pointer(msg)))
	sqe.SetMsgFlags(unix.MSG_NOSIGNAL)
	return r.submit(o, sqe)
}

var _ io.Closer = (*Ring)(nil)

const (
	opRead        = unix.IORING_OP_READ
	opWrite       = unix.IORING_OP_WRITE
	opAccept      = unix.IORING_OP_ACCEPT
	opPollAdd     = unix.IORING_OP_POLL_ADD
	opTimeout     = unix.IORING_OP_TIMEOUT
	opAsyncCancel = unix.IORING_OP_ASYNC_CANCEL
	opRecvmsg     = unix.IORING_OP_RECVMSG
	opSendmsg     = unix.IORING_OP_SENDMSG
)
