// Package evloop implements the event loop (§4.B): edge-triggered
// readiness notification over epoll for long-lived file descriptors
// (listening sockets, the DRM file, the libinput fd, any Wayland client
// transport installed here rather than driven through ring.Poll).
//
// No teacher precedent exists for epoll specifically; grounded on wsi's
// per-platform build-tag-guarded init idiom (a Linux-only facility, same
// as this package).
package evloop

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Handler is invoked on readiness. It must be non-blocking; it may spawn
// async tasks but must not itself await (§4.B).
type Handler func(events uint32)

// ID identifies one registration, returned by Add and consumed by Modify
// and Remove.
type ID int64

// Loop multiplexes readiness over one epoll instance.
type Loop struct {
	epfd int

	mu      sync.Mutex
	nextID  ID
	byID    map[ID]*registration
	byFd    map[int]ID
	pending []unix.EpollEvent
}

type registration struct {
	id      ID
	fd      int
	events  uint32
	handler Handler
}

// New creates an epoll instance.
func New() (*Loop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "evloop: epoll_create1")
	}
	return &Loop{
		epfd: epfd,
		byID: make(map[ID]*registration),
		byFd: make(map[int]ID),
	}, nil
}

// Add registers fd for events (an EPOLLIN/EPOLLOUT/... mask), always with
// EPOLLET (edge-triggered) set, and returns an ID used to Modify or Remove
// it later.
//
// "Shared fds: an fd registered with B is not simultaneously driven by A's
// poll op" (§4.B) — callers are responsible for this invariant; Add does
// not itself check it since the ring has no visibility into the event
// loop's registrations.
func (l *Loop) Add(fd int, events uint32, h Handler) (ID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.byFd[fd]; dup {
		return 0, errors.Errorf("evloop: fd %d already registered", fd)
	}

	l.nextID++
	id := l.nextID
	reg := &registration{id: id, fd: fd, events: events, handler: h}

	ev := unix.EpollEvent{Events: events | unix.EPOLLET, Fd: int32(fd)}
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return 0, errors.Wrap(err, "evloop: epoll_ctl add")
	}
	l.byID[id] = reg
	l.byFd[fd] = id
	return id, nil
}

// Modify updates the interest mask for a registration.
func (l *Loop) Modify(id ID, events uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	reg, ok := l.byID[id]
	if !ok {
		return errors.Errorf("evloop: unknown registration %d", id)
	}
	reg.events = events
	ev := unix.EpollEvent{Events: events | unix.EPOLLET, Fd: int32(reg.fd)}
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_MOD, reg.fd, &ev); err != nil {
		return errors.Wrap(err, "evloop: epoll_ctl mod")
	}
	return nil
}

// Remove withdraws a registration.
func (l *Loop) Remove(id ID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	reg, ok := l.byID[id]
	if !ok {
		return nil
	}
	delete(l.byID, id)
	delete(l.byFd, reg.fd)
	var ev unix.EpollEvent
	return unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, reg.fd, &ev)
}

// Wait blocks (up to timeoutMS milliseconds, or indefinitely if negative)
// for readiness events and dispatches each to its handler. It returns the
// number of fds that became ready.
func (l *Loop) Wait(timeoutMS int) (int, error) {
	if cap(l.pending) == 0 {
		l.pending = make([]unix.EpollEvent, 64)
	}
	n, err := unix.EpollWait(l.epfd, l.pending, timeoutMS)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, errors.Wrap(err, "evloop: epoll_wait")
	}
	for i := 0; i < n; i++ {
		ev := l.pending[i]
		l.mu.Lock()
		id, ok := l.byFd[int(ev.Fd)]
		var reg *registration
		if ok {
			reg = l.byID[id]
		}
		l.mu.Unlock()
		if reg != nil {
			reg.handler(ev.Events)
		}
	}
	return n, nil
}

// Fd returns the epoll instance's own file descriptor, useful when a
// caller wants to drive Wait indirectly through another multiplexer.
func (l *Loop) Fd() int { return l.epfd }

// Close releases the epoll instance.
func (l *Loop) Close() error { return unix.Close(l.epfd) }
