// Package clock implements the monotonic clock and timer facility (§4.D):
// one-shot and periodic timers built on a timerfd, surfaced to the async
// engine the same way a ring op is (a Future the engine polls).
package clock

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/tessera-wm/core/ring"
)

// Now returns the current CLOCK_MONOTONIC time.
func Now() time.Duration {
	var ts unix.Timespec
	unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts)
	return time.Duration(ts.Sec)*time.Second + time.Duration(ts.Nsec)
}

// Mode selects one-shot vs periodic re-arming (§4.D).
type Mode int

const (
	OneShot Mode = iota
	Periodic
)

// Timer wraps a timerfd. Expirations are delivered by reading its 8-byte
// expiration counter, the same shape as ring.Ring.EventfdRead, so a Timer
// can be driven either through the event loop (registering Fd) or through
// the ring (submitting EventfdRead against Fd).
type Timer struct {
	fd   int
	mode Mode
}

// New creates a timer for the given deadline (relative to now) and mode.
// In Periodic mode, the handler must call Rearm after each expiration
// (§4.D "Periodic mode re-arms in the expiration handler").
func New(d time.Duration, mode Mode) (*Timer, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		return nil, errors.Wrap(err, "clock: timerfd_create")
	}
	t := &Timer{fd: fd, mode: mode}
	if err := t.arm(d); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return t, nil
}

func (t *Timer) arm(d time.Duration) error {
	spec := unix.ItimerSpec{
		Value: unix.NsecToTimespec(d.Nanoseconds()),
	}
	if t.mode == Periodic {
		spec.Interval = spec.Value
	}
	return unix.TimerfdSettime(t.fd, 0, &spec, nil)
}

// Rearm re-arms a one-shot timer (or adjusts a periodic one) for a new
// relative deadline.
func (t *Timer) Rearm(d time.Duration) error { return t.arm(d) }

// Fd returns the timerfd, for registration with evloop.Loop or
// ring.Ring.EventfdRead.
func (t *Timer) Fd() int { return t.fd }

// Drain reads and discards the expiration counter, returning the number of
// expirations that occurred since the last Drain (1 for a one-shot timer,
// >= 1 for a periodic timer that the caller fell behind on).
func (t *Timer) Drain() (uint64, error) {
	var buf [8]byte
	n, err := unix.Read(t.fd, buf[:])
	if err != nil {
		if err == unix.EAGAIN {
			return 0, nil
		}
		return 0, errors.Wrap(err, "clock: timerfd read")
	}
	if n != 8 {
		return 0, errors.New("clock: short timerfd read")
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v, nil
}

// Close releases the timerfd.
func (t *Timer) Close() error { return unix.Close(t.fd) }

// EventfdRead submits an asynchronous read of this timer's expiration
// counter through r, for callers that prefer to drive timers via the ring
// rather than the event loop.
func (t *Timer) EventfdRead(r *ring.Ring) (ring.Future, error) {
	return r.EventfdRead(t.fd)
}
