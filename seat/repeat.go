package seat

import (
	"time"

	"github.com/tessera-wm/core/clock"
)

// RepeatTimer fires at rate Hz starting delay after a keypress, and stops
// when the key is released or focus changes (§4.I "Key repeat").
type RepeatTimer struct {
	timer *clock.Timer
	key   uint32
	rate  int
	delay time.Duration
}

// StartRepeat arms a new one-shot clock.Timer for delay; the caller's
// dispatch loop re-arms it at 1/rate once it fires the first time (the
// delay and the steady-state interval differ, so this mirrors the
// one-shot-then-periodic pattern §4.D's Timer already supports via
// Rearm).
func StartRepeat(key uint32, rate int, delay time.Duration) (*RepeatTimer, error) {
	t, err := clock.New(delay, clock.OneShot)
	if err != nil {
		return nil, err
	}
	return &RepeatTimer{timer: t, key: key, rate: rate, delay: delay}, nil
}

// Key returns the physical keycode this timer is repeating.
func (r *RepeatTimer) Key() uint32 { return r.key }

// Fd exposes the underlying timerfd for evloop/ring registration.
func (r *RepeatTimer) Fd() int { return r.timer.Fd() }

// Drain reads the expiration counter; callers re-arm via Continue after
// the first (delay) expiration to switch into steady-state repeat.
func (r *RepeatTimer) Drain() (uint64, error) { return r.timer.Drain() }

// Continue re-arms the timer at the steady-state repeat interval
// (1/rate seconds), called after the initial delay expiration.
func (r *RepeatTimer) Continue() error {
	if r.rate <= 0 {
		return nil
	}
	return r.timer.Rearm(time.Second / time.Duration(r.rate))
}

// Stop releases the timer, called on key release or focus change (§4.I
// "continues until the key is released or focus changes").
func (r *RepeatTimer) Stop() error { return r.timer.Close() }
