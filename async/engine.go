// Package async implements the single-threaded cooperative task scheduler
// (§4.C): phased dispatch queues driven by the submission ring and event
// loop, plus the AsyncEvent/AsyncQueue suspension primitives tasks await
// on.
//
// No teacher precedent exists for task scheduling (gviegas/neo3 has no
// async runtime); grounded on engine/renderer.go's phase-ordered frame
// structuring, generalized from "render in a fixed phase order each frame"
// to "dispatch in a fixed phase order each tick".
package async

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tessera-wm/core/evloop"
	"github.com/tessera-wm/core/ring"
)

// Phase identifies one of the engine's four intra-tick dispatch phases
// (§4.C). Lower phases run to a fixpoint before the next phase starts.
type Phase int

const (
	// Input dispatches libinput, Wayland request decoding, DBus incoming.
	Input Phase = iota
	// Layout applies surface commits, tree updates, focus retargeting.
	Layout
	// PostLayout runs anything that must see the settled layout: client
	// event delivery, frame-callback scheduling, presentation planning.
	PostLayout
	// Present renders and submits the atomic modeset for each damaged
	// output.
	Present
	numPhases
)

// Task is a suspended computation. Run is called by the scheduler each
// time the task is woken; it returns true when the task has completed (and
// should be dropped from all queues).
type Task interface {
	Run() (done bool)
}

// taskFunc adapts a plain function into a Task that always reports done,
// for fire-and-forget handlers spawned from an event-loop callback.
type taskFunc func()

func (f taskFunc) Run() bool { f(); return true }

// handle is returned by Spawn; dropping it (calling Cancel) cancels the
// task per §4.C.
type handle struct {
	cancel func()
}

// Cancel marks the task cancelled. The scheduler drops its future at the
// next opportunity; if the task is currently running, cancellation is
// deferred until it yields.
func (h *handle) Cancel() { h.cancel() }

// Engine is the single-threaded scheduler. All of its state is accessed
// from one goroutine (the one that calls Run); this is not a general
// concurrent scheduler, per §5.
type Engine struct {
	log  zerolog.Logger
	ring *Ring
	loop *evloop.Loop

	queues  [numPhases][]Task
	running map[Task]*taskState

	stopped bool
}

// Ring is the subset of *ring.Ring the engine drives completions from; a
// named alias keeps this package's public surface independent of ring's
// internal mmap plumbing.
type Ring = ring.Ring

type taskState struct {
	cancelled bool
	running   bool
}

// New creates an engine bound to r and l. Either may be nil in tests that
// only exercise phase ordering and the AsyncEvent/AsyncQueue primitives.
func New(log zerolog.Logger, r *Ring, l *evloop.Loop) *Engine {
	return &Engine{
		log:     log,
		ring:    r,
		loop:    l,
		running: make(map[Task]*taskState),
	}
}

// Spawn schedules t to run in the given phase on the engine's next
// opportunity to dispatch that phase. Spawning never runs t inline (§4.C).
func (e *Engine) Spawn(phase Phase, t Task) *handle {
	e.queues[phase] = append(e.queues[phase], t)
	st := &taskState{}
	e.running[t] = st
	return &handle{cancel: func() { st.cancelled = true }}
}

// Go is a convenience wrapper spawning a plain function as a one-shot task.
func (e *Engine) Go(phase Phase, f func()) *handle {
	return e.Spawn(phase, taskFunc(f))
}

// runPhase drains phase p to a fixpoint: tasks may spawn further tasks
// into the same phase while it is running (e.g. layout triggering more
// layout), and those are picked up before the phase is considered
// complete, matching "run phase 1 to fixpoint, then 2" (§4.C).
func (e *Engine) runPhase(p Phase) {
	for len(e.queues[p]) > 0 {
		batch := e.queues[p]
		e.queues[p] = nil
		for _, t := range batch {
			st := e.running[t]
			if st == nil || st.cancelled {
				delete(e.running, t)
				continue
			}
			st.running = true
			done := t.Run()
			st.running = false
			if st.cancelled || done {
				delete(e.running, t)
			} else {
				// Not done: leave it out of the queue so a future wake
				// (via a waker captured inside Run) can resume it.
				// Re-enqueuing here would busy-loop; real tasks re-register
				// themselves through an AsyncEvent/AsyncQueue/ring
				// waker that calls Engine.Wake when progress is
				// possible. See Wake below.
			}
		}
	}
}

// Wake re-enqueues a previously-suspended task into phase p. Suspension
// primitives (AsyncEvent, AsyncQueue, ring futures via a driving task)
// call this from their wake callback.
func (e *Engine) Wake(phase Phase, t Task) {
	if st, ok := e.running[t]; ok && !st.cancelled {
		e.queues[phase] = append(e.queues[phase], t)
	}
}

// Tick runs exactly one iteration of the engine: drain ring completions,
// wake their tasks, run phases 1..4 each to a fixpoint, then poll the
// event loop once with a zero timeout. Tick does not block: it neither
// sleeps on the ring nor waits on epoll for new readiness, so Run calls
// Tick back to back.
func (e *Engine) Tick(ctx context.Context) error {
	if e.ring != nil {
		e.ring.Reap()
	}
	for p := Phase(0); p < numPhases; p++ {
		e.runPhase(p)
	}
	if e.loop != nil {
		if _, err := e.loop.Wait(0); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// Run drives Tick in a loop until ctx is cancelled or Stop is called.
func (e *Engine) Run(ctx context.Context) error {
	for !e.stopped {
		if err := e.Tick(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop requests that Run return after the current tick.
func (e *Engine) Stop() { e.stopped = true }
