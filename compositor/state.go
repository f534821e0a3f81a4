package compositor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tessera-wm/core/async"
	"github.com/tessera-wm/core/client"
	"github.com/tessera-wm/core/evloop"
	"github.com/tessera-wm/core/gfx"
	"github.com/tessera-wm/core/gfx/gl"
	"github.com/tessera-wm/core/gfx/vk"
	"github.com/tessera-wm/core/present"
	"github.com/tessera-wm/core/ring"
	"github.com/tessera-wm/core/scene"
	"github.com/tessera-wm/core/seat"
)

// State is the single explicit context struct threaded through every
// task this instance runs; nothing here is a package-level singleton
// (§9). Every package above this one is a leaf with no knowledge of
// State — State is where they get introduced to each other.
type State struct {
	Config Config
	Log    zerolog.Logger

	Engine *async.Engine
	Loop   *evloop.Loop
	Ring   *ring.Ring

	GPU   gfx.Context
	Scene scene.Graph

	Seats   map[int]*seat.Seat
	Outputs map[string]*present.Output

	Clients client.Registry
}

// New builds a fully wired State: opens the GPU backend (Vulkan
// preferred, GLES2/GBM/EGL fallback — §4.F), stands up the io_uring
// ring and epoll loop, and constructs the async engine driving them.
// It does not listen on the client socket or open a DRM device; call
// Listen once State exists to bind the socket (kept separate so tests
// can construct a State without touching any real device). State has no
// method that opens a DRM device.
func New(cfg Config) (*State, error) {
	log := NewLogger(cfg.LogLevel)

	r, err := ring.New(ring.Config{Depth: 256})
	if err != nil {
		return nil, err
	}
	loop, err := evloop.New()
	if err != nil {
		r.Close()
		return nil, err
	}

	gpuCtx, err := gfx.Open(
		func() (gfx.Context, error) { return vk.New() },
		func() (gfx.Context, error) { return gl.New(cfg.RenderNode) },
	)
	if err != nil {
		loop.Close()
		r.Close()
		return nil, err
	}

	s := &State{
		Config:  cfg,
		Log:     log,
		Engine:  async.New(log, r, loop),
		Loop:    loop,
		Ring:    r,
		GPU:     gpuCtx,
		Seats:   make(map[int]*seat.Seat),
		Outputs: make(map[string]*present.Output),
	}
	return s, nil
}

// Close tears down every resource State opened, in reverse acquisition
// order.
func (s *State) Close() {
	if s.GPU != nil {
		s.GPU.Destroy()
	}
	if s.Loop != nil {
		s.Loop.Close()
	}
	if s.Ring != nil {
		s.Ring.Close()
	}
}

// AddSeat registers a new seat at the given index (§3 Seat.focusBits bit
// position).
func (s *State) AddSeat(index int) *seat.Seat {
	st := seat.New(index)
	s.Seats[index] = st
	return st
}

// AddOutput registers a new output by name, bound to this instance's GPU
// context for rendering.
func (s *State) AddOutput(name string) *present.Output {
	o := present.NewOutput(name, s.GPU)
	o.SetCursorRefreshCap(s.Config.CursorRefreshHz)
	s.Outputs[name] = o
	return o
}

// Run drives the async engine until ctx is cancelled (§4.C "Run drives
// Tick in a loop").
func (s *State) Run(ctx context.Context) error {
	return s.Engine.Run(ctx)
}

// KeyRepeatDelay returns the configured initial key-repeat delay as a
// time.Duration, for seat.StartRepeat callers.
func (s *State) KeyRepeatDelay() time.Duration {
	return time.Duration(s.Config.KeyRepeatDelayMS) * time.Millisecond
}
