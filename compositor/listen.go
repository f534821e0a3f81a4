package compositor

import (
	"github.com/tessera-wm/core/async"
	"github.com/tessera-wm/core/client"
	"github.com/tessera-wm/core/ring"
)

// acceptTask owns the listening socket fd (listen), set by Listen and
// reused every time the task re-arms its Accept.
type acceptTask struct {
	s      *State
	listen int
	future ring.Future
}

// Listen binds the client socket and spawns the first accept task, which
// re-arms itself after every accepted connection so exactly one Accept
// SQE is ever outstanding (§4.C "a task re-registers itself through a
// ring future's waker rather than busy-polling").
func (s *State) Listen() error {
	fd, err := client.ListenSeqpacket(s.Config.SocketPath)
	if err != nil {
		return err
	}
	t := &acceptTask{s: s, listen: fd}
	s.Engine.Spawn(async.Input, t)
	return nil
}

// Run is the Task entry point: submit Accept on first invocation, then
// poll the future on each subsequent wake until a connection (or error)
// arrives, handle it, and re-arm.
func (t *acceptTask) Run() bool {
	if t.future == nil {
		f, err := t.s.Ring.Accept(t.listen, 0)
		if err != nil {
			t.s.Log.Error().Err(err).Msg("client: accept submit failed")
			return true
		}
		t.future = f
	}

	connFd, err, ready := t.future.Poll(func() { t.s.Engine.Wake(async.Input, t) })
	if !ready {
		return false
	}
	t.future = nil
	if err != nil {
		t.s.Log.Error().Err(err).Msg("client: accept failed")
	} else {
		t.s.acceptClient(connFd)
	}

	next, err := t.s.Ring.Accept(t.listen, 0)
	if err != nil {
		t.s.Log.Error().Err(err).Msg("client: re-arm accept failed")
		return true
	}
	t.future = next
	// Poll the new future once so it records this task's waker.
	return t.Run()
}

// acceptClient finishes bringing up a newly accepted connection: reads
// its peer credentials, creates its wakeup eventfd, and registers it in
// the client registry (§3 Client "a descriptor pair (transport,
// wakeup-eventfd)").
func (s *State) acceptClient(connFd int) {
	creds, err := client.AcceptCredentials(connFd)
	if err != nil {
		s.Log.Error().Err(err).Msg("client: SO_PEERCRED read failed")
		return
	}
	wakeFd, err := client.NewWakeupEventfd()
	if err != nil {
		s.Log.Error().Err(err).Msg("client: wakeup eventfd failed")
		return
	}

	c := client.New(connFd, wakeFd, defaultCapabilities, creds)
	id := s.Clients.Add(c)
	s.Log.Info().
		Int("client_id", int(id)).
		Int32("pid", creds.PID).
		Uint32("uid", creds.UID).
		Msg("client connected")
}

// defaultCapabilities are granted to every accepted client until a
// sandbox policy narrows them (§3 Client "capabilities bitmask").
const defaultCapabilities = client.CapCore | client.CapLayerShell | client.CapXDGDecoration | client.CapScreencopy
