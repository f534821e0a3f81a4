package client

// OutputChain is a small swap-chain of pending outgoing buffers: events
// queued via Client.QueueEvent accumulate into the current buffer; Drain
// hands the filled buffers to the write-ready task and starts a fresh
// one, so a slow writer never blocks further event production (§4.K
// "a swap-chain of output buffers flushed by a write-ready task").
type OutputChain struct {
	current [][]byte
	ready   [][]byte
}

func newOutputChain() *OutputChain { return &OutputChain{} }

// Append queues msg onto the current buffer.
func (o *OutputChain) Append(msg []byte) {
	o.current = append(o.current, msg)
}

// Drain moves the current buffer into ready and returns everything ready
// to be written, clearing current for new events to accumulate into.
func (o *OutputChain) Drain() [][]byte {
	if len(o.current) > 0 {
		o.ready = append(o.ready, o.current...)
		o.current = nil
	}
	out := o.ready
	o.ready = nil
	return out
}

// Pending reports how many buffers are waiting to be flushed across both
// the current and ready halves of the chain.
func (o *OutputChain) Pending() int { return len(o.current) + len(o.ready) }
