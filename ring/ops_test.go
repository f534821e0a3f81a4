package ring

import (
	"os"
	"testing"
	"time"
)

// TestOpCancelDefersBufferReleaseUntilAcknowledged exercises §4.A's drop
// discipline: dropping a future before its completion arrives must submit a
// paired cancel and only release pinned buffers once that cancel's own
// completion is reaped, not immediately.
func TestOpCancelDefersBufferReleaseUntilAcknowledged(t *testing.T) {
	r, err := New(Config{Depth: 8})
	if err != nil {
		t.Skipf("io_uring unavailable: %v", err)
	}
	defer r.Close()

	rd, wr, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer rd.Close()
	defer wr.Close()

	buf := make([]byte, 4)
	f, err := r.Read(int(rd.Fd()), buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	o, ok := f.(*op)
	if !ok {
		t.Fatalf("Future = %T, want *op", f)
	}

	f.Cancel()
	if !o.cancelled {
		t.Fatal("expected op to be marked cancelled")
	}
	if o.buf == nil {
		t.Fatal("buffer must stay pinned until the cancel's own completion is reaped")
	}

	deadline := time.Now().Add(2 * time.Second)
	for o.buf != nil && time.Now().Before(deadline) {
		r.Reap()
		time.Sleep(time.Millisecond)
	}
	if o.buf != nil {
		t.Fatal("expected buffer released once the cancel completion was reaped")
	}
}

// TestOpCancelIsIdempotent checks that cancelling an already-completed op
// (or calling Cancel twice) never submits a second cancel op.
func TestOpCancelIsIdempotent(t *testing.T) {
	r, err := New(Config{Depth: 8})
	if err != nil {
		t.Skipf("io_uring unavailable: %v", err)
	}
	defer r.Close()

	rd, wr, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer rd.Close()
	defer wr.Close()

	buf := make([]byte, 4)
	f, err := r.Read(int(rd.Fd()), buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	o := f.(*op)

	f.Cancel()
	f.Cancel() // must be a no-op; must not submit a second cancel SQE

	deadline := time.Now().Add(2 * time.Second)
	for o.buf != nil && time.Now().Before(deadline) {
		r.Reap()
		time.Sleep(time.Millisecond)
	}
	if o.buf != nil {
		t.Fatal("expected buffer released after the one cancel was acknowledged")
	}
}
