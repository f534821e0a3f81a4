package clock

import (
	"testing"
	"time"
)

func TestNowIsMonotonic(t *testing.T) {
	a := Now()
	time.Sleep(time.Millisecond)
	b := Now()
	if b <= a {
		t.Fatalf("expected time to advance, got a=%v b=%v", a, b)
	}
}

func TestOneShotTimerFires(t *testing.T) {
	tm, err := New(5*time.Millisecond, OneShot)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tm.Close()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		n, err := tm.Drain()
		if err != nil {
			t.Fatalf("Drain: %v", err)
		}
		if n > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timer never fired")
}

func TestPeriodicTimerRearm(t *testing.T) {
	tm, err := New(5*time.Millisecond, Periodic)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tm.Close()

	if err := tm.Rearm(5 * time.Millisecond); err != nil {
		t.Fatalf("Rearm: %v", err)
	}
}
