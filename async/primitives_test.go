package async

import "testing"

func TestEventTriggerWakesWaiters(t *testing.T) {
	var ev Event
	woke := 0
	ev.Wait(func() { woke++ })
	ev.Wait(func() { woke++ })
	ev.Trigger()
	if woke != 2 {
		t.Fatalf("got %d wakes, want 2", woke)
	}
}

func TestEventIsEdgeTriggered(t *testing.T) {
	var ev Event
	ev.Trigger() // fires before anyone waits
	woke := false
	ev.Wait(func() { woke = true })
	if woke {
		t.Fatal("Wait should not fire for a trigger that already happened")
	}
	ev.Trigger()
	if !woke {
		t.Fatal("expected Wait to fire on the next Trigger")
	}
}

func TestQueuePushThenPop(t *testing.T) {
	var q Queue[int]
	q.Push(1)
	q.Push(2)
	v, ok := q.Pop(nil)
	if !ok || v != 1 {
		t.Fatalf("got (%d, %v), want (1, true)", v, ok)
	}
	v, ok = q.Pop(nil)
	if !ok || v != 2 {
		t.Fatalf("got (%d, %v), want (2, true)", v, ok)
	}
}

func TestQueuePopBeforePushSuspends(t *testing.T) {
	var q Queue[int]
	var got int
	_, ok := q.Pop(func(v int) { got = v })
	if ok {
		t.Fatal("expected Pop on empty queue to suspend")
	}
	q.Push(7)
	if got != 7 {
		t.Fatalf("got %d, want 7", got)
	}
}
