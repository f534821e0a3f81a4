package alloc

import "testing"

func TestLinearNeverReuses(t *testing.T) {
	var l Linear
	seen := map[uint64]bool{}
	for i := 0; i < 100; i++ {
		id := l.Next()
		if id == 0 {
			t.Fatal("Linear.Next must never return 0")
		}
		if seen[id] {
			t.Fatalf("id %d reused", id)
		}
		seen[id] = true
	}
}

func TestSlotReuse(t *testing.T) {
	var s Slot
	a := s.Alloc()
	b := s.Alloc()
	if a == b {
		t.Fatal("expected distinct slots")
	}
	s.Free(a)
	c := s.Alloc()
	if c != a {
		t.Fatalf("expected freed slot %d to be reused, got %d", a, c)
	}
}

func TestProtocolIDHalves(t *testing.T) {
	var p Protocol
	id := p.NewServerID()
	if Kind(id) != ServerSide {
		t.Fatalf("expected server-side id, got kind of %#x", id)
	}
	if Kind(1) != ClientSide {
		t.Fatal("expected low ids to be client-side")
	}
	p.FreeServerID(id)
}
