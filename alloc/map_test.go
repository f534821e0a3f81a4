package alloc

import "testing"

type id int

func TestMapInsertGetRemove(t *testing.T) {
	var m Map[id, string]
	a := m.Insert("a")
	b := m.Insert("b")
	if v, ok := m.Get(a); !ok || v != "a" {
		t.Fatalf("Get(a): got (%q, %v)", v, ok)
	}
	m.Remove(a)
	if _, ok := m.Get(a); ok {
		t.Fatal("expected a to be removed")
	}
	if v, ok := m.Get(b); !ok || v != "b" {
		t.Fatalf("Get(b) after removing a: got (%q, %v)", v, ok)
	}
	if m.Len() != 1 {
		t.Fatalf("Len: got %d, want 1", m.Len())
	}
}

func TestOrderedSetGetDelete(t *testing.T) {
	var o Ordered[int, string]
	o.Set(3, "three")
	o.Set(1, "one")
	o.Set(2, "two")
	keys, _ := o.All()
	want := []int{1, 2, 3}
	for i, k := range want {
		if keys[i] != k {
			t.Fatalf("keys not sorted: got %v, want %v", keys, want)
		}
	}
	if v, ok := o.Get(2); !ok || v != "two" {
		t.Fatalf("Get(2): got (%q, %v)", v, ok)
	}
	o.Delete(2)
	if _, ok := o.Get(2); ok {
		t.Fatal("expected 2 to be deleted")
	}
}

func TestCOWSnapshot(t *testing.T) {
	var c COW[string, int]
	c.Set("a", 1)
	c.Set("b", 2)
	snap := c.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot len: got %d, want 2", len(snap))
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a to be deleted")
	}
}
