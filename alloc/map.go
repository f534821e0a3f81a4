package alloc

import (
	"golang.org/x/exp/slices"

	"github.com/tessera-wm/core/internal/bitm"
)

// Map associates IDs of type I with data of type D using a parallel
// ID-indexed slice plus a bitm.Bitm slot map for reuse, exactly as
// engine/id.go's dataMap did for a single concrete engine type. Zero value
// is ready to use.
type Map[I ~int, D any] struct {
	ids   []int // slot -> index into data, or -1 if free
	slots bitm.Bitm[uint32]
	data  []entry[I, D]
}

type entry[I ~int, D any] struct {
	id   I
	data D
}

// Insert stores v under a freshly allocated ID and returns it.
func (m *Map[I, D]) Insert(v D) I {
	if m.slots.Rem() == 0 {
		m.slots.Grow(1)
		n := m.slots.Len()
		grown := make([]int, n)
		copy(grown, m.ids)
		for i := len(m.ids); i < n; i++ {
			grown[i] = -1
		}
		m.ids = grown
	}
	idx, ok := m.slots.Search()
	if !ok {
		panic("alloc: Map.Insert: unexpected Search failure")
	}
	m.slots.Set(idx)
	m.ids[idx] = len(m.data)
	id := I(idx)
	m.data = append(m.data, entry[I, D]{id: id, data: v})
	return id
}

// Get returns the value stored under id and whether it was present.
func (m *Map[I, D]) Get(id I) (D, bool) {
	var zero D
	if int(id) < 0 || int(id) >= len(m.ids) || m.ids[id] < 0 {
		return zero, false
	}
	return m.data[m.ids[id]].data, true
}

// Set overwrites the value stored under id. It is a no-op if id is absent.
func (m *Map[I, D]) Set(id I, v D) {
	if int(id) < 0 || int(id) >= len(m.ids) || m.ids[id] < 0 {
		return
	}
	m.data[m.ids[id]].data = v
}

// Remove deletes id from the map via swap-remove, matching dataMap's
// removeData helper.
func (m *Map[I, D]) Remove(id I) {
	if int(id) < 0 || int(id) >= len(m.ids) || m.ids[id] < 0 {
		return
	}
	i := m.ids[id]
	last := len(m.data) - 1
	if i < last {
		m.data[i] = m.data[last]
		m.ids[m.data[i].id] = i
	}
	m.data = m.data[:last]
	m.ids[id] = -1
	m.slots.Unset(int(id))
}

// Len returns the number of entries currently stored.
func (m *Map[I, D]) Len() int { return len(m.data) }

// Each calls f for every entry. The map must not be mutated by f.
func (m *Map[I, D]) Each(f func(I, D)) {
	for _, e := range m.data {
		f(e.id, e.data)
	}
}

// Ordered is a small ordered map with an inline-capacity-friendly backing
// array and binary-search lookup, per §4.E "ordered small-maps (binary
// search, inline capacity N)". Intended for maps that rarely exceed a few
// dozen entries (a surface's frame-callback list id index, a container's
// child-weight overrides), where a real hash map's overhead dominates.
type Ordered[K int | uint32 | string, V any] struct {
	keys []K
	vals []V
}

// Get returns the value for k, if present.
func (o *Ordered[K, V]) Get(k K) (V, bool) {
	i, ok := slices.BinarySearch(o.keys, k)
	if !ok {
		var zero V
		return zero, false
	}
	return o.vals[i], true
}

// Set inserts or overwrites the value for k.
func (o *Ordered[K, V]) Set(k K, v V) {
	i, ok := slices.BinarySearch(o.keys, k)
	if ok {
		o.vals[i] = v
		return
	}
	o.keys = slices.Insert(o.keys, i, k)
	o.vals = slices.Insert(o.vals, i, v)
}

// Delete removes k, if present.
func (o *Ordered[K, V]) Delete(k K) {
	i, ok := slices.BinarySearch(o.keys, k)
	if !ok {
		return
	}
	o.keys = slices.Delete(o.keys, i, i+1)
	o.vals = slices.Delete(o.vals, i, i+1)
}

// Len returns the number of entries.
func (o *Ordered[K, V]) Len() int { return len(o.keys) }

// All returns the entries in key order. The caller must not mutate the
// returned slices.
func (o *Ordered[K, V]) All() ([]K, []V) { return o.keys, o.vals }

// COW is a copy-on-read map: Snapshot returns a cheap shared view that
// iterates without locking against concurrent Set/Delete, matching §4.E
// "copy-on-read hash maps (cheap snapshot iteration)". Since the engine is
// single-threaded (§5), there is no concurrent writer; the value of this
// type is the O(1) Snapshot rather than thread safety — callers that need
// to iterate while also mutating (e.g. a focus-change handler that walks
// listeners, some of which may unregister themselves) take a Snapshot
// first instead of copying the whole map.
type COW[K comparable, V any] struct {
	m map[K]V
}

// Set inserts or overwrites the value for k in the live backing map; a map
// previously returned by Snapshot sees the change.
func (c *COW[K, V]) Set(k K, v V) {
	if c.m == nil {
		c.m = make(map[K]V, 1)
	}
	c.m[k] = v
}

// Delete removes k.
func (c *COW[K, V]) Delete(k K) { delete(c.m, k) }

// Get returns the value for k, if present.
func (c *COW[K, V]) Get(k K) (V, bool) {
	v, ok := c.m[k]
	return v, ok
}

// Snapshot returns the current backing map by reference. Since there is no
// concurrent writer in a single-threaded engine, this is simply the live
// map; the type exists so call sites read as "I am taking a stable view"
// rather than "I am reading the live, possibly-being-mutated map".
func (c *COW[K, V]) Snapshot() map[K]V { return c.m }

// Len returns the number of entries.
func (c *COW[K, V]) Len() int { return len(c.m) }
