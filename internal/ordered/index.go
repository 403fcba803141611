// Package ordered provides an insertion-ordered set that reports the
// position at which each key was first seen.
package ordered

// Index assigns each distinct key the position it was first added at.
// The zero value is ready to use. An Index is not safe for concurrent use.
type Index[K comparable] struct {
	pos  map[K]int
	keys []K
}

// Add inserts k if it is new and returns its zero-based position. added is
// false when k was already present; its original position is kept.
func (x *Index[K]) Add(k K) (pos int, added bool) {
	if p, ok := x.pos[k]; ok {
		return p, false
	}
	if x.pos == nil {
		x.pos = make(map[K]int)
	}
	p := len(x.keys)
	x.pos[k] = p
	x.keys = append(x.keys, k)
	return p, true
}

// Keys returns a copy of the keys in insertion order.
func (x *Index[K]) Keys() []K {
	out := make([]K, len(x.keys))
	copy(out, x.keys)
	return out
}
