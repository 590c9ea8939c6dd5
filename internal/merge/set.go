// Package merge reconciles repeated logical records across extraction passes.
//
// A Set keeps exactly one value per natural key. Put is last-write-wins and
// never accumulates, so feeding the same pass twice is harmless and merging
// split passes in order gives the same result as one pass over the
// concatenation. Iteration follows the order in which keys were first seen,
// which keeps rendered output stable between runs.
package merge

// Set is an insertion-ordered, last-wins map. The zero value is not usable;
// call New.
type Set[K comparable, V any] struct {
	index      map[K]int
	keys       []K
	vals       []V
	overwrites int
}

// New returns an empty Set.
func New[K comparable, V any]() *Set[K, V] {
	return &Set[K, V]{index: make(map[K]int)}
}

// Put stores v under k, replacing any earlier value. It reports whether a
// value was replaced.
func (s *Set[K, V]) Put(k K, v V) bool {
	if i, ok := s.index[k]; ok {
		s.vals[i] = v
		s.overwrites++
		return true
	}
	s.index[k] = len(s.keys)
	s.keys = append(s.keys, k)
	s.vals = append(s.vals, v)
	return false
}

// Get returns the current value for k.
func (s *Set[K, V]) Get(k K) (V, bool) {
	i, ok := s.index[k]
	if !ok {
		var zero V
		return zero, false
	}
	return s.vals[i], true
}

func (s *Set[K, V]) Len() int { return len(s.keys) }

// Overwrites counts Put calls that replaced an existing value.
func (s *Set[K, V]) Overwrites() int { return s.overwrites }

// Items returns the values in first-seen key order.
func (s *Set[K, V]) Items() []V {
	return append([]V(nil), s.vals...)
}

// Keys returns the keys in first-seen order.
func (s *Set[K, V]) Keys() []K {
	return append([]K(nil), s.keys...)
}

// Merge folds other into s, in other's order. Later values win.
func (s *Set[K, V]) Merge(other *Set[K, V]) {
	if other == nil {
		return
	}
	for i, k := range other.keys {
		s.Put(k, other.vals[i])
	}
}

// Collapse builds a Set from a record stream. Records for which key reports
// false are not keyable and are counted in dropped.
func Collapse[K comparable, V any](in []V, key func(V) (K, bool)) (set *Set[K, V], dropped int) {
	set = New[K, V]()
	for _, v := range in {
		k, ok := key(v)
		if !ok {
			dropped++
			continue
		}
		set.Put(k, v)
	}
	return set, dropped
}
