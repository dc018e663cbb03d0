package source

import (
	"slices"
)

// Interner is a dense append-only table: the first time a key is seen it gets
// the next sequential ID (the table size at that moment). IDs start at zero and
// are never reused or reassigned; there is no removal.
type Interner[K comparable] struct {
	byID  []K       // id -> key
	index map[K]int // key -> id
}

func NewInterner[K comparable]() *Interner[K] {
	return &Interner[K]{
		index: make(map[K]int),
	}
}

// Intern returns the ID of key, allocating a new one when the key is unseen.
// isNew reports whether this call allocated the ID, so callers can emit the
// matching declaration exactly once.
func (i *Interner[K]) Intern(key K) (id int, isNew bool) {
	if id, ok := i.index[key]; ok {
		return id, false
	}
	id = len(i.byID)
	i.byID = append(i.byID, key)
	i.index[key] = id
	return id, true
}

// ID returns the ID of key without allocating.
func (i *Interner[K]) ID(key K) (int, bool) {
	id, ok := i.index[key]
	return id, ok
}

// Lookup возвращает ключ по ID.
func (i *Interner[K]) Lookup(id int) (K, bool) {
	if !i.Has(id) {
		var zero K
		return zero, false
	}
	return i.byID[id], true
}

// MustLookup паникует на невалидном ID.
func (i *Interner[K]) MustLookup(id int) K {
	k, ok := i.Lookup(id)
	if !ok {
		panic("invalid interned ID")
	}
	return k
}

// Has проверяет, валиден ли ID.
func (i *Interner[K]) Has(id int) bool {
	return id >= 0 && id < len(i.byID)
}

// Len returns the number of interned keys, which is also the next ID.
func (i *Interner[K]) Len() int {
	return len(i.byID)
}

// Snapshot returns a copy of all keys in ID order.
func (i *Interner[K]) Snapshot() []K {
	return slices.Clone(i.byID)
}
