package entity

import (
	"maps"
	"slices"
)

// KeySet is a set of node keys.
type KeySet map[Key]struct{}

// NewKeySet returns a set holding keys.
func NewKeySet(keys ...Key) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Add inserts k.
func (s KeySet) Add(k Key) { s[k] = struct{}{} }

// Has reports whether k is in the set. A nil set is empty.
func (s KeySet) Has(k Key) bool {
	_, ok := s[k]
	return ok
}

// Sorted returns the keys in ascending order.
func (s KeySet) Sorted() []Key {
	return slices.Sorted(maps.Keys(s))
}
