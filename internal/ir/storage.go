package ir

import "slices"

// Storage is the canonical, immutable record for one interned Key.
// Only a Context constructs Storage; nothing mutates it afterwards.
type Storage struct {
	key  Key
	hash uint64
	seq  int64
}

// Kind returns the kind tag of the interned key.
func (s *Storage) Kind() Kind { return s.key.Kind }

// Key returns a copy of the interned key.
func (s *Storage) Key() Key { return NewKey(s.key.Kind, s.key.Params...) }

// NumParams returns the number of parameters.
func (s *Storage) NumParams() int { return len(s.key.Params) }

// Param returns the i-th parameter. Panics if i is out of range.
func (s *Storage) Param(i int) string { return s.key.Params[i] }

// Params returns a copy of the parameter sequence.
func (s *Storage) Params() []string { return slices.Clone(s.key.Params) }

// Seq is the creation order of this storage within its Context, starting at 1.
func (s *Storage) Seq() int64 { return s.seq }

// Hash is the cached Key.Hash of the interned key.
func (s *Storage) Hash() uint64 { return s.hash }
