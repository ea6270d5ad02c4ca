package ir

import (
	"iter"
	"slices"
)

// Set is an ordered collection of annotations deduplicated by identity.
// It is what an IR node holds. The zero value is an empty set ready to use.
//
// Set is not safe for concurrent mutation.
type Set struct {
	items []Annotation
	index map[Annotation]struct{}
}

// NewSet creates a set holding anns in first-seen order.
func NewSet(anns ...Annotation) *Set {
	s := &Set{}
	for _, a := range anns {
		s.Add(a)
	}
	return s
}

// Add appends a if it is valid and not already present. Reports whether it was added.
func (s *Set) Add(a Annotation) bool {
	if !a.IsValid() {
		return false
	}
	if s.index == nil {
		s.index = make(map[Annotation]struct{})
	}
	if _, ok := s.index[a]; ok {
		return false
	}
	s.index[a] = struct{}{}
	s.items = append(s.items, a)
	return true
}

// Has reports whether a is in the set. O(1), no content hashing.
func (s *Set) Has(a Annotation) bool {
	_, ok := s.index[a]
	return ok
}

// HasKind reports whether any annotation of kind is in the set.
func (s *Set) HasKind(kind Kind) bool {
	for _, a := range s.items {
		if a.Kind() == kind {
			return true
		}
	}
	return false
}

// OfKind returns the annotations of kind in insertion order.
func (s *Set) OfKind(kind Kind) []Annotation {
	var out []Annotation
	for _, a := range s.items {
		if a.Kind() == kind {
			out = append(out, a)
		}
	}
	return out
}

// Len returns the number of annotations.
func (s *Set) Len() int {
	return len(s.items)
}

// Slice returns a copy of the annotations in insertion order.
func (s *Set) Slice() []Annotation {
	return slices.Clone(s.items)
}

// All iterates the annotations in insertion order.
func (s *Set) All() iter.Seq[Annotation] {
	return func(yield func(Annotation) bool) {
		for _, a := range s.items {
			if !yield(a) {
				return
			}
		}
	}
}
