package ir

import (
	"errors"
	"fmt"
)

// ErrMalformed is matched by every *MalformedError via errors.Is.
var ErrMalformed = errors.New("malformed annotation")

// MalformedError reports an annotation request rejected at the construction
// boundary. Nothing has been interned when it is returned.
type MalformedError struct {
	// Key is the offending request as supplied by the caller.
	Key Key

	// Reason is a human-readable description.
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed annotation %s: %s", e.Key, e.Reason)
}

// Is makes errors.Is(err, ErrMalformed) hold.
func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

// KindMismatchError is the panic value raised when a kind-specific accessor
// is called on an annotation of another kind. It signals a programming error.
type KindMismatchError struct {
	Accessor string
	Want     Kind
	Got      Kind
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("%s called on %s annotation, want %s", e.Accessor, e.Got, e.Want)
}
