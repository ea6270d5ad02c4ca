package ir

import (
	"encoding/binary"
	"slices"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
)

// Kind is the tag identifying an annotation variant, e.g. "passes.InlineAnnotation".
type Kind string

// Key is the identity-relevant payload of an annotation.
// Two keys are equal iff Kind and every parameter are equal, in order.
type Key struct {
	Kind   Kind
	Params []string
}

// NewKey builds a Key, copying params so later caller mutation cannot leak in.
func NewKey(kind Kind, params ...string) Key {
	return Key{Kind: kind, Params: slices.Clone(params)}
}

// Equal reports structural equality.
func (k Key) Equal(other Key) bool {
	return k.Kind == other.Kind && slices.Equal(k.Params, other.Params)
}

// Hash returns a 64-bit hash of the key.
// Every field is length-prefixed so ("ab","c") and ("a","bc") never share an encoding.
func (k Key) Hash() uint64 {
	h := blake3.New()
	var lenBuf [binary.MaxVarintLen64]byte

	write := func(s string) {
		n := binary.PutUvarint(lenBuf[:], uint64(len(s)))
		h.Write(lenBuf[:n])
		h.Write([]byte(s))
	}

	write(string(k.Kind))
	n := binary.PutUvarint(lenBuf[:], uint64(len(k.Params)))
	h.Write(lenBuf[:n])
	for _, p := range k.Params {
		write(p)
	}

	var sum [8]byte
	h.Digest().Read(sum[:])
	return binary.LittleEndian.Uint64(sum[:])
}

// String renders the key as kind(param, ...) for diagnostics.
func (k Key) String() string {
	if len(k.Params) == 0 {
		return string(k.Kind)
	}
	quoted := make([]string, len(k.Params))
	for i, p := range k.Params {
		quoted[i] = strconv.Quote(p)
	}
	return string(k.Kind) + "(" + strings.Join(quoted, ", ") + ")"
}
