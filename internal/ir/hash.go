package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainAnnotation prefixes content-addressed annotation IDs.
// The version suffix leaves room for a future encoding change.
const DomainAnnotation = "firanno/annotation/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// AnnotationID computes the stable content-addressed ID of a key:
// SHA-256 over the canonical JSON array [kind, params...].
// Unlike Key.Hash it is stable across processes and is what the store persists.
func AnnotationID(key Key) (string, error) {
	arr := make([]string, 0, len(key.Params)+1)
	arr = append(arr, string(key.Kind))
	arr = append(arr, key.Params...)

	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("AnnotationID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainAnnotation, canonical), nil
}

// MustAnnotationID is like AnnotationID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustAnnotationID(key Key) string {
	id, err := AnnotationID(key)
	if err != nil {
		panic(err)
	}
	return id
}

// ID returns the content-addressed ID of the annotation.
// It panics for a key that Make would reject as invalid UTF-8, which can only
// be interned through Intern. Use AnnotationID to get the error instead.
func (a Annotation) ID() string {
	return MustAnnotationID(a.Key())
}
