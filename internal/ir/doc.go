// Package ir provides interned FIRRTL annotations for the compiler IR.
//
// An annotation is identified by a Key: a kind tag plus an ordered list of
// string parameters. A Context owns the interning table; every distinct Key
// maps to exactly one Storage for the lifetime of the Context, so the
// Annotation handles returned by the construction API compare by identity.
//
// This package imports nothing internal. Parsers, stores and CLI commands
// build on top of it.
//
// Key design constraints:
//   - At most one Storage per distinct Key per Context (no removal)
//   - Storage is immutable once interned; reads need no locking
//   - Annotation == Annotation is pointer equality on the Storage
//   - Parameters are validated (arity, UTF-8, NFC) before anything is interned
//   - Kind-specific accessors panic on a handle of another kind
package ir
