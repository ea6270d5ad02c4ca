package ir

import "testing"

type fixedID string

func (f fixedID) Generate() string { return string(f) }

// newTestContext creates a context with a deterministic ID.
func newTestContext(t *testing.T, opts ...Option) *Context {
	t.Helper()
	return NewContext(append([]Option{WithIDGenerator(fixedID("ctx-test"))}, opts...)...)
}
