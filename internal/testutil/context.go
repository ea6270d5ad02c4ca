package testutil

import (
	"log/slog"
	"testing"

	"github.com/roach88/firanno/internal/ir"
)

// Logger returns a debug-level text logger writing to the test output.
func Logger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(t.Output(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// NewContext creates an ir.Context with the ID "test-context", a fresh
// clock and a logger writing to the test output. opts are applied after
// the defaults and may override them.
func NewContext(t testing.TB, opts ...ir.Option) *ir.Context {
	t.Helper()
	defaults := []ir.Option{
		ir.WithIDGenerator(NewFixedIDGenerator("")),
		ir.WithClock(ir.NewClock()),
		ir.WithLogger(Logger(t)),
	}
	return ir.NewContext(append(defaults, opts...)...)
}

// CollidingHasher sends every key to the same bucket so that lookups rely
// on full key comparison alone.
func CollidingHasher(ir.Key) uint64 {
	return 0
}
