package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator generates the same context ID every time.
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with the same FixedIDGenerator produces byte-identical traces.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a new fixed context ID generator.
//
// The ID is typically set in the scenario YAML:
//
//	context_id: "ctx-inline-basic"
//
// If id is empty, Generate() returns "test-context".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-context"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed ID.
//
// Implements ir.IDGenerator.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}

// SequentialIDGenerator returns prefix-1, prefix-2, ... in call order.
// Used when a test builds several contexts and needs them distinguishable.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator; an empty prefix means "ctx".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "ctx"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next ID in the sequence.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts the sequence at 1.
func (g *SequentialIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
