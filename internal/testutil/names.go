// Package testutil holds deterministic stand-ins used by tests and golden
// runs.
package testutil

import (
	"fmt"
	"sync"
)

// FixedNameGenerator returns the same name every time.
//
// Only safe for a ledger that creates a single root account; a second
// Connect on the same store would collide.
//
// Thread-safety: FixedNameGenerator is stateless and safe for concurrent use.
type FixedNameGenerator struct {
	name string
}

// NewFixedNameGenerator creates a generator for name. An empty name
// becomes "fixed".
func NewFixedNameGenerator(name string) *FixedNameGenerator {
	if name == "" {
		name = "fixed"
	}
	return &FixedNameGenerator{name: name}
}

// Generate returns the fixed name.
func (g *FixedNameGenerator) Generate() string {
	return g.name
}

// SequenceNameGenerator returns "<prefix>-1", "<prefix>-2", ... so that
// repeated runs against fresh ledgers produce identical account ids.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequenceNameGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceNameGenerator creates a generator. The first name ends in 1.
func NewSequenceNameGenerator(prefix string) *SequenceNameGenerator {
	return &SequenceNameGenerator{prefix: prefix}
}

// Generate returns the next name in the sequence.
func (g *SequenceNameGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts the sequence at 1.
func (g *SequenceNameGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
