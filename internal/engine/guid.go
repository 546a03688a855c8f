package engine

import (
	"sync"

	"github.com/google/uuid"
)

// UUIDv7Generator generates time-sortable UUIDv7 GUIDs for entities, change
// log entries and journaled requests.
//
// UUIDv7 embeds a timestamp in the most significant bits, so GUIDs sort by
// creation time. That keeps change log GUIDs roughly in number order, which
// helps when reading a sync trace.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined GUIDs for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu    sync.Mutex
	guids []string
	idx   int
}

// NewFixedGenerator creates a generator that returns guids in order.
//
// Example:
//
//	gen := NewFixedGenerator("g-1", "g-2")
//	gen.Generate() // "g-1"
//	gen.Generate() // "g-2"
//	gen.Generate() // panic: all GUIDs exhausted
func NewFixedGenerator(guids ...string) *FixedGenerator {
	return &FixedGenerator{guids: guids}
}

// Generate returns the next predetermined GUID.
//
// Panics if all GUIDs have been consumed, which catches a test that
// creates more entities than it planned for.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.guids) {
		panic("FixedGenerator: all GUIDs exhausted")
	}
	guid := g.guids[g.idx]
	g.idx++
	return guid
}
