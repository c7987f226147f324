package record

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Handle is an opaque reference to one specific version of a record.
// A handle is invalidated when the version it refers to is consumed.
type Handle string

// HandleGenerator produces fresh, unique record handles.
// Implemented by UUIDv7Generator (production) and FixedHandleGenerator
// (tests).
type HandleGenerator interface {
	Generate() Handle
}

// UUIDv7Generator generates time-sortable UUIDv7 handles.
//
// UUIDv7 embeds a timestamp in the most significant bits, so handles
// sort by creation time - helpful when reading the raw ledger.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 handle.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() Handle {
	return Handle(uuid.Must(uuid.NewV7()).String())
}

// FixedHandleGenerator returns predetermined handles for testing.
//
// This enables deterministic test execution and golden trace
// comparison: tests provide a known sequence of handles and verify
// exact output.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedHandleGenerator struct {
	mu      sync.Mutex
	handles []Handle
	idx     int
}

// NewFixedHandleGenerator creates a generator that returns handles in
// order.
//
// Example:
//
//	gen := NewFixedHandleGenerator("h-001", "h-002")
//	gen.Generate() // "h-001"
//	gen.Generate() // "h-002"
//	gen.Generate() // panic: all handles exhausted
func NewFixedHandleGenerator(handles ...Handle) *FixedHandleGenerator {
	return &FixedHandleGenerator{handles: handles}
}

// Generate returns the next predetermined handle.
//
// Panics if all handles have been consumed. This is a fail-fast
// approach to catch test misconfiguration (test created more records
// than expected).
func (g *FixedHandleGenerator) Generate() Handle {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.handles) {
		panic("FixedHandleGenerator: all handles exhausted")
	}
	h := g.handles[g.idx]
	g.idx++
	return h
}

// SequenceHandleGenerator produces handles "h-001", "h-002", ... without
// a predetermined limit. Used by the harness where the number of
// records a scenario creates is not known up front.
type SequenceHandleGenerator struct {
	mu sync.Mutex
	n  int
}

// NewSequenceHandleGenerator creates a generator starting at h-001.
func NewSequenceHandleGenerator() *SequenceHandleGenerator {
	return &SequenceHandleGenerator{}
}

// Generate returns the next handle in the sequence.
func (g *SequenceHandleGenerator) Generate() Handle {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return Handle(fmt.Sprintf("h-%03d", g.n))
}
