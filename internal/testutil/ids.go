// Package testutil holds deterministic helpers shared by tests and the
// scenario harness.
package testutil

import (
	"fmt"
	"log/slog"
	"sync"
)

// FixedIDs hands out predetermined ids in order, so that scenario runs and
// golden traces are byte-identical across runs. Once the list is exhausted
// it continues with "id-<n>", n counting every id handed out so far.
//
// Implements store.IDGenerator.
//
// Thread-safety: FixedIDs is safe for concurrent use via internal mutex.
type FixedIDs struct {
	mu  sync.Mutex
	ids []string
	n   int
}

// NewFixedIDs creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedIDs("a", "b")
//	gen.Generate() // "a"
//	gen.Generate() // "b"
//	gen.Generate() // "id-3"
func NewFixedIDs(ids ...string) *FixedIDs {
	return &FixedIDs{ids: append([]string(nil), ids...)}
}

// Generate returns the next id.
func (g *FixedIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.n++
	if g.n <= len(g.ids) {
		return g.ids[g.n-1]
	}
	return fmt.Sprintf("id-%d", g.n)
}

// Issued reports how many ids have been handed out.
func (g *FixedIDs) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
