package graph

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/perstore/internal/ir"
	"github.com/roach88/perstore/internal/quad"
)

// key identifies a stored quad. hasLabel keeps an absent label distinct from
// the empty one.
type key struct {
	subject, predicate, object string
	hasLabel                   bool
	label                      string
}

func keyOf(q quad.Quad) key {
	k := key{subject: q.Subject, predicate: q.Predicate, object: q.Object}
	if q.Label != nil {
		k.hasLabel = true
		k.label = *q.Label
	}
	return k
}

// Memory is an in-memory quad backend. Quads keep their insertion order and
// writing an existing quad is a no-op. It is safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	quads []quad.Quad
	index map[key]struct{}
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{index: map[key]struct{}{}}
}

// Write stores quads.
func (m *Memory) Write(ctx context.Context, quads []quad.Quad) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(quads)
	return nil
}

// Delete removes quads; quads that are not stored are ignored.
func (m *Memory) Delete(ctx context.Context, quads []quad.Quad) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(quads)
	return nil
}

// Apply removes and adds quads as one step; readers never observe the state
// in between.
func (m *Memory) Apply(ctx context.Context, remove, add []quad.Quad) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(remove)
	m.add(add)
	return nil
}

// Query evaluates a nested query tree.
func (m *Memory) Query(ctx context.Context, query ir.IRValue) ([]ir.IRObject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Match(ctx, memoryView{m}, query)
}

// Quads returns a copy of every stored quad in insertion order.
func (m *Memory) Quads() []quad.Quad {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.quads)
}

// Len reports the number of stored quads.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.quads)
}

// Count reports how many quads have the given subject.
func (m *Memory) Count(subject string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, q := range m.quads {
		if q.Subject == subject {
			n++
		}
	}
	return n
}

func (m *Memory) add(quads []quad.Quad) {
	for _, q := range quads {
		k := keyOf(q)
		if _, ok := m.index[k]; ok {
			continue
		}
		m.index[k] = struct{}{}
		m.quads = append(m.quads, q)
	}
}

func (m *Memory) remove(quads []quad.Quad) {
	drop := map[key]struct{}{}
	for _, q := range quads {
		k := keyOf(q)
		if _, ok := m.index[k]; ok {
			drop[k] = struct{}{}
			delete(m.index, k)
		}
	}
	if len(drop) == 0 {
		return
	}
	m.quads = slices.DeleteFunc(m.quads, func(q quad.Quad) bool {
		_, ok := drop[keyOf(q)]
		return ok
	})
}

// memoryView implements Source over a Memory whose read lock is already held.
type memoryView struct {
	m *Memory
}

func (v memoryView) Candidates(ctx context.Context, constraints map[string]string) ([]string, error) {
	var subjects []string
	seen := map[string]bool{}
	for _, q := range v.m.quads {
		if seen[q.Subject] || quad.IsCVT(q.Subject) {
			continue
		}
		seen[q.Subject] = true
		subjects = append(subjects, q.Subject)
	}
	if len(constraints) == 0 {
		return subjects, nil
	}

	have := map[string]map[string]bool{}
	for _, q := range v.m.quads {
		want, ok := constraints[q.Predicate]
		if !ok || want != q.Object {
			continue
		}
		if have[q.Subject] == nil {
			have[q.Subject] = map[string]bool{}
		}
		have[q.Subject][q.Predicate] = true
	}
	return slices.DeleteFunc(subjects, func(s string) bool {
		return len(have[s]) != len(constraints)
	}), nil
}

func (v memoryView) Objects(ctx context.Context, subject, predicate string) ([]string, error) {
	var objects []string
	seen := map[string]bool{}
	for _, q := range v.m.quads {
		if q.Subject == subject && q.Predicate == predicate && !seen[q.Object] {
			seen[q.Object] = true
			objects = append(objects, q.Object)
		}
	}
	return objects, nil
}

func (v memoryView) Referrers(ctx context.Context, predicate, object string) ([]string, error) {
	var subjects []string
	seen := map[string]bool{}
	for _, q := range v.m.quads {
		if q.Predicate == predicate && q.Object == object && !seen[q.Subject] {
			seen[q.Subject] = true
			subjects = append(subjects, q.Subject)
		}
	}
	return subjects, nil
}
