package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/perstore/internal/graph"
	"github.com/roach88/perstore/internal/ir"
	"github.com/roach88/perstore/internal/quad"
	"github.com/roach88/perstore/internal/schema"
	"github.com/roach88/perstore/internal/testutil"
)

func fooSchema() *schema.Compiled {
	return schema.MustCompile(schema.Object(
		schema.Prop("id", schema.Scalar("string")),
		schema.Prop("name", schema.Scalar("string")),
	))
}

func orderSchema() *schema.Compiled {
	return schema.MustCompile(schema.Object(
		schema.Prop("id", schema.Scalar("string")),
		schema.Prop("total", schema.Scalar("number")),
		schema.Prop("paid", schema.Scalar("boolean")),
		schema.Prop("placed", schema.Scalar("date")),
		schema.Prop("address", schema.Object(
			schema.Prop("city", schema.Scalar("string")),
		)),
		schema.Prop("lines", schema.ArrayOf(schema.Object(
			schema.Prop("sku", schema.Scalar("string")),
			schema.Prop("qty", schema.Scalar("integer")),
		))),
	))
}

// createTestStore builds a store over a fresh in-memory backend.
func createTestStore(t *testing.T, c *schema.Compiled, opts ...Option) (*Store, *graph.Memory) {
	t.Helper()
	mem := graph.NewMemory()
	opts = append([]Option{WithLogger(testutil.DiscardLogger())}, opts...)
	s := New(mem, opts...)
	require.NoError(t, s.SetSchema(c))
	return s, mem
}

// call is one recorded backend request.
type call struct {
	Op    string
	Quads []quad.Quad
}

// recordingBackend wraps a Memory without exposing Apply, records every
// mutation and can fail chosen operations.
type recordingBackend struct {
	mem *graph.Memory

	mu      sync.Mutex
	calls   []call
	failOn  map[string]error
	beforeW func()
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{mem: graph.NewMemory(), failOn: map[string]error{}}
}

func (b *recordingBackend) record(op string, quads []quad.Quad) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call{Op: op, Quads: append([]quad.Quad(nil), quads...)})
	return b.failOn[op]
}

func (b *recordingBackend) Write(ctx context.Context, quads []quad.Quad) error {
	if b.beforeW != nil {
		b.beforeW()
	}
	if err := b.record("write", quads); err != nil {
		return err
	}
	return b.mem.Write(ctx, quads)
}

func (b *recordingBackend) Delete(ctx context.Context, quads []quad.Quad) error {
	if err := b.record("delete", quads); err != nil {
		return err
	}
	return b.mem.Delete(ctx, quads)
}

func (b *recordingBackend) Query(ctx context.Context, query ir.IRValue) ([]ir.IRObject, error) {
	if err := b.record("query", nil); err != nil {
		return nil, err
	}
	return b.mem.Query(ctx, query)
}

func (b *recordingBackend) mutations() []call {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []call
	for _, c := range b.calls {
		if c.Op != "query" {
			out = append(out, c)
		}
	}
	return out
}

func (b *recordingBackend) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

var errBackend = errors.New("backend unavailable")
