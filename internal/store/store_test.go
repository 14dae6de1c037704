package store

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/perstore/internal/graph"
	"github.com/roach88/perstore/internal/schema"
)

func TestSetSchemaOnce(t *testing.T) {
	s := New(graph.NewMemory())
	assert.Nil(t, s.Compiled())

	require.NoError(t, s.SetSchema(fooSchema()))
	assert.NotNil(t, s.Compiled())

	err := s.SetSchema(fooSchema())
	assert.ErrorIs(t, err, ErrSchemaAlreadySet)
}

func TestSetSchemaRequiresStringIDField(t *testing.T) {
	tests := []struct {
		name string
		doc  *schema.Document
	}{
		{"missing", schema.Object(schema.Prop("name", schema.Scalar("string")))},
		{"not a string", schema.Object(schema.Prop("id", schema.Scalar("integer")))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(graph.NewMemory())
			err := s.SetSchema(schema.MustCompile(tt.doc))

			var se *schema.SchemaError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, schema.ErrIDField, se.Code)
			assert.Nil(t, s.Compiled())
		})
	}
}

func TestSetSchemaCustomIDField(t *testing.T) {
	c := schema.MustCompile(schema.Object(
		schema.Prop("key", schema.Scalar("string")),
		schema.Prop("name", schema.Scalar("string")),
	))
	s := New(graph.NewMemory(), WithIDField("key"))
	require.NoError(t, s.SetSchema(c))
	assert.Equal(t, "key", s.IDField())
}

func TestSetSchemaNil(t *testing.T) {
	s := New(graph.NewMemory())
	assert.Error(t, s.SetSchema(nil))
}

func TestOperationsWithoutSchema(t *testing.T) {
	s := New(graph.NewMemory())
	ctx := context.Background()

	_, err := s.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrNoSchema)
	_, err = s.Put(ctx, nil)
	assert.ErrorIs(t, err, ErrNoSchema)
	_, err = s.Delete(ctx, "x")
	assert.ErrorIs(t, err, ErrNoSchema)
	_, err = s.Query(ctx, filterAll)
	assert.ErrorIs(t, err, ErrNoSchema)
}

func TestMetricsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s, _ := createTestStore(t, fooSchema(), WithMetrics(m))
	ctx := context.Background()

	_, err := s.Put(ctx, fooObject("foo", "bar"))
	require.NoError(t, err)
	_, err = s.Put(ctx, fooObject("foo", "baz"))
	require.NoError(t, err)
	_, err = s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("put", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("get", "not_found")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.QuadsAdded), "2 quads created then 1 changed")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuadsRemoved))
}

func TestNilMetricsIgnored(t *testing.T) {
	var m *Metrics
	m.observe("get", "ok", 0)
	m.added(1)
	m.removed(1)
}
