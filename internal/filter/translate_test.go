package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/perstore/internal/ir"
)

func TestTranslateEq(t *testing.T) {
	got, err := Translate(Eq("foo", ir.IRString("bar")))
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"foo": ir.IRString("bar")}, got)
}

func TestTranslateSpecialValues(t *testing.T) {
	tests := []struct {
		name  string
		value ir.IRValue
		want  ir.IRValue
	}{
		{"null matches any", ir.IRNull{}, ir.IRNull{}},
		{"nil is null", nil, ir.IRNull{}},
		{"array values", ir.IRArray{}, ir.IRArray{}},
		{"number", ir.IRInt(5), ir.IRInt(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Translate(Eq("foo", tt.value))
			require.NoError(t, err)
			assert.Equal(t, ir.IRObject{"foo": tt.want}, got)
		})
	}
}

func TestTranslateNestedPaths(t *testing.T) {
	got, err := Translate(And(
		Eq([]string{"name", "first"}, ir.IRString("bob")),
		Eq(Path{"name", "last"}, ir.IRString("smith")),
	))
	require.NoError(t, err)

	assert.Equal(t, ir.IRObject{
		"name": ir.IRObject{"first": ir.IRString("bob"), "last": ir.IRString("smith")},
	}, got)
}

func TestTranslateAndMerges(t *testing.T) {
	got, err := Translate(And(Eq("a", ir.IRInt(1)), Eq("b", ir.IRInt(2))))
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"a": ir.IRInt(1), "b": ir.IRInt(2)}, got)
}

func TestTranslateAndConcatenatesArrays(t *testing.T) {
	got, err := Translate(And(
		Eq("tags", ir.IRArray{ir.IRString("a")}),
		Eq("tags", ir.IRArray{ir.IRString("b"), ir.IRString("c")}),
	))
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{
		"tags": ir.IRArray{ir.IRString("a"), ir.IRString("b"), ir.IRString("c")},
	}, got)
}

func TestTranslateAndScalarOverwrites(t *testing.T) {
	got, err := Translate(And(Eq("a", ir.IRInt(1)), Eq("a", ir.IRInt(2))))
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"a": ir.IRInt(2)}, got)
}

func TestTranslateNestedAnd(t *testing.T) {
	got, err := Translate(And(
		Eq("a", ir.IRInt(1)),
		And(Eq([]string{"b", "c"}, ir.IRInt(2)), Eq([]string{"b", "d"}, ir.IRInt(3))),
	))
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{
		"a": ir.IRInt(1),
		"b": ir.IRObject{"c": ir.IRInt(2), "d": ir.IRInt(3)},
	}, got)
}

func TestTranslateEmpty(t *testing.T) {
	got, err := Translate(Expr{})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Translate(And())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTranslateUnsupportedOperator(t *testing.T) {
	for _, e := range []Expr{
		Call("or", Eq("a", ir.IRInt(1)), Eq("b", ir.IRInt(2))),
		And(Eq("a", ir.IRInt(1)), Call("sort", ir.IRString("a"))),
	} {
		_, err := Translate(e)
		var unsupported *UnsupportedOperatorError
		require.True(t, errors.As(err, &unsupported), "got %v", err)
		assert.Contains(t, []string{"or", "sort"}, unsupported.Op)
	}
}

func TestTranslateExprErrors(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
	}{
		{"eq arity", Call("eq", Path{"a"})},
		{"empty path", Eq(Path{}, ir.IRInt(1))},
		{"empty segment", Eq(Path{"a", ""}, ir.IRInt(1))},
		{"numeric path", Call("eq", ir.IRInt(1), ir.IRInt(1))},
		{"mixed path list", Call("eq", ir.IRArray{ir.IRString("a"), ir.IRInt(1)}, ir.IRInt(1))},
		{"expression as value", Call("eq", Path{"a"}, Eq("b", ir.IRInt(1)))},
		{"and over value", Call("and", ir.IRInt(1))},
		{"through a scalar", And(Eq("a", ir.IRInt(1)), Eq([]string{"a", "b"}, ir.IRInt(2)))},
		{"scalar over nested", And(Eq([]string{"a", "b"}, ir.IRInt(2)), Eq("a", ir.IRInt(1)))},
		{"list over nested", And(Eq([]string{"a", "b"}, ir.IRInt(2)), Eq("a", ir.IRArray{ir.IRInt(1)}))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Translate(tt.expr)
			var exprErr *ExprError
			require.True(t, errors.As(err, &exprErr), "got %v", err)
		})
	}
}

func TestMergeNullKeepsNestedConstraint(t *testing.T) {
	nested := ir.IRObject{"a": ir.IRObject{"b": ir.IRInt(1)}}

	got, err := Merge(nested, ir.IRObject{"a": ir.IRNull{}})
	require.NoError(t, err)
	assert.Equal(t, nested, got)

	got, err = Merge(ir.IRObject{"a": ir.IRNull{}}, nested)
	require.NoError(t, err)
	assert.Equal(t, nested, got)
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	dst := ir.IRObject{"a": ir.IRObject{"b": ir.IRInt(1)}, "t": ir.IRArray{ir.IRInt(1)}}
	src := ir.IRObject{"a": ir.IRObject{"c": ir.IRInt(2)}, "t": ir.IRArray{ir.IRInt(2)}}

	got, err := Merge(dst, src)
	require.NoError(t, err)

	assert.Equal(t, ir.IRObject{
		"a": ir.IRObject{"b": ir.IRInt(1), "c": ir.IRInt(2)},
		"t": ir.IRArray{ir.IRInt(1), ir.IRInt(2)},
	}, got)
	assert.Equal(t, ir.IRObject{"b": ir.IRInt(1)}, dst["a"])
	assert.Equal(t, ir.IRArray{ir.IRInt(1)}, dst["t"])
}

func TestOperators(t *testing.T) {
	assert.Equal(t, []string{"and", "eq"}, Operators())
}
