package schema

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/perstore/internal/ir"
)

func TestCoerceScalars(t *testing.T) {
	got, err := typedSchema().Coerce(ir.IRObject{
		"id":    ir.IRString("foo"),
		"num":   ir.IRString("5.5"),
		"count": ir.IRString("3"),
		"ok":    ir.IRString("true"),
		"born":  ir.IRString("1990-04-05T06:07:08Z"),
	})
	require.NoError(t, err)

	assert.Equal(t, ir.IRObject{
		"id":    ir.IRString("foo"),
		"num":   ir.IRNumber(5.5),
		"count": ir.IRInt(3),
		"ok":    ir.IRBool(true),
		"born":  ir.NewIRDate(time.Date(1990, 4, 5, 6, 7, 8, 0, time.UTC)),
	}, got)
}

func TestCoerceBooleanExactMatch(t *testing.T) {
	got, err := typedSchema().Coerce(ir.IRObject{"ok": ir.IRString("TRUE")})
	require.NoError(t, err)
	assert.Equal(t, ir.IRBool(false), got["ok"])
}

func TestCoerceDateLayouts(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2024-01-02T03:04:05.123456789Z", time.Date(2024, 1, 2, 3, 4, 5, 123456789, time.UTC)},
		{"2024-01-02T03:04:05+02:00", time.Date(2024, 1, 2, 1, 4, 5, 0, time.UTC)},
		{"2024-01-02T03:04:05", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := typedSchema().Coerce(ir.IRObject{"born": ir.IRString(tt.raw)})
			require.NoError(t, err)
			date, ok := got["born"].(ir.IRDate)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(date.Time), "got %s", date.Time)
		})
	}
}

func TestCoerceOmitsNullAndMissing(t *testing.T) {
	got, err := typedSchema().Coerce(ir.IRObject{
		"id":  ir.IRString("foo"),
		"num": ir.IRNull{},
	})
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"id": ir.IRString("foo")}, got)
}

func TestCoerceNestedAndArrays(t *testing.T) {
	c := MustCompile(Object(
		Prop("id", Scalar("string")),
		Prop("address", Object(Prop("zip", Scalar("integer")))),
		Prop("scores", ArrayOf(Scalar("number"))),
		Prop("lines", ArrayOf(Object(Prop("qty", Scalar("integer"))))),
		Prop("empty", ArrayOf(Scalar("string"))),
	))

	got, err := c.Coerce(ir.IRObject{
		"id":      ir.IRString("o1"),
		"address": ir.IRObject{"zip": ir.IRString("150")},
		"scores":  ir.IRArray{ir.IRString("1.5"), ir.IRNull{}, ir.IRString("2")},
		"lines":   ir.IRArray{ir.IRObject{"qty": ir.IRString("4")}},
		"empty":   ir.IRArray{ir.IRNull{}},
	})
	require.NoError(t, err)

	assert.Equal(t, ir.IRObject{
		"id":      ir.IRString("o1"),
		"address": ir.IRObject{"zip": ir.IRInt(150)},
		"scores":  ir.IRArray{ir.IRNumber(1.5), ir.IRNumber(2)},
		"lines":   ir.IRArray{ir.IRObject{"qty": ir.IRInt(4)}},
	}, got)
}

func TestCoerceSingleValueForArrayField(t *testing.T) {
	c := MustCompile(Object(Prop("tags", ArrayOf(Scalar("string")))))

	got, err := c.Coerce(ir.IRObject{"tags": ir.IRString("red")})
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"tags": ir.IRArray{ir.IRString("red")}}, got)
}

func TestCoerceErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  ir.IRObject
		path string
	}{
		{"bad number", ir.IRObject{"num": ir.IRString("abc")}, "num"},
		{"nan", ir.IRObject{"num": ir.IRString("NaN")}, "num"},
		{"bad integer", ir.IRObject{"count": ir.IRString("1.5")}, "count"},
		{"bad date", ir.IRObject{"born": ir.IRString("soon")}, "born"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := typedSchema().Coerce(tt.raw)
			var valueErr *ValueError
			require.True(t, errors.As(err, &valueErr))
			assert.Equal(t, tt.path, valueErr.Path)
		})
	}
}

// Encoding, reading the quad objects back as strings and coercing
// reproduces the original value.
func TestRoundTrip(t *testing.T) {
	c := MustCompile(Object(
		Prop("id", Scalar("string")),
		Prop("num", Scalar("number")),
		Prop("count", Scalar("integer")),
		Prop("ok", Scalar("boolean")),
		Prop("born", Scalar("date")),
		Prop("address", Object(
			Prop("city", Scalar("string")),
			Prop("zip", Scalar("integer")),
		)),
	))
	value := ir.IRObject{
		"id":      ir.IRString("foo"),
		"num":     ir.IRNumber(0.1),
		"count":   ir.IRInt(-42),
		"ok":      ir.IRBool(false),
		"born":    ir.NewIRDate(time.Date(2001, 2, 3, 4, 5, 6, 7, time.UTC)),
		"address": ir.IRObject{"city": ir.IRString("Oslo"), "zip": ir.IRInt(150)},
	}

	quads, err := c.Encode("foo", value, nil)
	require.NoError(t, err)

	// rehydrate: group quad objects by subject, follow the link for address
	raw := ir.IRObject{}
	nested := ir.IRObject{}
	for _, q := range quads {
		switch {
		case q.Subject == "foo":
			raw[q.Predicate] = ir.IRString(q.Object)
		case q.Predicate == "address.cvt":
		default:
			nested[q.Predicate] = ir.IRString(q.Object)
		}
	}
	raw["address"] = nested

	got, err := c.Coerce(raw)
	require.NoError(t, err)
	assert.True(t, ir.Equal(value, got), "got %v", got)
}
