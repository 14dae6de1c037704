package ir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	// Verify all types implement IRValue (compile-time check via assignment)
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRNumber(1.5)
	var _ IRValue = IRBool(true)
	var _ IRValue = NewIRDate(time.Unix(0, 0))
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestIRObjectSortedKeys(t *testing.T) {
	obj := IRObject{
		"zebra":  IRString("z"),
		"apple":  IRString("a"),
		"banana": IRString("b"),
	}

	assert.Equal(t, []string{"apple", "banana", "zebra"}, obj.SortedKeys())
}

func TestIRObjectSortedKeysUTF16Order(t *testing.T) {
	// U+FF61 sorts before U+1F600 in UTF-8 byte order but after it in UTF-16
	// (the emoji is a surrogate pair starting 0xD83D).
	obj := IRObject{
		"\U0001F600": IRInt(1),
		"\uFF61":     IRInt(2),
	}

	assert.Equal(t, []string{"\U0001F600", "\uFF61"}, obj.SortedKeys())
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(nil))
	assert.True(t, IsNull(IRNull{}))
	assert.False(t, IsNull(IRString("")))
	assert.False(t, IsNull(IRArray{}))
}

func TestFromGo(t *testing.T) {
	when := time.Date(2020, 5, 6, 0, 0, 0, 0, time.UTC)
	v, err := FromGo(map[string]any{
		"s":    "x",
		"i":    7,
		"f":    0.25,
		"b":    true,
		"t":    when,
		"list": []any{1, "two"},
		"nil":  nil,
		"yaml": map[any]any{"k": "v"},
	})
	require.NoError(t, err)

	assert.Equal(t, IRObject{
		"s":    IRString("x"),
		"i":    IRInt(7),
		"f":    IRNumber(0.25),
		"b":    IRBool(true),
		"t":    NewIRDate(when),
		"list": IRArray{IRInt(1), IRString("two")},
		"nil":  IRNull{},
		"yaml": IRObject{"k": IRString("v")},
	}, v)
}

func TestFromGoRejectsUnsupported(t *testing.T) {
	_, err := FromGo(struct{}{})
	assert.Error(t, err)

	_, err = FromGo(map[any]any{1: "x"})
	assert.Error(t, err, "non-string keys are rejected")
}

func TestToGoRoundTrip(t *testing.T) {
	in := IRObject{
		"a": IRArray{IRInt(1), IRNumber(1.5), IRBool(false)},
		"b": IRObject{"c": IRString("d")},
	}

	back, err := FromGo(ToGo(in))
	require.NoError(t, err)
	assert.Equal(t, in, back)
}

func TestLexical(t *testing.T) {
	tests := []struct {
		name     string
		input    IRValue
		expected string
	}{
		{"string", IRString("bar"), "bar"},
		{"int", IRInt(-12), "-12"},
		{"integral number", IRNumber(5), "5"},
		{"fraction", IRNumber(0.1), "0.1"},
		{"huge number", IRNumber(1e21), "1e+21"},
		{"true", IRBool(true), "true"},
		{"false", IRBool(false), "false"},
		{"date", NewIRDate(time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)), "2024-01-02T03:04:05.000000006Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := Lexical(tt.input)
			require.True(t, ok)
			assert.Equal(t, tt.expected, s)
		})
	}
}

func TestLexicalStructuredValues(t *testing.T) {
	for _, v := range []IRValue{IRNull{}, IRArray{}, IRObject{}, nil} {
		_, ok := Lexical(v)
		assert.False(t, ok, "%T has no lexical form", v)
	}
}

func TestEqual(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.True(t, Equal(IRInt(5), IRNumber(5)), "numeric kinds compare by value")
	assert.False(t, Equal(IRInt(5), IRString("5")))
	assert.True(t, Equal(NewIRDate(when), NewIRDate(when.In(time.FixedZone("x", 3600)))))
	assert.True(t, Equal(IRObject{"a": IRInt(1), "b": IRNull{}}, IRObject{"a": IRNumber(1)}),
		"null keys count as absent")
	assert.False(t, Equal(IRObject{"a": IRInt(1)}, IRObject{"a": IRInt(1), "b": IRInt(2)}))
	assert.False(t, Equal(IRArray{IRInt(1), IRInt(2)}, IRArray{IRInt(2), IRInt(1)}), "order matters")
	assert.True(t, Equal(IRNull{}, nil))
}
