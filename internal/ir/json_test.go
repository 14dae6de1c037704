package ir

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalIRValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected IRValue
	}{
		{"string", `"hello"`, IRString("hello")},
		{"int", `42`, IRInt(42)},
		{"large int", `9007199254740993`, IRInt(9007199254740993)},
		{"decimal", `1.5`, IRNumber(1.5)},
		{"exponent", `1e3`, IRNumber(1000)},
		{"bool", `true`, IRBool(true)},
		{"null", `null`, IRNull{}},
		{"array", `[1,"a",null]`, IRArray{IRInt(1), IRString("a"), IRNull{}}},
		{"object", `{"a":{"b":false}}`, IRObject{"a": IRObject{"b": IRBool(false)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := UnmarshalIRValue([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestUnmarshalIRValueInvalid(t *testing.T) {
	_, err := UnmarshalIRValue([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestIRObjectUnmarshalJSON(t *testing.T) {
	var obj IRObject
	require.NoError(t, json.Unmarshal([]byte(`{"id":"foo","num":5}`), &obj))
	assert.Equal(t, IRObject{"id": IRString("foo"), "num": IRInt(5)}, obj)

	err := json.Unmarshal([]byte(`[1,2]`), &obj)
	assert.Error(t, err, "array is not an object")
}

func TestIRObjectMarshalJSONSortedKeys(t *testing.T) {
	obj := IRObject{
		"z":    IRInt(1),
		"a":    IRNumber(2.5),
		"when": NewIRDate(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)),
		"tags": IRArray{IRString("x"), IRNull{}},
	}

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2.5,"tags":["x",null],"when":"2024-01-02T03:04:05Z","z":1}`, string(data))
}

func TestIRArrayUnmarshalJSON(t *testing.T) {
	var arr IRArray
	require.NoError(t, json.Unmarshal([]byte(`["a",2.5]`), &arr))
	assert.Equal(t, IRArray{IRString("a"), IRNumber(2.5)}, arr)

	err := json.Unmarshal([]byte(`{"a":1}`), &arr)
	assert.ErrorContains(t, err, "expected JSON array")
}

func TestMarshalIRValueEscapesHTML(t *testing.T) {
	v := IRObject{"q": IRString("a<b")}

	plain, err := MarshalIRValue(v)
	require.NoError(t, err)
	assert.Equal(t, `{"q":"a\u003cb"}`, string(plain))

	canonical, err := MarshalCanonical(v)
	require.NoError(t, err)
	assert.Equal(t, `{"q":"a<b"}`, string(canonical))
}

func TestMarshalIRValueRejectsInf(t *testing.T) {
	_, err := MarshalIRValue(IRArray{IRNumber(math.Inf(1))})
	assert.ErrorContains(t, err, "array[0]")
}
