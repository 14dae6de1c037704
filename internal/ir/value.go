package ir

import (
	"encoding/json"
	"fmt"
	"iter"
	"math"
	"slices"
	"time"
	"unicode/utf16"
)

// IRValue is any value an object, a constraint tree or a query result can
// hold. The set of implementations is closed.
type IRValue interface {
	irValue()
}

// IRNull is JSON null. In a query tree it is the wildcard.
type IRNull struct{}

// IRString is a string, and the raw form of every scalar a backend returns.
type IRString string

// IRInt is a value of an integer field.
type IRInt int64

// IRNumber is a value of a number field.
type IRNumber float64

// IRBool is a value of a boolean field.
type IRBool bool

// IRDate is a value of a date field. Its JSON and lexical form is RFC 3339
// with nanoseconds.
type IRDate struct {
	time.Time
}

// IRArray is an ordered list. In a query tree it is an exemplar list.
type IRArray []IRValue

// IRObject maps field names to values. Iterate with SortedKeys when order
// matters.
type IRObject map[string]IRValue

func (IRNull) irValue()   {}
func (IRString) irValue() {}
func (IRInt) irValue()    {}
func (IRNumber) irValue() {}
func (IRBool) irValue()   {}
func (IRDate) irValue()   {}
func (IRArray) irValue()  {}
func (IRObject) irValue() {}

// NewIRDate wraps t.
func NewIRDate(t time.Time) IRDate {
	return IRDate{Time: t}
}

// IsNull reports whether v is nil or IRNull.
func IsNull(v IRValue) bool {
	if v == nil {
		return true
	}
	_, ok := v.(IRNull)
	return ok
}

// SortedKeys returns the keys ordered by UTF-16 code units, the order RFC 8785
// prescribes. This differs from sort.Strings for characters beyond the BMP.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// FromGo converts a decoded Go value (from encoding/json, yaml.v3 or literal
// Go code) into an IRValue. Integers above MaxInt64 become IRNumber.
func FromGo(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case bool:
		return IRBool(val), nil
	case string:
		return IRString(val), nil
	case json.Number:
		return numberFromText(string(val))
	case int:
		return IRInt(val), nil
	case int32:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case uint32:
		return IRInt(val), nil
	case uint64:
		if val <= math.MaxInt64 {
			return IRInt(val), nil
		}
		return IRNumber(float64(val)), nil
	case float32:
		return IRNumber(val), nil
	case float64:
		return IRNumber(val), nil
	case time.Time:
		return NewIRDate(val), nil
	case []any:
		return arrayFromGo(val)
	case map[string]any:
		return objectFromGo(len(val), func(yield func(string, any) bool) {
			for k, elem := range val {
				if !yield(k, elem) {
					return
				}
			}
		})
	case map[any]any:
		for k := range val {
			if _, ok := k.(string); !ok {
				return nil, fmt.Errorf("object key %v: keys must be strings", k)
			}
		}
		return objectFromGo(len(val), func(yield func(string, any) bool) {
			for k, elem := range val {
				if !yield(k.(string), elem) {
					return
				}
			}
		})
	}
	return nil, fmt.Errorf("unsupported type: %T", v)
}

func arrayFromGo(elems []any) (IRArray, error) {
	arr := make(IRArray, 0, len(elems))
	for i, elem := range elems {
		v, err := FromGo(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		arr = append(arr, v)
	}
	return arr, nil
}

func objectFromGo(size int, entries iter.Seq2[string, any]) (IRObject, error) {
	obj := make(IRObject, size)
	for k, elem := range entries {
		v, err := FromGo(elem)
		if err != nil {
			return nil, fmt.Errorf("object[%q]: %w", k, err)
		}
		obj[k] = v
	}
	return obj, nil
}

// ToGo converts an IRValue into plain Go values (string, int64, float64,
// bool, time.Time, []any, map[string]any, nil).
func ToGo(v IRValue) any {
	switch val := v.(type) {
	case IRString:
		return string(val)
	case IRInt:
		return int64(val)
	case IRNumber:
		return float64(val)
	case IRBool:
		return bool(val)
	case IRDate:
		return val.Time
	case IRArray:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToGo(elem)
		}
		return out
	case IRObject:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToGo(elem)
		}
		return out
	default:
		return nil
	}
}
