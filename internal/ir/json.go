package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// jsonWriter renders value trees as JSON. Object keys are always written in
// SortedKeys order. The canonical flavour additionally NFC-normalizes strings
// and leaves <, > and & unescaped.
type jsonWriter struct {
	buf       bytes.Buffer
	canonical bool
}

func (w *jsonWriter) value(v IRValue) error {
	switch val := v.(type) {
	case nil, IRNull:
		w.buf.WriteString("null")
	case IRString:
		return w.string(string(val))
	case IRInt:
		fmt.Fprintf(&w.buf, "%d", int64(val))
	case IRNumber:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("number %v has no JSON form", f)
		}
		w.buf.WriteString(formatNumber(f))
	case IRBool:
		if val {
			w.buf.WriteString("true")
		} else {
			w.buf.WriteString("false")
		}
	case IRDate:
		return w.string(val.Format(time.RFC3339Nano))
	case IRArray:
		w.buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			if err := w.value(elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		w.buf.WriteByte(']')
	case IRObject:
		w.buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			if err := w.string(k); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			w.buf.WriteByte(':')
			if err := w.value(val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		w.buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown IRValue type: %T", v)
	}
	return nil
}

func (w *jsonWriter) string(s string) error {
	if w.canonical {
		return writeCanonicalString(&w.buf, s)
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	w.buf.Write(b)
	return nil
}

// MarshalIRValue encodes v as compact JSON with sorted object keys. Use
// MarshalCanonical where output must be byte-stable.
func MarshalIRValue(v IRValue) ([]byte, error) {
	var w jsonWriter
	if err := w.value(v); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler.
func (IRNull) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// MarshalJSON implements json.Marshaler.
func (d IRDate) MarshalJSON() ([]byte, error) { return MarshalIRValue(d) }

// MarshalJSON implements json.Marshaler.
func (arr IRArray) MarshalJSON() ([]byte, error) { return MarshalIRValue(arr) }

// MarshalJSON implements json.Marshaler.
func (obj IRObject) MarshalJSON() ([]byte, error) { return MarshalIRValue(obj) }

// UnmarshalIRValue decodes JSON. Integers that fit in int64 become IRInt and
// other numbers IRNumber; integers are read through json.Number so large ones
// keep every digit.
func UnmarshalIRValue(data []byte) (IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromGo(raw)
}

// UnmarshalJSON implements json.Unmarshaler; the input must be an object.
func (obj *IRObject) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalIRValue(data)
	if err != nil {
		return err
	}
	o, ok := v.(IRObject)
	if !ok {
		return fmt.Errorf("expected JSON object, got %T", v)
	}
	*obj = o
	return nil
}

// UnmarshalJSON implements json.Unmarshaler; the input must be an array.
func (arr *IRArray) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalIRValue(data)
	if err != nil {
		return err
	}
	a, ok := v.(IRArray)
	if !ok {
		return fmt.Errorf("expected JSON array, got %T", v)
	}
	*arr = a
	return nil
}

// numberFromText keeps integers exact and falls back to float64.
func numberFromText(s string) (IRValue, error) {
	n := json.Number(s)
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return IRInt(i), nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return IRNumber(f), nil
}
