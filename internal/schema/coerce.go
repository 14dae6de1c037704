package schema

import (
	"math"
	"strconv"
	"time"

	"github.com/roach88/perstore/internal/ir"
)

// dateLayouts are tried in order when reading a stored date.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Coerce turns a raw backend result, where every scalar is a string, back into
// typed values following the schema. Null and missing fields are omitted, as
// are empty arrays. Keys the schema does not know are dropped.
func (c *Compiled) Coerce(raw ir.IRObject) (ir.IRObject, error) {
	return coerceObject(c.root, raw, "")
}

func coerceObject(n *node, raw ir.IRObject, path string) (ir.IRObject, error) {
	out := ir.IRObject{}
	for _, f := range n.fields {
		v, ok := raw[f.name]
		if !ok || ir.IsNull(v) {
			continue
		}
		cv, err := coerceField(f.node, v, joinPath(path, f.name))
		if err != nil {
			return nil, err
		}
		if cv != nil {
			out[f.name] = cv
		}
	}
	return out, nil
}

// coerceField returns nil when nothing should be kept.
func coerceField(n *node, v ir.IRValue, path string) (ir.IRValue, error) {
	if n.kind != KindArray {
		return coerceValue(n, v, path)
	}

	arr, ok := v.(ir.IRArray)
	if !ok {
		arr = ir.IRArray{v}
	}
	items := ir.IRArray{}
	for i, item := range flatten(arr) {
		if ir.IsNull(item) {
			continue
		}
		cv, err := coerceValue(n.items, item, indexPath(path, i))
		if err != nil {
			return nil, err
		}
		if cv != nil {
			items = append(items, cv)
		}
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}

func coerceValue(n *node, v ir.IRValue, path string) (ir.IRValue, error) {
	// A backend may answer a single-valued field with every stored value.
	if arr, ok := v.(ir.IRArray); ok {
		v = firstNonNull(arr)
		if v == nil {
			return nil, nil
		}
	}

	if n.kind == KindObject {
		obj, ok := v.(ir.IRObject)
		if !ok {
			return nil, &ValueError{Path: path, Kind: n.kind, Value: v}
		}
		return coerceObject(n, obj, path)
	}
	return coerceScalar(n.kind, v, path)
}

func coerceScalar(kind Kind, v ir.IRValue, path string) (ir.IRValue, error) {
	fail := &ValueError{Path: path, Kind: kind, Value: v}

	switch kind {
	case KindString:
		if s, ok := ir.Lexical(v); ok {
			return ir.IRString(s), nil
		}
	case KindNumber:
		switch val := v.(type) {
		case ir.IRString:
			if f, err := parseNumber(string(val)); err == nil {
				return ir.IRNumber(f), nil
			}
		case ir.IRNumber:
			return val, nil
		case ir.IRInt:
			return ir.IRNumber(val), nil
		}
	case KindInteger:
		switch val := v.(type) {
		case ir.IRString:
			if i, err := strconv.ParseInt(string(val), 10, 64); err == nil {
				return ir.IRInt(i), nil
			}
		case ir.IRInt:
			return val, nil
		case ir.IRNumber:
			f := float64(val)
			if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
				return ir.IRInt(int64(f)), nil
			}
		}
	case KindBoolean:
		switch val := v.(type) {
		case ir.IRString:
			return ir.IRBool(val == "true"), nil
		case ir.IRBool:
			return val, nil
		}
	case KindDate:
		switch val := v.(type) {
		case ir.IRString:
			if t, err := parseDate(string(val)); err == nil {
				return ir.NewIRDate(t), nil
			}
		case ir.IRDate:
			return val, nil
		}
	}
	return nil, fail
}

func firstNonNull(arr ir.IRArray) ir.IRValue {
	for _, v := range arr {
		if !ir.IsNull(v) {
			return v
		}
	}
	return nil
}

func parseNumber(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrSyntax
	}
	return f, nil
}

func parseDate(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
