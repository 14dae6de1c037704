package filter

import (
	"fmt"
	"sort"

	"github.com/roach88/perstore/internal/ir"
)

// handler translates one operator's arguments into a constraint tree.
type handler func(args []any) (ir.IRObject, error)

// operators is the closed operator registry. It is filled in init because
// translateAnd refers back to Translate.
var operators map[string]handler

func init() {
	operators = map[string]handler{
		"eq":  translateEq,
		"and": translateAnd,
	}
}

// Operators lists the supported operator names.
func Operators() []string {
	names := make([]string, 0, len(operators))
	for name := range operators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Translate turns an expression into a constraint tree. The zero Expr yields
// an empty tree, which matches every object.
func Translate(e Expr) (ir.IRObject, error) {
	if e.IsZero() {
		return ir.IRObject{}, nil
	}
	h, ok := operators[e.Op]
	if !ok {
		return nil, &UnsupportedOperatorError{Op: e.Op}
	}
	return h(e.Args)
}

func translateEq(args []any) (ir.IRObject, error) {
	if len(args) != 2 {
		return nil, &ExprError{Op: "eq", Message: fmt.Sprintf("want 2 arguments (path, value), got %d", len(args))}
	}

	path, err := toPath(args[0])
	if err != nil {
		return nil, err
	}
	value, ok := args[1].(ir.IRValue)
	if !ok && args[1] != nil {
		return nil, &ExprError{Op: "eq", Message: fmt.Sprintf("value must be a literal, got %T", args[1])}
	}
	if value == nil {
		value = ir.IRNull{}
	}

	out := ir.IRObject{}
	node := out
	for _, seg := range path[:len(path)-1] {
		child := ir.IRObject{}
		node[seg] = child
		node = child
	}
	node[path[len(path)-1]] = value
	return out, nil
}

func toPath(arg any) (Path, error) {
	var path Path
	switch p := arg.(type) {
	case Path:
		path = p
	case []string:
		path = p
	case string:
		path = Path{p}
	case ir.IRString:
		path = Path{string(p)}
	case ir.IRArray:
		for _, seg := range p {
			s, ok := seg.(ir.IRString)
			if !ok {
				return nil, &ExprError{Op: "eq", Message: fmt.Sprintf("path segments must be strings, got %T", seg)}
			}
			path = append(path, string(s))
		}
	default:
		return nil, &ExprError{Op: "eq", Message: fmt.Sprintf("path must be a field name or list of names, got %T", arg)}
	}

	if len(path) == 0 {
		return nil, &ExprError{Op: "eq", Message: "path is empty"}
	}
	for _, seg := range path {
		if seg == "" {
			return nil, &ExprError{Op: "eq", Message: "path has an empty segment"}
		}
	}
	return path, nil
}

func translateAnd(args []any) (ir.IRObject, error) {
	out := ir.IRObject{}
	for i, arg := range args {
		term, ok := arg.(Expr)
		if !ok {
			return nil, &ExprError{Op: "and", Message: fmt.Sprintf("term %d is %T, want an expression", i, arg)}
		}
		tree, err := Translate(term)
		if err != nil {
			return nil, err
		}
		if err := mergeInto(out, tree, ""); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Merge deep-merges src into a copy of dst: objects merge by key, arrays
// concatenate, and anything else is overwritten by src. A nested object
// meeting a non-null value of another shape is an *ExprError in either order.
func Merge(dst, src ir.IRObject) (ir.IRObject, error) {
	out := copyObject(dst)
	if err := mergeInto(out, src, ""); err != nil {
		return nil, err
	}
	return out, nil
}

func mergeInto(dst, src ir.IRObject, path string) error {
	for _, key := range src.SortedKeys() {
		sv := src[key]
		switch s := sv.(type) {
		case ir.IRObject:
			d, ok := dst[key].(ir.IRObject)
			if !ok {
				if existing, present := dst[key]; present && !ir.IsNull(existing) {
					return valueAndObject(path, key)
				}
				d = ir.IRObject{}
				dst[key] = d
			}
			if err := mergeInto(d, s, joinKey(path, key)); err != nil {
				return err
			}
		case ir.IRArray:
			if _, nested := dst[key].(ir.IRObject); nested {
				return valueAndObject(path, key)
			}
			d, _ := dst[key].(ir.IRArray)
			merged := make(ir.IRArray, 0, len(d)+len(s))
			merged = append(merged, d...)
			merged = append(merged, s...)
			dst[key] = merged
		default:
			if _, nested := dst[key].(ir.IRObject); nested {
				if ir.IsNull(sv) {
					continue // a wildcard adds nothing to a nested constraint
				}
				return valueAndObject(path, key)
			}
			dst[key] = sv
		}
	}
	return nil
}

func valueAndObject(path, key string) *ExprError {
	return &ExprError{
		Op:      "and",
		Message: fmt.Sprintf("%s is both a value and a nested object", joinKey(path, key)),
	}
}

func copyObject(o ir.IRObject) ir.IRObject {
	out := make(ir.IRObject, len(o))
	for k, v := range o {
		if nested, ok := v.(ir.IRObject); ok {
			v = copyObject(nested)
		}
		out[k] = v
	}
	return out
}

func joinKey(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
