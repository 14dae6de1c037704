// Package graph evaluates nested MQL-style queries against a quad source and
// provides an in-memory quad backend.
//
// A query is a tree mirroring the stored objects. Scalar leaves either carry a
// value, which the stored object must equal, or null, which returns whatever
// is stored. Nested objects follow "<field>.cvt" links back from the parent.
// Array fields hold exemplar lists: every stored value or child matching at
// least one exemplar is returned, and every exemplar that constrains anything
// must match at least one.
package graph

import (
	"context"
	"fmt"

	"github.com/roach88/perstore/internal/ir"
	"github.com/roach88/perstore/internal/quad"
)

// Source answers the three lookups the matcher needs. Results are in first
// insertion order.
type Source interface {
	// Candidates lists non-CVT subjects that have every (predicate, object)
	// pair in constraints. An empty map lists all non-CVT subjects.
	Candidates(ctx context.Context, constraints map[string]string) ([]string, error)

	// Objects lists the objects stored for (subject, predicate).
	Objects(ctx context.Context, subject, predicate string) ([]string, error)

	// Referrers lists the subjects s with a quad (s, predicate, object).
	Referrers(ctx context.Context, predicate, object string) ([]string, error)
}

// Match runs query against src. query is either an object or a list of
// object exemplars; results for several exemplars are concatenated without
// duplicates.
func Match(ctx context.Context, src Source, query ir.IRValue) ([]ir.IRObject, error) {
	var roots []ir.IRObject
	switch q := query.(type) {
	case ir.IRObject:
		roots = []ir.IRObject{q}
	case ir.IRArray:
		for i, item := range q {
			obj, ok := item.(ir.IRObject)
			if !ok {
				return nil, fmt.Errorf("query[%d]: root exemplar must be an object, got %T", i, item)
			}
			roots = append(roots, obj)
		}
	default:
		return nil, fmt.Errorf("query must be an object or a list of objects, got %T", query)
	}

	m := &matcher{src: src}
	seen := map[string]bool{}
	var results []ir.IRObject
	for _, root := range roots {
		candidates, err := src.Candidates(ctx, rootConstraints(root))
		if err != nil {
			return nil, err
		}
		for _, subject := range candidates {
			if seen[subject] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			obj, ok, err := m.object(ctx, subject, root)
			if err != nil {
				return nil, err
			}
			if ok {
				seen[subject] = true
				results = append(results, obj)
			}
		}
	}
	return results, nil
}

// rootConstraints extracts the scalar equalities a backend can use to narrow
// the candidate set before the full match.
func rootConstraints(root ir.IRObject) map[string]string {
	constraints := map[string]string{}
	for k, v := range root {
		if s, ok := ir.Lexical(v); ok {
			constraints[k] = s
		}
	}
	return constraints
}

type matcher struct {
	src Source
}

func (m *matcher) object(ctx context.Context, subject string, q ir.IRObject) (ir.IRObject, bool, error) {
	out := make(ir.IRObject, len(q))
	for _, key := range q.SortedKeys() {
		v, ok, err := m.field(ctx, subject, key, q[key])
		if err != nil || !ok {
			return nil, false, err
		}
		out[key] = v
	}
	return out, true, nil
}

func (m *matcher) field(ctx context.Context, subject, key string, q ir.IRValue) (ir.IRValue, bool, error) {
	switch c := q.(type) {
	case ir.IRObject:
		children, err := m.src.Referrers(ctx, quad.LinkPredicate(key), subject)
		if err != nil {
			return nil, false, err
		}
		for _, child := range children {
			sub, ok, err := m.object(ctx, child, c)
			if err != nil {
				return nil, false, err
			}
			if ok {
				return sub, true, nil
			}
		}
		if constrained(c) {
			return nil, false, nil
		}
		return ir.IRNull{}, true, nil

	case ir.IRArray:
		return m.list(ctx, subject, key, c)

	default:
		objects, err := m.src.Objects(ctx, subject, key)
		if err != nil {
			return nil, false, err
		}
		// A single-valued field holds several objects only after racing
		// updates. The wildcard sees the first one, so extra values survive
		// later diffs and deletes.
		if ir.IsNull(q) {
			if len(objects) == 0 {
				return ir.IRNull{}, true, nil
			}
			return ir.IRString(objects[0]), true, nil
		}
		want, _ := ir.Lexical(q)
		for _, o := range objects {
			if o == want {
				return ir.IRString(o), true, nil
			}
		}
		return nil, false, nil
	}
}

// list matches an exemplar list against a multi-valued field.
func (m *matcher) list(ctx context.Context, subject, key string, exemplars ir.IRArray) (ir.IRValue, bool, error) {
	if len(exemplars) == 0 {
		exemplars = ir.IRArray{ir.IRNull{}}
	}
	hits := make([]bool, len(exemplars))
	out := ir.IRArray{}

	var objects, children []string
	var err error
	for _, e := range exemplars {
		if _, structured := e.(ir.IRObject); structured {
			if children == nil {
				if children, err = m.src.Referrers(ctx, quad.LinkPredicate(key), subject); err != nil {
					return nil, false, err
				}
			}
		} else if objects == nil {
			if objects, err = m.src.Objects(ctx, subject, key); err != nil {
				return nil, false, err
			}
		}
	}

	for _, o := range objects {
		matched := false
		for i, e := range exemplars {
			if _, structured := e.(ir.IRObject); structured {
				continue
			}
			if want, ok := ir.Lexical(e); ok && want != o {
				continue
			}
			hits[i] = true
			matched = true
		}
		if matched {
			out = append(out, ir.IRString(o))
		}
	}

	for _, child := range children {
		var found ir.IRObject
		for i, e := range exemplars {
			q, structured := e.(ir.IRObject)
			if !structured {
				continue
			}
			sub, ok, err := m.object(ctx, child, q)
			if err != nil {
				return nil, false, err
			}
			if ok {
				hits[i] = true
				if found == nil {
					found = sub
				}
			}
		}
		if found != nil {
			out = append(out, found)
		}
	}

	for i, e := range exemplars {
		if !hits[i] && constrained(e) {
			return nil, false, nil
		}
	}
	return out, true, nil
}

// constrained reports whether a query subtree restricts anything.
func constrained(q ir.IRValue) bool {
	switch c := q.(type) {
	case nil, ir.IRNull:
		return false
	case ir.IRObject:
		for _, v := range c {
			if constrained(v) {
				return true
			}
		}
		return false
	case ir.IRArray:
		for _, v := range c {
			if constrained(v) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
