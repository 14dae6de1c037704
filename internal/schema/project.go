package schema

import "github.com/roach88/perstore/internal/ir"

// Project reshapes a constraint tree into the backend's nested query format.
//
// Every schema field appears in the result, in declaration order. Scalar
// fields carry the constraint value, or null meaning "return whatever is
// stored". Nested objects become nested maps. Array fields become exemplar
// lists: one projected exemplar per element when the constraint is a non-empty
// list, otherwise a single exemplar. The root is wrapped in a one-element list,
// which reads as "find all objects matching this".
func (c *Compiled) Project(constraint ir.IRObject) ir.IRArray {
	return ir.IRArray{projectObject(c.root, constraint)}
}

func projectObject(n *node, constraint ir.IRObject) ir.IRObject {
	out := make(ir.IRObject, len(n.fields))
	for _, f := range n.fields {
		out[f.name] = projectField(f.node, constraint[f.name])
	}
	return out
}

func projectField(n *node, v ir.IRValue) ir.IRValue {
	if n.kind != KindArray {
		return projectItem(n, v)
	}

	if arr, ok := v.(ir.IRArray); ok && len(arr) > 0 {
		out := make(ir.IRArray, len(arr))
		for i, item := range arr {
			out[i] = projectItem(n.items, item)
		}
		return out
	}
	return ir.IRArray{projectItem(n.items, v)}
}

func projectItem(n *node, v ir.IRValue) ir.IRValue {
	if n.kind == KindObject {
		obj, _ := v.(ir.IRObject)
		return projectObject(n, obj)
	}
	if v == nil {
		return ir.IRNull{}
	}
	return v
}
