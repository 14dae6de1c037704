package schema

import (
	"fmt"
	"strings"

	"github.com/roach88/perstore/internal/ir"
	"github.com/roach88/perstore/internal/quad"
)

// node is one compiled schema position.
type node struct {
	kind   Kind
	fields []field // KindObject, in declaration order
	items  *node   // KindArray, never itself an array
}

type field struct {
	name string
	node *node
}

// Compiled is an immutable, validated schema. It is safe for concurrent use.
type Compiled struct {
	root        *node
	warnings    []string
	fingerprint string
}

// Compile validates doc and builds the encoder, projector and coercer for it.
// All structural problems are reported here, before any object is processed.
func Compile(doc *Document) (*Compiled, error) {
	c := &compiler{}
	root, err := c.compile(doc, "")
	if err != nil {
		return nil, err
	}
	if root.kind != KindObject {
		return nil, &SchemaError{
			Code:    ErrRootNotObject,
			Message: fmt.Sprintf("root schema must be an object, got %s", root.kind),
		}
	}

	fp, err := ir.Fingerprint(ir.DomainSchema, describeNode(root))
	if err != nil {
		return nil, fmt.Errorf("fingerprint schema: %w", err)
	}

	return &Compiled{root: root, warnings: c.warnings, fingerprint: fp}, nil
}

// MustCompile is like Compile but panics on error.
// Use only in tests or when the schema is known to be valid.
func MustCompile(doc *Document) *Compiled {
	c, err := Compile(doc)
	if err != nil {
		panic(err)
	}
	return c
}

type compiler struct {
	warnings []string
}

func (c *compiler) compile(doc *Document, path string) (*node, error) {
	if doc == nil {
		return nil, &SchemaError{Path: path, Code: ErrNilNode, Message: "schema node is missing"}
	}

	if doc.Extends != nil {
		c.warnf("%s: extends is not supported and is ignored", displayPath(path))
	}

	kind, err := resolveKind(doc, path)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindObject:
		if doc.Items != nil {
			return nil, &SchemaError{Path: path, Code: ErrMisplacedKeyword, Message: "object schema cannot have items"}
		}
		return c.compileObject(doc, path)

	case KindArray:
		if doc.Properties != nil {
			return nil, &SchemaError{Path: path, Code: ErrMisplacedKeyword, Message: "array schema cannot have properties"}
		}
		if doc.Items == nil {
			return nil, &SchemaError{Path: path, Code: ErrArrayNoItems, Message: "array schema requires items"}
		}
		items, err := c.compile(doc.Items, path+"[]")
		if err != nil {
			return nil, err
		}
		if items.kind == KindArray {
			// Nested arrays share the outer predicate, so their elements are
			// stored as one flat list.
			c.warnf("%s: nested array is flattened into its parent", displayPath(path))
			items = items.items
		}
		return &node{kind: KindArray, items: items}, nil

	default:
		if doc.Properties != nil || doc.Items != nil {
			return nil, &SchemaError{
				Path:    path,
				Code:    ErrMisplacedKeyword,
				Message: fmt.Sprintf("%s schema cannot have properties or items", kind),
			}
		}
		return &node{kind: kind}, nil
	}
}

func (c *compiler) compileObject(doc *Document, path string) (*node, error) {
	n := &node{kind: KindObject}
	seen := make(map[string]bool, len(doc.Properties))

	for _, prop := range doc.Properties {
		switch {
		case prop.Name == "":
			return nil, &SchemaError{Path: path, Code: ErrPropertyName, Message: "property name cannot be empty"}
		case seen[prop.Name]:
			return nil, &SchemaError{
				Path:    path,
				Code:    ErrPropertyName,
				Message: fmt.Sprintf("duplicate property %q", prop.Name),
			}
		case strings.HasSuffix(prop.Name, quad.LinkSuffix):
			return nil, &SchemaError{
				Path:    joinPath(path, prop.Name),
				Code:    ErrReservedName,
				Message: fmt.Sprintf("property name cannot end in %q", quad.LinkSuffix),
			}
		}
		seen[prop.Name] = true

		child, err := c.compile(prop.Schema, joinPath(path, prop.Name))
		if err != nil {
			return nil, err
		}
		n.fields = append(n.fields, field{name: prop.Name, node: child})
	}
	return n, nil
}

func resolveKind(doc *Document, path string) (Kind, error) {
	if doc.Type == "" {
		switch {
		case doc.Properties != nil:
			return KindObject, nil
		case doc.Items != nil:
			return KindArray, nil
		default:
			return 0, &SchemaError{Path: path, Code: ErrMissingType, Message: "type is required"}
		}
	}

	kind, ok := ParseKind(doc.Type)
	if !ok {
		return 0, &SchemaError{
			Path:    path,
			Code:    ErrUnknownType,
			Message: fmt.Sprintf("unknown type %q", doc.Type),
		}
	}
	return kind, nil
}

func (c *compiler) warnf(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

func displayPath(path string) string {
	if path == "" {
		return "(root)"
	}
	return path
}

// Warnings lists schema keywords that were accepted but have no effect.
func (c *Compiled) Warnings() []string {
	return append([]string(nil), c.warnings...)
}

// Fingerprint is a stable hash of the compiled shape. Two documents that
// compile to the same field layout share a fingerprint.
func (c *Compiled) Fingerprint() string {
	return c.fingerprint
}

// Field returns the kind of a top-level property.
func (c *Compiled) Field(name string) (Kind, bool) {
	for _, f := range c.root.fields {
		if f.name == name {
			return f.node.kind, true
		}
	}
	return 0, false
}

// FieldNames lists top-level properties in declaration order.
func (c *Compiled) FieldNames() []string {
	names := make([]string, len(c.root.fields))
	for i, f := range c.root.fields {
		names[i] = f.name
	}
	return names
}

// Describe returns the compiled layout as a value tree: each node has a
// "type", objects carry ordered "properties" and arrays carry "items".
func (c *Compiled) Describe() ir.IRObject {
	return describeNode(c.root)
}

func describeNode(n *node) ir.IRObject {
	out := ir.IRObject{"type": ir.IRString(n.kind.String())}
	switch n.kind {
	case KindObject:
		props := ir.IRArray{}
		for _, f := range n.fields {
			props = append(props, ir.IRObject{
				"name":   ir.IRString(f.name),
				"schema": describeNode(f.node),
			})
		}
		out["properties"] = props
	case KindArray:
		out["items"] = describeNode(n.items)
	}
	return out
}
