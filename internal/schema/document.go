package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is a schema as written by the user: a JSON-Schema-like tree.
// Keys other than type, properties, items and extends are ignored.
type Document struct {
	Type        string     `json:"type,omitempty" yaml:"type,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  Properties `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items       *Document  `json:"items,omitempty" yaml:"items,omitempty"`

	// Extends is kept verbatim so it can be reported; it has no effect.
	Extends any `json:"extends,omitempty" yaml:"extends,omitempty"`
}

// Property is one named field of an object schema.
type Property struct {
	Name   string
	Schema *Document
}

// Properties is an ordered property list. Declaration order is the order in
// which quads are emitted, so decoding preserves it.
type Properties []Property

// UnmarshalJSON reads a JSON object keeping key order.
func (p *Properties) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("properties must be an object, got %v", tok)
	}

	props := Properties{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)

		var doc *Document
		if err := dec.Decode(&doc); err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
		props = append(props, Property{Name: name, Schema: doc})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*p = props
	return nil
}

// MarshalJSON writes properties as a JSON object in declaration order.
func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prop.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(prop.Schema)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", prop.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML reads a YAML mapping keeping key order.
func (p *Properties) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: properties must be a mapping", node.Line)
	}

	props := make(Properties, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]

		var doc *Document
		if !isYAMLNull(valNode) {
			doc = &Document{}
			if err := valNode.Decode(doc); err != nil {
				return fmt.Errorf("property %q: %w", keyNode.Value, err)
			}
		}
		props = append(props, Property{Name: keyNode.Value, Schema: doc})
	}

	*p = props
	return nil
}

// MarshalYAML writes properties as a YAML mapping in declaration order.
func (p Properties) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, prop := range p {
		var val yaml.Node
		if err := val.Encode(prop.Schema); err != nil {
			return nil, fmt.Errorf("property %q: %w", prop.Name, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: prop.Name},
			&val,
		)
	}
	return node, nil
}

func isYAMLNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

// Lookup returns the schema of the named property.
func (p Properties) Lookup(name string) (*Document, bool) {
	for _, prop := range p {
		if prop.Name == name {
			return prop.Schema, true
		}
	}
	return nil, false
}

// Object builds an object schema from properties in order.
func Object(props ...Property) *Document {
	return &Document{Type: "object", Properties: props}
}

// Prop builds a named property.
func Prop(name string, doc *Document) Property {
	return Property{Name: name, Schema: doc}
}

// ArrayOf builds an array schema.
func ArrayOf(items *Document) *Document {
	return &Document{Type: "array", Items: items}
}

// Scalar builds a leaf schema of the given type.
func Scalar(typ string) *Document {
	return &Document{Type: typ}
}
