package schema

import "fmt"

// Kind is the compiled type of a schema node.
type Kind int

const (
	KindObject Kind = iota
	KindArray
	KindString
	KindDate
	KindNumber
	KindInteger
	KindBoolean
)

var kindNames = map[Kind]string{
	KindObject:  "object",
	KindArray:   "array",
	KindString:  "string",
	KindDate:    "date",
	KindNumber:  "number",
	KindInteger: "integer",
	KindBoolean: "boolean",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a schema "type" keyword to a Kind.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Scalar reports whether values of the kind are stored as a single quad.
func (k Kind) Scalar() bool {
	return k != KindObject && k != KindArray
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
