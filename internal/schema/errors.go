package schema

import (
	"fmt"

	"cuelang.org/go/cue/token"

	"github.com/roach88/perstore/internal/ir"
)

// Schema error codes (E200-E209)
const (
	ErrNilNode          = "E200" // schema node is missing
	ErrUnknownType      = "E201" // type is not one of the supported kinds
	ErrMissingType      = "E202" // no type and shape cannot be inferred
	ErrArrayNoItems     = "E203" // array without items
	ErrMisplacedKeyword = "E204" // properties/items on a kind that does not take them
	ErrPropertyName     = "E205" // empty or duplicate property name
	ErrReservedName     = "E206" // property name collides with link predicates
	ErrRootNotObject    = "E207" // root schema must describe an object
	ErrIDField          = "E208" // id field missing or not a string
	ErrDocument         = "E209" // schema document could not be read
)

// SchemaError reports a malformed schema. It is raised at compile time,
// before any object is processed.
type SchemaError struct {
	Path    string    `json:"path"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Pos     token.Pos `json:"-"` // CUE position if available
}

func (e *SchemaError) Error() string {
	path := e.Path
	if path == "" {
		path = "(root)"
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("[%s] %s:%d:%d: %s: %s",
			e.Code, e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), path, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, path, e.Message)
}

// ValueError reports a value that does not fit its schema kind, either an
// object being encoded or a stored string that cannot be coerced back.
type ValueError struct {
	Path  string
	Kind  Kind
	Value ir.IRValue
}

func (e *ValueError) Error() string {
	path := e.Path
	if path == "" {
		path = "(root)"
	}
	return fmt.Sprintf("%s: %s value %s does not fit schema", path, e.Kind, describe(e.Value))
}

// describe renders a value for error messages without dumping large trees.
func describe(v ir.IRValue) string {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return "null"
	case ir.IRString:
		return fmt.Sprintf("string %q", string(val))
	case ir.IRArray:
		return fmt.Sprintf("array of %d", len(val))
	case ir.IRObject:
		return fmt.Sprintf("object with %d keys", len(val))
	default:
		s, _ := ir.Lexical(v)
		return fmt.Sprintf("%T %s", v, s)
	}
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func indexPath(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}
