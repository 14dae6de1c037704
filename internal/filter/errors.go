package filter

import "fmt"

// UnsupportedOperatorError reports an operator with no registered handler.
type UnsupportedOperatorError struct {
	Op string
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("unsupported operator: %s", e.Op)
}

// ExprError reports a supported operator applied to unusable arguments.
type ExprError struct {
	Op      string
	Message string
}

func (e *ExprError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// ParseError reports malformed RQL text. Pos is a byte offset.
type ParseError struct {
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("rql: position %d: %s", e.Pos, e.Message)
}
