package filter

import (
	"fmt"
	"strings"

	"github.com/roach88/perstore/internal/ir"
)

// Path addresses a possibly nested field.
type Path []string

// Expr is an operator applied to arguments. Each argument is an Expr, an
// ir.IRValue or a Path. The zero Expr matches everything.
type Expr struct {
	Op   string
	Args []any
}

// IsZero reports whether e is the empty, match-all expression.
func (e Expr) IsZero() bool {
	return e.Op == "" && len(e.Args) == 0
}

// Call builds an expression for any operator name. Translate only accepts the
// registered ones.
func Call(op string, args ...any) Expr {
	return Expr{Op: op, Args: args}
}

// Eq constrains the field at path to value. path is a field name, a Path or a
// []string; a null value leaves the field unconstrained.
func Eq(path any, value ir.IRValue) Expr {
	switch p := path.(type) {
	case string:
		return Call("eq", Path{p}, value)
	case []string:
		return Call("eq", Path(p), value)
	default:
		return Call("eq", path, value)
	}
}

// And combines terms; all must hold.
func And(terms ...Expr) Expr {
	args := make([]any, len(terms))
	for i, t := range terms {
		args[i] = t
	}
	return Call("and", args...)
}

// String renders the expression as RQL text that Parse reads back.
func (e Expr) String() string {
	if e.IsZero() {
		return ""
	}
	var b strings.Builder
	writeExpr(&b, e)
	return b.String()
}

func writeExpr(b *strings.Builder, e Expr) {
	b.WriteString(escapeText(e.Op))
	b.WriteByte('(')
	for i, arg := range e.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		writeArg(b, arg)
	}
	b.WriteByte(')')
}

func writeArg(b *strings.Builder, arg any) {
	switch a := arg.(type) {
	case Expr:
		writeExpr(b, a)
	case Path:
		if len(a) == 1 {
			b.WriteString(escapeText(a[0]))
			return
		}
		b.WriteByte('(')
		for i, seg := range a {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(escapeText(seg))
		}
		b.WriteByte(')')
	case ir.IRValue:
		writeValue(b, a)
	default:
		b.WriteString(escapeText(fmt.Sprint(a)))
	}
}

func writeValue(b *strings.Builder, v ir.IRValue) {
	switch val := v.(type) {
	case nil, ir.IRNull:
		b.WriteString("null")
	case ir.IRString:
		s := string(val)
		if _, plain := autoType(s).(ir.IRString); !plain || hasTypePrefix(s) {
			b.WriteString("string:")
		}
		b.WriteString(escapeText(s))
	case ir.IRNumber:
		s, _ := ir.Lexical(val)
		if _, isInt := autoType(s).(ir.IRInt); isInt {
			b.WriteString("number:")
		}
		b.WriteString(escapeText(s))
	case ir.IRDate:
		s, _ := ir.Lexical(val)
		b.WriteString("date:")
		b.WriteString(escapeText(s))
	case ir.IRArray:
		b.WriteByte('(')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			writeValue(b, item)
		}
		b.WriteByte(')')
	case ir.IRObject:
		// RQL has no object literal.
		b.WriteString(escapeText(fmt.Sprint(ir.ToGo(val))))
	default:
		s, _ := ir.Lexical(val)
		b.WriteString(escapeText(s))
	}
}

// escapeText percent-encodes everything outside a conservative safe set, so
// RQL delimiters inside names and values survive a round trip.
func escapeText(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&15])
	}
	return b.String()
}

func isSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.~:*!@$+/", c) >= 0
}
