package filter

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/perstore/internal/ir"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokText
	tokLParen
	tokRParen
	tokComma
	tokAnd
	tokOr
	tokEq
)

var tokenNames = map[tokenKind]string{
	tokEOF:    "end of input",
	tokText:   "name or value",
	tokLParen: "'('",
	tokRParen: "')'",
	tokComma:  "','",
	tokAnd:    "'&'",
	tokOr:     "'|'",
	tokEq:     "'='",
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

var (
	intPattern     = regexp.MustCompile(`^-?[0-9]+$`)
	decimalPattern = regexp.MustCompile(`^-?([0-9]+\.[0-9]*|\.[0-9]+|[0-9]+)([eE][-+]?[0-9]+)?$`)
)

var typePrefixes = []string{"string:", "number:", "boolean:", "date:"}

// Parse reads an RQL filter expression.
//
//	id=foo                         eq(id,foo)
//	name=bar&num=5                 and(eq(name,bar),eq(num,5))
//	num=eq=5                       eq(num,5)
//	(address,city)=Oslo            eq((address,city),Oslo)
//	eq(id,string:5)                id must equal the string "5"
//
// Tokens are percent-decoded. Values are typed automatically (true, false,
// null, integers, decimals, otherwise strings) unless they carry a string:,
// number:, boolean: or date: prefix. Empty input yields the zero Expr.
func Parse(text string) (Expr, error) {
	toks, err := lex(text)
	if err != nil {
		return Expr{}, err
	}
	p := &parser{toks: toks}
	if p.peek().kind == tokEOF {
		return Expr{}, nil
	}

	e, err := p.query()
	if err != nil {
		return Expr{}, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return Expr{}, p.unexpected(t)
	}
	return e, nil
}

func lex(s string) ([]token, error) {
	var toks []token
	start := -1

	flush := func(end int) {
		if start < 0 {
			return
		}
		raw := s[start:end]
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			lead := len(raw) - len(strings.TrimLeft(raw, " \t\n\r"))
			toks = append(toks, token{kind: tokText, text: trimmed, pos: start + lead})
		}
		start = -1
	}

	for i := 0; i < len(s); i++ {
		var kind tokenKind
		switch s[i] {
		case '(':
			kind = tokLParen
		case ')':
			kind = tokRParen
		case ',':
			kind = tokComma
		case '&':
			kind = tokAnd
		case '|':
			kind = tokOr
		case '=':
			kind = tokEq
		default:
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
		toks = append(toks, token{kind: kind, pos: i})
	}
	flush(len(s))
	toks = append(toks, token{kind: tokEOF, pos: len(s)})
	return toks, nil
}

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token {
	return p.toks[p.i]
}

func (p *parser) peekAt(n int) token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) expect(kind tokenKind) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, &ParseError{Pos: t.pos, Message: fmt.Sprintf("expected %s, found %s", tokenNames[kind], describeToken(t))}
	}
	return t, nil
}

func (p *parser) unexpected(t token) error {
	return &ParseError{Pos: t.pos, Message: fmt.Sprintf("unexpected %s", describeToken(t))}
}

func describeToken(t token) string {
	if t.kind == tokText {
		return fmt.Sprintf("%q", t.text)
	}
	return tokenNames[t.kind]
}

// query := term (('&' | '|') term)*
func (p *parser) query() (Expr, error) {
	first, err := p.term()
	if err != nil {
		return Expr{}, err
	}

	terms := []any{first}
	var joiner token
	for k := p.peek().kind; k == tokAnd || k == tokOr; k = p.peek().kind {
		t := p.next()
		if joiner.kind != tokEOF && t.kind != joiner.kind {
			return Expr{}, &ParseError{Pos: t.pos, Message: "mixing '&' and '|' requires parentheses"}
		}
		joiner = t
		term, err := p.term()
		if err != nil {
			return Expr{}, err
		}
		terms = append(terms, term)
	}

	if len(terms) == 1 {
		return first, nil
	}
	if joiner.kind == tokOr {
		return Call("or", terms...), nil
	}
	return Call("and", terms...), nil
}

// term := name '(' args ')' | path '=' [op '='] value | '(' query ')'
func (p *parser) term() (Expr, error) {
	t := p.peek()
	switch t.kind {
	case tokText:
		if p.peekAt(1).kind == tokLParen {
			return p.call()
		}
		p.next()
		name, err := decode(t)
		if err != nil {
			return Expr{}, err
		}
		return p.comparison(ir.IRString(name))

	case tokLParen:
		if path, ok, err := p.tryPathList(); err != nil {
			return Expr{}, err
		} else if ok {
			return p.comparison(path)
		}
		p.next()
		e, err := p.query()
		if err != nil {
			return Expr{}, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return Expr{}, err
		}
		return e, nil

	default:
		return Expr{}, p.unexpected(t)
	}
}

// tryPathList consumes "(a,b,...)=" style field lists. It leaves the input
// untouched when the parenthesis opens a group instead.
func (p *parser) tryPathList() (ir.IRArray, bool, error) {
	j := 1
	var segs []token
	for {
		t := p.peekAt(j)
		if t.kind != tokText {
			return nil, false, nil
		}
		segs = append(segs, t)
		sep := p.peekAt(j + 1)
		if sep.kind == tokRParen {
			if p.peekAt(j+2).kind != tokEq {
				return nil, false, nil
			}
			break
		}
		if sep.kind != tokComma {
			return nil, false, nil
		}
		j += 2
	}

	path := make(ir.IRArray, len(segs))
	for i, seg := range segs {
		s, err := decode(seg)
		if err != nil {
			return nil, false, err
		}
		path[i] = ir.IRString(s)
	}
	p.i += j + 2 // segments, separators and the closing parenthesis
	return path, true, nil
}

// comparison parses the part after a field: '=' value or '=' op '=' value.
func (p *parser) comparison(path ir.IRValue) (Expr, error) {
	if _, err := p.expect(tokEq); err != nil {
		return Expr{}, err
	}

	op := "eq"
	if p.peek().kind == tokText && p.peekAt(1).kind == tokEq {
		t := p.next()
		name, err := decode(t)
		if err != nil {
			return Expr{}, err
		}
		op = name
		p.next()
	}

	value, err := p.arg()
	if err != nil {
		return Expr{}, err
	}
	if _, isExpr := value.(Expr); isExpr {
		return Expr{}, &ParseError{Pos: p.peek().pos, Message: "comparison value cannot be a call"}
	}
	return Call(op, path, value), nil
}

// call := name '(' [arg (',' arg)*] ')'
func (p *parser) call() (Expr, error) {
	nameTok := p.next()
	name, err := decode(nameTok)
	if err != nil {
		return Expr{}, err
	}
	if _, err := p.expect(tokLParen); err != nil {
		return Expr{}, err
	}

	args := []any{}
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.arg()
			if err != nil {
				return Expr{}, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if _, err := p.expect(tokRParen); err != nil {
		return Expr{}, err
	}
	return Call(name, args...), nil
}

// arg := call | '(' [value (',' value)*] ')' | value
func (p *parser) arg() (any, error) {
	t := p.peek()
	switch t.kind {
	case tokText:
		if p.peekAt(1).kind == tokLParen {
			return p.call()
		}
		p.next()
		return typedValue(t)

	case tokLParen:
		p.next()
		list := ir.IRArray{}
		if p.peek().kind != tokRParen {
			for {
				item, err := p.arg()
				if err != nil {
					return nil, err
				}
				v, ok := item.(ir.IRValue)
				if !ok {
					return nil, &ParseError{Pos: t.pos, Message: "lists may only hold values"}
				}
				list = append(list, v)
				if p.peek().kind != tokComma {
					break
				}
				p.next()
			}
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return list, nil

	default:
		return nil, p.unexpected(t)
	}
}

func decode(t token) (string, error) {
	s, err := url.PathUnescape(t.text)
	if err != nil {
		return "", &ParseError{Pos: t.pos, Message: fmt.Sprintf("bad percent-encoding in %q", t.text)}
	}
	return s, nil
}

func typedValue(t token) (ir.IRValue, error) {
	// Prefixes are matched before decoding so an encoded colon stays literal.
	for _, prefix := range typePrefixes {
		if !strings.HasPrefix(t.text, prefix) {
			continue
		}
		rest := token{kind: tokText, text: t.text[len(prefix):], pos: t.pos + len(prefix)}
		s, err := decode(rest)
		if err != nil {
			return nil, err
		}
		return convertPrefixed(prefix, s, t.pos)
	}

	s, err := decode(t)
	if err != nil {
		return nil, err
	}
	return autoType(s), nil
}

func convertPrefixed(prefix, s string, pos int) (ir.IRValue, error) {
	switch prefix {
	case "string:":
		return ir.IRString(s), nil
	case "number:":
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, &ParseError{Pos: pos, Message: fmt.Sprintf("invalid number %q", s)}
		}
		return ir.IRNumber(f), nil
	case "boolean:":
		switch s {
		case "true":
			return ir.IRBool(true), nil
		case "false":
			return ir.IRBool(false), nil
		}
		return nil, &ParseError{Pos: pos, Message: fmt.Sprintf("invalid boolean %q", s)}
	default:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, s); err == nil {
				return ir.NewIRDate(ts), nil
			}
		}
		return nil, &ParseError{Pos: pos, Message: fmt.Sprintf("invalid date %q", s)}
	}
}

// autoType applies RQL's implicit conversions to a decoded value.
func autoType(s string) ir.IRValue {
	switch s {
	case "true":
		return ir.IRBool(true)
	case "false":
		return ir.IRBool(false)
	case "null":
		return ir.IRNull{}
	}
	if intPattern.MatchString(s) {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return ir.IRInt(i)
		}
	}
	if decimalPattern.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return ir.IRNumber(f)
		}
	}
	return ir.IRString(s)
}

func hasTypePrefix(s string) bool {
	for _, prefix := range typePrefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
