package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"

	"github.com/google/uuid"

	"github.com/roach88/perstore/internal/ir"
	"github.com/roach88/perstore/internal/quad"
)

// cvtNamespace scopes the name-based uuids of CVT nodes.
var cvtNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/roach88/perstore/cvt"))

// Encode flattens value into quads rooted at subject, in schema declaration
// order. Absent and null fields emit nothing. Nested objects and object array
// items become CVT nodes linked to their parent by a "<field>.cvt" quad whose
// subject is the CVT and whose object is the parent.
//
// CVT ids are derived from the parent, the field and the label; array items
// also hash their own content. Encoding equal objects therefore always yields
// equal quads, whatever order a backend hands array items back in.
func (c *Compiled) Encode(subject string, value ir.IRObject, label *string) ([]quad.Quad, error) {
	e := &encoder{label: label}
	if err := e.object(c.root, subject, value, ""); err != nil {
		return nil, err
	}
	return e.quads, nil
}

// Validate reports whether value can be encoded under the schema.
func (c *Compiled) Validate(value ir.IRObject) error {
	_, err := c.Encode("", value, nil)
	return err
}

// Diff encodes both versions of an object and returns the quads that turn the
// stored form of old into the stored form of new.
func (c *Compiled) Diff(subject string, old, new ir.IRObject, label *string) (quad.Delta, error) {
	oldQuads, err := c.Encode(subject, old, label)
	if err != nil {
		return quad.Delta{}, err
	}
	newQuads, err := c.Encode(subject, new, label)
	if err != nil {
		return quad.Delta{}, err
	}
	return quad.Diff(oldQuads, newQuads), nil
}

type encoder struct {
	label *string
	quads []quad.Quad
}

func (e *encoder) emit(subject, predicate, object string) {
	e.quads = append(e.quads, quad.New(subject, predicate, object, e.label))
}

func (e *encoder) object(n *node, subject string, obj ir.IRObject, path string) error {
	for _, f := range n.fields {
		v, ok := obj[f.name]
		if !ok || ir.IsNull(v) {
			continue
		}
		if err := e.field(f.node, subject, f.name, v, joinPath(path, f.name)); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) field(n *node, subject, predicate string, v ir.IRValue, path string) error {
	switch n.kind {
	case KindArray:
		arr, ok := v.(ir.IRArray)
		if !ok {
			return &ValueError{Path: path, Kind: n.kind, Value: v}
		}
		seen := map[string]int{}
		for i, item := range flatten(arr) {
			if ir.IsNull(item) {
				continue
			}
			p := indexPath(path, i)
			key, err := e.itemKey(n.items, item, p, seen)
			if err != nil {
				return err
			}
			if err := e.item(n.items, subject, predicate, item, key, p); err != nil {
				return err
			}
		}
		return nil
	default:
		return e.item(n, subject, predicate, v, "-", path)
	}
}

// itemKey names the CVT node of a structured array item: its content hash,
// suffixed with "#<n>" for the n-th repeat of equal content so duplicates
// stay distinct. Scalar items need no key.
func (e *encoder) itemKey(n *node, v ir.IRValue, path string, seen map[string]int) (string, error) {
	if n.kind != KindObject {
		return "", nil
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return "", &ValueError{Path: path, Kind: n.kind, Value: v}
	}
	key, err := e.contentKey(n, obj, path)
	if err != nil {
		return "", err
	}
	repeat := seen[key]
	seen[key]++
	if repeat > 0 {
		key += "#" + strconv.Itoa(repeat)
	}
	return key, nil
}

// item encodes a single value under predicate. key names the CVT node of an
// object value.
func (e *encoder) item(n *node, subject, predicate string, v ir.IRValue, key string, path string) error {
	if n.kind == KindObject {
		obj, ok := v.(ir.IRObject)
		if !ok {
			return &ValueError{Path: path, Kind: n.kind, Value: v}
		}
		cvt := cvtSubject(subject, predicate, key, e.label)
		e.emit(cvt, quad.LinkPredicate(predicate), subject)
		return e.object(n, cvt, obj, path)
	}

	s, err := lexicalFor(n.kind, v, path)
	if err != nil {
		return err
	}
	e.emit(subject, predicate, s)
	return nil
}

// flatten expands nested arrays in place; they share the outer predicate.
func flatten(arr ir.IRArray) ir.IRArray {
	nested := false
	for _, v := range arr {
		if _, ok := v.(ir.IRArray); ok {
			nested = true
			break
		}
	}
	if !nested {
		return arr
	}

	out := make(ir.IRArray, 0, len(arr))
	for _, v := range arr {
		if inner, ok := v.(ir.IRArray); ok {
			out = append(out, flatten(inner)...)
			continue
		}
		out = append(out, v)
	}
	return out
}

// contentKey hashes the quads an array item encodes to, independent of where
// the item sits in its array.
func (e *encoder) contentKey(n *node, obj ir.IRObject, path string) (string, error) {
	sub := &encoder{}
	if err := sub.object(n, "", obj, path); err != nil {
		return "", err
	}
	h := sha256.New()
	for _, q := range quad.Sorted(sub.quads) {
		h.Write([]byte(q.String()))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func cvtSubject(parent, predicate, key string, label *string) string {
	name := strconv.Itoa(len(parent)) + ":" + parent +
		strconv.Itoa(len(predicate)) + ":" + predicate +
		"#" + key
	if label != nil {
		name += "@" + strconv.Itoa(len(*label)) + ":" + *label
	}
	return quad.CVTPrefix + uuid.NewSHA1(cvtNamespace, []byte(name)).String()
}

// lexicalFor returns the stored form of a scalar. A string that already is a
// valid lexical form of the kind is kept verbatim, so objects read back from
// a backend re-encode to exactly the quads they came from.
func lexicalFor(kind Kind, v ir.IRValue, path string) (string, error) {
	fail := &ValueError{Path: path, Kind: kind, Value: v}

	switch kind {
	case KindString:
		if s, ok := v.(ir.IRString); ok {
			return string(s), nil
		}
	case KindDate:
		switch val := v.(type) {
		case ir.IRDate:
			s, _ := ir.Lexical(val)
			return s, nil
		case ir.IRString:
			if _, err := parseDate(string(val)); err == nil {
				return string(val), nil
			}
		}
	case KindNumber:
		switch val := v.(type) {
		case ir.IRNumber:
			if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
				return "", fail
			}
			s, _ := ir.Lexical(val)
			return s, nil
		case ir.IRInt:
			s, _ := ir.Lexical(val)
			return s, nil
		case ir.IRString:
			if _, err := parseNumber(string(val)); err == nil {
				return string(val), nil
			}
		}
	case KindInteger:
		switch val := v.(type) {
		case ir.IRInt:
			s, _ := ir.Lexical(val)
			return s, nil
		case ir.IRNumber:
			f := float64(val)
			if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
				return strconv.FormatInt(int64(f), 10), nil
			}
		case ir.IRString:
			if _, err := strconv.ParseInt(string(val), 10, 64); err == nil {
				return string(val), nil
			}
		}
	case KindBoolean:
		switch val := v.(type) {
		case ir.IRBool:
			s, _ := ir.Lexical(val)
			return s, nil
		case ir.IRString:
			if val == "true" || val == "false" {
				return string(val), nil
			}
		}
	}
	return "", fail
}
