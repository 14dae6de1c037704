// Package quad defines the subject-predicate-object-label statement stored in
// the graph, its canonical order, and the merge-join diff between two quad
// lists.
package quad

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// CVTPrefix starts the subject of every anonymous intermediate node
// ("compound value type") created for nested objects and structured array
// items.
const CVTPrefix = "/cvt/"

// LinkSuffix is appended to a field name to form the predicate that links a
// CVT node to its parent.
const LinkSuffix = ".cvt"

// Quad is one stored statement. Object is always a string; scalars are stored
// in their lexical form. A nil Label means the quad has no label, which is
// distinct from the empty label.
type Quad struct {
	Subject   string  `json:"subject"`
	Predicate string  `json:"predicate"`
	Object    string  `json:"object"`
	Label     *string `json:"label,omitempty"`
}

// New builds a quad. Pass a nil label for an unlabeled quad.
func New(subject, predicate, object string, label *string) Quad {
	return Quad{Subject: subject, Predicate: predicate, Object: object, Label: label}
}

// Label returns a pointer to a copy of s, for building labeled quads.
func Label(s string) *string {
	return &s
}

// LinkPredicate returns the predicate linking a CVT node of field to its parent.
func LinkPredicate(field string) string {
	return field + LinkSuffix
}

// IsCVT reports whether subject names an anonymous intermediate node.
func IsCVT(subject string) bool {
	return strings.HasPrefix(subject, CVTPrefix)
}

// String renders the quad in N-Quads-like form for logs and test output.
func (q Quad) String() string {
	if q.Label == nil {
		return fmt.Sprintf("%q %q %q .", q.Subject, q.Predicate, q.Object)
	}
	return fmt.Sprintf("%q %q %q %q .", q.Subject, q.Predicate, q.Object, *q.Label)
}

// Compare orders quads lexicographically by subject, predicate, object, then
// label. An absent label sorts before every present label, including "".
// Fields are compared one at a time, so no choice of field content can make two
// different quads compare equal.
func Compare(a, b Quad) int {
	if c := cmp.Compare(a.Subject, b.Subject); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Predicate, b.Predicate); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Object, b.Object); c != 0 {
		return c
	}
	return compareLabel(a.Label, b.Label)
}

func compareLabel(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return cmp.Compare(*a, *b)
	}
}

// Equal reports whether two quads are the same statement.
func Equal(a, b Quad) bool {
	return Compare(a, b) == 0
}

// Sort orders quads canonically in place.
func Sort(quads []Quad) {
	slices.SortStableFunc(quads, Compare)
}

// Sorted returns a canonically ordered copy with duplicates removed.
func Sorted(quads []Quad) []Quad {
	out := slices.Clone(quads)
	Sort(out)
	return slices.CompactFunc(out, Equal)
}
