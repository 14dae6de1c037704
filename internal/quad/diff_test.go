package quad

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffScalarChange(t *testing.T) {
	old := []Quad{
		New("foo", "id", "foo", nil),
		New("foo", "num", "5", nil),
	}
	updated := []Quad{
		New("foo", "id", "foo", nil),
		New("foo", "num", "6", nil),
	}

	d := Diff(old, updated)

	assert.Equal(t, []Quad{New("foo", "num", "6", nil)}, d.Add)
	assert.Equal(t, []Quad{New("foo", "num", "5", nil)}, d.Remove)
}

func TestDiffIdentical(t *testing.T) {
	quads := []Quad{
		New("foo", "num", "5", nil),
		New("foo", "id", "foo", nil),
	}
	shuffled := []Quad{quads[1], quads[0]}

	d := Diff(quads, shuffled)

	assert.True(t, d.Empty())
	assert.Empty(t, d.Add)
	assert.Empty(t, d.Remove)
}

func TestDiffFromEmpty(t *testing.T) {
	updated := []Quad{
		New("foo", "num", "5", nil),
		New("foo", "id", "foo", nil),
	}

	d := Diff(nil, updated)

	assert.Equal(t, []Quad{New("foo", "id", "foo", nil), New("foo", "num", "5", nil)}, d.Add)
	assert.Empty(t, d.Remove)
}

func TestDiffToEmpty(t *testing.T) {
	old := []Quad{New("foo", "id", "foo", nil)}

	d := Diff(old, nil)

	assert.Empty(t, d.Add)
	assert.Equal(t, old, d.Remove)
}

func TestDiffLabelOnlyChange(t *testing.T) {
	old := []Quad{New("foo", "id", "foo", nil)}
	updated := []Quad{New("foo", "id", "foo", Label(""))}

	d := Diff(old, updated)

	assert.Equal(t, updated, d.Add)
	assert.Equal(t, old, d.Remove)
}

func TestDiffCollapsesDuplicates(t *testing.T) {
	old := []Quad{New("foo", "tag", "a", nil), New("foo", "tag", "a", nil)}
	updated := []Quad{New("foo", "tag", "a", nil), New("foo", "tag", "b", nil), New("foo", "tag", "b", nil)}

	d := Diff(old, updated)

	assert.Equal(t, []Quad{New("foo", "tag", "b", nil)}, d.Add)
	assert.Empty(t, d.Remove)
}

func TestDiffDoesNotMutateInputs(t *testing.T) {
	old := []Quad{New("b", "p", "o", nil), New("a", "p", "o", nil)}
	updated := []Quad{New("c", "p", "o", nil), New("a", "p", "o", nil)}

	Diff(old, updated)

	assert.Equal(t, "b", old[0].Subject)
	assert.Equal(t, "c", updated[0].Subject)
}

// Applying the delta to old as a set must produce new as a set.
func TestDiffApplyReachesTarget(t *testing.T) {
	old := []Quad{
		New("s", "a", "1", nil),
		New("s", "b", "2", nil),
		New("s", "c", "3", Label("x")),
		New("t", "a", "1", nil),
	}
	updated := []Quad{
		New("s", "a", "1", nil),
		New("s", "b", "20", nil),
		New("s", "c", "3", nil),
		New("u", "a", "1", nil),
	}

	d := Diff(old, updated)

	set := map[string]Quad{}
	for _, q := range old {
		set[q.String()] = q
	}
	for _, q := range d.Remove {
		_, ok := set[q.String()]
		assert.True(t, ok, "removed quad %s must exist", q)
		delete(set, q.String())
	}
	for _, q := range d.Add {
		_, ok := set[q.String()]
		assert.False(t, ok, "added quad %s must be new", q)
		set[q.String()] = q
	}

	var got []Quad
	for _, q := range set {
		got = append(got, q)
	}
	assert.Equal(t, Sorted(updated), Sorted(got))
}
