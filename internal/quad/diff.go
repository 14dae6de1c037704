package quad

// Delta is the minimal change turning one quad set into another.
// Both lists are in canonical order.
type Delta struct {
	Add    []Quad `json:"add"`
	Remove []Quad `json:"remove"`
}

// Empty reports whether applying the delta would change nothing.
func (d Delta) Empty() bool {
	return len(d.Add) == 0 && len(d.Remove) == 0
}

// Diff computes the quads to add and remove so that a store holding old ends
// up holding new. Neither input is modified.
//
// Both lists are sorted and deduplicated, then walked once in a merge join:
// a quad only in new is added, a quad only in old is removed, and a quad in
// both is left alone.
func Diff(old, new []Quad) Delta {
	o := Sorted(old)
	n := Sorted(new)

	var d Delta
	i, j := 0, 0
	for i < len(o) && j < len(n) {
		switch c := Compare(n[j], o[i]); {
		case c < 0:
			d.Add = append(d.Add, n[j])
			j++
		case c > 0:
			d.Remove = append(d.Remove, o[i])
			i++
		default:
			i++
			j++
		}
	}
	d.Remove = append(d.Remove, o[i:]...)
	d.Add = append(d.Add, n[j:]...)
	return d
}
