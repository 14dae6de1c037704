package ir

// Equal reports whether two values are logically equal.
//
// IRInt and IRNumber compare by numeric value, IRDate by instant, and object
// keys holding IRNull count as absent. Array order is significant.
func Equal(a, b IRValue) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}

	if an, ok := numeric(a); ok {
		bn, ok := numeric(b)
		return ok && an == bn
	}

	switch av := a.(type) {
	case IRString:
		bv, ok := b.(IRString)
		return ok && av == bv
	case IRBool:
		bv, ok := b.(IRBool)
		return ok && av == bv
	case IRDate:
		bv, ok := b.(IRDate)
		return ok && av.Time.Equal(bv.Time)
	case IRArray:
		bv, ok := b.(IRArray)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case IRObject:
		bv, ok := b.(IRObject)
		if !ok {
			return false
		}
		return objectsEqual(av, bv)
	default:
		return false
	}
}

func objectsEqual(a, b IRObject) bool {
	for k, v := range a {
		if !Equal(v, b[k]) {
			return false
		}
	}
	for k, v := range b {
		if _, ok := a[k]; !ok && !IsNull(v) {
			return false
		}
	}
	return true
}

func numeric(v IRValue) (float64, bool) {
	switch n := v.(type) {
	case IRInt:
		return float64(n), true
	case IRNumber:
		return float64(n), true
	default:
		return 0, false
	}
}
