package ir

import (
	"math"
	"strconv"
	"time"
)

// Lexical returns the string form under which a scalar is stored as a quad
// object. It reports false for IRNull, IRArray and IRObject, which have no
// lexical form.
//
// The same function is used when writing quads and when a backend compares a
// query constraint against stored objects, so the two can never disagree.
func Lexical(v IRValue) (string, bool) {
	switch val := v.(type) {
	case IRString:
		return string(val), true
	case IRInt:
		return strconv.FormatInt(int64(val), 10), true
	case IRNumber:
		return formatNumber(float64(val)), true
	case IRBool:
		return strconv.FormatBool(bool(val)), true
	case IRDate:
		return val.Format(time.RFC3339Nano), true
	default:
		return "", false
	}
}

// formatNumber renders integral values without an exponent or fraction
// (5 rather than 5e+00) and everything else in the shortest exact form.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
