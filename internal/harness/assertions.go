package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/perstore/internal/ir"
	"github.com/roach88/perstore/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against the harness's final
// state and returns one message per failure.
func EvaluateAssertions(ctx context.Context, h *Harness, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertQuadCount:
			err = assertQuadCount(h, a)
		case AssertStored:
			err = assertStored(ctx, h, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return failures
}

// assertQuadCount checks the number of stored quads, of one subject when
// Subject is set.
func assertQuadCount(h *Harness, a Assertion) error {
	count := h.backend.Len()
	scope := "quads in store"
	if a.Subject != "" {
		count = h.backend.Count(a.Subject)
		scope = fmt.Sprintf("quads with subject %q", a.Subject)
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertQuadCount,
			Expected: fmt.Sprintf("%d %s", a.Count, scope),
			Actual:   fmt.Sprintf("%d %s", count, scope),
		}
	}
	return nil
}

// assertStored checks the object stored under ID. A null Expect asserts that
// no such object exists.
func assertStored(ctx context.Context, h *Harness, a Assertion) error {
	got, err := h.store.Get(ctx, a.ID)
	if a.Expect == nil {
		switch {
		case store.IsNotFound(err):
			return nil
		case err != nil:
			return err
		}
		return &AssertionError{
			Type:     AssertStored,
			Expected: fmt.Sprintf("no object %q", a.ID),
			Actual:   formatValue(got),
		}
	}

	if store.IsNotFound(err) {
		return &AssertionError{
			Type:     AssertStored,
			Expected: fmt.Sprintf("object %q", a.ID),
			Actual:   "not found",
		}
	}
	if err != nil {
		return err
	}

	want, err := ir.FromGo(a.Expect)
	if err != nil {
		return fmt.Errorf("invalid expect value: %w", err)
	}
	wantObj, ok := want.(ir.IRObject)
	if !ok {
		return fmt.Errorf("expect must be an object, got %s", formatValue(want))
	}
	same, err := h.sameObject(wantObj, got)
	if err != nil {
		return err
	}
	if !same {
		return &AssertionError{
			Type:     AssertStored,
			Expected: formatValue(wantObj),
			Actual:   formatValue(got),
		}
	}
	return nil
}
