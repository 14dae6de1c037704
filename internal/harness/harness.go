package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/perstore/internal/filter"
	"github.com/roach88/perstore/internal/graph"
	"github.com/roach88/perstore/internal/ir"
	"github.com/roach88/perstore/internal/quad"
	"github.com/roach88/perstore/internal/schema"
	"github.com/roach88/perstore/internal/store"
	"github.com/roach88/perstore/internal/testutil"
)

// Error kinds a step may expect.
const (
	KindNotFound            = "not_found"
	KindOverwriteConflict   = "overwrite_conflict"
	KindUnsupportedOperator = "unsupported_operator"
	KindValue               = "value"
	KindSchema              = "schema"
	KindParse               = "parse"
	KindPartialUpdate       = "partial_update"
	KindStore               = "store"
	KindOther               = "error"
)

var validErrorKinds = map[string]bool{
	KindNotFound:            true,
	KindOverwriteConflict:   true,
	KindUnsupportedOperator: true,
	KindValue:               true,
	KindSchema:              true,
	KindParse:               true,
	KindPartialUpdate:       true,
	KindStore:               true,
}

// Harness runs the steps of one scenario against a fresh store.
type Harness struct {
	store    *store.Store
	backend  *graph.Memory
	compiled *schema.Compiled
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory backend, with ids handed out
// from the scenario's ids list so that traces are reproducible.
//
// Step failures and failed assertions are reported in the result. The
// returned error is reserved for scenarios that cannot run at all, such as
// one whose schema does not compile.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	compiled, err := schema.Compile(scenario.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	backend := graph.NewMemory()
	opts := []store.Option{
		store.WithIDGenerator(testutil.NewFixedIDs(scenario.IDs...)),
		store.WithLogger(testutil.DiscardLogger()),
	}
	if scenario.Label != "" {
		opts = append(opts, store.WithLabel(scenario.Label))
	}
	st := store.New(backend, opts...)
	if err := st.SetSchema(compiled); err != nil {
		return nil, fmt.Errorf("failed to set schema: %w", err)
	}

	h := &Harness{
		store:    st,
		backend:  backend,
		compiled: compiled,
		logger:   testutil.DiscardLogger(),
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		event, failure := h.execute(ctx, i, step)
		result.AddTrace(event)
		if failure != "" {
			result.AddError(fmt.Sprintf("step %d (%s): %s", i, step.Op, failure))
		}
	}

	for _, msg := range EvaluateAssertions(ctx, h, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// execute runs one step and checks its expectations. The returned failure
// message is empty when the step behaved as expected.
func (h *Harness) execute(ctx context.Context, index int, step Step) (TraceEvent, string) {
	event := TraceEvent{Step: index, Op: step.Op, ID: step.ID, Filter: step.Filter}

	got, err := h.invoke(ctx, step)
	event.Quads = h.backend.Len()
	if err != nil {
		event.Error = errorKind(err)
		h.logger.Debug("step failed", "step", index, "op", step.Op, "error", err)
		switch {
		case step.ExpectError == "":
			return event, fmt.Sprintf("unexpected error: %v", err)
		case step.ExpectError != event.Error:
			return event, fmt.Sprintf("expected %s error, got %s: %v", step.ExpectError, event.Error, err)
		}
		return event, ""
	}

	event.Result = got
	if step.ExpectError != "" {
		return event, fmt.Sprintf("expected %s error, got success", step.ExpectError)
	}
	if step.Expect == nil {
		return event, ""
	}
	if msg := h.compare(step.Op, step.Expect, got); msg != "" {
		return event, msg
	}
	return event, ""
}

// invoke performs the step's operation and returns its result as a value.
func (h *Harness) invoke(ctx context.Context, step Step) (ir.IRValue, error) {
	switch step.Op {
	case OpPut:
		obj, err := toObject(step.Object)
		if err != nil {
			return nil, fmt.Errorf("object: %w", err)
		}
		var opts []store.PutOption
		if step.ID != "" {
			opts = append(opts, store.WithID(step.ID))
		}
		if step.Overwrite != nil {
			opts = append(opts, store.WithOverwrite(*step.Overwrite))
		}
		id, err := h.store.Put(ctx, obj, opts...)
		if err != nil {
			return nil, err
		}
		return ir.IRString(id), nil

	case OpGet:
		obj, err := h.store.Get(ctx, step.ID)
		if err != nil {
			return nil, err
		}
		return obj, nil

	case OpDelete:
		deleted, err := h.store.Delete(ctx, step.ID)
		if err != nil {
			return nil, err
		}
		return ir.IRBool(deleted), nil

	case OpQuery:
		expr, err := filter.Parse(step.Filter)
		if err != nil {
			return nil, err
		}
		results, err := h.store.Query(ctx, expr)
		if err != nil {
			return nil, err
		}
		list := make(ir.IRArray, len(results))
		for i, obj := range results {
			list[i] = obj
		}
		return list, nil
	}
	return nil, fmt.Errorf("unknown op %q", step.Op)
}

// compare checks a step result against the scenario's expect value.
func (h *Harness) compare(op string, expect any, got ir.IRValue) string {
	want, err := ir.FromGo(expect)
	if err != nil {
		return fmt.Sprintf("invalid expect value: %v", err)
	}

	switch op {
	case OpPut, OpDelete:
		if !ir.Equal(want, got) {
			return fmt.Sprintf("expected %s, got %s", formatValue(want), formatValue(got))
		}
	case OpGet:
		wantObj, ok := want.(ir.IRObject)
		if !ok {
			return fmt.Sprintf("expect of get must be an object, got %s", formatValue(want))
		}
		same, err := h.sameObject(wantObj, got.(ir.IRObject))
		if err != nil {
			return err.Error()
		}
		if !same {
			return fmt.Sprintf("expected %s, got %s", formatValue(want), formatValue(got))
		}
	case OpQuery:
		wantList, ok := want.(ir.IRArray)
		if !ok {
			return fmt.Sprintf("expect of query must be a list, got %s", formatValue(want))
		}
		same, err := h.sameSet(wantList, got.(ir.IRArray))
		if err != nil {
			return err.Error()
		}
		if !same {
			return fmt.Sprintf("expected %s, got %s", formatValue(want), formatValue(got))
		}
	}
	return ""
}

// encodingKey renders an object as its sorted quads. Two objects with the
// same key store identically, so comparing keys ignores the representation
// differences a round trip introduces: integer versus number, date versus
// string, scalar array order.
func (h *Harness) encodingKey(obj ir.IRObject) (string, error) {
	quads, err := h.compiled.Encode("", obj, nil)
	if err != nil {
		return "", fmt.Errorf("cannot encode %s: %w", formatValue(obj), err)
	}
	lines := make([]string, len(quads))
	for i, q := range quad.Sorted(quads) {
		lines[i] = q.String()
	}
	return strings.Join(lines, "\n"), nil
}

func (h *Harness) sameObject(want, got ir.IRObject) (bool, error) {
	wantKey, err := h.encodingKey(want)
	if err != nil {
		return false, err
	}
	gotKey, err := h.encodingKey(got)
	if err != nil {
		return false, err
	}
	return wantKey == gotKey, nil
}

// sameSet compares two result lists as multisets.
func (h *Harness) sameSet(want, got ir.IRArray) (bool, error) {
	if len(want) != len(got) {
		return false, nil
	}
	keys := func(list ir.IRArray) ([]string, error) {
		out := make([]string, len(list))
		for i, v := range list {
			obj, ok := v.(ir.IRObject)
			if !ok {
				return nil, fmt.Errorf("result %d is not an object: %s", i, formatValue(v))
			}
			k, err := h.encodingKey(obj)
			if err != nil {
				return nil, err
			}
			out[i] = k
		}
		sort.Strings(out)
		return out, nil
	}

	wantKeys, err := keys(want)
	if err != nil {
		return false, err
	}
	gotKeys, err := keys(got)
	if err != nil {
		return false, err
	}
	for i := range wantKeys {
		if wantKeys[i] != gotKeys[i] {
			return false, nil
		}
	}
	return true, nil
}

// errorKind classifies an error returned by the store.
func errorKind(err error) string {
	var (
		unsupported *filter.UnsupportedOperatorError
		parseErr    *filter.ParseError
		exprErr     *filter.ExprError
		valueErr    *schema.ValueError
		schemaErr   *schema.SchemaError
		storeErr    *store.StoreError
	)
	switch {
	case store.IsNotFound(err):
		return KindNotFound
	case store.IsOverwriteConflict(err):
		return KindOverwriteConflict
	case store.IsPartialUpdate(err):
		return KindPartialUpdate
	case errors.As(err, &unsupported):
		return KindUnsupportedOperator
	case errors.As(err, &parseErr), errors.As(err, &exprErr):
		return KindParse
	case errors.As(err, &valueErr):
		return KindValue
	case errors.As(err, &schemaErr):
		return KindSchema
	case errors.As(err, &storeErr):
		return KindStore
	}
	return KindOther
}

func toObject(m map[string]any) (ir.IRObject, error) {
	v, err := ir.FromGo(m)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("object must be a mapping")
	}
	return obj, nil
}

func formatValue(v ir.IRValue) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
