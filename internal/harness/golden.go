package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/perstore/internal/ir"
)

// goldenDir holds trace fixtures, relative to the test's package.
const goldenDir = "testdata/golden"

// MarshalTrace renders a scenario trace as canonical JSON:
//
//	{"scenario_name":"...","trace":[{"op":"put","quads":2,"result":"foo","step":0},...]}
//
// step, op and quads are always present; id, filter, result and error only
// when set. Golden files hold exactly these bytes.
func MarshalTrace(scenarioName string, result *Result) ([]byte, error) {
	events := make([]any, 0, len(result.Trace))
	for _, ev := range result.Trace {
		events = append(events, traceEntry(ev))
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"trace":         events,
	})
}

func traceEntry(ev TraceEvent) map[string]any {
	entry := map[string]any{
		"step":  ev.Step,
		"op":    ev.Op,
		"quads": ev.Quads,
	}
	optional := map[string]string{"id": ev.ID, "filter": ev.Filter, "error": ev.Error}
	for k, v := range optional {
		if v != "" {
			entry[k] = v
		}
	}
	if ev.Result != nil {
		entry["result"] = ev.Result
	}
	return entry
}

// RunWithGolden runs scenario and checks its trace against
// testdata/golden/<name>.golden. Regenerate fixtures with
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden checks an existing result's trace against its fixture.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	trace, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}
	goldie.New(t,
		goldie.WithFixtureDir(goldenDir),
		goldie.WithNameSuffix(".golden"),
	).Assert(t, scenarioName, trace)
	return nil
}
