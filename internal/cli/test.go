package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/perstore/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // rewrite golden files from the current traces
	Filter string // glob over scenario file names, without extension
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult summarizes a test run.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (r *TestResult) add(s ScenarioResult) {
	r.Scenarios = append(r.Scenarios, s)
	r.Total++
	if s.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

// failure is the error a run with failed scenarios exits with. The results
// have already been printed.
func (r *TestResult) failure() error {
	if r.Failed == 0 {
		return nil
	}
	return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d scenario(s) failed", r.Failed), Reported: true}
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario.yaml|scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run YAML scenarios, each against a fresh in-memory store.

A scenario passes when every step returns what it expects and every
assertion holds. When golden/<name>.golden exists beside the scenario file,
the recorded trace must also match it byte for byte.

Exit codes:
  0 - every scenario passed
  1 - at least one scenario failed
  2 - the scenario path could not be read

Examples:
  perstore test ./scenarios
  perstore test ./scenarios --filter "update-*"
  perstore test ./scenarios --update
  perstore test ./scenarios/basic.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden files from the current traces")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose file name matches this glob")

	return cmd
}

func runTests(opts *TestOptions, path string, cmd *cobra.Command) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenario path not found: %s", path))
	}
	files, err := findScenarioFiles(path, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	r := &scenarioRunner{opts: opts, cmd: cmd}
	if opts.Format != "json" {
		r.progress = cmd.OutOrStdout()
	}

	result := TestResult{Scenarios: []ScenarioResult{}}
	for _, file := range files {
		result.add(r.run(file))
	}

	if opts.Format == "json" {
		return writeTestJSON(cmd.OutOrStdout(), result)
	}
	return writeTestSummary(cmd.OutOrStdout(), result)
}

// findScenarioFiles lists the scenario files under path whose base name,
// without extension, matches filter.
func findScenarioFiles(path, filter string) ([]string, error) {
	files, err := harness.ScenarioFiles(path)
	if err != nil || filter == "" {
		return files, err
	}

	var kept []string
	for _, f := range files {
		matched, err := filepath.Match(filter, scenarioStem(f))
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if matched {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

func scenarioStem(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// goldenFilePath is golden/<stem>.golden in the scenario's directory.
func goldenFilePath(scenarioFile string) string {
	return filepath.Join(filepath.Dir(scenarioFile), "golden", scenarioStem(scenarioFile)+".golden")
}

// scenarioRunner runs scenario files one at a time, printing a line per
// scenario to progress when it is set.
type scenarioRunner struct {
	opts     *TestOptions
	cmd      *cobra.Command
	progress io.Writer
}

func (r *scenarioRunner) run(file string) ScenarioResult {
	s, err := harness.LoadScenario(file)
	if err != nil {
		return r.report(filepath.Base(file), "", fmt.Sprintf("failed to load scenario: %v", err))
	}

	result, err := harness.Run(r.cmd.Context(), s)
	if err != nil {
		return r.report(s.Name, "", fmt.Sprintf("execution failed: %v", err))
	}
	trace, err := harness.MarshalTrace(s.Name, result)
	if err != nil {
		return r.report(s.Name, "", fmt.Sprintf("failed to marshal trace: %v", err))
	}

	note := ""
	if r.opts.Update {
		if err := writeGolden(goldenFilePath(file), trace); err != nil {
			return r.report(s.Name, "", fmt.Sprintf("failed to update golden file: %v", err))
		}
		note = " (golden updated)"
	} else if msg := compareGolden(goldenFilePath(file), trace); msg != "" {
		return r.report(s.Name, "", msg)
	}
	return r.report(s.Name, note, result.Errors...)
}

// report records a scenario; it passed when there are no errors.
func (r *scenarioRunner) report(name, note string, errs ...string) ScenarioResult {
	res := ScenarioResult{Name: name, Pass: len(errs) == 0, Errors: errs}
	if r.progress == nil {
		return res
	}
	if res.Pass {
		fmt.Fprintf(r.progress, "\u2713 %s%s\n", name, note)
		return res
	}
	fmt.Fprintf(r.progress, "\u2717 %s\n", name)
	for _, e := range errs {
		fmt.Fprintf(r.progress, "  %s\n", e)
	}
	return res
}

// compareGolden returns a failure message, or "" when the trace matches or
// there is no golden file.
func compareGolden(path string, trace []byte) string {
	golden, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ""
	case err != nil:
		return fmt.Sprintf("golden comparison failed: %v", err)
	case !bytes.Equal(golden, trace):
		return "trace does not match golden file (run with --update to regenerate)"
	}
	return ""
}

func writeGolden(path string, trace []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, trace, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

func writeTestJSON(w io.Writer, result TestResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return err
	}
	return result.failure()
}

func writeTestSummary(w io.Writer, result TestResult) error {
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if err := result.failure(); err != nil {
		return err
	}
	fmt.Fprintln(w, "\u2713 All scenarios passed")
	return nil
}
