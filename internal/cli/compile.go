package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/perstore/internal/ir"
	"github.com/roach88/perstore/internal/schema"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <schema>",
		Short: "Compile a schema and print its normalized form",
		Long: `Compile a schema document (.json, .yaml, .yml or .cue).

Prints the schema's fingerprint, its normalized field tree and the
example query that fetches every object, as canonical JSON.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	compiled, err := LoadSchema(path)
	if err != nil {
		return reportError(formatter, "compilation failed", err)
	}
	formatter.VerboseLog("Compiled %s (%d fields)", path, len(compiled.FieldNames()))

	result := compileResult(compiled)

	if opts.Output != "" {
		data, err := ir.MarshalCanonical(result)
		if err != nil {
			return reportError(formatter, "compilation failed", err)
		}
		if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
			loadErr := &LoadError{Code: ErrCodeWriteFailed, Message: err.Error(), Err: err}
			return reportError(formatter, "cannot write output", loadErr)
		}
		return formatter.Success(fmt.Sprintf("Compiled schema written to %s", opts.Output))
	}
	return formatter.Success(result)
}

// compileResult is the printed form of a compiled schema.
func compileResult(c *schema.Compiled) ir.IRObject {
	warnings := make(ir.IRArray, 0, len(c.Warnings()))
	for _, w := range c.Warnings() {
		warnings = append(warnings, ir.IRString(w))
	}
	return ir.IRObject{
		"fingerprint": ir.IRString(c.Fingerprint()),
		"schema":      c.Describe(),
		"query":       c.Project(ir.IRObject{}),
		"warnings":    warnings,
	}
}
