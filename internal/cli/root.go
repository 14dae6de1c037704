package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/perstore/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Config is the configuration file. Flags below override its values.
	Config string

	Backend string
	DB      string
	URL     string
	Schema  string
	Label   string
	Metrics string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the perstore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "perstore",
		Short: "perstore - schema-driven object persistence on a quad store",
		Long: `Store JSON objects as quads in a graph backend.

Objects are described by a JSON-Schema-like document. Nested objects and
array items become anonymous compound nodes, updates send only the quads
that changed, and RQL filters are answered by example queries.`,
		Version:       ir.ToolVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Config, "config", "", "configuration file")
	flags.StringVar(&opts.Backend, "backend", "", "backend kind (memory|sqlite|cayley)")
	flags.StringVar(&opts.DB, "db", "", "SQLite database file")
	flags.StringVar(&opts.URL, "url", "", "Cayley server URL")
	flags.StringVar(&opts.Schema, "schema", "", "schema document (.json, .yaml, .cue)")
	flags.StringVar(&opts.Label, "label", "", "label for every stored quad")
	flags.StringVar(&opts.Metrics, "metrics-file", "", "write store metrics here in Prometheus text format")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewPutCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewDiffCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
