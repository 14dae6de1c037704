package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/perstore/internal/filter"
	"github.com/roach88/perstore/internal/ir"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [rql]",
		Short: "Find objects matching an RQL filter",
		Long: `Print every object matching an RQL filter. Without a filter every
object is printed.

Supported operators: eq and and. Nested fields are addressed with a
path list.

Examples:
  perstore query 'name=bar'
  perstore query 'and(eq(status,paid),eq((address,city),Bergen))'`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := ""
			if len(args) == 1 {
				text = args[0]
			}
			return runQuery(rootOpts, text, cmd)
		},
	}

	return cmd
}

func runQuery(opts *RootOptions, text string, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	expr, err := filter.Parse(text)
	if err != nil {
		return reportError(s.formatter, "invalid filter", err)
	}
	s.formatter.VerboseLog("Filter: %s", expr)

	results, err := s.store.Query(cmd.Context(), expr)
	if err != nil {
		return reportError(s.formatter, "query failed", err)
	}

	list := make(ir.IRArray, len(results))
	for i, obj := range results {
		list[i] = obj
	}
	return s.formatter.Success(list)
}
