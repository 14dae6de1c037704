package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/perstore/internal/ir"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an object and all of its quads",
		Long: `Delete the object with the given id, including its nested objects and
array items. Deleting an id with no object is not an error.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runDelete(opts *RootOptions, id string, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	deleted, err := s.store.Delete(cmd.Context(), id)
	if err != nil {
		return reportError(s.formatter, "delete failed", err)
	}

	if s.formatter.Format == "json" {
		return s.formatter.Success(ir.IRObject{"id": ir.IRString(id), "deleted": ir.IRBool(deleted)})
	}
	if !deleted {
		return s.formatter.Success(fmt.Sprintf("No object %s", id))
	}
	return s.formatter.Success(fmt.Sprintf("Deleted %s", id))
}
