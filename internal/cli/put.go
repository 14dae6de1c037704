package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/perstore/internal/ir"
	"github.com/roach88/perstore/internal/store"
)

// PutOptions holds flags for the put command.
type PutOptions struct {
	*RootOptions
	ID          string
	NoOverwrite bool
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "put <object.json|->",
		Short: "Store an object",
		Long: `Store a JSON object and print its id.

The id is --id, else the object's id field, else a generated UUID.
Replacing an existing object writes only the quads that changed.

Examples:
  perstore put order.json --schema order.yaml
  echo '{"name":"bar"}' | perstore put - --schema person.json
  perstore put order.json --id o-1 --no-overwrite`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "object id (overrides the object's id field)")
	cmd.Flags().BoolVar(&opts.NoOverwrite, "no-overwrite", false, "fail if an object with this id exists")

	return cmd
}

func runPut(opts *PutOptions, path string, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	obj, err := LoadObject(path, cmd.InOrStdin())
	if err != nil {
		return reportError(s.formatter, "cannot read object", err)
	}

	var putOpts []store.PutOption
	if opts.ID != "" {
		putOpts = append(putOpts, store.WithID(opts.ID))
	}
	if opts.NoOverwrite {
		putOpts = append(putOpts, store.WithOverwrite(false))
	}

	id, err := s.store.Put(cmd.Context(), obj, putOpts...)
	if err != nil {
		return reportError(s.formatter, "put failed", err)
	}
	s.formatter.VerboseLog("Stored %s", id)

	if s.formatter.Format == "json" {
		return s.formatter.Success(ir.IRObject{"id": ir.IRString(id)})
	}
	return s.formatter.Success(id)
}
