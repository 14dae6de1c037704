package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/perstore/internal/ir"
)

// maxConcurrentGets bounds the number of objects fetched at once.
const maxConcurrentGets = 8

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>...",
		Short: "Fetch objects by id",
		Long: `Fetch one or more objects by id and print them.

A single id prints the object; several ids print a list in argument order.
Fails if any id has no object.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runGet(opts *RootOptions, ids []string, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	results := make([]ir.IRObject, len(ids))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(maxConcurrentGets)
	for i, id := range ids {
		g.Go(func() error {
			obj, err := s.store.Get(ctx, id)
			if err != nil {
				return &getError{id: id, err: err}
			}
			results[i] = obj
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return reportError(s.formatter, "get failed", err)
	}

	if len(results) == 1 {
		return s.formatter.Success(results[0])
	}
	list := make(ir.IRArray, len(results))
	for i, obj := range results {
		list[i] = obj
	}
	return s.formatter.Success(list)
}

// getError names the id whose fetch failed.
type getError struct {
	id  string
	err error
}

func (e *getError) Error() string {
	return e.id + ": " + e.err.Error()
}

func (e *getError) Unwrap() error {
	return e.err
}
