package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/perstore/internal/ir"
	"github.com/roach88/perstore/internal/quad"
)

// DiffOptions holds flags for the diff command.
type DiffOptions struct {
	*RootOptions
	Subject string
}

// DiffResult is the quad delta between two versions of an object.
type DiffResult struct {
	Subject string      `json:"subject"`
	Add     []quad.Quad `json:"add"`
	Remove  []quad.Quad `json:"remove"`
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiffOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diff <schema> <old.json> <new.json>",
		Short: "Show the quads an update would add and remove",
		Long: `Encode two versions of an object and print the quads that turn the old
version into the new one. Nothing is read from or written to a backend.

The subject is --subject, else the new object's id field.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(opts, args[0], args[1], args[2], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Subject, "subject", "", "subject of the encoded object")

	return cmd
}

func runDiff(opts *DiffOptions, schemaPath, oldPath, newPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	compiled, err := LoadSchema(schemaPath)
	if err != nil {
		return reportError(formatter, "invalid schema", err)
	}
	oldObj, err := LoadObject(oldPath, cmd.InOrStdin())
	if err != nil {
		return reportError(formatter, "cannot read old object", err)
	}
	newObj, err := LoadObject(newPath, cmd.InOrStdin())
	if err != nil {
		return reportError(formatter, "cannot read new object", err)
	}

	subject := opts.Subject
	if subject == "" {
		id, ok := newObj["id"].(ir.IRString)
		if !ok || id == "" {
			return reportError(formatter, "no subject",
				&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("%s has no string id; use --subject", newPath)})
		}
		subject = string(id)
	}

	var label *string
	if opts.Label != "" {
		label = quad.Label(opts.Label)
	}
	delta, err := compiled.Diff(subject, oldObj, newObj, label)
	if err != nil {
		return reportError(formatter, "diff failed", err)
	}

	result := DiffResult{Subject: subject, Add: delta.Add, Remove: delta.Remove}
	if result.Add == nil {
		result.Add = []quad.Quad{}
	}
	if result.Remove == nil {
		result.Remove = []quad.Quad{}
	}

	return formatter.Success(result)
}

// renderText prints removed quads, then added ones, one per line.
func (r DiffResult) renderText(w io.Writer) error {
	if len(r.Add) == 0 && len(r.Remove) == 0 {
		_, err := fmt.Fprintln(w, "No changes")
		return err
	}
	for _, q := range r.Remove {
		if _, err := fmt.Fprintf(w, "- %s\n", q); err != nil {
			return err
		}
	}
	for _, q := range r.Add {
		if _, err := fmt.Fprintf(w, "+ %s\n", q); err != nil {
			return err
		}
	}
	return nil
}
