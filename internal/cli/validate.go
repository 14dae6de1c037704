package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/perstore/internal/schema"
)

// ValidationError describes one object that does not fit the schema.
type ValidationError struct {
	File    string `json:"file"`
	Path    string `json:"path,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Objects int               `json:"objects"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema> [object.json...]",
		Short: "Validate a schema and objects against it",
		Long: `Compile a schema and check JSON objects against it without storing them.

Every object file is checked; all problems are reported, not just the first.
With no object files only the schema itself is validated.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], args[1:], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, schemaPath string, objectPaths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	compiled, err := LoadSchema(schemaPath)
	if err != nil {
		return reportError(formatter, "invalid schema", err)
	}

	result := ValidationResult{Valid: true, Objects: len(objectPaths)}
	for _, path := range objectPaths {
		formatter.VerboseLog("Validating %s", path)
		if verr := validateObject(compiled, path, cmd); verr != nil {
			result.Valid = false
			result.Errors = append(result.Errors, *verr)
		}
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

func validateObject(c *schema.Compiled, path string, cmd *cobra.Command) *ValidationError {
	obj, err := LoadObject(path, cmd.InOrStdin())
	if err == nil {
		err = c.Validate(obj)
	}
	if err == nil {
		return nil
	}

	verr := &ValidationError{File: path, Code: ErrorCode(err), Message: err.Error()}
	var valueErr *schema.ValueError
	if errors.As(err, &valueErr) {
		verr.Path = valueErr.Path
	}
	return verr
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	if result.Objects == 0 {
		return formatter.Success("\u2713 Schema is valid")
	}
	return formatter.Success(fmt.Sprintf("\u2713 All %d object(s) valid", result.Objects))
}

func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		if err := formatter.Error(ErrCodeInvalidValue,
			fmt.Sprintf("%d object(s) invalid", len(result.Errors)), result); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		for _, e := range result.Errors {
			fmt.Fprintf(w, "\u2717 %s: [%s] %s\n", e.File, e.Code, e.Message)
		}
		fmt.Fprintf(w, "\n%d of %d object(s) invalid\n", len(result.Errors), result.Objects)
	}
	return &ExitError{
		Code:     ExitFailure,
		Message:  fmt.Sprintf("%d object(s) invalid", len(result.Errors)),
		Reported: true,
	}
}
