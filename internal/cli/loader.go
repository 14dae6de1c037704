package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/roach88/perstore/internal/filter"
	"github.com/roach88/perstore/internal/ir"
	"github.com/roach88/perstore/internal/schema"
	"github.com/roach88/perstore/internal/store"
)

// Error code constants - unified across all CLI commands.
// Schema errors keep their own E2xx codes.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeConfig       = "E002" // Configuration invalid
	ErrCodeNoSchema     = "E003" // No schema configured
	ErrCodeLoadFailed   = "E004" // Object file unreadable or not a JSON object
	ErrCodeNotFound     = "E005" // Path or object not found
	ErrCodeBackend      = "E006" // Backend unavailable or failed
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeInvalidValue = "E008" // Object does not fit the schema
	ErrCodeConflict     = "E009" // Object exists and overwriting is disabled
	ErrCodeFilter       = "E010" // Filter unparsable or unsupported
	ErrCodePartial      = "E011" // Update applied only partly
)

// LoadError represents an error that occurred while loading a schema or
// object file.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadSchema reads and compiles a schema document.
func LoadSchema(path string) (*schema.Compiled, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema file not found: %s", path), Err: err}
	}

	doc, err := schema.LoadFile(path)
	if err != nil {
		return nil, convertSchemaError(err, path)
	}
	compiled, err := schema.Compile(doc)
	if err != nil {
		return nil, convertSchemaError(err, path)
	}
	return compiled, nil
}

func convertSchemaError(err error, path string) *LoadError {
	var schemaErr *schema.SchemaError
	if errors.As(err, &schemaErr) {
		return &LoadError{Code: schemaErr.Code, Message: fmt.Sprintf("%s: %v", path, schemaErr), Err: err}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("%s: %v", path, err), Err: err}
}

// LoadObject reads a JSON object from path, or from stdin when path is "-".
func LoadObject(path string, stdin io.Reader) (ir.IRObject, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("object file not found: %s", path), Err: err}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("read %s: %v", path, err), Err: err}
	}

	v, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("%s: invalid JSON: %v", path, err), Err: err}
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("%s: not a JSON object", path)}
	}
	return obj, nil
}

// ErrorCode maps an error to the code reported to the user.
func ErrorCode(err error) string {
	var (
		loadErr     *LoadError
		schemaErr   *schema.SchemaError
		valueErr    *schema.ValueError
		unsupported *filter.UnsupportedOperatorError
		parseErr    *filter.ParseError
		exprErr     *filter.ExprError
		storeErr    *store.StoreError
	)
	switch {
	case errors.As(err, &loadErr):
		return loadErr.Code
	case store.IsNotFound(err):
		return ErrCodeNotFound
	case store.IsOverwriteConflict(err):
		return ErrCodeConflict
	case store.IsPartialUpdate(err):
		return ErrCodePartial
	case errors.As(err, &schemaErr):
		return schemaErr.Code
	case errors.As(err, &valueErr):
		return ErrCodeInvalidValue
	case errors.As(err, &unsupported), errors.As(err, &parseErr), errors.As(err, &exprErr):
		return ErrCodeFilter
	case errors.As(err, &storeErr):
		return ErrCodeBackend
	}
	return ErrCodeGeneric
}

// reportError prints err through the formatter and returns the ExitError the
// command should fail with. Load, configuration and backend problems exit
// with ExitCommandError, everything else with ExitFailure.
func reportError(f *OutputFormatter, message string, err error) error {
	code := ErrorCode(err)
	if outErr := f.Error(code, fmt.Sprintf("%s: %v", message, err), nil); outErr != nil {
		return outErr
	}

	exit := ExitFailure
	var loadErr *LoadError
	if errors.As(err, &loadErr) || code == ErrCodeBackend {
		exit = ExitCommandError
	}
	return &ExitError{Code: exit, Message: message, Err: err, Reported: true}
}
