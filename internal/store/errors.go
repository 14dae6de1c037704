package store

import (
	"errors"
	"fmt"

	"github.com/roach88/perstore/internal/ir"
	"github.com/roach88/perstore/internal/quad"
	"github.com/roach88/perstore/internal/schema"
)

var (
	// ErrSchemaAlreadySet is returned when a schema is set a second time.
	ErrSchemaAlreadySet = errors.New("schema already set")

	// ErrNoSchema is returned by operations called before SetSchema.
	ErrNoSchema = errors.New("no schema set")

	// ErrNotFound is returned by Get when no object has the id.
	ErrNotFound = errors.New("object not found")
)

// OverwriteConflictError is returned by Put with overwriting disabled when an
// object with the id already exists.
type OverwriteConflictError struct {
	ID string
}

func (e *OverwriteConflictError) Error() string {
	return fmt.Sprintf("object %q already exists", e.ID)
}

// ReservedIDError is returned by Put for an id inside the subject space of
// anonymous intermediate nodes. Backends never list such subjects as
// objects, so the object could not be read back. It unwraps to a
// *schema.ValueError on the id field.
type ReservedIDError struct {
	Field string
	ID    string
}

func (e *ReservedIDError) Error() string {
	return fmt.Sprintf("%s: id %q is reserved: ids starting with %q name anonymous nodes",
		e.Field, e.ID, quad.CVTPrefix)
}

func (e *ReservedIDError) Unwrap() error {
	return &schema.ValueError{Path: e.Field, Kind: schema.KindString, Value: ir.IRString(e.ID)}
}

// StoreError wraps a backend failure. It is never retried here; retries are
// the transport's business.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// PartialUpdateError reports a diffed put whose remove phase reached the
// backend but whose add phase did not. Pending holds the quads that were
// never added. There is no rollback.
type PartialUpdateError struct {
	ID      string
	Phase   string
	Pending []quad.Quad

	// Err is the *StoreError of the failed phase.
	Err error
}

func (e *PartialUpdateError) Error() string {
	return fmt.Sprintf("partial update of %q: %s phase failed with %d quads pending: %v",
		e.ID, e.Phase, len(e.Pending), e.Err)
}

func (e *PartialUpdateError) Unwrap() error {
	return e.Err
}

// IsOverwriteConflict reports whether err is an OverwriteConflictError.
// Uses errors.As to handle wrapped errors.
func IsOverwriteConflict(err error) bool {
	var oe *OverwriteConflictError
	return errors.As(err, &oe)
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPartialUpdate reports whether err is a PartialUpdateError.
func IsPartialUpdate(err error) bool {
	var pe *PartialUpdateError
	return errors.As(err, &pe)
}
