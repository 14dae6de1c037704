package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/perstore/internal/filter"
	"github.com/roach88/perstore/internal/ir"
	"github.com/roach88/perstore/internal/quad"
	"github.com/roach88/perstore/internal/schema"
)

type putConfig struct {
	id        string
	overwrite bool
}

// PutOption configures a single Put.
type PutOption func(*putConfig)

// WithID sets the id, taking precedence over the object's id field.
func WithID(id string) PutOption {
	return func(c *putConfig) {
		c.id = id
	}
}

// WithOverwrite controls whether Put may replace an existing object
// (default true).
func WithOverwrite(allow bool) PutOption {
	return func(c *putConfig) {
		c.overwrite = allow
	}
}

// Get returns the object with id, coerced to its schema types.
// Returns ErrNotFound when there is none.
func (s *Store) Get(ctx context.Context, id string) (obj ir.IRObject, err error) {
	defer s.track("get", time.Now(), &err)

	c, err := s.requireSchema()
	if err != nil {
		return nil, err
	}
	raw, found, err := s.fetch(ctx, c, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return c.Coerce(raw)
}

// Put stores obj and returns its id. The id is WithID, else the object's id
// field, else a generated one. Putting over an existing object sends only
// the quads that changed.
func (s *Store) Put(ctx context.Context, obj ir.IRObject, opts ...PutOption) (id string, err error) {
	defer s.track("put", time.Now(), &err)

	c, err := s.requireSchema()
	if err != nil {
		return "", err
	}

	cfg := putConfig{overwrite: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	id, err = s.resolveID(obj, cfg.id)
	if err != nil {
		return "", err
	}

	next := make(ir.IRObject, len(obj)+1)
	for k, v := range obj {
		next[k] = v
	}
	next[s.idField] = ir.IRString(id)

	// Reject invalid objects before touching the backend.
	fresh, err := c.Encode(id, next, s.label)
	if err != nil {
		return "", err
	}

	raw, found, err := s.fetch(ctx, c, id)
	if err != nil {
		return "", err
	}
	if found && !cfg.overwrite {
		return "", &OverwriteConflictError{ID: id}
	}

	if !found {
		if err := s.backend.Write(ctx, fresh); err != nil {
			return "", &StoreError{Op: "write", Err: err}
		}
		s.metrics.added(len(fresh))
		s.logger.Debug("object created", "id", id, "quads", len(fresh))
		return id, nil
	}

	delta, err := c.Diff(id, raw, next, s.label)
	if err != nil {
		return "", fmt.Errorf("diff stored object %q: %w", id, err)
	}
	if err := s.applyDelta(ctx, id, delta); err != nil {
		return "", err
	}
	s.logger.Debug("object updated", "id", id, "added", len(delta.Add), "removed", len(delta.Remove))
	return id, nil
}

func (s *Store) resolveID(obj ir.IRObject, explicit string) (string, error) {
	id := explicit
	if id == "" {
		switch v := obj[s.idField].(type) {
		case nil, ir.IRNull:
		case ir.IRString:
			id = string(v)
		default:
			return "", &schema.ValueError{Path: s.idField, Kind: schema.KindString, Value: v}
		}
	}
	if id == "" {
		id = s.ids.Generate()
	}
	if quad.IsCVT(id) {
		return "", &ReservedIDError{Field: s.idField, ID: id}
	}
	return id, nil
}

// applyDelta sends a diff to the backend. Without an Applier the remove and
// add phases are separate requests.
func (s *Store) applyDelta(ctx context.Context, id string, delta quad.Delta) error {
	if delta.Empty() {
		return nil
	}

	if a, ok := s.backend.(Applier); ok {
		if err := a.Apply(ctx, delta.Remove, delta.Add); err != nil {
			return &StoreError{Op: "apply", Err: err}
		}
		s.metrics.removed(len(delta.Remove))
		s.metrics.added(len(delta.Add))
		return nil
	}

	if err := ctx.Err(); err != nil {
		return &StoreError{Op: "delete", Err: err}
	}
	if len(delta.Remove) > 0 {
		if err := s.backend.Delete(ctx, delta.Remove); err != nil {
			return &StoreError{Op: "delete", Err: err}
		}
		s.metrics.removed(len(delta.Remove))
	}
	if len(delta.Add) > 0 {
		if err := s.backend.Write(ctx, delta.Add); err != nil {
			s.logger.Error("partial update",
				"id", id,
				"pending", len(delta.Add),
				"error", err,
			)
			return &PartialUpdateError{
				ID:      id,
				Phase:   "add",
				Pending: delta.Add,
				Err:     &StoreError{Op: "write", Err: err},
			}
		}
		s.metrics.added(len(delta.Add))
	}
	return nil
}

// Delete removes the object with id and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (deleted bool, err error) {
	defer s.track("delete", time.Now(), &err)

	c, err := s.requireSchema()
	if err != nil {
		return false, err
	}
	raw, found, err := s.fetch(ctx, c, id)
	if err != nil || !found {
		return false, err
	}

	quads, err := c.Encode(id, raw, s.label)
	if err != nil {
		return false, fmt.Errorf("encode stored object %q: %w", id, err)
	}
	if err := s.backend.Delete(ctx, quads); err != nil {
		return false, &StoreError{Op: "delete", Err: err}
	}
	s.metrics.removed(len(quads))
	s.logger.Debug("object deleted", "id", id, "quads", len(quads))
	return true, nil
}

// Query returns every object matching expr, coerced to schema types. The
// zero Expr matches all objects. Results are neither sorted nor limited.
func (s *Store) Query(ctx context.Context, expr filter.Expr) (results []ir.IRObject, err error) {
	defer s.track("query", time.Now(), &err)

	c, err := s.requireSchema()
	if err != nil {
		return nil, err
	}
	constraint, err := filter.Translate(expr)
	if err != nil {
		return nil, err
	}

	raw, err := s.backend.Query(ctx, c.Project(constraint))
	if err != nil {
		return nil, &StoreError{Op: "query", Err: err}
	}

	results = make([]ir.IRObject, 0, len(raw))
	for _, r := range raw {
		obj, err := c.Coerce(r)
		if err != nil {
			return nil, err
		}
		results = append(results, obj)
	}
	return results, nil
}

// fetch returns the stored form of the object with id: every scalar as its
// lexical string, as the backend returned it.
func (s *Store) fetch(ctx context.Context, c *schema.Compiled, id string) (ir.IRObject, bool, error) {
	constraint, err := filter.Translate(filter.Eq(s.idField, ir.IRString(id)))
	if err != nil {
		return nil, false, err
	}
	results, err := s.backend.Query(ctx, c.Project(constraint))
	if err != nil {
		return nil, false, &StoreError{Op: "query", Err: err}
	}
	if len(results) == 0 {
		return nil, false, nil
	}
	return results[0], true, nil
}

// track logs and counts an operation when it returns.
func (s *Store) track(op string, start time.Time, errp *error) {
	status := "ok"
	switch err := *errp; {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case IsOverwriteConflict(err):
		status = "conflict"
	case IsPartialUpdate(err):
		status = "partial"
	default:
		status = "error"
	}
	s.metrics.observe(op, status, time.Since(start).Seconds())
	if *errp != nil && status == "error" {
		s.logger.Debug("store operation failed", "op", op, "error", *errp)
	}
}
