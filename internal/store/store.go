package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/perstore/internal/ir"
	"github.com/roach88/perstore/internal/quad"
	"github.com/roach88/perstore/internal/schema"
)

// DefaultIDField names the property that holds an object's id.
const DefaultIDField = "id"

// Backend is a quad store that answers nested queries.
type Backend interface {
	Write(ctx context.Context, quads []quad.Quad) error
	Delete(ctx context.Context, quads []quad.Quad) error
	Query(ctx context.Context, query ir.IRValue) ([]ir.IRObject, error)
}

// Applier is implemented by backends that can remove and add quads
// atomically.
type Applier interface {
	Apply(ctx context.Context, remove, add []quad.Quad) error
}

// Store is the object facade over a Backend.
type Store struct {
	backend Backend
	label   *string
	idField string
	ids     IDGenerator
	logger  *slog.Logger
	metrics *Metrics

	mu       sync.RWMutex
	compiled *schema.Compiled
}

// Option configures a Store.
type Option func(*Store)

// WithLabel stores every quad under label.
func WithLabel(label string) Option {
	return func(s *Store) {
		s.label = quad.Label(label)
	}
}

// WithIDField changes the id property (default "id").
func WithIDField(name string) Option {
	return func(s *Store) {
		s.idField = name
	}
}

// WithIDGenerator sets the generator used for objects put without an id.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		s.ids = g
	}
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithMetrics records operation metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// New creates a Store over backend. SetSchema must be called before any
// object operation.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		idField: DefaultIDField,
		ids:     UUIDGenerator{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetSchema installs the compiled schema. It can be called once; the root
// must declare a string property named by the id field.
func (s *Store) SetSchema(c *schema.Compiled) error {
	if c == nil {
		return &schema.SchemaError{Code: schema.ErrNilNode, Message: "compiled schema is nil"}
	}
	kind, ok := c.Field(s.idField)
	if !ok || kind != schema.KindString {
		return &schema.SchemaError{
			Path:    s.idField,
			Code:    schema.ErrIDField,
			Message: fmt.Sprintf("root must declare %q as a string property", s.idField),
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.compiled != nil {
		return ErrSchemaAlreadySet
	}
	s.compiled = c

	for _, w := range c.Warnings() {
		s.logger.Warn("schema warning", "warning", w)
	}
	s.logger.Debug("schema set", "fingerprint", c.Fingerprint(), "fields", len(c.FieldNames()))
	return nil
}

// Compiled returns the schema, or nil before SetSchema.
func (s *Store) Compiled() *schema.Compiled {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.compiled
}

// IDField returns the id property name.
func (s *Store) IDField() string {
	return s.idField
}

// Label returns the label quads are stored under, or nil.
func (s *Store) Label() *string {
	return s.label
}

func (s *Store) requireSchema() (*schema.Compiled, error) {
	c := s.Compiled()
	if c == nil {
		return nil, ErrNoSchema
	}
	return c, nil
}
