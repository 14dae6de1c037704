package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/perstore/internal/cayley"
	"github.com/roach88/perstore/internal/config"
	"github.com/roach88/perstore/internal/filter"
	"github.com/roach88/perstore/internal/graph"
	"github.com/roach88/perstore/internal/schema"
	"github.com/roach88/perstore/internal/sqlite"
	"github.com/roach88/perstore/internal/store"
	"github.com/roach88/perstore/internal/testutil"
)

func TestResolveConfigDefaults(t *testing.T) {
	cfg, err := ResolveConfig(&RootOptions{})
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestResolveConfigFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "perstore.yaml", `backend:
  kind: sqlite
  path: file.db
schema: schema.yaml
label: from-file
log_level: warn
`)

	cfg, err := ResolveConfig(&RootOptions{
		Config:  path,
		Backend: "cayley",
		URL:     "http://localhost:64210",
		Label:   "from-flag",
		Verbose: true,
	})
	require.NoError(t, err)

	assert.Equal(t, config.BackendCayley, cfg.Backend.Kind)
	assert.Equal(t, "http://localhost:64210", cfg.Backend.URL)
	assert.Equal(t, filepath.Join(dir, "schema.yaml"), cfg.Schema)
	assert.Equal(t, "from-flag", cfg.Label)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestResolveConfigErrors(t *testing.T) {
	_, err := ResolveConfig(&RootOptions{Backend: "mongo"})
	require.Error(t, err)
	assert.Equal(t, ErrCodeConfig, ErrorCode(err))

	_, err = ResolveConfig(&RootOptions{Config: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	assert.Equal(t, ErrCodeConfig, ErrorCode(err))

	_, err = ResolveConfig(&RootOptions{Backend: "cayley"})
	require.Error(t, err, "cayley needs a url")
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := config.Default()
	cfg.LogLevel = "warn"

	logger := NewLogger(buf, cfg)
	logger.Info("hidden")
	logger.Warn("shown", "id", "foo")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "level=WARN msg=shown id=foo")
}

func TestOpenBackend(t *testing.T) {
	logger := testutil.DiscardLogger()

	cfg := config.Default()
	cfg.Backend.Kind = config.BackendMemory
	b, closeFn, err := OpenBackend(cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &graph.Memory{}, b)
	assert.NoError(t, closeFn())

	cfg = config.Default()
	cfg.Backend.Path = filepath.Join(t.TempDir(), "x.db")
	b, closeFn, err = OpenBackend(cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Backend{}, b)
	assert.NoError(t, closeFn())

	cfg = config.Default()
	cfg.Backend.Kind = config.BackendCayley
	cfg.Backend.URL = "http://localhost:64210"
	cfg.Backend.Timeout = time.Second
	cfg.Backend.RateLimit = 5
	b, closeFn, err = OpenBackend(cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &cayley.Client{}, b)
	assert.NoError(t, closeFn())

	cfg.Backend.URL = "localhost"
	_, _, err = OpenBackend(cfg, logger)
	require.Error(t, err)
	assert.Equal(t, ErrCodeBackend, ErrorCode(err))
}

func TestLoadSchemaErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadSchema(filepath.Join(dir, "missing.yaml"))
	assert.Equal(t, ErrCodeNotFound, ErrorCode(err))

	path := writeFile(t, dir, "schema.txt", "type: object")
	_, err = LoadSchema(path)
	assert.Equal(t, schema.ErrDocument, ErrorCode(err))

	path = writeFile(t, dir, "array.yaml", "type: object\nproperties:\n  tags: {type: array}\n")
	_, err = LoadSchema(path)
	assert.Equal(t, schema.ErrArrayNoItems, ErrorCode(err))
	assert.Contains(t, err.Error(), path)
}

func TestLoadObject(t *testing.T) {
	dir := t.TempDir()

	obj, err := LoadObject("-", strings.NewReader(`{"id":"a","n":1}`))
	require.NoError(t, err)
	assert.Len(t, obj, 2)

	_, err = LoadObject(filepath.Join(dir, "missing.json"), nil)
	assert.Equal(t, ErrCodeNotFound, ErrorCode(err))

	_, err = LoadObject(writeFile(t, dir, "bad.json", `{"id":`), nil)
	assert.Equal(t, ErrCodeLoadFailed, ErrorCode(err))

	_, err = LoadObject(writeFile(t, dir, "str.json", `"text"`), nil)
	assert.Equal(t, ErrCodeLoadFailed, ErrorCode(err))
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{store.ErrNotFound, ErrCodeNotFound},
		{fmt.Errorf("get: %w", store.ErrNotFound), ErrCodeNotFound},
		{&store.OverwriteConflictError{ID: "a"}, ErrCodeConflict},
		{&store.PartialUpdateError{ID: "a", Phase: "add", Err: &store.StoreError{Op: "write", Err: errors.New("x")}}, ErrCodePartial},
		{&store.StoreError{Op: "query", Err: context.DeadlineExceeded}, ErrCodeBackend},
		{&schema.SchemaError{Code: schema.ErrIDField}, schema.ErrIDField},
		{&schema.ValueError{Path: "age", Kind: schema.KindInteger}, ErrCodeInvalidValue},
		{&filter.UnsupportedOperatorError{Op: "gt"}, ErrCodeFilter},
		{&filter.ParseError{Pos: 1, Message: "x"}, ErrCodeFilter},
		{errors.New("other"), ErrCodeGeneric},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorCode(tt.err), "%v", tt.err)
	}
}

func TestReportErrorExitCodes(t *testing.T) {
	f := &OutputFormatter{Format: "text", Writer: &bytes.Buffer{}}

	err := reportError(f, "load", &LoadError{Code: ErrCodeNotFound, Message: "missing"})
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	err = reportError(f, "backend", &store.StoreError{Op: "write", Err: errors.New("down")})
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	err = reportError(f, "get", store.ErrNotFound)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.True(t, exitErr.Reported)
}
