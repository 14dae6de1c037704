package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/perstore/internal/cayley"
	"github.com/roach88/perstore/internal/config"
	"github.com/roach88/perstore/internal/graph"
	"github.com/roach88/perstore/internal/sqlite"
	"github.com/roach88/perstore/internal/store"
)

// ResolveConfig loads the configuration file named by --config, or the
// defaults when there is none, and applies flag overrides.
func ResolveConfig(opts *RootOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return config.Config{}, &LoadError{Code: ErrCodeConfig, Message: err.Error(), Err: err}
		}
		cfg = loaded
	}

	if opts.Backend != "" {
		cfg.Backend.Kind = opts.Backend
	}
	if opts.DB != "" {
		cfg.Backend.Path = opts.DB
	}
	if opts.URL != "" {
		cfg.Backend.URL = opts.URL
	}
	if opts.Schema != "" {
		cfg.Schema = opts.Schema
	}
	if opts.Label != "" {
		cfg.Label = opts.Label
	}
	if opts.Metrics != "" {
		cfg.MetricsFile = opts.Metrics
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, &LoadError{Code: ErrCodeConfig, Message: err.Error(), Err: err}
	}
	return cfg, nil
}

// NewLogger builds the CLI logger: text records on w at the configured level.
func NewLogger(w io.Writer, cfg config.Config) *slog.Logger {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// OpenBackend opens the configured quad backend. The returned function
// releases it.
func OpenBackend(cfg config.Config, logger *slog.Logger) (store.Backend, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend.Kind {
	case config.BackendMemory:
		logger.Debug("using in-memory backend")
		return graph.NewMemory(), noop, nil

	case config.BackendSQLite:
		b, err := sqlite.Open(cfg.Backend.Path)
		if err != nil {
			return nil, nil, &LoadError{Code: ErrCodeBackend, Message: err.Error(), Err: err}
		}
		logger.Debug("opened sqlite backend", "path", cfg.Backend.Path)
		return b, b.Close, nil

	case config.BackendCayley:
		c, err := cayley.New(cfg.Backend.URL,
			cayley.WithTimeout(cfg.Backend.Timeout),
			cayley.WithRateLimit(cfg.Backend.RateLimit),
		)
		if err != nil {
			return nil, nil, &LoadError{Code: ErrCodeBackend, Message: err.Error(), Err: err}
		}
		logger.Debug("using cayley backend", "url", cfg.Backend.URL, "timeout", cfg.Backend.Timeout)
		return c, noop, nil
	}
	return nil, nil, &LoadError{Code: ErrCodeConfig, Message: fmt.Sprintf("unknown backend kind %q", cfg.Backend.Kind)}
}

// session is the state shared by the store commands.
type session struct {
	store     *store.Store
	formatter *OutputFormatter
	logger    *slog.Logger
	close     func() error

	// metrics is nil unless a metrics file is configured.
	metrics     *prometheus.Registry
	metricsFile string
}

// openSession resolves configuration, compiles the schema and opens a store
// on the configured backend.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	cfg, err := ResolveConfig(opts)
	if err != nil {
		return nil, reportError(formatter, "invalid configuration", err)
	}
	logger := NewLogger(cmd.ErrOrStderr(), cfg)

	if cfg.Schema == "" {
		err := &LoadError{Code: ErrCodeNoSchema, Message: "no schema configured (use --schema or the schema key of the config file)"}
		return nil, reportError(formatter, "cannot open store", err)
	}
	compiled, err := LoadSchema(cfg.Schema)
	if err != nil {
		return nil, reportError(formatter, "cannot load schema", err)
	}

	backend, closeFn, err := OpenBackend(cfg, logger)
	if err != nil {
		return nil, reportError(formatter, "cannot open backend", err)
	}

	storeOpts := []store.Option{
		store.WithLogger(logger),
		store.WithIDField(cfg.IDField),
	}
	if cfg.Label != "" {
		storeOpts = append(storeOpts, store.WithLabel(cfg.Label))
	}
	var reg *prometheus.Registry
	if cfg.MetricsFile != "" {
		reg = prometheus.NewRegistry()
		storeOpts = append(storeOpts, store.WithMetrics(store.NewMetrics(reg)))
	}
	st := store.New(backend, storeOpts...)
	if err := st.SetSchema(compiled); err != nil {
		closeFn()
		return nil, reportError(formatter, "cannot use schema", &LoadError{Code: ErrorCode(err), Message: err.Error(), Err: err})
	}

	if label := st.Label(); label != nil {
		logger.Debug("store opened", "backend", cfg.Backend.Kind, "label", *label)
	} else {
		logger.Debug("store opened", "backend", cfg.Backend.Kind)
	}

	return &session{
		store:       st,
		formatter:   formatter,
		logger:      logger,
		close:       closeFn,
		metrics:     reg,
		metricsFile: cfg.MetricsFile,
	}, nil
}

// Close releases the backend and writes the metrics file, logging failures.
func (s *session) Close() {
	if err := s.close(); err != nil {
		s.logger.Warn("closing backend failed", "error", err)
	}
	if s.metrics == nil {
		return
	}
	if err := prometheus.WriteToTextfile(s.metricsFile, s.metrics); err != nil {
		s.logger.Warn("writing metrics failed", "path", s.metricsFile, "error", err)
	}
}
