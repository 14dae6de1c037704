// Package cayley is a quad backend that talks to a Cayley graph server over
// its HTTP API.
//
// Queries are sent as the store projects them. A nested object appears
// under its field name, e.g. "address", while its link quad is stored
// reversed as (cvt, "address.cvt", parent). A stock Cayley MQL endpoint
// resolves "address" as a forward predicate from the parent and finds
// nothing; it would need the reverse key "!address.cvt". Flat objects and
// scalar arrays query correctly. Nested constraints and nested results need
// a server that follows the link convention, as the bundled memory and
// SQLite backends do.
package cayley

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/roach88/perstore/internal/ir"
	"github.com/roach88/perstore/internal/quad"
)

const (
	writePath  = "/api/v1/write"
	deletePath = "/api/v1/delete"
	queryPath  = "/api/v1/query/mql"

	defaultTimeout = 30 * time.Second
)

// Error is a failed request: a non-200 status or a body carrying an error
// message.
type Error struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cayley %s: HTTP request failed with code: %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("cayley %s: error response: %s", e.Path, e.Message)
}

// Client sends quads and MQL queries to a Cayley server.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Config configures a Client.
type Config struct {
	Timeout   time.Duration // HTTP timeout (default: 30s)
	RateLimit float64       // Requests per second; 0 means unlimited
	HTTP      *http.Client  // Overrides the default client, for tests
}

// Option is a functional option for Client.
type Option func(*Config)

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithRateLimit caps requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *Config) {
		c.RateLimit = rps
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) {
		c.HTTP = hc
	}
}

// New creates a client for the server at rawURL.
func New(rawURL string, opts ...Option) (*Client, error) {
	if rawURL == "" {
		return nil, errors.New("a url must be provided to create a cayley client")
	}
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse cayley url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("cayley url %q must be absolute", rawURL)
	}

	cfg := Config{Timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	hc := cfg.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{base: base, httpClient: hc}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return c, nil
}

// Write adds quads.
func (c *Client) Write(ctx context.Context, quads []quad.Quad) error {
	_, err := c.post(ctx, writePath, wireQuads(quads))
	return err
}

// Delete removes quads.
func (c *Client) Delete(ctx context.Context, quads []quad.Quad) error {
	_, err := c.post(ctx, deletePath, wireQuads(quads))
	return err
}

// Query runs an MQL query. Scalar leaves come back in their lexical form so
// results look the same as those of the local backends.
func (c *Client) Query(ctx context.Context, query ir.IRValue) ([]ir.IRObject, error) {
	body, err := ir.MarshalIRValue(query)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}
	raw, err := c.post(ctx, queryPath, json.RawMessage(body))
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	result, err := ir.UnmarshalIRValue(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s result: %w", queryPath, err)
	}
	switch r := result.(type) {
	case ir.IRNull:
		return nil, nil
	case ir.IRArray:
		out := make([]ir.IRObject, 0, len(r))
		for i, item := range r {
			obj, ok := item.(ir.IRObject)
			if !ok {
				return nil, fmt.Errorf("%s result[%d]: expected object, got %T", queryPath, i, item)
			}
			out = append(out, lexicalObject(obj))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s result: expected list, got %T", queryPath, result)
	}
}

// wireQuads never sends a null body for an empty list.
func wireQuads(quads []quad.Quad) []quad.Quad {
	if quads == nil {
		return []quad.Quad{}
	}
	return quads
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// post sends payload as JSON and returns the raw result field.
func (c *Client) post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	target := c.base.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cayley %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &Error{Path: path, StatusCode: resp.StatusCode}
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}
	if r.Error != "" {
		return nil, &Error{Path: path, StatusCode: resp.StatusCode, Message: r.Error}
	}
	return r.Result, nil
}

// lexicalObject rewrites every scalar leaf as its lexical string.
func lexicalObject(obj ir.IRObject) ir.IRObject {
	out := make(ir.IRObject, len(obj))
	for k, v := range obj {
		out[k] = lexicalValue(v)
	}
	return out
}

func lexicalValue(v ir.IRValue) ir.IRValue {
	switch val := v.(type) {
	case ir.IRObject:
		return lexicalObject(val)
	case ir.IRArray:
		out := make(ir.IRArray, len(val))
		for i, item := range val {
			out[i] = lexicalValue(item)
		}
		return out
	default:
		if s, ok := ir.Lexical(v); ok {
			return ir.IRString(s)
		}
		return v
	}
}
