package cayley

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/perstore/internal/ir"
	"github.com/roach88/perstore/internal/quad"
)

type request struct {
	Method string
	Path   string
	Body   string
}

// fakeServer records every request and answers with reply.
func fakeServer(t *testing.T, status int, reply string) (*Client, *[]request) {
	t.Helper()
	var got []request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, request{Method: r.Method, Path: r.URL.Path, Body: string(body)})
		w.WriteHeader(status)
		io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL)
	require.NoError(t, err)
	return c, &got
}

func TestWriteWireShape(t *testing.T) {
	c, got := fakeServer(t, http.StatusOK, `{"result":"Successfully wrote 2 quads."}`)

	err := c.Write(context.Background(), []quad.Quad{
		quad.New("foo", "id", "foo", nil),
		quad.New("foo", "name", "bar", quad.Label("g")),
	})
	require.NoError(t, err)

	require.Len(t, *got, 1)
	req := (*got)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/v1/write", req.Path)
	assert.JSONEq(t, `[
		{"subject":"foo","predicate":"id","object":"foo"},
		{"subject":"foo","predicate":"name","object":"bar","label":"g"}
	]`, req.Body)
}

func TestDeleteWireShape(t *testing.T) {
	c, got := fakeServer(t, http.StatusOK, `{"result":"Successfully deleted 0 quads."}`)

	require.NoError(t, c.Delete(context.Background(), nil))

	require.Len(t, *got, 1)
	assert.Equal(t, "/api/v1/delete", (*got)[0].Path)
	assert.Equal(t, `[]`, (*got)[0].Body)
}

func TestQueryWireShape(t *testing.T) {
	c, got := fakeServer(t, http.StatusOK,
		`{"result":[{"id":"foo","n":5,"ok":true,"gone":null,"tags":["a",1],"sub":{"x":2.5}}]}`)

	results, err := c.Query(context.Background(), ir.IRArray{ir.IRObject{
		"id": ir.IRString("foo"),
		"n":  ir.IRNull{},
	}})
	require.NoError(t, err)

	require.Len(t, *got, 1)
	assert.Equal(t, "/api/v1/query/mql", (*got)[0].Path)
	assert.JSONEq(t, `[{"id":"foo","n":null}]`, (*got)[0].Body)

	assert.Equal(t, []ir.IRObject{{
		"id":   ir.IRString("foo"),
		"n":    ir.IRString("5"),
		"ok":   ir.IRString("true"),
		"gone": ir.IRNull{},
		"tags": ir.IRArray{ir.IRString("a"), ir.IRString("1")},
		"sub":  ir.IRObject{"x": ir.IRString("2.5")},
	}}, results)
}

func TestQuerySendsNestedFieldsUnderTheirFieldName(t *testing.T) {
	c, got := fakeServer(t, http.StatusOK, `{"result":[]}`)

	_, err := c.Query(context.Background(), ir.IRArray{ir.IRObject{
		"id":      ir.IRString("foo"),
		"address": ir.IRObject{"city": ir.IRNull{}},
	}})
	require.NoError(t, err)

	require.Len(t, *got, 1)
	body := (*got)[0].Body
	assert.JSONEq(t, `[{"id":"foo","address":{"city":null}}]`, body)
	assert.NotContains(t, body, quad.LinkPredicate("address"), "the link predicate is not translated")
}

func TestQueryNullResult(t *testing.T) {
	c, _ := fakeServer(t, http.StatusOK, `{"result":null}`)

	results, err := c.Query(context.Background(), ir.IRArray{ir.IRObject{}})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQueryRejectsNonObjectResult(t *testing.T) {
	c, _ := fakeServer(t, http.StatusOK, `{"result":[1]}`)

	_, err := c.Query(context.Background(), ir.IRArray{ir.IRObject{}})
	assert.Error(t, err)
}

func TestHTTPStatusError(t *testing.T) {
	c, _ := fakeServer(t, http.StatusBadRequest, `oops`)

	err := c.Write(context.Background(), []quad.Quad{quad.New("s", "p", "o", nil)})
	require.Error(t, err)

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, http.StatusBadRequest, cerr.StatusCode)
	assert.Equal(t, "/api/v1/write", cerr.Path)
	assert.Contains(t, err.Error(), "HTTP request failed with code: 400")
}

func TestBodyError(t *testing.T) {
	c, _ := fakeServer(t, http.StatusOK, `{"error":"bad quad"}`)

	_, err := c.Query(context.Background(), ir.IRArray{ir.IRObject{}})
	require.Error(t, err)

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "bad quad", cerr.Message)
	assert.Contains(t, err.Error(), "error response: bad quad")
}

func TestBaseURLPathIsReplaced(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{"result": nil})
	}))
	defer srv.Close()

	c, err := New(srv.URL + "/some/prefix/")
	require.NoError(t, err)
	require.NoError(t, c.Write(context.Background(), nil))
	assert.Equal(t, "/api/v1/write", path)
}

func TestNewValidatesURL(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New("localhost:64210")
	assert.Error(t, err)

	_, err = New("http://localhost:64210", WithTimeout(time.Second), WithRateLimit(5))
	assert.NoError(t, err)
}

func TestCancelledContext(t *testing.T) {
	c, got := fakeServer(t, http.StatusOK, `{"result":null}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Write(ctx, []quad.Quad{quad.New("s", "p", "o", nil)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, *got)
}

func TestRateLimitedClientHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"result":null}`)
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithRateLimit(0.001), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	require.NoError(t, c.Write(context.Background(), nil), "first request uses the burst")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, c.Write(ctx, nil))
}
