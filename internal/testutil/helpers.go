// Package testutil provides shared helpers for API and integration tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/variantd/variantd/internal/api"
	"github.com/variantd/variantd/internal/bucket"
	"github.com/variantd/variantd/internal/engine"
	"github.com/variantd/variantd/internal/flags"
	"github.com/variantd/variantd/internal/source"
)

// NewTestServer creates an API server backed by an in-memory source with a
// fixed hash seed, so bucket-dependent tests are reproducible.
func NewTestServer(t *testing.T, adminKey string) (*api.Server, *source.MemorySource) {
	t.Helper()
	src := source.NewMemorySource()
	evaluator := engine.New(bucket.New("test-seed"), zerolog.Nop())
	server := api.NewServer(src, evaluator, adminKey, 0, zerolog.Nop())
	return server, src
}

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// SeedFlags populates the source with test flags.
func SeedFlags(ctx context.Context, src source.Source, list []flags.Flag) error {
	for _, f := range list {
		if err := src.UpsertFlag(ctx, f); err != nil {
			return err
		}
	}
	return nil
}
