// Package testutil holds helpers shared by HTTP-level tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TimurManjosov/licadvisor/internal/api"
	"github.com/TimurManjosov/licadvisor/internal/catalog"
	"github.com/TimurManjosov/licadvisor/internal/rules"
	"github.com/TimurManjosov/licadvisor/internal/store"
	"github.com/rs/zerolog"
)

// NewTestServer creates an API server over a memory store seeded with the
// embedded catalog. Change the store and reload to swap catalogs.
func NewTestServer(t *testing.T, adminKey string) (*api.Server, *store.MemoryStore) {
	t.Helper()
	list, err := catalog.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	memStore := store.NewMemoryStore()
	if err := SeedRules(context.Background(), memStore, list); err != nil {
		t.Fatalf("seed rules: %v", err)
	}
	holder, err := catalog.NewHolder(context.Background(), &catalog.StoreSource{Store: memStore, Kind: "memory"})
	if err != nil {
		t.Fatalf("catalog holder: %v", err)
	}
	server := api.NewServer(holder, api.Options{
		AdminAPIKey:    adminKey,
		RateLimitPerIP: 10_000,
		Logger:         zerolog.Nop(),
	})
	return server, memStore
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

// SeedRules replaces the store's catalog with list.
func SeedRules(ctx context.Context, st store.Store, list []rules.Rule) error {
	return st.ReplaceAll(ctx, list)
}
