// Package oaitest provides test helpers for services built with oai.
package oaitest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bjaus/oai"
)

// Client wraps an httptest.Server for convenient API testing.
type Client struct {
	Server *httptest.Server
}

// NewClient starts a test server for h and closes it when the test ends.
func NewClient(t testing.TB, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &Client{Server: srv}
}

// Response holds a completed response with its body read.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Text returns the body as a string.
func (r *Response) Text() string { return string(r.Body) }

// RequestOption customises an outgoing request.
type RequestOption func(*http.Request)

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// WithBasicAuth sets Basic credentials.
func WithBasicAuth(user, pass string) RequestOption {
	return func(r *http.Request) {
		r.SetBasicAuth(user, pass)
	}
}

// WithBearer sets a Bearer token.
func WithBearer(token string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

// Do sends a request with an optional body. A non-empty contentType is set
// as the Content-Type header.
func (c *Client) Do(t testing.TB, method, path, contentType string, body []byte, opts ...RequestOption) *Response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, c.Server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("oaitest: create request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("oaitest: execute request: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("oaitest: close body: %v", closeErr)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("oaitest: read body: %v", err)
	}

	return &Response{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Body:    data,
	}
}

// Get sends a GET request.
func (c *Client) Get(t testing.TB, path string, opts ...RequestOption) *Response {
	t.Helper()
	return c.Do(t, http.MethodGet, path, "", nil, opts...)
}

// PostJSON sends a POST request with v encoded as JSON.
func (c *Client) PostJSON(t testing.TB, path string, v any, opts ...RequestOption) *Response {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("oaitest: marshal request body: %v", err)
	}
	return c.Do(t, http.MethodPost, path, oai.ContentTypeJSON, body, opts...)
}

// Decode decodes a JSON response body into T.
func Decode[T any](t testing.TB, r *Response) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(r.Body, &v); err != nil {
		t.Fatalf("oaitest: decode body %q: %v", r.Body, err)
	}
	return v
}

// Problem decodes a problem details response body.
func Problem(t testing.TB, r *Response) oai.ProblemDetail {
	t.Helper()
	if ct := r.Headers.Get("Content-Type"); ct != oai.ContentTypeProblem {
		t.Fatalf("oaitest: expected %s response, got %q", oai.ContentTypeProblem, ct)
	}
	return Decode[oai.ProblemDetail](t, r)
}
