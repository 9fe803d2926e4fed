package oai_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/oai"
	"github.com/bjaus/oai/oaitest"
)

func TestRecovery(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	a := oai.NewAPI()
	oai.Get(a, "/panic", func(context.Context, *oai.Empty) (oai.Empty, error) {
		panic("boom")
	})
	svc := oai.NewService(a, oai.WithServiceMiddleware(oai.Recovery(logger)))

	c := oaitest.NewClient(t, svc)
	resp := c.Get(t, "/panic")

	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	problem := oaitest.Problem(t, resp)
	assert.Equal(t, "boom", problem.Detail)
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()

	type echoRequest struct {
		Body oai.PlainText
	}

	a := oai.NewAPI()
	oai.Post(a, "/echo", func(_ context.Context, req *echoRequest) (oai.PlainText, error) {
		return req.Body, nil
	})
	svc := oai.NewService(a, oai.WithServiceMiddleware(oai.BodyLimit(16)))
	c := oaitest.NewClient(t, svc)

	tests := map[string]struct {
		body       string
		wantStatus int
	}{
		"within limit": {
			body:       "short",
			wantStatus: http.StatusOK,
		},
		"over limit fails to parse": {
			body:       strings.Repeat("x", 64),
			wantStatus: http.StatusBadRequest,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			resp := c.Do(t, http.MethodPost, "/echo", "text/plain", []byte(tc.body))
			assert.Equal(t, tc.wantStatus, resp.Status)
			if tc.wantStatus == http.StatusBadRequest {
				assert.Contains(t, oaitest.Problem(t, resp).Detail, "failed to parse request body")
			}
		})
	}
}

func TestLogger(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		status     int
		wantSubstr []string
	}{
		"success logs at info": {
			status:     http.StatusOK,
			wantSubstr: []string{"level=INFO", "method=GET", "path=/log", "status=200"},
		},
		"client error logs at warn": {
			status:     http.StatusUnauthorized,
			wantSubstr: []string{"level=WARN", "status=401"},
		},
		"server error logs at error": {
			status:     http.StatusBadGateway,
			wantSubstr: []string{"level=ERROR", "status=502"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			handler := oai.RequestID()(oai.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			})))

			rec := httptest.NewRecorder()
			req := httptest.NewRequestWithContext(context.Background(), http.MethodGet, "/log", nil)
			handler.ServeHTTP(rec, req)

			out := buf.String()
			for _, s := range tc.wantSubstr {
				assert.Contains(t, out, s)
			}
			assert.Contains(t, out, "request_id=")
		})
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg    []oai.RequestIDConfig
		header string
		check  func(t *testing.T, rec *httptest.ResponseRecorder, captured string)
	}{
		"generates a uuid": {
			check: func(t *testing.T, rec *httptest.ResponseRecorder, captured string) {
				t.Helper()
				id := rec.Header().Get("X-Request-ID")
				_, err := uuid.Parse(id)
				require.NoError(t, err)
				assert.Equal(t, id, captured)
			},
		},
		"preserves incoming id": {
			header: "incoming-1",
			check: func(t *testing.T, rec *httptest.ResponseRecorder, captured string) {
				t.Helper()
				assert.Equal(t, "incoming-1", rec.Header().Get("X-Request-ID"))
				assert.Equal(t, "incoming-1", captured)
			},
		},
		"custom header and generator": {
			cfg: []oai.RequestIDConfig{{Header: "X-Trace-ID", Generator: func() string { return "fixed" }}},
			check: func(t *testing.T, rec *httptest.ResponseRecorder, captured string) {
				t.Helper()
				assert.Equal(t, "fixed", rec.Header().Get("X-Trace-ID"))
				assert.Equal(t, "fixed", captured)
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var captured string
			handler := oai.RequestID(tc.cfg...)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				captured = oai.GetRequestID(r)
			}))

			req := httptest.NewRequestWithContext(context.Background(), http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("X-Request-ID", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			tc.check(t, rec, captured)
		})
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	type greetRequest struct {
		Auth oai.Basic
	}

	a := oai.NewAPI()
	oai.Get(a, "/greet", func(_ context.Context, req *greetRequest) (oai.PlainText, error) {
		return oai.PlainText("hi " + req.Auth.Username), nil
	})
	svc := oai.NewService(a, oai.WithServiceMiddleware(oai.RateLimit(oai.RateLimitConfig{
		Rate:  1,
		Burst: 1,
		Key:   oai.CredentialKey(func(b *oai.Basic) string { return b.Username }),
	})))
	c := oaitest.NewClient(t, svc)

	first := c.Get(t, "/greet", oaitest.WithBasicAuth("alice", "pw"))
	assert.Equal(t, http.StatusOK, first.Status)

	limited := c.Get(t, "/greet", oaitest.WithBasicAuth("alice", "other"))
	assert.Equal(t, http.StatusTooManyRequests, limited.Status)
	assert.Equal(t, "1", limited.Headers.Get("Retry-After"))
	assert.Equal(t, http.StatusTooManyRequests, oaitest.Problem(t, limited).Status)

	other := c.Get(t, "/greet", oaitest.WithBasicAuth("bob", "pw"))
	assert.Equal(t, http.StatusOK, other.Status)

	// Requests without credentials share the client address bucket.
	anonymous := c.Get(t, "/greet")
	assert.Equal(t, http.StatusUnauthorized, anonymous.Status)
	assert.Equal(t, http.StatusTooManyRequests, c.Get(t, "/greet").Status)
}

func TestRateLimitEmptyBucket(t *testing.T) {
	t.Parallel()

	h := oai.RateLimit(oai.RateLimitConfig{Rate: 0.5})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequestWithContext(context.Background(), http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
}

func TestCredentialKey(t *testing.T) {
	t.Parallel()

	key := oai.CredentialKey(func(b *oai.Bearer) string { return b.Token })

	r := httptest.NewRequestWithContext(context.Background(), http.MethodGet, "/", nil)
	_, ok := key(r)
	assert.False(t, ok)

	r.Header.Set("Authorization", "Bearer abc")
	got, ok := key(r)
	assert.True(t, ok)
	assert.Equal(t, "BearerAuth:abc", got)

	assert.Panics(t, func() { oai.CredentialKey(func(s *string) string { return *s }) })
}
