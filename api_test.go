package oai_test

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/oai"
	"github.com/bjaus/oai/oaitest"
)

type listPetsRequest struct {
	Limit  int32   `query:"limit" default:"10" doc:"Page size"`
	Cursor *string `query:"cursor"`
	Tenant string  `header:"X-Tenant"`
}

type getPetRequest struct {
	ID   int32 `path:"id"`
	Auth oai.Basic
}

type createPetRequest struct {
	Auth oai.Basic
	Body oai.JSON[Pet]
}

// petResult renders parse failures as 422 text instead of problem details.
type petResult struct {
	pet      Pet
	rejected string
}

func (petResult) ResponseMeta() oai.MetaResponses {
	return oai.MetaResponses{Responses: []oai.MetaResponse{
		{Status: http.StatusOK, Content: []oai.MetaMediaType{{ContentType: oai.ContentTypeJSON, Schema: oai.TypeOf[Pet]().SchemaRef()}}},
		{Status: http.StatusUnprocessableEntity, Description: "Rejected input"},
	}}
}

func (petResult) Register(reg *oai.Registry) { oai.TypeOf[Pet]().Register(reg) }

func (r petResult) WriteResponse(w http.ResponseWriter) {
	if r.rejected != "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
		//nolint:errcheck,gosec // test response
		io.WriteString(w, r.rejected)
		return
	}
	oai.JSON[Pet]{Value: r.pet}.WriteResponse(w)
}

func (r *petResult) FromParseRequestError(err *oai.ParseRequestError) {
	r.rejected = err.Kind.String()
}

func newPetsAPI() *oai.API {
	a := oai.NewAPI(oai.WithPrefix("/v1"), oai.WithTags(oai.MetaTag{Name: "pets", Description: "Pet store"}))

	oai.Get(a, "/pets", func(_ context.Context, req *listPetsRequest) (oai.PlainText, error) {
		cursor := "-"
		if req.Cursor != nil {
			cursor = *req.Cursor
		}
		return oai.PlainText(strconv.Itoa(int(req.Limit)) + " " + cursor + " " + req.Tenant), nil
	}, oai.WithOperationID("listPets"))

	oai.Post(a, "/pets", func(_ context.Context, req *createPetRequest) (oai.Created[Pet], error) {
		return oai.Created[Pet]{Value: req.Body.Value}, nil
	}, oai.WithOperationID("createPet"))

	oai.Get(a, "/pets/{id}", func(_ context.Context, req *getPetRequest) (oai.Result[oai.JSON[Pet]], error) {
		if req.ID != 1 {
			return oai.Fail[oai.JSON[Pet]](oai.Errorf(http.StatusNotFound, "pet %d not found", req.ID)), nil
		}
		return oai.Ok(oai.JSON[Pet]{Value: Pet{Name: "Rex"}}), nil
	}, oai.WithOperationID("getPet"))

	oai.Put(a, "/pets/{id}/name", func(_ context.Context, req *struct {
		ID   int32 `path:"id"`
		Body oai.JSON[Pet]
	}) (petResult, error) {
		return petResult{pet: req.Body.Value}, nil
	}, oai.WithOperationID("renamePet"))

	oai.Post(a, "/echo", func(_ context.Context, req *oai.PlainText) (oai.PlainText, error) {
		return *req, nil
	})

	oai.Delete(a, "/pets/{id}", func(context.Context, *getPetRequest) (oai.Empty, error) {
		return oai.Empty{}, oai.Error(http.StatusConflict, "pet is adopted")
	})

	return a
}

func TestAPIEndToEnd(t *testing.T) {
	t.Parallel()

	c := oaitest.NewClient(t, oai.NewService(newPetsAPI()))
	auth := oaitest.WithBasicAuth("test", "123456")

	tests := map[string]struct {
		do         func(t *testing.T) *oaitest.Response
		wantStatus int
		wantBody   string
		wantDetail string
	}{
		"query defaults": {
			do:         func(t *testing.T) *oaitest.Response { return c.Get(t, "/v1/pets", oaitest.WithHeader("X-Tenant", "acme")) },
			wantStatus: http.StatusOK,
			wantBody:   "10 - acme",
		},
		"query values": {
			do: func(t *testing.T) *oaitest.Response {
				return c.Get(t, "/v1/pets?limit=5&cursor=abc", oaitest.WithHeader("X-Tenant", "acme"))
			},
			wantStatus: http.StatusOK,
			wantBody:   "5 abc acme",
		},
		"missing required header": {
			do:         func(t *testing.T) *oaitest.Response { return c.Get(t, "/v1/pets") },
			wantStatus: http.StatusBadRequest,
			wantDetail: "failed to parse parameter `X-Tenant`: expected input",
		},
		"query out of range": {
			do: func(t *testing.T) *oaitest.Response {
				return c.Get(t, "/v1/pets?limit=2147483648", oaitest.WithHeader("X-Tenant", "acme"))
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: "failed to parse parameter `limit`: Only integers from -2147483648 to 2147483647 are accepted.",
		},
		"missing credentials": {
			do:         func(t *testing.T) *oaitest.Response { return c.Get(t, "/v1/pets/1") },
			wantStatus: http.StatusUnauthorized,
			wantDetail: "failed to authorize with `BasicAuth`: missing credentials",
		},
		"credentials checked before params": {
			do:         func(t *testing.T) *oaitest.Response { return c.Get(t, "/v1/pets/abc") },
			wantStatus: http.StatusUnauthorized,
		},
		"bad path param": {
			do:         func(t *testing.T) *oaitest.Response { return c.Get(t, "/v1/pets/abc", auth) },
			wantStatus: http.StatusBadRequest,
		},
		"result ok": {
			do:         func(t *testing.T) *oaitest.Response { return c.Get(t, "/v1/pets/1", auth) },
			wantStatus: http.StatusOK,
			wantBody:   `{"name":"Rex","tags":null}` + "\n",
		},
		"result error": {
			do:         func(t *testing.T) *oaitest.Response { return c.Get(t, "/v1/pets/2", auth) },
			wantStatus: http.StatusNotFound,
			wantDetail: "pet 2 not found",
		},
		"handler error": {
			do:         func(t *testing.T) *oaitest.Response { return c.Do(t, http.MethodDelete, "/v1/pets/1", "", nil, auth) },
			wantStatus: http.StatusConflict,
			wantDetail: "pet is adopted",
		},
		"json body": {
			do: func(t *testing.T) *oaitest.Response {
				return c.PostJSON(t, "/v1/pets", map[string]any{"name": "Tom"}, auth)
			},
			wantStatus: http.StatusCreated,
			wantBody:   `{"name":"Tom","tags":null}` + "\n",
		},
		"body content type mismatch": {
			do: func(t *testing.T) *oaitest.Response {
				return c.Do(t, http.MethodPost, "/v1/pets", "text/plain", []byte(`{"name":"Tom"}`), auth)
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: "the `Content-Type` requested by the client is not supported: text/plain",
		},
		"body validation": {
			do: func(t *testing.T) *oaitest.Response {
				return c.PostJSON(t, "/v1/pets", map[string]any{"name": "T"}, auth)
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: "failed to parse request body: name: must be at least 2",
		},
		"custom bad request": {
			do: func(t *testing.T) *oaitest.Response {
				return c.Do(t, http.MethodPut, "/v1/pets/1/name", "", nil)
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "expect_content_type",
		},
		"whole body request": {
			do: func(t *testing.T) *oaitest.Response {
				return c.Do(t, http.MethodPost, "/v1/echo", "text/plain; charset=utf-8", []byte("ping"))
			},
			wantStatus: http.StatusOK,
			wantBody:   "ping",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			resp := tc.do(t)
			assert.Equal(t, tc.wantStatus, resp.Status)
			if tc.wantBody != "" {
				assert.Equal(t, tc.wantBody, resp.Text())
			}
			if tc.wantDetail != "" {
				problem := oaitest.Problem(t, resp)
				assert.Equal(t, tc.wantStatus, problem.Status)
				assert.Equal(t, tc.wantDetail, problem.Detail)
			}
		})
	}
}

func TestAPIUnboundPathParam(t *testing.T) {
	t.Parallel()

	a := oai.NewAPI()
	assert.Panics(t, func() {
		oai.Get(a, "/pets/{id}", func(context.Context, *listPetsRequest) (oai.Empty, error) {
			return oai.Empty{}, nil
		})
	})
}

func TestAPIInvalidRequestTypes(t *testing.T) {
	t.Parallel()

	a := oai.NewAPI()

	assert.Panics(t, func() {
		oai.Get(a, "/n", func(context.Context, *int) (oai.Empty, error) { return oai.Empty{}, nil })
	})
	assert.Panics(t, func() {
		oai.Post(a, "/two", func(context.Context, *struct {
			A oai.PlainText
			B oai.Binary
		}) (oai.Empty, error) {
			return oai.Empty{}, nil
		})
	})
	assert.Panics(t, func() {
		oai.Get(a, "/scopes", func(context.Context, *struct {
			Auth oai.OAuth2[petScopes] `scopes:"delete:pets"`
		}) (oai.Empty, error) {
			return oai.Empty{}, nil
		})
	})
}

func TestAPIRedeclareReplaces(t *testing.T) {
	t.Parallel()

	a := oai.NewAPI()
	oai.Get(a, "/who/{id}", func(context.Context, *struct {
		ID string `path:"id"`
	}) (oai.PlainText, error) {
		return "first", nil
	})
	oai.Get(a, "/who/{name}", func(context.Context, *struct {
		Name string `path:"name"`
	}) (oai.PlainText, error) {
		return "second", nil
	})

	meta := a.Meta()
	require.Len(t, meta, 1)
	require.Len(t, meta[0].Paths, 1)
	assert.Equal(t, "/who/{name}", meta[0].Paths[0].Path)

	c := oaitest.NewClient(t, oai.NewService(a))
	assert.Equal(t, "second", c.Get(t, "/who/x").Text())
}

func TestAPIMiddleware(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		calls []string
	)
	record := func(name string) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, name)
	}
	mark := func(name string) oai.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				record(name)
				next.ServeHTTP(w, r)
			})
		}
	}

	a := oai.NewAPI(oai.WithMiddleware(mark("api-1"), mark("api-2")))
	oai.Get(a, "/", func(context.Context, *oai.Empty) (oai.Empty, error) {
		record("handler")
		return oai.Empty{}, nil
	})
	svc := oai.NewService(a, oai.WithServiceMiddleware(mark("svc-1"), mark("svc-2")))

	c := oaitest.NewClient(t, svc)
	resp := c.Get(t, "/")

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Empty(t, resp.Body)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"svc-1", "svc-2", "api-1", "api-2", "handler"}, calls)
}

func TestServiceMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	svc := oai.NewService(newPetsAPI(), oai.WithMetrics(oai.NewMetrics(reg)))
	c := oaitest.NewClient(t, svc)

	c.Get(t, "/v1/pets/1", oaitest.WithBasicAuth("test", "123456"))
	c.Get(t, "/v1/pets/1")

	expected := `
# HELP oai_parse_failures_total Requests rejected while parsing inputs, by operation and kind.
# TYPE oai_parse_failures_total counter
oai_parse_failures_total{kind="authorization",operation="getPet"} 1
# HELP oai_requests_total Requests handled, by operation and status.
# TYPE oai_requests_total counter
oai_requests_total{method="GET",operation="getPet",status="200"} 1
oai_requests_total{method="GET",operation="getPet",status="401"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"oai_parse_failures_total", "oai_requests_total"))

	n, err := testutil.GatherAndCount(reg, "oai_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestResponseHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, oai.HasBadRequestHandler[petResult]())
	assert.False(t, oai.HasBadRequestHandler[oai.PlainText]())

	r := oai.FromParseRequestError[petResult](&oai.ParseRequestError{Kind: oai.ParseParam, Name: "id"})
	assert.Equal(t, "parse_param", r.rejected)

	assert.Panics(t, func() {
		oai.FromParseRequestError[oai.PlainText](&oai.ParseRequestError{Kind: oai.ParseParam})
	})

	assert.Equal(t, oai.JSON[Pet]{}.ResponseMeta(), oai.Result[oai.JSON[Pet]]{}.ResponseMeta())
}
