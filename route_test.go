package oai_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/oai"
)

func textHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		//nolint:errcheck,gosec // test response
		io.WriteString(w, body+" "+r.URL.Path)
	})
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequestWithContext(context.Background(), method, path, nil))
	return rec
}

func TestRoute(t *testing.T) {
	t.Parallel()

	route := oai.NewRoute().
		At(http.MethodGet, "/items/{id}", textHandler("first")).
		At(http.MethodPost, "/items", textHandler("create")).
		At(http.MethodGet, "/items/{name}", textHandler("second")).
		Nest("/admin", textHandler("admin"))

	assert.Equal(t, []string{"GET /items/{name}", "POST /items", "/admin/"}, route.Patterns())

	tests := map[string]struct {
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		"later registration wins": {
			method:     http.MethodGet,
			path:       "/items/7",
			wantStatus: http.StatusOK,
			wantBody:   "second /items/7",
		},
		"method routing": {
			method:     http.MethodPost,
			path:       "/items",
			wantStatus: http.StatusOK,
			wantBody:   "create /items",
		},
		"nested prefix is stripped": {
			method:     http.MethodGet,
			path:       "/admin/users",
			wantStatus: http.StatusOK,
			wantBody:   "admin /users",
		},
		"unknown path": {
			method:     http.MethodGet,
			path:       "/missing",
			wantStatus: http.StatusNotFound,
		},
		"wrong method": {
			method:     http.MethodDelete,
			path:       "/items",
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := serve(route, tc.method, tc.path)
			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantBody != "" {
				assert.Equal(t, tc.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRouteRebuildsAfterChange(t *testing.T) {
	t.Parallel()

	route := oai.NewRoute().At(http.MethodGet, "/a", textHandler("a"))
	assert.Equal(t, http.StatusNotFound, serve(route, http.MethodGet, "/b").Code)

	route.At(http.MethodGet, "/b", textHandler("b"))
	assert.Equal(t, "b /b", serve(route, http.MethodGet, "/b").Body.String())
}

func singleOp(path, body string, opts ...oai.OperationOption) *oai.API {
	a := oai.NewAPI()
	oai.Get(a, path, func(context.Context, *oai.Empty) (oai.PlainText, error) {
		return oai.PlainText(body), nil
	}, opts...)
	return a
}

func TestCombine(t *testing.T) {
	t.Parallel()

	a := singleOp("/a", "a", oai.WithOperationID("a"))
	b := singleOp("/b", "b", oai.WithOperationID("b"))
	c := singleOp("/c", "c", oai.WithOperationID("c"))

	left := oai.Combine(oai.Combine(a, b), c)
	right := oai.Combine(a, oai.Combine(b, c))

	require.Len(t, left.Meta(), 3)
	assert.Equal(t, left.Meta(), right.Meta())

	var ids []string
	for _, m := range left.Meta() {
		for _, p := range m.Paths {
			for _, op := range p.Operations {
				ids = append(ids, op.OperationID)
			}
		}
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	assert.Equal(t, left.AddRoutes(oai.NewRoute()).Patterns(), right.AddRoutes(oai.NewRoute()).Patterns())
}

func TestCombineSecondWins(t *testing.T) {
	t.Parallel()

	api := oai.Combine(singleOp("/same", "first"), singleOp("/same", "second"))
	svc := oai.NewService(api)

	assert.Equal(t, "second", serve(svc, http.MethodGet, "/same").Body.String())

	item, ok := svc.Spec().Paths.Get("/same")
	require.True(t, ok)
	assert.Equal(t, []string{"get"}, item.Keys())
}

func TestRouteKeepsDistinctPatterns(t *testing.T) {
	t.Parallel()

	route := oai.NewRoute().
		At(http.MethodGet, "/{$}", textHandler("root")).
		At(http.MethodGet, "/{id}", textHandler("item")).
		At(http.MethodGet, "/files/{p}", textHandler("file")).
		At(http.MethodGet, "/files/{p...}", textHandler("tree")).
		At(http.MethodGet, "/files/{name}", textHandler("renamed"))

	assert.Equal(t, []string{"GET /{$}", "GET /{id}", "GET /files/{name}", "GET /files/{p...}"}, route.Patterns())
	assert.Equal(t, "root /", serve(route, http.MethodGet, "/").Body.String())
	assert.Equal(t, "item /7", serve(route, http.MethodGet, "/7").Body.String())
	assert.Equal(t, "renamed /files/a", serve(route, http.MethodGet, "/files/a").Body.String())
	assert.Equal(t, "tree /files/a/b", serve(route, http.MethodGet, "/files/a/b").Body.String())
}

type itemRequest struct {
	ID string `path:"id"`
}

func TestAPIKeepsRootAndWildcard(t *testing.T) {
	t.Parallel()

	a := oai.NewAPI()
	oai.Get(a, "/{$}", func(context.Context, *oai.Empty) (oai.PlainText, error) {
		return "root", nil
	})
	oai.Get(a, "/{id}", func(_ context.Context, req *itemRequest) (oai.PlainText, error) {
		return oai.PlainText("item " + req.ID), nil
	})
	svc := oai.NewService(a)

	assert.Equal(t, []string{"/", "/{id}"}, svc.Spec().Paths.Keys())
	assert.Equal(t, "root", serve(svc, http.MethodGet, "/").Body.String())
	assert.Equal(t, "item 7", serve(svc, http.MethodGet, "/7").Body.String())
}

type xRequest struct {
	X string `path:"x"`
}

type yRequest struct {
	Y string `path:"y"`
}

func TestServiceRejectsConflictingRoutes(t *testing.T) {
	t.Parallel()

	a := oai.NewAPI()
	oai.Get(a, "/a/{x}", func(context.Context, *xRequest) (oai.Empty, error) {
		return oai.Empty{}, nil
	})
	oai.Get(a, "/{y}/b", func(context.Context, *yRequest) (oai.Empty, error) {
		return oai.Empty{}, nil
	})

	assert.Panics(t, func() { oai.NewService(a) })

	route := oai.NewRoute().
		At(http.MethodGet, "/a/{x}", textHandler("a")).
		At(http.MethodGet, "/{y}/b", textHandler("b"))
	assert.Panics(t, route.Build)
}
