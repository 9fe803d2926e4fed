package oai

import (
	"net/http"
	"reflect"
	"strings"
)

// API is a set of typed operations. It implements OpenApi, so several APIs
// can be combined into one service.
type API struct {
	prefix     string
	tags       []MetaTag
	middleware []Middleware
	ops        []*operation
}

// APIOption configures an API.
type APIOption func(*API)

// WithPrefix mounts every operation of the API under prefix.
func WithPrefix(prefix string) APIOption {
	return func(a *API) {
		a.prefix = strings.TrimSuffix(prefix, "/")
	}
}

// WithTags attaches tags to every operation of the API and registers their
// descriptions.
func WithTags(tags ...MetaTag) APIOption {
	return func(a *API) {
		a.tags = append(a.tags, tags...)
	}
}

// WithMiddleware wraps every operation handler of the API.
func WithMiddleware(mw ...Middleware) APIOption {
	return func(a *API) {
		a.middleware = append(a.middleware, mw...)
	}
}

// NewAPI returns an empty operation set.
func NewAPI(opts ...APIOption) *API {
	a := &API{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// operation holds one declared operation, used for both request dispatch
// and spec generation.
type operation struct {
	method string
	path   string
	meta   MetaOperation

	binder   *binder
	register func(reg *Registry)
	handler  http.Handler
}

func (op *operation) name() string {
	if op.meta.OperationID != "" {
		return op.meta.OperationID
	}
	return op.method + " " + op.path
}

// OperationOption configures an operation at declaration time.
type OperationOption func(*MetaOperation)

// WithSummary sets the operation summary.
func WithSummary(s string) OperationOption {
	return func(m *MetaOperation) {
		m.Summary = s
	}
}

// WithDescription sets the operation description.
func WithDescription(d string) OperationOption {
	return func(m *MetaOperation) {
		m.Description = d
	}
}

// WithOperationTags adds tags to the operation.
func WithOperationTags(tags ...string) OperationOption {
	return func(m *MetaOperation) {
		m.Tags = append(m.Tags, tags...)
	}
}

// WithOperationID sets the operationId.
func WithOperationID(id string) OperationOption {
	return func(m *MetaOperation) {
		m.OperationID = id
	}
}

// WithDeprecated marks the operation as deprecated.
func WithDeprecated() OperationOption {
	return func(m *MetaOperation) {
		m.Deprecated = true
	}
}

// Handle declares an operation for method and path. Path wildcards use the
// ServeMux syntax and must each be bound by a `path` field of Req.
// Declaring the same method and path again replaces the earlier operation.
func Handle[Req any, Resp ApiResponse](a *API, method, path string, h Handler[Req, Resp], opts ...OperationOption) {
	path = a.prefix + path
	b := newBinder(reflect.TypeFor[Req](), path)

	op := &operation{
		method: method,
		path:   path,
		binder: b,
		meta:   MetaOperation{Method: strings.ToLower(method)},
	}
	for _, t := range a.tags {
		op.meta.Tags = append(op.meta.Tags, t.Name)
	}
	for _, opt := range opts {
		opt(&op.meta)
	}

	b.describe(&op.meta)
	var zero Resp
	op.meta.Responses = zero.ResponseMeta()
	op.register = func(reg *Registry) {
		b.register(reg)
		zero.Register(reg)
	}

	op.handler = buildHandler(op, b, h)
	for i := len(a.middleware) - 1; i >= 0; i-- {
		op.handler = a.middleware[i](op.handler)
	}

	a.add(op)
}

// Get declares a GET operation.
func Get[Req any, Resp ApiResponse](a *API, path string, h Handler[Req, Resp], opts ...OperationOption) {
	Handle(a, http.MethodGet, path, h, opts...)
}

// Post declares a POST operation.
func Post[Req any, Resp ApiResponse](a *API, path string, h Handler[Req, Resp], opts ...OperationOption) {
	Handle(a, http.MethodPost, path, h, opts...)
}

// Put declares a PUT operation.
func Put[Req any, Resp ApiResponse](a *API, path string, h Handler[Req, Resp], opts ...OperationOption) {
	Handle(a, http.MethodPut, path, h, opts...)
}

// Patch declares a PATCH operation.
func Patch[Req any, Resp ApiResponse](a *API, path string, h Handler[Req, Resp], opts ...OperationOption) {
	Handle(a, http.MethodPatch, path, h, opts...)
}

// Delete declares a DELETE operation.
func Delete[Req any, Resp ApiResponse](a *API, path string, h Handler[Req, Resp], opts ...OperationOption) {
	Handle(a, http.MethodDelete, path, h, opts...)
}

func (a *API) add(op *operation) {
	for i, existing := range a.ops {
		if existing.method == op.method && routeKey(existing.path) == routeKey(op.path) {
			a.ops[i] = op
			return
		}
	}
	a.ops = append(a.ops, op)
}

// Meta describes the operations grouped by path, in declaration order.
func (a *API) Meta() []MetaApi {
	var paths []MetaPath
	index := make(map[string]int)
	for _, op := range a.ops {
		p := openAPIPath(op.path)
		i, ok := index[p]
		if !ok {
			i = len(paths)
			index[p] = i
			paths = append(paths, MetaPath{Path: p})
		}
		paths[i].Operations = append(paths[i].Operations, op.meta)
	}
	return []MetaApi{{Paths: paths}}
}

// Register adds the API's tags, schemas and security schemes to reg.
func (a *API) Register(reg *Registry) {
	for _, t := range a.tags {
		reg.CreateTag(t)
	}
	for _, op := range a.ops {
		op.register(reg)
	}
}

// AddRoutes adds the API's handlers to route.
func (a *API) AddRoutes(route *Route) *Route {
	for _, op := range a.ops {
		route.At(op.method, op.path, op.handler)
	}
	return route
}
