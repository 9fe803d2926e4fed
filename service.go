package oai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// Service assembles an OpenApi into a frozen registry, a rendered document
// and a route table. It implements http.Handler.
type Service struct {
	info       Info
	servers    []Server
	logger     *slog.Logger
	metrics    *Metrics
	middleware []Middleware

	reg     *Registry
	meta    []MetaApi
	route   *Route
	doc     *Document
	handler http.Handler
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTitle sets the API title (used in OpenAPI spec).
func WithTitle(title string) ServiceOption {
	return func(s *Service) {
		s.info.Title = title
	}
}

// WithVersion sets the API version (used in OpenAPI spec).
func WithVersion(version string) ServiceOption {
	return func(s *Service) {
		s.info.Version = version
	}
}

// WithAPIDescription sets the API description.
func WithAPIDescription(d string) ServiceOption {
	return func(s *Service) {
		s.info.Description = d
	}
}

// WithServers sets the OpenAPI servers array.
func WithServers(servers ...Server) ServiceOption {
	return func(s *Service) {
		s.servers = servers
	}
}

// WithLogger sets the logger used for request parse failures.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// WithMetrics records per-operation metrics into m.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithServiceMiddleware adds middleware around the whole route table.
// Middleware is applied in the order added.
func WithServiceMiddleware(mw ...Middleware) ServiceOption {
	return func(s *Service) {
		s.middleware = append(s.middleware, mw...)
	}
}

// NewService registers api into a fresh registry, freezes it, renders the
// document and builds the route table. Contract violations in api, such as
// two types claiming one schema name or two conflicting route patterns,
// panic here.
func NewService(api OpenApi, opts ...ServiceOption) *Service {
	s := &Service{
		info:   Info{Title: "API", Version: "1.0"},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.reg = NewRegistry()
	api.Register(s.reg)
	s.reg.Freeze()

	s.meta = api.Meta()
	s.doc = buildDocument(s.info, s.servers, s.meta, s.reg)
	s.route = api.AddRoutes(NewRoute())
	s.route.Build()

	obs := &observer{logger: s.logger, metrics: s.metrics}
	handler := http.Handler(s.route)
	for i := len(s.middleware) - 1; i >= 0; i-- {
		handler = s.middleware[i](handler)
	}
	inner := handler
	s.handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner.ServeHTTP(w, SetValue(r, obs))
	})

	return s
}

// Registry returns the frozen registry.
func (s *Service) Registry() *Registry { return s.reg }

// Meta returns the metadata of every operation, in declaration order.
func (s *Service) Meta() []MetaApi { return s.meta }

// Route returns the route table.
func (s *Service) Route() *Route { return s.route }

// Spec returns the rendered OpenAPI document.
func (s *Service) Spec() *Document { return s.doc }

// ServeHTTP implements http.Handler.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Validate checks the rendered document against the OpenAPI 3.0 rules.
func (s *Service) Validate(ctx context.Context) error {
	data, err := json.Marshal(s.doc)
	if err != nil {
		return fmt.Errorf("marshal spec: %w", err)
	}
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return fmt.Errorf("load spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return fmt.Errorf("validate spec: %w", err)
	}
	return nil
}

// ListenAndServe starts an HTTP server on the given address.
// It blocks until the context is cancelled, then shuts down gracefully.
func (s *Service) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
