package oai

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type contextKey[T any] struct{}

// SetValue stores a typed value in the request context. For use in middleware.
func SetValue[T any](r *http.Request, val T) *http.Request {
	ctx := context.WithValue(r.Context(), contextKey[T]{}, val)
	return r.WithContext(ctx)
}

// GetValue retrieves a typed value from the request context. For use in handlers.
func GetValue[T any](ctx context.Context) (T, bool) {
	val, ok := ctx.Value(contextKey[T]{}).(T)
	return val, ok
}

// observer receives per-operation events from handlers. A Service installs
// one into every request context.
type observer struct {
	logger  *slog.Logger
	metrics *Metrics
}

var nopObserver = &observer{}

func observerFrom(ctx context.Context) *observer {
	if obs, ok := GetValue[*observer](ctx); ok {
		return obs
	}
	return nopObserver
}

func (o *observer) parseFailed(ctx context.Context, operation string, err *ParseRequestError) {
	if o.logger != nil {
		o.logger.LogAttrs(ctx, slog.LevelDebug, "request parse failed",
			slog.String("operation", operation),
			slog.String("kind", err.Kind.String()),
			slog.String("error", err.Error()),
		)
	}
	if o.metrics != nil {
		o.metrics.parseFailures.WithLabelValues(operation, err.Kind.String()).Inc()
	}
}

func (o *observer) requestDone(operation, method string, status int, latency time.Duration) {
	if o.metrics == nil {
		return
	}
	o.metrics.observe(operation, method, status, latency)
}

func (o *observer) rateLimited(ctx context.Context, path string) {
	if o.logger != nil {
		o.logger.LogAttrs(ctx, slog.LevelDebug, "request rate limited", slog.String("path", path))
	}
}
