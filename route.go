package oai

import (
	"net/http"
	"regexp"
	"strings"
	"sync"
)

// Route is an ordered routing table. Registering the same method and path
// again replaces the earlier handler; the underlying http.ServeMux is built
// by Build or on first use.
type Route struct {
	entries []routeEntry
	index   map[string]int

	mu  sync.Mutex
	mux *http.ServeMux
}

type routeEntry struct {
	pattern string
	handler http.Handler
}

// NewRoute returns an empty routing table.
func NewRoute() *Route {
	return &Route{index: make(map[string]int)}
}

var wildcardRE = regexp.MustCompile(`\{[^}$.]*(\.\.\.)?\}`)

// routeKey identifies a pattern up to wildcard names. "{$}" and the "..."
// suffix are kept since they change what the pattern matches.
func routeKey(pattern string) string {
	return wildcardRE.ReplaceAllString(pattern, "{${1}}")
}

// At registers h for method and path. Path wildcards use the ServeMux
// syntax, e.g. "/users/{id}".
func (r *Route) At(method, path string, h http.Handler) *Route {
	return r.add(method+" "+path, h)
}

// Nest mounts h under prefix. Requests reach h with the prefix stripped.
func (r *Route) Nest(prefix string, h http.Handler) *Route {
	prefix = strings.TrimSuffix(prefix, "/")
	return r.add(prefix+"/", http.StripPrefix(prefix, h))
}

func (r *Route) add(pattern string, h http.Handler) *Route {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := routeKey(pattern)
	if i, ok := r.index[key]; ok {
		r.entries[i] = routeEntry{pattern: pattern, handler: h}
	} else {
		r.index[key] = len(r.entries)
		r.entries = append(r.entries, routeEntry{pattern: pattern, handler: h})
	}
	r.mux = nil
	return r
}

// Build constructs the underlying ServeMux now. It panics if two
// registered patterns conflict.
func (r *Route) Build() {
	r.handler()
}

// Patterns lists the registered patterns in registration order.
func (r *Route) Patterns() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.pattern
	}
	return out
}

// ServeHTTP implements http.Handler.
func (r *Route) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler().ServeHTTP(w, req)
}

func (r *Route) handler() *http.ServeMux {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mux == nil {
		mux := http.NewServeMux()
		for _, e := range r.entries {
			mux.Handle(e.pattern, e.handler)
		}
		r.mux = mux
	}
	return r.mux
}
