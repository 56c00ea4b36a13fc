package routing

import (
	"context"
	"net/http"
	"runtime/debug"
)

// PanicHook observes a recovered handler panic before the 500 is written.
type PanicHook func(r *http.Request, recovered any, stack []byte)

type Router struct {
	routes   map[string]map[string]http.Handler
	patterns []patternRoute
	onPanic  PanicHook
}

type patternRoute struct {
	pattern PathPattern
	methods map[string]http.Handler
}

type paramsKey struct{}

func NewRouter(onPanic PanicHook) *Router {
	return &Router{
		routes:  make(map[string]map[string]http.Handler),
		onPanic: onPanic,
	}
}

// Handle registers h for method and path. Paths with {param} segments are
// matched after exact paths, in registration order.
func (r *Router) Handle(method string, path string, h http.Handler) {
	wrapped := r.recovering(h)
	if p, ok := parsePathPattern(path); ok {
		for i := range r.patterns {
			if r.patterns[i].pattern.raw == path {
				r.patterns[i].methods[method] = wrapped
				return
			}
		}
		r.patterns = append(r.patterns, patternRoute{pattern: p, methods: map[string]http.Handler{method: wrapped}})
		return
	}
	if r.routes[path] == nil {
		r.routes[path] = make(map[string]http.Handler)
	}
	r.routes[path][method] = wrapped
}

func (r *Router) recovering(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if r.onPanic != nil {
					r.onPanic(req, rec, debug.Stack())
				}
				WriteError(w, req, http.StatusInternalServerError, "internal_error", "internal error")
			}
		}()
		h.ServeHTTP(w, req)
	})
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	methods, ok := r.routes[req.URL.Path]
	if !ok {
		for _, pr := range r.patterns {
			if params, match := pr.pattern.Params(req.URL.Path); match {
				methods = pr.methods
				req = req.WithContext(context.WithValue(req.Context(), paramsKey{}, params))
				ok = true
				break
			}
		}
	}
	if !ok {
		WriteError(w, req, http.StatusNotFound, "not_found", "not found")
		return
	}
	h, ok := methods[req.Method]
	if !ok {
		WriteError(w, req, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	h.ServeHTTP(w, req)
}

// PathParam returns the value of a {name} segment of the matched route.
func PathParam(r *http.Request, name string) string {
	params, _ := r.Context().Value(paramsKey{}).(map[string]string)
	return params[name]
}
