package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// ChiRouter implements [Router] on top of a chi mux.
type ChiRouter struct {
	mux chi.Router
}

// NewChiRouter creates a new [ChiRouter] instance.
func NewChiRouter() *ChiRouter {
	return &ChiRouter{mux: chi.NewRouter()}
}

// Use adds [Middleware] to the router's stack, applied in the order it's added.
//
// chi requires all middleware to be registered before the first route.
func (r *ChiRouter) Use(middleware ...Middleware) {
	for _, m := range middleware {
		r.mux.Use(m)
	}
}

// Handle registers handler for the specified HTTP method and path.
func (r *ChiRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Method(strings.ToUpper(method), path, handler)
}

// Handler registers a custom Handler implementation.
//
// Each route is "METHOD /path"; a bare path matches every method.
func (r *ChiRouter) Handler(handler Handler) {
	for _, route := range handler.Routes() {
		if method, path, ok := strings.Cut(route, " "); ok {
			r.Handle(method, path, handler)
			continue
		}
		r.mux.Handle(route, handler)
	}
}

// Group registers routes that share extra middleware.
func (r *ChiRouter) Group(fn func(Router), middleware ...Middleware) {
	r.mux.Group(func(g chi.Router) {
		for _, m := range middleware {
			g.Use(m)
		}
		fn(&ChiRouter{mux: g})
	})
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *ChiRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}
