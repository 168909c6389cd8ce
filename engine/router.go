package engine

import "sync"

// Handler serves a request. The request is owned by the handler for the
// duration of the call; shared state lives behind whatever the handler
// closes over, guarded by its own locks.
type Handler func(*Request) *Response

// ErrorHandler produces the response for a request that could not be served.
// The request is nil when it could not be parsed.
type ErrorHandler func(*Request, int) *Response

type route struct {
	pattern string
	handler Handler
}

// Router is an ordered route table. Entries are evaluated in registration
// order and the first pattern matching the request URI wins.
type Router struct {
	mu     sync.RWMutex
	routes []*route
}

// WithRoute registers a handler for a wildcard pattern, for example "/*" or
// "/blog/*". Registration order is dispatch order.
func (r *Router) WithRoute(pattern string, handler Handler) *Router {
	if handler == nil {
		panic("router: nil handler for pattern " + pattern)
	}
	r.mu.Lock()
	r.routes = append(r.routes, &route{pattern: pattern, handler: handler})
	r.mu.Unlock()
	return r
}

// Lookup returns the handler for the first route matching uri, or nil.
func (r *Router) Lookup(uri string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rt := range r.routes {
		if Match(rt.pattern, uri) {
			return rt.handler
		}
	}
	return nil
}

// Routes returns the registered patterns in dispatch order.
func (r *Router) Routes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	patterns := make([]string, len(r.routes))
	for i, rt := range r.routes {
		patterns[i] = rt.pattern
	}
	return patterns
}
