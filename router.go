package httpserver

import (
	"sort"
	"strings"
)

const (
	MethodGET    = "GET"
	MethodPOST   = "POST"
	MethodPUT    = "PUT"
	MethodDELETE = "DELETE"

	// pseudo:

	// MethodAny matches any method
	MethodAny = "~ANY~"
)

// Router is a Handler that performs http request routing.
type Router interface {
	Handler

	// Handle registers the handler for the given method and pattern.
	Handle(method string, pattern string, handler Handler)

	// HandleFunc is a shortcut for router.Handle(method, pattern, handler)
	// while handler will be converted to Handler from HandlerFunc.
	HandleFunc(method string, pattern string, handler HandlerFunc)

	// GET is a shortcut for router.HandleFunc("GET", pattern, handler)
	GET(pattern string, handler HandlerFunc)

	// POST is a shortcut for router.HandleFunc("POST", pattern, handler)
	POST(pattern string, handler HandlerFunc)
}

type routerItem struct {
	method  string
	pattern string
	handler Handler
}

// result of routerItem.match
const (
	missMatchMethod = -2
	missMatchPath   = -1
	matched         = 0
)

// match returns missMatchPath if the path is not matched,
// or missMatchMethod if the method is not matched while the path is,
// or matched if both method and path are matched. On a prefix match,
// rest is the path remainder after the pattern.
func (r *routerItem) match(method, path string) (result int, rest string) {
	rest, ok := patternMatch(path, r.pattern)
	if !ok {
		return missMatchPath, ""
	}

	if r.method == MethodAny || r.method == method {
		return matched, rest
	}

	return missMatchMethod, ""
}

// patternMatch matches a request path against a route pattern.
// A pattern ending with '/' (other than "/" itself) is a prefix route:
// it matches any path under it and yields the stripped remainder.
// Any other pattern is an exact, literal match:
//
//	patternMatch("/", "/") == ("", true)
//	patternMatch("/abc", "/") == ("", false)
//	patternMatch("/user-agent", "/user-agent") == ("", true)
//	patternMatch("/echo/abc", "/echo/") == ("abc", true)
//	patternMatch("/echo", "/echo/") == ("", false)
//
// No percent-decoding, query splitting or trailing-slash normalization:
// what came in on the request line is what gets matched.
func patternMatch(path, pattern string) (rest string, ok bool) {
	if path == pattern {
		return "", true
	}
	if len(pattern) > 1 && strings.HasSuffix(pattern, "/") && strings.HasPrefix(path, pattern) {
		return strings.TrimPrefix(path, pattern), true
	}
	return "", false
}

// prefixRouter is a simple implementation of Router over a fixed
// route table: longest pattern first, first match wins.
type prefixRouter struct {
	routes []routerItem
}

// NewPrefixRouter creates an empty prefix router.
func NewPrefixRouter() Router {
	return &prefixRouter{
		routes: []routerItem{},
	}
}

// Serve walks the route table and runs exactly one handler.
// A path that matched some route with the wrong method is answered 405,
// a path that matched nothing 404.
func (p *prefixRouter) Serve(c *Context) *HttpError {
	methodMissed := false // path matched, but method not matched

	for i := range p.routes {
		r := &p.routes[i]
		switch result, rest := r.match(c.Request.Method, c.Request.Path); result {
		case matched:
			c.Rest = rest
			return r.handler.Serve(c)
		case missMatchMethod:
			methodMissed = true
		default:
			continue
		}
	}

	if methodMissed {
		return MethodNotAllowed(c.Request.Method)
	}
	return NotFound()
}

// Handle adds a route to the router. Routes are kept sorted by pattern
// length, longest first, so specific prefixes win over the catch-all.
func (p *prefixRouter) Handle(method string, pattern string, handler Handler) {
	if handler == nil {
		panic("no handler")
	}

	for _, r := range p.routes {
		if r.method == method && r.pattern == pattern {
			panic("duplicate route")
		}
	}

	p.routes = append(p.routes, routerItem{
		method:  method,
		pattern: pattern,
		handler: handler,
	})

	sort.Slice(p.routes, func(i, j int) bool {
		li := len(p.routes[i].pattern)
		lj := len(p.routes[j].pattern)
		if li == lj { // total order
			if p.routes[i].pattern == p.routes[j].pattern {
				return p.routes[i].method < p.routes[j].method
			}
			return p.routes[i].pattern < p.routes[j].pattern
		}
		return li > lj
	})
}

// HandleFunc is a shortcut for router.Handle(method, pattern, handler)
// while handler will be converted to Handler from HandlerFunc.
func (p *prefixRouter) HandleFunc(method string, pattern string, handler HandlerFunc) {
	p.Handle(method, pattern, handler)
}

func (p *prefixRouter) GET(pattern string, handler HandlerFunc) {
	p.HandleFunc(MethodGET, pattern, handler)
}

func (p *prefixRouter) POST(pattern string, handler HandlerFunc) {
	p.HandleFunc(MethodPOST, pattern, handler)
}
