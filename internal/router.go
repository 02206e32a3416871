package internal

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"sync/atomic"
)

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Route is a registered (method, pattern, handler) entry.
type Route struct {
	router     *Router
	matcher    *regexp.Regexp
	handler    HandlerFunc
	method     string
	pattern    string
	name       string
	namePrefix string
}

// Name registers the route under name for reverse routing. Name prefixes of
// the groups active when the route was registered are prepended.
func (rt *Route) Name(name string) *Route {
	full := rt.namePrefix + name
	if rt.name != "" && rt.router.named[rt.name] == rt {
		delete(rt.router.named, rt.name)
	}
	rt.name = full
	rt.router.named[full] = rt
	return rt
}

func (rt *Route) Method() string  { return rt.method }
func (rt *Route) Pattern() string { return rt.pattern }

// RouteName returns the effective name, or "" for unnamed routes.
func (rt *Route) RouteName() string { return rt.name }

// match reports whether path matches the route and returns captured params.
func (rt *Route) match(path string) (Params, bool) {
	m := rt.matcher.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	params := make(Params, len(m)-1)
	for i, name := range rt.matcher.SubexpNames() {
		if i > 0 && name != "" {
			params[name] = unescapeSegment(m[i])
		}
	}
	return params, true
}

// unescapeSegment decodes a captured path segment, the inverse of the
// escaping done by URL. Malformed escapes are kept as sent.
func unescapeSegment(seg string) string {
	if v, err := url.PathUnescape(seg); err == nil {
		return v
	}
	return seg
}

// RouteInfo describes a registered route.
type RouteInfo struct {
	Method  string
	Pattern string
	Name    string
}

type groupFrame struct {
	prefix      string
	namePrefix  string
	middlewares []Middleware
}

// Router holds the route registry and dispatches requests to handlers.
// Registration is not safe for concurrent use and is expected to finish
// before serving starts; dispatch only reads router state.
type Router struct {
	routes        map[string][]*Route
	named         map[string]*Route
	logger        *slog.Logger
	server        *Server
	requestLogger RequestLogger
	static        StaticResolver
	notFound      HandlerFunc
	errorHandler  ErrorHandler
	metrics       *Metrics
	groups        []groupFrame
	global        []Middleware
	compiled      atomic.Pointer[HandlerFunc]
}

// NewRouter creates an empty router.
func NewRouter(opts ...Option) *Router {
	r := &Router{
		routes:       make(map[string][]*Route),
		named:        make(map[string]*Route),
		logger:       slog.New(slog.DiscardHandler),
		errorHandler: DefaultErrorHandler,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetServer attaches the socket server used by StartHandling.
func (r *Router) SetServer(s *Server) {
	r.server = s
}

func (r *Router) GET(path string, h HandlerFunc, mw ...Middleware) *Route {
	return r.Handle(MethodGet, path, h, mw...)
}

func (r *Router) POST(path string, h HandlerFunc, mw ...Middleware) *Route {
	return r.Handle(MethodPost, path, h, mw...)
}

func (r *Router) PUT(path string, h HandlerFunc, mw ...Middleware) *Route {
	return r.Handle(MethodPut, path, h, mw...)
}

func (r *Router) DELETE(path string, h HandlerFunc, mw ...Middleware) *Route {
	return r.Handle(MethodDelete, path, h, mw...)
}

func (r *Router) PATCH(path string, h HandlerFunc, mw ...Middleware) *Route {
	return r.Handle(MethodPatch, path, h, mw...)
}

func (r *Router) OPTIONS(path string, h HandlerFunc, mw ...Middleware) *Route {
	return r.Handle(MethodOptions, path, h, mw...)
}

func (r *Router) HEAD(path string, h HandlerFunc, mw ...Middleware) *Route {
	return r.Handle(MethodHead, path, h, mw...)
}

// Handle registers h for method and path. The effective path is the
// concatenation of all active group prefixes and path; the effective
// middleware list is all active group middleware (outer to inner) followed
// by mw. Registering the same method and effective path again replaces the
// handler but keeps the route's original match priority.
func (r *Router) Handle(method, path string, h HandlerFunc, mw ...Middleware) *Route {
	method = strings.ToUpper(method)
	if !slices.Contains(Methods, method) {
		panic(fmt.Sprintf("meract: unsupported method %q", method))
	}
	if h == nil {
		panic("meract: nil handler for " + method + " " + path)
	}

	var (
		prefix     strings.Builder
		namePrefix strings.Builder
		chain      []Middleware
	)
	for _, g := range r.groups {
		prefix.WriteString(g.prefix)
		namePrefix.WriteString(g.namePrefix)
		chain = append(chain, g.middlewares...)
	}
	chain = append(chain, mw...)
	pattern := prefix.String() + path
	wrapped := Chain(h, chain...)

	for _, rt := range r.routes[method] {
		if rt.pattern == pattern {
			rt.handler = wrapped
			rt.namePrefix = namePrefix.String()
			return rt
		}
	}

	rt := &Route{
		router:     r,
		matcher:    compilePattern(pattern),
		handler:    wrapped,
		method:     method,
		pattern:    pattern,
		namePrefix: namePrefix.String(),
	}
	r.routes[method] = append(r.routes[method], rt)
	return rt
}

// Group registers routes under a shared prefix and middleware list.
// fn is called synchronously; groups nest arbitrarily.
func (r *Router) Group(prefix string, fn func(r *Router), mw ...Middleware) {
	r.GroupNamed(prefix, "", fn, mw...)
}

// GroupNamed is Group with a name prefix applied to routes named inside fn.
func (r *Router) GroupNamed(prefix, namePrefix string, fn func(r *Router), mw ...Middleware) {
	r.groups = append(r.groups, groupFrame{
		prefix:      prefix,
		namePrefix:  namePrefix,
		middlewares: slices.Clone(mw),
	})
	defer func() {
		r.groups = r.groups[:len(r.groups)-1]
	}()
	fn(r)
}

// Use appends global middleware. Global middleware wraps the whole dispatch,
// including static files and the not-found fallback.
func (r *Router) Use(mw ...Middleware) {
	r.global = append(r.global, mw...)
	r.compiled.Store(nil)
}

// URL builds the path of the named route, substituting {key} placeholders
// with params. It fails with ErrRouteNotFound for an unknown name and with
// ErrMissingParam when a placeholder is left unfilled.
func (r *Router) URL(name string, params map[string]string) (string, error) {
	rt, ok := r.named[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRouteNotFound, name)
	}

	path := rt.pattern
	for k, v := range params {
		path = strings.ReplaceAll(path, "{"+k+"}", url.PathEscape(v))
	}
	if m := placeholderRe.FindStringSubmatch(path); m != nil {
		return "", fmt.Errorf("%w: %s requires %q", ErrMissingParam, name, m[1])
	}
	return path, nil
}

// Routes lists registered routes grouped by method, each method in
// registration order.
func (r *Router) Routes() []RouteInfo {
	var out []RouteInfo
	for _, method := range Methods {
		for _, rt := range r.routes[method] {
			out = append(out, RouteInfo{Method: rt.method, Pattern: rt.pattern, Name: rt.name})
		}
	}
	return out
}

// compilePattern turns a route pattern into an anchored regexp where every
// {name} matches exactly one non-empty path segment.
func compilePattern(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteByte('^')
	last := 0
	for _, loc := range placeholderRe.FindAllStringSubmatchIndex(pattern, -1) {
		b.WriteString(regexp.QuoteMeta(pattern[last:loc[0]]))
		b.WriteString("(?P<")
		b.WriteString(pattern[loc[2]:loc[3]])
		b.WriteString(">[^/]+)")
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(pattern[last:]))
	b.WriteByte('$')
	return regexp.MustCompile(b.String())
}
