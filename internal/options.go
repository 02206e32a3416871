package internal

import (
	"log/slog"
)

// Option configures a Router.
type Option func(*Router)

// WithServer attaches the socket server used by StartHandling.
func WithServer(s *Server) Option {
	return func(r *Router) {
		r.server = s
	}
}

// WithLogger sets the logger used for dispatch-level events
// (handler errors, recovered panics, static lookup failures).
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRequestLogger sets the collaborator invoked once per dispatched
// request before route matching.
func WithRequestLogger(l RequestLogger) Option {
	return func(r *Router) {
		r.requestLogger = l
	}
}

// WithStatic sets the static file fallback consulted when no route matches.
//
// Example:
//
//	dir, _ := static.NewDir("./public")
//	router := meract.NewRouter(meract.WithStatic(dir))
func WithStatic(s StaticResolver) Option {
	return func(r *Router) {
		r.static = s
	}
}

// WithNotFoundHandler sets the handler used when neither a route nor a
// static file matches.
func WithNotFoundHandler(h HandlerFunc) Option {
	return func(r *Router) {
		r.notFound = h
	}
}

// WithErrorHandler replaces DefaultErrorHandler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(r *Router) {
		if h != nil {
			r.errorHandler = h
		}
	}
}

// WithMetrics records per-request counters on m.
func WithMetrics(m *Metrics) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithMiddleware adds global middleware, same as Router.Use.
func WithMiddleware(mw ...Middleware) Option {
	return func(r *Router) {
		r.Use(mw...)
	}
}
