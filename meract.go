package meract

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"

	"github.com/dmitrymomot/meract/internal"
	"github.com/dmitrymomot/meract/pkg/health"
)

// Type aliases - public API
type (
	// Router maps method and path patterns to handlers and dispatches
	// requests in push mode (StartHandling) or pull mode (HandleRequest).
	Router = internal.Router

	// Route is a registered route; Name makes it reachable through URL.
	Route = internal.Route

	// RouteInfo describes a registered route.
	RouteInfo = internal.RouteInfo

	// Server is the raw TCP server used in push mode.
	Server = internal.Server

	// Request is a parsed HTTP request.
	Request = internal.Request

	// Response is an HTTP response serialized as HTTP/1.1.
	Response = internal.Response

	// Header is a single response header.
	Header = internal.Header

	// Cookie is a response cookie.
	Cookie = internal.Cookie

	// Params holds the placeholder values captured by a route pattern.
	Params = internal.Params

	// HandlerFunc is the signature for route handlers.
	HandlerFunc = internal.HandlerFunc

	// Middleware wraps route handlers.
	Middleware = internal.Middleware

	// MiddlewareFunc adapts a function to Middleware.
	MiddlewareFunc = internal.MiddlewareFunc

	// ErrorHandler turns handler errors into responses.
	ErrorHandler = internal.ErrorHandler

	// ConnHandler is invoked by the socket server once per connection.
	ConnHandler = internal.ConnHandler

	// RequestLogger observes dispatched requests.
	RequestLogger = internal.RequestLogger

	// SlogRequestLogger is the slog-backed RequestLogger.
	SlogRequestLogger = internal.SlogRequestLogger

	// StaticResolver finds static files for unmatched paths.
	StaticResolver = internal.StaticResolver

	// HTTPError carries the status code an error should be answered with.
	HTTPError = internal.HTTPError

	// Metrics holds the router and server Prometheus collectors.
	Metrics = internal.Metrics

	// Option configures a Router.
	Option = internal.Option

	// ServerOption configures a Server.
	ServerOption = internal.ServerOption

	// RunOption configures RunSocket, RunHTTP and RunFastHTTP.
	RunOption = internal.RunOption

	// CookieOption configures a response cookie.
	CookieOption = internal.CookieOption

	// HTTPErrorOption configures an HTTPError.
	HTTPErrorOption = internal.HTTPErrorOption
)

// Supported HTTP methods.
const (
	MethodGet     = internal.MethodGet
	MethodPost    = internal.MethodPost
	MethodPut     = internal.MethodPut
	MethodDelete  = internal.MethodDelete
	MethodPatch   = internal.MethodPatch
	MethodOptions = internal.MethodOptions
	MethodHead    = internal.MethodHead
)

// Sentinel errors.
var (
	ErrBind          = internal.ErrBind
	ErrServerNotSet  = internal.ErrServerNotSet
	ErrRouteNotFound = internal.ErrRouteNotFound
	ErrMissingParam  = internal.ErrMissingParam
	ErrServerClosed  = internal.ErrServerClosed
)

// Router

// NewRouter creates a router.
//
// Example:
//
//	server, err := meract.NewServer("0.0.0.0", 8000)
//	if err != nil {
//		return err
//	}
//	router := meract.NewRouter(
//		meract.WithServer(server),
//		meract.WithLogger(log),
//		meract.WithRequestLogger(meract.NewRequestLogger(log)),
//	)
//	router.GET("/users/{id}", showUser).Name("profile")
//	err = router.StartHandling(ctx, nil)
func NewRouter(opts ...Option) *Router {
	return internal.NewRouter(opts...)
}

// WithServer attaches the socket server used by StartHandling.
func WithServer(s *Server) Option {
	return internal.WithServer(s)
}

// WithLogger sets the router logger. Defaults to discarding.
func WithLogger(l *slog.Logger) Option {
	return internal.WithLogger(l)
}

// WithRequestLogger sets the collaborator told about every request.
func WithRequestLogger(l RequestLogger) Option {
	return internal.WithRequestLogger(l)
}

// WithStatic sets the static file resolver tried after routes.
func WithStatic(s StaticResolver) Option {
	return internal.WithStatic(s)
}

// WithNotFoundHandler sets the handler used when neither a route nor a
// static file matches.
func WithNotFoundHandler(h HandlerFunc) Option {
	return internal.WithNotFoundHandler(h)
}

// WithErrorHandler sets how handler errors become responses.
func WithErrorHandler(h ErrorHandler) Option {
	return internal.WithErrorHandler(h)
}

// WithMetrics records per-request metrics.
func WithMetrics(m *Metrics) Option {
	return internal.WithMetrics(m)
}

// WithMiddleware adds global middleware, outermost first.
func WithMiddleware(mw ...Middleware) Option {
	return internal.WithMiddleware(mw...)
}

// Chain composes middleware around h; the first runs first.
func Chain(h HandlerFunc, mw ...Middleware) HandlerFunc {
	return internal.Chain(h, mw...)
}

// Server

// NewServer binds a TCP listener on host:port. Port 0 picks a free port.
func NewServer(host string, port int, opts ...ServerOption) (*Server, error) {
	return internal.NewServer(host, port, opts...)
}

// WithBufferSize caps how many bytes of a request are read. Default: 1024.
func WithBufferSize(n int) ServerOption {
	return internal.WithBufferSize(n)
}

// WithReadTimeout bounds reading a request. Zero disables it.
func WithReadTimeout(d time.Duration) ServerOption {
	return internal.WithReadTimeout(d)
}

// WithWriteTimeout bounds writing a response.
func WithWriteTimeout(d time.Duration) ServerOption {
	return internal.WithWriteTimeout(d)
}

func WithServerLogger(l *slog.Logger) ServerOption {
	return internal.WithServerLogger(l)
}

func WithServerMetrics(m *Metrics) ServerOption {
	return internal.WithServerMetrics(m)
}

// WithListener serves on an existing listener instead of binding one.
func WithListener(ln net.Listener) ServerOption {
	return internal.WithListener(ln)
}

// Requests and responses

// ParseRequest parses raw HTTP request text.
func ParseRequest(raw string) *Request {
	return internal.ParseRequest(raw)
}

// NewRequest builds a request from its parts; target may carry a query.
func NewRequest(method, target string, headers map[string]string) *Request {
	return internal.NewRequest(method, target, headers)
}

// FromHTTP converts a net/http request.
func FromHTTP(r *http.Request) (*Request, error) {
	return internal.FromHTTP(r)
}

// FromFastHTTP converts a fasthttp request.
func FromFastHTTP(fc *fasthttp.RequestCtx) *Request {
	return internal.FromFastHTTP(fc)
}

// NewResponse creates a response. It panics on a status code outside the
// reason table.
func NewResponse(status int, body []byte) *Response {
	return internal.NewResponse(status, body)
}

// String creates a text/plain response.
func String(status int, body string) *Response {
	return internal.String(status, body)
}

// HTML creates a text/html response.
func HTML(status int, body string) *Response {
	return internal.HTML(status, body)
}

// JSON encodes v as an application/json response.
func JSON(status int, v any) (*Response, error) {
	return internal.JSON(status, v)
}

// Redirect creates a redirect to location.
func Redirect(status int, location string) *Response {
	return internal.Redirect(status, location)
}

// NoContent creates an empty 204 response.
func NoContent() *Response {
	return internal.NoContent()
}

// ErrorResponse creates the standard error page for status.
func ErrorResponse(status int) *Response {
	return internal.ErrorResponse(status)
}

// StatusText returns the reason phrase for code.
func StatusText(code int) (string, bool) {
	return internal.StatusText(code)
}

func WithCookieExpires(t time.Time) CookieOption {
	return internal.WithCookieExpires(t)
}

func WithCookieMaxAge(d time.Duration) CookieOption {
	return internal.WithCookieMaxAge(d)
}

func WithCookiePath(path string) CookieOption {
	return internal.WithCookiePath(path)
}

func WithCookieDomain(domain string) CookieOption {
	return internal.WithCookieDomain(domain)
}

func WithCookieSecure() CookieOption {
	return internal.WithCookieSecure()
}

func WithCookieHTTPOnly() CookieOption {
	return internal.WithCookieHTTPOnly()
}

// Errors

// NewHTTPError creates an error answered with code.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.NewHTTPError(code, message, opts...)
}

// WithError attaches the underlying cause to an HTTPError.
func WithError(err error) HTTPErrorOption {
	return internal.WithError(err)
}

func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrBadRequest(message, opts...)
}

func ErrUnauthorized(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrUnauthorized(message, opts...)
}

func ErrForbidden(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrForbidden(message, opts...)
}

func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrNotFound(message, opts...)
}

func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrInternal(message, opts...)
}

func ErrServiceUnavailable(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrServiceUnavailable(message, opts...)
}

// AsHTTPError extracts an HTTPError from err, or returns nil.
func AsHTTPError(err error) *HTTPError {
	return internal.AsHTTPError(err)
}

// DefaultErrorHandler answers HTTPErrors with their code and anything
// else with 500.
func DefaultErrorHandler(req *Request, err error) *Response {
	return internal.DefaultErrorHandler(req, err)
}

// Collaborators

// NewRequestLogger logs "METHOD path" for every dispatched request.
func NewRequestLogger(l *slog.Logger) *SlogRequestLogger {
	return internal.NewRequestLogger(l)
}

// NewMetrics registers the collectors with reg, or the default registry
// when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return internal.NewMetrics(reg)
}

// WrapHTTP runs a net/http handler as a route handler.
//
// Example:
//
//	router.GET("/metrics", meract.WrapHTTP(promhttp.Handler()))
func WrapHTTP(h http.Handler) HandlerFunc {
	return internal.WrapHTTP(h)
}

// Runtime

// RunSocket serves the router on its attached socket server until SIGINT
// or SIGTERM.
func RunSocket(r *Router, opts ...RunOption) error {
	return internal.RunSocket(r, opts...)
}

// RunHTTP serves the router under net/http (behind chi) until SIGINT or
// SIGTERM.
func RunHTTP(r *Router, opts ...RunOption) error {
	return internal.RunHTTP(r, opts...)
}

// RunFastHTTP serves the router under fasthttp until SIGINT or SIGTERM.
func RunFastHTTP(r *Router, opts ...RunOption) error {
	return internal.RunFastHTTP(r, opts...)
}

// HTTPHandler returns the router mounted for net/http.
func HTTPHandler(r *Router) http.Handler {
	return internal.HTTPHandler(r)
}

// Address sets the listen address for RunHTTP and RunFastHTTP.
func Address(addr string) RunOption {
	return internal.Address(addr)
}

// Logger sets the runtime logger.
func Logger(l *slog.Logger) RunOption {
	return internal.Logger(l)
}

// ShutdownTimeout bounds graceful shutdown.
func ShutdownTimeout(d time.Duration) RunOption {
	return internal.ShutdownTimeout(d)
}

// ShutdownHook registers cleanup run after the server stops.
func ShutdownHook(fn func(context.Context) error) RunOption {
	return internal.ShutdownHook(fn)
}

// WithContext sets the base context for signal handling.
func WithContext(ctx context.Context) RunOption {
	return internal.WithContext(ctx)
}

// Health

// HealthChecks maps check names to functions; see pkg/health.
type HealthChecks = health.Checks
