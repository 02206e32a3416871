package internal

import "context"

// Params holds values captured from {name} placeholders of the matched route.
// It is empty for routes without placeholders.
type Params map[string]string

// Get returns the captured value for name.
func (p Params) Get(name string) string {
	return p[name]
}

// HandlerFunc is the signature for route handlers.
// Returning a nil response with a nil error is treated as "nothing useful
// produced" and answered with a 404 error page. A non-nil error is passed
// to the router's ErrorHandler.
type HandlerFunc func(req *Request, params Params) (*Response, error)

// Middleware wraps the remainder of the chain. It may inspect or modify the
// request, short-circuit by not calling next, or post-process the response.
//
// Example:
//
//	type Auth struct{}
//
//	func (Auth) Handle(req *meract.Request, next meract.HandlerFunc, params meract.Params) (*meract.Response, error) {
//	    if req.Header("Authorization") == "" {
//	        return meract.ErrorResponse(401), nil
//	    }
//	    return next(req, params)
//	}
type Middleware interface {
	Handle(req *Request, next HandlerFunc, params Params) (*Response, error)
}

// MiddlewareFunc adapts a plain function to the Middleware interface.
type MiddlewareFunc func(req *Request, next HandlerFunc, params Params) (*Response, error)

func (f MiddlewareFunc) Handle(req *Request, next HandlerFunc, params Params) (*Response, error) {
	return f(req, next, params)
}

// ErrorHandler turns a handler error into a response.
type ErrorHandler func(req *Request, err error) *Response

// ConnHandler is what the socket server invokes per connection.
// A nil response closes the connection without writing anything.
type ConnHandler func(req *Request) *Response

// RequestLogger observes every dispatched request before route matching.
type RequestLogger interface {
	Handle(req *Request)
}

// StaticResolver looks up a file for a request path.
// It returns the file content and its MIME type, or an error wrapping
// a not-found sentinel when no file exists.
type StaticResolver interface {
	Resolve(ctx context.Context, path string) ([]byte, string, error)
}

// Chain composes mw around h. The first middleware is the outermost and
// runs first.
func Chain(h HandlerFunc, mw ...Middleware) HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		m, next := mw[i], h
		h = func(req *Request, params Params) (*Response, error) {
			return m.Handle(req, next, params)
		}
	}
	return h
}
