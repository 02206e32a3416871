package internal

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"
)

// StartHandling serves requests from the attached socket server until ctx
// is done. onStart is called once before the first accept.
func (r *Router) StartHandling(ctx context.Context, onStart func(*Server)) error {
	if r.server == nil {
		return ErrServerNotSet
	}
	return r.server.Listen(ctx, r.ConnHandler(), onStart)
}

// ConnHandler returns the push-mode handler: resolve wrapped in global
// middleware. A blank path yields nil, which the server treats as no-op.
func (r *Router) ConnHandler() ConnHandler {
	return r.dispatch
}

func (r *Router) dispatch(req *Request) *Response {
	resp, err := r.chain()(req, Params{})
	if err != nil {
		return r.handleError(req, err)
	}
	return resp
}

// chain returns resolve wrapped in global middleware, built on first use
// and again after Use adds middleware.
func (r *Router) chain() HandlerFunc {
	if h := r.compiled.Load(); h != nil {
		return *h
	}
	h := Chain(r.resolve, r.global...)
	r.compiled.Store(&h)
	return h
}

// HandleRequest resolves a single request and always returns a response.
// It is the pull-mode entry point used under an external server: panics are
// recovered into a 500 and a no-op result becomes a 404.
func (r *Router) HandleRequest(req *Request) (resp *Response) {
	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.panicRecovered()
			r.logger.ErrorContext(req.Context(), "handler panic",
				slog.Any("panic", rec),
				slog.String("method", req.Method()),
				slog.String("path", req.Path()),
				slog.String("stack", string(debug.Stack())),
			)
			resp = ErrorResponse(500)
		}
	}()

	resp = r.dispatch(req)
	if resp == nil {
		resp = notFoundResponse()
	}
	return resp
}

// resolve is the single matching algorithm shared by push and pull modes:
// route, then static file, then not-found handler, then a plain 404.
func (r *Router) resolve(req *Request, _ Params) (*Response, error) {
	if strings.TrimSpace(req.Path()) == "" {
		return nil, nil
	}

	if r.requestLogger != nil {
		r.requestLogger.Handle(req)
	}

	start := time.Now()

	for _, rt := range r.routes[req.Method()] {
		params, ok := rt.match(req.Path())
		if !ok {
			continue
		}
		resp, err := rt.handler(req, params)
		switch {
		case err != nil:
			resp = r.handleError(req, err)
		case resp == nil:
			resp = ErrorResponse(404)
		}
		r.metrics.observeRequest(req.Method(), rt.pattern, resp.Status(), time.Since(start))
		return resp, nil
	}

	if resp := r.serveStatic(req); resp != nil {
		r.metrics.observeRequest(req.Method(), "static", resp.Status(), time.Since(start))
		return resp, nil
	}

	resp := notFoundResponse()
	if r.notFound != nil {
		nf, err := r.notFound(req, Params{})
		switch {
		case err != nil:
			resp = r.handleError(req, err)
		case nf != nil:
			resp = nf
		}
	}
	r.metrics.observeRequest(req.Method(), "", resp.Status(), time.Since(start))
	return resp, nil
}

func (r *Router) serveStatic(req *Request) *Response {
	if r.static == nil {
		return nil
	}
	body, mime, err := r.static.Resolve(req.Context(), unescapeSegment(req.Path()))
	if err != nil {
		r.logger.DebugContext(req.Context(), "static lookup", slog.String("path", req.Path()), slog.Any("error", err))
		return nil
	}
	if mime == "" {
		mime = "application/octet-stream"
	}
	return NewResponse(200, body).SetHeader("Content-Type", mime)
}

func (r *Router) handleError(req *Request, err error) *Response {
	level := slog.LevelError
	if httpErr := AsHTTPError(err); httpErr != nil && httpErr.Code < 500 {
		level = slog.LevelDebug
	}
	r.logger.Log(req.Context(), level, "handler error",
		slog.String("method", req.Method()),
		slog.String("path", req.Path()),
		slog.Any("error", err),
	)
	if resp := r.errorHandler(req, err); resp != nil {
		return resp
	}
	return ErrorResponse(500)
}

func notFoundResponse() *Response {
	return NewResponse(404, []byte("Not Found"))
}
