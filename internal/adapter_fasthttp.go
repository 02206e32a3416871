package internal

import (
	"context"
	"strings"

	"github.com/valyala/fasthttp"
)

// FromFastHTTP builds a Request from a fasthttp request context. Query and
// form values are merged into params, then a JSON object body when the
// Content-Type contains application/json.
//
// fasthttp recycles fc once the handler returns, so everything is copied
// and the Request carries a detached context rather than fc itself. Work
// that outlives the response, such as a handler abandoned by the Timeout
// middleware, never touches a recycled RequestCtx.
func FromFastHTTP(fc *fasthttp.RequestCtx) *Request {
	req := newRequest()
	req.ctx = context.Background()
	req.method = strings.ToUpper(string(fc.Method()))
	req.path = string(fc.URI().PathOriginal())
	if req.path == "" {
		req.path = string(fc.Path())
	}
	req.rawQuery = string(fc.QueryArgs().QueryString())
	req.remoteAddr = fc.RemoteAddr().String()

	fc.Request.Header.VisitAll(func(k, v []byte) {
		req.headers[string(k)] = string(v)
	})

	fc.QueryArgs().VisitAll(func(k, v []byte) {
		if _, ok := req.params[string(k)]; !ok {
			req.params[string(k)] = string(v)
		}
	})

	body := fc.PostBody()
	if len(body) > 0 {
		req.body = append([]byte(nil), body...)
	}

	switch req.method {
	case MethodPost, MethodPut, MethodPatch:
		fc.PostArgs().VisitAll(func(k, v []byte) {
			if _, ok := req.params[string(k)]; !ok {
				req.params[string(k)] = string(v)
			}
		})
	}

	if strings.Contains(string(fc.Request.Header.ContentType()), "application/json") {
		mergeJSON(req.params, req.body)
	}

	return req
}

// FastHTTPHandler returns a fasthttp handler running the router in pull mode.
func (r *Router) FastHTTPHandler() fasthttp.RequestHandler {
	return func(fc *fasthttp.RequestCtx) {
		resp := r.HandleRequest(FromFastHTTP(fc))

		fc.SetStatusCode(resp.Status())
		for _, h := range resp.Headers() {
			fc.Response.Header.Set(h.Key, h.Value)
		}
		for _, c := range resp.Cookies() {
			fc.Response.Header.Add("Set-Cookie", c.String())
		}
		fc.SetBody(resp.Body())
	}
}
