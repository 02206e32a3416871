package internal

import (
	"context"
	"net/url"
	"strings"
)

// Supported request methods. Any other token is kept as received
// (uppercased) but never matches a registered route.
const (
	MethodGet     = "GET"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodDelete  = "DELETE"
	MethodPatch   = "PATCH"
	MethodOptions = "OPTIONS"
	MethodHead    = "HEAD"
)

// Methods lists the supported methods in registration-API order.
var Methods = []string{
	MethodGet, MethodPost, MethodPut, MethodDelete,
	MethodPatch, MethodOptions, MethodHead,
}

// Request is an inbound HTTP request. It is built once per connection or
// ambient request and treated as read-only afterwards, except for SetParam.
// A Request is not safe for concurrent use.
type Request struct {
	ctx        context.Context
	params     map[string]string
	headers    map[string]string
	cookies    map[string]string
	method     string
	path       string
	rawQuery   string
	remoteAddr string
	body       []byte

	cookiesParsed bool
}

// ParseRequest builds a Request from the raw text of a request head as read
// from a socket. Lines are split on "\n" and trimmed, so both CRLF and bare
// LF framing are accepted. Parsing never fails: a malformed request line
// yields an empty method and path, which the router treats as unroutable.
// Anything after the first blank line is kept as the (possibly truncated) body.
func ParseRequest(raw string) *Request {
	r := newRequest()

	lines := strings.Split(raw, "\n")
	if len(lines) == 0 {
		return r
	}

	parts := strings.Fields(strings.TrimSpace(lines[0]))
	if len(parts) >= 2 {
		r.method = strings.ToUpper(parts[0])
		r.setTarget(parts[1])
	}

	for i := 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			if rest := strings.Join(lines[i+1:], "\n"); rest != "" {
				r.body = []byte(rest)
			}
			break
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		r.headers[key] = value
	}

	return r
}

// NewRequest builds a Request from already-separated parts.
// target may carry a query string, which is parsed into params.
func NewRequest(method, target string, headers map[string]string) *Request {
	r := newRequest()
	r.method = strings.ToUpper(method)
	r.setTarget(target)
	for k, v := range headers {
		r.headers[k] = v
	}
	return r
}

func newRequest() *Request {
	return &Request{
		params:  make(map[string]string),
		headers: make(map[string]string),
	}
}

// setTarget splits target at the first '?' into path and query.
func (r *Request) setTarget(target string) {
	path, query, _ := strings.Cut(target, "?")
	r.path = path
	r.rawQuery = query
	mergeQuery(r.params, query)
}

// mergeQuery parses a query string into dst, keeping the first value of
// repeated keys. Malformed pairs are skipped; valid ones are kept.
func mergeQuery(dst map[string]string, query string) {
	if query == "" {
		return
	}
	values, _ := url.ParseQuery(query)
	for k, vs := range values {
		if len(vs) > 0 {
			dst[k] = vs[0]
		}
	}
}

// Context returns the request context, never nil.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// WithContext returns a shallow copy of r carrying ctx.
func (r *Request) WithContext(ctx context.Context) *Request {
	if ctx == nil {
		panic("meract: nil context")
	}
	r2 := *r
	r2.ctx = ctx
	return &r2
}

func (r *Request) Method() string { return r.method }

// Path returns the request path as sent, still percent-encoded.
func (r *Request) Path() string { return r.path }

func (r *Request) RawQuery() string   { return r.rawQuery }
func (r *Request) RemoteAddr() string { return r.remoteAddr }
func (r *Request) Body() []byte       { return r.body }

// URI returns the path with the query string re-attached.
func (r *Request) URI() string {
	if r.rawQuery == "" {
		return r.path
	}
	return r.path + "?" + r.rawQuery
}

// Param returns a query or body parameter.
func (r *Request) Param(key string) string {
	return r.params[key]
}

// Params returns a copy of all query and body parameters.
func (r *Request) Params() map[string]string {
	out := make(map[string]string, len(r.params))
	for k, v := range r.params {
		out[k] = v
	}
	return out
}

// SetParam adds or replaces a parameter. Used by middleware that needs to
// attach framework-level values to the request.
func (r *Request) SetParam(key, value string) {
	r.params[key] = value
}

// Header returns a header value. The exact key is tried first, then a
// case-insensitive match.
func (r *Request) Header(name string) string {
	if v, ok := r.headers[name]; ok {
		return v
	}
	for k, v := range r.headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Headers returns a copy of the headers with their original casing.
func (r *Request) Headers() map[string]string {
	out := make(map[string]string, len(r.headers))
	for k, v := range r.headers {
		out[k] = v
	}
	return out
}

// Cookie returns the named cookie value.
func (r *Request) Cookie(name string) (string, bool) {
	r.parseCookies()
	v, ok := r.cookies[name]
	return v, ok
}

// Cookies returns a copy of all request cookies.
func (r *Request) Cookies() map[string]string {
	r.parseCookies()
	out := make(map[string]string, len(r.cookies))
	for k, v := range r.cookies {
		out[k] = v
	}
	return out
}

// parseCookies splits the Cookie header on ';' and each pair on the first
// '='. Pairs without '=' or with an empty name are skipped.
func (r *Request) parseCookies() {
	if r.cookiesParsed {
		return
	}
	r.cookiesParsed = true
	r.cookies = make(map[string]string)

	header := r.Header("Cookie")
	if header == "" {
		return
	}
	for pair := range strings.SplitSeq(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if unescaped, err := url.QueryUnescape(value); err == nil {
			value = unescaped
		}
		r.cookies[name] = value
	}
}
