package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxAmbientBody caps how much of an ambient request body is read.
const maxAmbientBody = 10 << 20

// FromHTTP builds a Request from a net/http request. Query and form values
// are merged into params, and a JSON object body is merged on top when the
// Content-Type contains application/json. Non-string JSON values are stored
// as their JSON text.
func FromHTTP(hr *http.Request) (*Request, error) {
	req := newRequest()
	req.ctx = hr.Context()
	req.method = strings.ToUpper(hr.Method)
	req.path = hr.URL.EscapedPath()
	req.rawQuery = hr.URL.RawQuery
	req.remoteAddr = hr.RemoteAddr

	for key, values := range hr.Header {
		req.headers[key] = strings.Join(values, ", ")
	}
	if hr.Host != "" {
		req.headers["Host"] = hr.Host
	}

	if hr.Body != nil {
		body, err := io.ReadAll(io.LimitReader(hr.Body, maxAmbientBody))
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		req.body = body
		hr.Body = io.NopCloser(bytes.NewReader(body))
	}

	if err := hr.ParseForm(); err == nil {
		for key, values := range hr.Form {
			if len(values) > 0 {
				req.params[key] = values[0]
			}
		}
	} else {
		mergeQuery(req.params, req.rawQuery)
	}

	if strings.Contains(req.Header("Content-Type"), "application/json") {
		mergeJSON(req.params, req.body)
	}

	return req, nil
}

// mergeJSON merges a JSON object body into dst. Anything other than an
// object is ignored.
func mergeJSON(dst map[string]string, body []byte) {
	if len(bytes.TrimSpace(body)) == 0 {
		return
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return
	}
	for key, raw := range fields {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			dst[key] = s
			continue
		}
		dst[key] = string(raw)
	}
}

// ServeHTTP lets the router run under any net/http server (pull mode).
func (r *Router) ServeHTTP(w http.ResponseWriter, hr *http.Request) {
	req, err := FromHTTP(hr)
	if err != nil {
		r.logger.WarnContext(hr.Context(), "build request", "error", err)
		writeHTTP(w, ErrorResponse(http.StatusBadRequest))
		return
	}
	writeHTTP(w, r.HandleRequest(req))
}

func writeHTTP(w http.ResponseWriter, resp *Response) {
	h := w.Header()
	for _, header := range resp.Headers() {
		h.Set(header.Key, header.Value)
	}
	for _, c := range resp.Cookies() {
		h.Add("Set-Cookie", c.String())
	}
	w.WriteHeader(resp.Status())
	_, _ = w.Write(resp.Body())
}

// WrapHTTP runs a net/http handler as a route handler. The handler's output
// is buffered and converted into a Response.
//
// Example:
//
//	router.GET("/metrics", meract.WrapHTTP(promhttp.Handler()))
func WrapHTTP(h http.Handler) HandlerFunc {
	return func(req *Request, _ Params) (*Response, error) {
		hr, err := http.NewRequestWithContext(req.Context(), req.Method(), req.URI(), bytes.NewReader(req.Body()))
		if err != nil {
			return nil, fmt.Errorf("build http request: %w", err)
		}
		for key, value := range req.headers {
			hr.Header.Set(key, value)
		}
		hr.Host = req.Header("Host")
		hr.RemoteAddr = req.RemoteAddr()

		buf := newResponseBuffer()
		h.ServeHTTP(buf, hr)
		return buf.response(), nil
	}
}
