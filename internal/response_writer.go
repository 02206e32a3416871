package internal

import (
	"bytes"
	"net/http"
	"strings"
)

// responseBuffer is an http.ResponseWriter that captures everything a
// net/http handler writes so it can be turned into a Response.
type responseBuffer struct {
	header  http.Header
	body    bytes.Buffer
	status  int
	written bool
}

func newResponseBuffer() *responseBuffer {
	return &responseBuffer{
		header: make(http.Header),
		status: http.StatusOK,
	}
}

func (w *responseBuffer) Header() http.Header {
	return w.header
}

func (w *responseBuffer) WriteHeader(code int) {
	if w.written {
		return
	}
	w.written = true
	w.status = code
}

func (w *responseBuffer) Write(b []byte) (int, error) {
	w.written = true
	return w.body.Write(b)
}

// Flush is a no-op; the buffer is flushed as a whole into the Response.
func (w *responseBuffer) Flush() {}

// response converts the captured output. A status outside the reason table
// falls back to the base code of its class (e.g. 429 becomes 400).
func (w *responseBuffer) response() *Response {
	status := w.status
	if !ValidStatus(status) {
		status = status / 100 * 100
		if !ValidStatus(status) {
			status = http.StatusInternalServerError
		}
	}

	resp := NewResponse(status, w.body.Bytes())
	for key, values := range w.header {
		if strings.EqualFold(key, "Set-Cookie") {
			continue
		}
		resp.SetHeader(key, strings.Join(values, ", "))
	}
	for _, c := range (&http.Response{Header: w.header}).Cookies() {
		resp.AddCookie(fromHTTPCookie(c))
	}
	return resp
}

func fromHTTPCookie(c *http.Cookie) Cookie {
	out := Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Secure:   c.Secure,
		HTTPOnly: c.HttpOnly,
	}
	if !c.Expires.IsZero() {
		out.Expires = c.Expires.Unix()
	}
	return out
}
