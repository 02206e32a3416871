package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const crlf = "\r\n"

// Header is a single response header line.
type Header struct {
	Key   string
	Value string
}

// Response is a mutable HTTP response built by handlers and serialized
// exactly once, either to a raw connection or to an ambient server.
type Response struct {
	body    []byte
	headers []Header
	cookies []Cookie
	status  int
}

// NewResponse creates a response with the given status and body.
// It panics when status is not in the reason-phrase table: emitting an
// unknown status is a programming error.
func NewResponse(status int, body []byte) *Response {
	mustValidStatus(status)
	return &Response{status: status, body: body}
}

// String creates a text/plain response.
func String(status int, body string) *Response {
	return NewResponse(status, []byte(body)).
		SetHeader("Content-Type", "text/plain; charset=utf-8")
}

// HTML creates a text/html response.
func HTML(status int, body string) *Response {
	return NewResponse(status, []byte(body)).
		SetHeader("Content-Type", "text/html; charset=utf-8")
}

// JSON creates an application/json response with v encoded as the body.
func JSON(status int, v any) (*Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json response: %w", err)
	}
	return NewResponse(status, data).
		SetHeader("Content-Type", "application/json"), nil
}

// Redirect creates a redirect response pointing at location.
func Redirect(status int, location string) *Response {
	return NewResponse(status, nil).SetHeader("Location", location)
}

// NoContent creates an empty 204 response.
func NoContent() *Response {
	return NewResponse(204, nil)
}

// ErrorResponse renders the framework's minimal HTML error page for status.
func ErrorResponse(status int) *Response {
	text, _ := StatusText(status)
	return HTML(status, fmt.Sprintf("<h1>meract: %d - %s</h1>", status, text))
}

func (r *Response) Status() int { return r.status }

// SetStatus changes the status code. It panics on an unknown code.
func (r *Response) SetStatus(status int) *Response {
	mustValidStatus(status)
	r.status = status
	return r
}

func (r *Response) Body() []byte { return r.body }

func (r *Response) SetBody(body []byte) *Response {
	r.body = body
	return r
}

// SetHeader sets a header. The key has its first character uppercased and
// the rest left as given. An existing header with the same key (compared
// case-insensitively) is replaced in place, keeping its original position.
func (r *Response) SetHeader(key, value string) *Response {
	key = normalizeHeaderKey(key)
	for i := range r.headers {
		if strings.EqualFold(r.headers[i].Key, key) {
			r.headers[i] = Header{Key: key, Value: value}
			return r
		}
	}
	r.headers = append(r.headers, Header{Key: key, Value: value})
	return r
}

// Header returns the value of the named header or an empty string.
func (r *Response) Header(key string) string {
	for _, h := range r.headers {
		if strings.EqualFold(h.Key, key) {
			return h.Value
		}
	}
	return ""
}

// DelHeader removes the named header if present.
func (r *Response) DelHeader(key string) *Response {
	for i, h := range r.headers {
		if strings.EqualFold(h.Key, key) {
			r.headers = append(r.headers[:i], r.headers[i+1:]...)
			break
		}
	}
	return r
}

// Headers returns headers in insertion order.
func (r *Response) Headers() []Header {
	out := make([]Header, len(r.headers))
	copy(out, r.headers)
	return out
}

// SetCookie appends a Set-Cookie directive.
func (r *Response) SetCookie(name, value string, opts ...CookieOption) *Response {
	c := Cookie{Name: name, Value: value}
	for _, opt := range opts {
		opt(&c)
	}
	return r.AddCookie(c)
}

func (r *Response) AddCookie(c Cookie) *Response {
	r.cookies = append(r.cookies, c)
	return r
}

func (r *Response) Cookies() []Cookie {
	out := make([]Cookie, len(r.cookies))
	copy(out, r.cookies)
	return out
}

// Bytes serializes the response to the wire format:
// status line, headers in insertion order, one Set-Cookie line per cookie,
// a blank line and the body verbatim. Every line ends with CRLF.
func (r *Response) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = r.WriteTo(&buf)
	return buf.Bytes()
}

// WriteTo writes the serialized response to w.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	text, _ := StatusText(r.status)
	b.WriteString("HTTP/1.1 ")
	b.WriteString(strconv.Itoa(r.status))
	b.WriteByte(' ')
	b.WriteString(text)
	b.WriteString(crlf)

	for _, h := range r.headers {
		b.WriteString(h.Key)
		b.WriteString(": ")
		b.WriteString(h.Value)
		b.WriteString(crlf)
	}
	for _, c := range r.cookies {
		b.WriteString("Set-Cookie: ")
		b.WriteString(c.String())
		b.WriteString(crlf)
	}
	b.WriteString(crlf)

	n, err := io.WriteString(w, b.String())
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(r.body)
	return int64(n + m), err
}

func normalizeHeaderKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + key[1:]
}

func mustValidStatus(status int) {
	if !ValidStatus(status) {
		panic(fmt.Sprintf("meract: unknown response status %d", status))
	}
}
