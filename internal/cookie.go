package internal

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Cookie is a single Set-Cookie directive attached to a Response.
type Cookie struct {
	Name   string
	Value  string
	Path   string
	Domain string

	// Expires is a Unix timestamp. Values <= 0 produce a session cookie
	// without an expires attribute.
	Expires int64

	Secure   bool
	HTTPOnly bool
}

// String renders the cookie as the value of a Set-Cookie header.
// Attributes are emitted in a fixed order and absent ones are omitted:
//
//	name=value; expires=...; path=...; domain=...; secure; HttpOnly
func (c Cookie) String() string {
	var b strings.Builder
	b.WriteString(url.QueryEscape(c.Name))
	b.WriteByte('=')
	b.WriteString(url.QueryEscape(c.Value))

	if c.Expires > 0 {
		b.WriteString("; expires=")
		b.WriteString(time.Unix(c.Expires, 0).UTC().Format(http.TimeFormat))
	}
	if c.Path != "" {
		b.WriteString("; path=")
		b.WriteString(c.Path)
	}
	if c.Domain != "" {
		b.WriteString("; domain=")
		b.WriteString(c.Domain)
	}
	if c.Secure {
		b.WriteString("; secure")
	}
	if c.HTTPOnly {
		b.WriteString("; HttpOnly")
	}

	return b.String()
}

// CookieOption configures a Cookie set through Response.SetCookie.
type CookieOption func(*Cookie)

// WithCookieExpires sets the expiry as a point in time.
func WithCookieExpires(t time.Time) CookieOption {
	return func(c *Cookie) {
		c.Expires = t.Unix()
	}
}

// WithCookieMaxAge sets the expiry relative to now.
func WithCookieMaxAge(d time.Duration) CookieOption {
	return func(c *Cookie) {
		c.Expires = time.Now().Add(d).Unix()
	}
}

func WithCookiePath(path string) CookieOption {
	return func(c *Cookie) {
		c.Path = path
	}
}

func WithCookieDomain(domain string) CookieOption {
	return func(c *Cookie) {
		c.Domain = domain
	}
}

func WithCookieSecure() CookieOption {
	return func(c *Cookie) {
		c.Secure = true
	}
}

func WithCookieHTTPOnly() CookieOption {
	return func(c *Cookie) {
		c.HTTPOnly = true
	}
}
