package internal_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meract/internal"
)

func TestResponseBytes(t *testing.T) {
	t.Parallel()

	t.Run("status line, headers, cookies and body", func(t *testing.T) {
		t.Parallel()
		resp := internal.NewResponse(201, []byte(`{"ok":true}`)).
			SetHeader("content-Type", "application/json").
			SetHeader("X-Trace", "1").
			SetCookie("sid", "abc", internal.WithCookiePath("/"), internal.WithCookieHTTPOnly())

		want := "HTTP/1.1 201 Created\r\n" +
			"Content-Type: application/json\r\n" +
			"X-Trace: 1\r\n" +
			"Set-Cookie: sid=abc; path=/; HttpOnly\r\n" +
			"\r\n" +
			`{"ok":true}`
		assert.Equal(t, want, string(resp.Bytes()))
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "HTTP/1.1 204 No Content\r\n\r\n", string(internal.NoContent().Bytes()))
	})

	t.Run("WriteTo reports bytes written", func(t *testing.T) {
		t.Parallel()
		resp := internal.String(200, "hi")
		var buf bytes.Buffer
		n, err := resp.WriteTo(&buf)
		require.NoError(t, err)
		assert.Equal(t, int64(buf.Len()), n)
		assert.True(t, strings.HasSuffix(buf.String(), "\r\n\r\nhi"))
	})
}

func TestResponseHeaders(t *testing.T) {
	t.Parallel()

	resp := internal.NewResponse(200, nil).
		SetHeader("a", "1").
		SetHeader("B", "2").
		SetHeader("A", "3")

	require.Equal(t, []internal.Header{{Key: "A", Value: "3"}, {Key: "B", Value: "2"}}, resp.Headers())
	assert.Equal(t, "3", resp.Header("a"))

	resp.DelHeader("a")
	assert.Equal(t, []internal.Header{{Key: "B", Value: "2"}}, resp.Headers())
	assert.Empty(t, resp.Header("A"))
}

func TestResponseStatus(t *testing.T) {
	t.Parallel()

	t.Run("unknown status panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { internal.NewResponse(299, nil) })
		assert.Panics(t, func() { internal.NewResponse(200, nil).SetStatus(429) })
	})

	t.Run("reason table", func(t *testing.T) {
		t.Parallel()
		text, ok := internal.StatusText(509)
		require.True(t, ok)
		assert.Equal(t, "Bandwidth Limit Exceeded", text)

		_, ok = internal.StatusText(418)
		assert.False(t, ok)
	})

	t.Run("error page", func(t *testing.T) {
		t.Parallel()
		resp := internal.ErrorResponse(404)
		assert.Equal(t, 404, resp.Status())
		assert.Equal(t, "<h1>meract: 404 - Not Found</h1>", string(resp.Body()))
		assert.Equal(t, "text/html; charset=utf-8", resp.Header("Content-Type"))
	})
}

func TestResponseConstructors(t *testing.T) {
	t.Parallel()

	resp, err := internal.JSON(200, map[string]int{"n": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(resp.Body()))
	assert.Equal(t, "application/json", resp.Header("Content-Type"))

	_, err = internal.JSON(200, make(chan int))
	require.Error(t, err)

	redirect := internal.Redirect(302, "/login")
	assert.Equal(t, "/login", redirect.Header("Location"))
	assert.Empty(t, redirect.Body())
}

func TestCookieString(t *testing.T) {
	t.Parallel()

	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	c := internal.Cookie{
		Name:     "a b",
		Value:    "x;y",
		Expires:  expires.Unix(),
		Path:     "/app",
		Domain:   "example.com",
		Secure:   true,
		HTTPOnly: true,
	}
	assert.Equal(t,
		"a+b=x%3By; expires=Wed, 02 Jan 2030 03:04:05 GMT; path=/app; domain=example.com; secure; HttpOnly",
		c.String())

	assert.Equal(t, "n=v", internal.Cookie{Name: "n", Value: "v"}.String())
	assert.Equal(t, "sess=abc; path=/", internal.Cookie{Name: "sess", Value: "abc", Path: "/"}.String())
}
