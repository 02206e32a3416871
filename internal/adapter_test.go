package internal_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/dmitrymomot/meract/internal"
)

func echoParams(req *internal.Request, p internal.Params) (*internal.Response, error) {
	return internal.JSON(200, map[string]any{
		"route":  p,
		"params": req.Params(),
		"remote": req.RemoteAddr(),
		"method": req.Method(),
	})
}

type echoed struct {
	Route  map[string]string `json:"route"`
	Params map[string]string `json:"params"`
	Remote string            `json:"remote"`
	Method string            `json:"method"`
}

func TestServeHTTP(t *testing.T) {
	t.Parallel()

	r := internal.NewRouter()
	r.POST("/items/{id}", echoParams)
	r.GET("/cookie", func(*internal.Request, internal.Params) (*internal.Response, error) {
		return internal.String(200, "set").SetCookie("sid", "abc", internal.WithCookiePath("/")), nil
	})

	t.Run("form and query params", func(t *testing.T) {
		t.Parallel()
		hr := httptest.NewRequest(http.MethodPost, "/items/9?q=search", strings.NewReader("name=pen&qty=2"))
		hr.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()

		r.ServeHTTP(rec, hr)
		require.Equal(t, 200, rec.Code)

		var got echoed
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, map[string]string{"id": "9"}, got.Route)
		assert.Equal(t, "search", got.Params["q"])
		assert.Equal(t, "pen", got.Params["name"])
		assert.Equal(t, "2", got.Params["qty"])
	})

	t.Run("escaped path segment", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items/a%2Fb%20c", nil))
		require.Equal(t, 200, rec.Code)

		var got echoed
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, map[string]string{"id": "a/b c"}, got.Route)
	})

	t.Run("json body", func(t *testing.T) {
		t.Parallel()
		hr := httptest.NewRequest(http.MethodPost, "/items/1", strings.NewReader(`{"name":"pen","qty":2,"tags":["a"]}`))
		hr.Header.Set("Content-Type", "application/json; charset=utf-8")
		rec := httptest.NewRecorder()

		r.ServeHTTP(rec, hr)
		require.Equal(t, 200, rec.Code)

		var got echoed
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "pen", got.Params["name"])
		assert.Equal(t, "2", got.Params["qty"])
		assert.Equal(t, `["a"]`, got.Params["tags"])
	})

	t.Run("cookies and status", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cookie", nil))

		assert.Equal(t, 200, rec.Code)
		assert.Equal(t, "sid=abc; path=/", rec.Header().Get("Set-Cookie"))

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
		assert.Equal(t, 404, rec.Code)
		assert.Equal(t, "Not Found", rec.Body.String())
	})
}

func TestHTTPHandler(t *testing.T) {
	t.Parallel()

	r := internal.NewRouter()
	r.POST("/items/{id}", echoParams)
	h := internal.HTTPHandler(r)

	t.Run("ping", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, 200, rec.Code)
	})

	t.Run("forwarded address", func(t *testing.T) {
		t.Parallel()
		hr := httptest.NewRequest(http.MethodPost, "/items/2", nil)
		hr.Header.Set("X-Forwarded-For", "203.0.113.7")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, hr)
		require.Equal(t, 200, rec.Code)

		var got echoed
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "203.0.113.7", got.Remote)
	})
}

func TestFastHTTPHandler(t *testing.T) {
	t.Parallel()

	r := internal.NewRouter()
	r.POST("/items/{id}", echoParams)
	h := r.FastHTTPHandler()

	var req fasthttp.Request
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI("/items/3?x=1")
	req.Header.SetContentType("application/json")
	req.SetBodyString(`{"name":"pen"}`)

	var fc fasthttp.RequestCtx
	fc.Init(&req, nil, nil)
	h(&fc)

	require.Equal(t, 200, fc.Response.StatusCode())
	assert.Equal(t, "application/json", string(fc.Response.Header.ContentType()))

	var got echoed
	require.NoError(t, json.Unmarshal(fc.Response.Body(), &got))
	assert.Equal(t, "POST", got.Method)
	assert.Equal(t, "3", got.Route["id"])
	assert.Equal(t, "1", got.Params["x"])
	assert.Equal(t, "pen", got.Params["name"])
}

func TestFromFastHTTP_OutlivesRequestCtx(t *testing.T) {
	t.Parallel()

	var freq fasthttp.Request
	freq.Header.SetMethod(fasthttp.MethodPost)
	freq.SetRequestURI("/items/a%20b?x=1")
	freq.SetBodyString("payload")

	var fc fasthttp.RequestCtx
	fc.Init(&freq, nil, nil)
	req := internal.FromFastHTTP(&fc)

	// fasthttp resets the context for the next connection.
	fc.Request.Reset()
	fc.Response.Reset()

	_, pooled := req.Context().(*fasthttp.RequestCtx)
	assert.False(t, pooled)
	assert.NoError(t, req.Context().Err())
	assert.Equal(t, "POST", req.Method())
	assert.Equal(t, "/items/a%20b", req.Path())
	assert.Equal(t, "1", req.Param("x"))
	assert.Equal(t, "payload", string(req.Body()))
}

func TestWrapHTTP(t *testing.T) {
	t.Parallel()

	wrapped := internal.WrapHTTP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-Path", r.URL.Path)
		http.SetCookie(w, &http.Cookie{Name: "flash", Value: "hi", Path: "/", HttpOnly: true})
		switch r.URL.Query().Get("status") {
		case "teapot":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusCreated)
		}
		_, _ = w.Write([]byte("body"))
	}))

	r := internal.NewRouter()
	r.GET("/wrapped", wrapped)

	resp := r.HandleRequest(internal.NewRequest("GET", "/wrapped", nil))
	require.Equal(t, 201, resp.Status())
	assert.Equal(t, "body", string(resp.Body()))
	assert.Equal(t, "/wrapped", resp.Header("X-Seen-Path"))
	require.Len(t, resp.Cookies(), 1)
	assert.Equal(t, internal.Cookie{Name: "flash", Value: "hi", Path: "/", HTTPOnly: true}, resp.Cookies()[0])
	assert.Empty(t, resp.Header("Set-Cookie"))

	unknown := r.HandleRequest(internal.NewRequest("GET", "/wrapped?status=teapot", nil))
	assert.Equal(t, 400, unknown.Status())
}
