package internal_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meract/internal"
)

func text(body string) internal.HandlerFunc {
	return func(*internal.Request, internal.Params) (*internal.Response, error) {
		return internal.String(200, body), nil
	}
}

func get(r *internal.Router, target string) *internal.Response {
	return r.HandleRequest(internal.NewRequest("GET", target, nil))
}

// trace appends name to the X-Trace header on the way in and out.
func trace(name string) internal.Middleware {
	return internal.MiddlewareFunc(func(req *internal.Request, next internal.HandlerFunc, p internal.Params) (*internal.Response, error) {
		req.SetParam("trace", req.Param("trace")+name+">")
		resp, err := next(req, p)
		if resp != nil {
			resp.SetHeader("X-Trace", resp.Header("X-Trace")+"<"+name)
		}
		return resp, err
	})
}

type fakeStatic map[string]string

func (f fakeStatic) Resolve(_ context.Context, path string) ([]byte, string, error) {
	body, ok := f[path]
	if !ok {
		return nil, "", errors.New("not found")
	}
	return []byte(body), "text/css", nil
}

type recordingLogger struct{ seen []string }

func (l *recordingLogger) Handle(req *internal.Request) {
	l.seen = append(l.seen, req.Method()+" "+req.Path())
}

func TestRouterMatching(t *testing.T) {
	t.Parallel()

	t.Run("first registered route wins", func(t *testing.T) {
		t.Parallel()
		r := internal.NewRouter()
		r.GET("/users/{id}", text("by id"))
		r.GET("/users/me", text("me"))

		assert.Equal(t, "by id", string(get(r, "/users/me").Body()))
	})

	t.Run("placeholders capture one segment", func(t *testing.T) {
		t.Parallel()
		r := internal.NewRouter()
		r.GET("/posts/{post}/comments/{id}", func(_ *internal.Request, p internal.Params) (*internal.Response, error) {
			return internal.String(200, p.Get("post")+":"+p["id"]), nil
		})

		assert.Equal(t, "7:42", string(get(r, "/posts/7/comments/42").Body()))
		assert.Equal(t, 404, get(r, "/posts/7/comments/42/x").Status())
		assert.Equal(t, 404, get(r, "/posts//comments/1").Status())
	})

	t.Run("patterns match literally and exactly", func(t *testing.T) {
		t.Parallel()
		r := internal.NewRouter()
		r.GET("/file.txt", text("file"))

		assert.Equal(t, 200, get(r, "/file.txt").Status())
		assert.Equal(t, 404, get(r, "/fileXtxt").Status())
		assert.Equal(t, 404, get(r, "/file.txt/").Status())
	})

	t.Run("params handed to handlers exclude the query", func(t *testing.T) {
		t.Parallel()
		r := internal.NewRouter()
		r.GET("/items/{id}", func(req *internal.Request, p internal.Params) (*internal.Response, error) {
			_, hasQ := p["q"]
			return internal.String(200, fmt.Sprintf("%s %v %s", p["id"], hasQ, req.Param("q"))), nil
		})

		assert.Equal(t, "5 false x", string(get(r, "/items/5?q=x").Body()))
	})

	t.Run("methods are matched separately", func(t *testing.T) {
		t.Parallel()
		r := internal.NewRouter()
		r.POST("/form", text("posted"))

		assert.Equal(t, 404, get(r, "/form").Status())
		resp := r.HandleRequest(internal.NewRequest("POST", "/form", nil))
		assert.Equal(t, "posted", string(resp.Body()))

		resp = r.HandleRequest(internal.NewRequest("BREW", "/form", nil))
		assert.Equal(t, 404, resp.Status())
	})

	t.Run("re-registering replaces in place", func(t *testing.T) {
		t.Parallel()
		r := internal.NewRouter()
		r.GET("/a", text("old"))
		r.GET("/{x}", text("wildcard"))
		r.GET("/a", text("new"))

		assert.Equal(t, "new", string(get(r, "/a").Body()))
		require.Len(t, r.Routes(), 2)
		assert.Equal(t, "/a", r.Routes()[0].Pattern)
	})
}

func TestRouterGroups(t *testing.T) {
	t.Parallel()

	t.Run("prefixes and middleware nest", func(t *testing.T) {
		t.Parallel()
		r := internal.NewRouter()
		r.Group("/api", func(r *internal.Router) {
			r.Group("/v1", func(r *internal.Router) {
				r.GET("/ping", func(req *internal.Request, _ internal.Params) (*internal.Response, error) {
					return internal.String(200, req.Param("trace")), nil
				}, trace("route"))
			}, trace("inner"))
		}, trace("outer"))
		r.GET("/outside", text("plain"))

		resp := get(r, "/api/v1/ping")
		require.Equal(t, 200, resp.Status())
		assert.Equal(t, "outer>inner>route>", string(resp.Body()))
		assert.Equal(t, "<route<inner<outer", resp.Header("X-Trace"))

		outside := get(r, "/outside")
		assert.Empty(t, outside.Header("X-Trace"))
	})

	t.Run("group middleware is snapshotted at registration", func(t *testing.T) {
		t.Parallel()
		r := internal.NewRouter()
		r.Group("/g", func(r *internal.Router) {
			r.GET("/a", text("a"))
		}, trace("g"))
		r.GET("/g/b", text("b"))

		assert.Equal(t, "<g", get(r, "/g/a").Header("X-Trace"))
		assert.Empty(t, get(r, "/g/b").Header("X-Trace"))
	})

	t.Run("global middleware wraps everything with empty params", func(t *testing.T) {
		t.Parallel()
		var seen internal.Params
		r := internal.NewRouter(internal.WithMiddleware(internal.MiddlewareFunc(
			func(req *internal.Request, next internal.HandlerFunc, p internal.Params) (*internal.Response, error) {
				seen = p
				return next(req, p)
			})))
		r.Use(trace("global"))
		r.GET("/users/{id}", text("user"))

		resp := get(r, "/users/1")
		assert.Equal(t, "<global", resp.Header("X-Trace"))
		assert.Empty(t, seen)

		missing := get(r, "/missing")
		assert.Equal(t, 404, missing.Status())
		assert.Equal(t, "<global", missing.Header("X-Trace"))
	})
}

func TestRouterURL(t *testing.T) {
	t.Parallel()

	r := internal.NewRouter()
	r.GET("/users/{id}", text("")).Name("profile")
	r.GroupNamed("/admin", "admin.", func(r *internal.Router) {
		r.GET("/posts/{post}/edit", text("")).Name("posts.edit")
	})

	url, err := r.URL("profile", map[string]string{"id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "/users/42", url)

	url, err = r.URL("admin.posts.edit", map[string]string{"post": "a b", "unused": "x"})
	require.NoError(t, err)
	assert.Equal(t, "/admin/posts/a%20b/edit", url)

	_, err = r.URL("profile", nil)
	require.ErrorIs(t, err, internal.ErrMissingParam)

	_, err = r.URL("nope", nil)
	require.ErrorIs(t, err, internal.ErrRouteNotFound)

	routes := r.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, internal.RouteInfo{Method: "GET", Pattern: "/users/{id}", Name: "profile"}, routes[0])
	assert.Equal(t, "admin.posts.edit", routes[1].Name)
}

func TestRouterURLRoundTrip(t *testing.T) {
	t.Parallel()

	r := internal.NewRouter()
	r.GET("/users/{id}", func(_ *internal.Request, p internal.Params) (*internal.Response, error) {
		return internal.String(200, p["id"]), nil
	}).Name("profile")

	for _, id := range []string{"42", "a b", "a/b", "50%", "ünï"} {
		target, err := r.URL("profile", map[string]string{"id": id})
		require.NoError(t, err)

		resp := get(r, target)
		require.Equal(t, 200, resp.Status(), target)
		assert.Equal(t, id, string(resp.Body()), target)
	}
}

func TestGlobalMiddlewareAddedAfterDispatch(t *testing.T) {
	t.Parallel()

	r := internal.NewRouter()
	r.GET("/", text("ok"))

	assert.Empty(t, get(r, "/").Header("X-Trace"))

	r.Use(trace("late"))
	assert.Equal(t, "<late", get(r, "/").Header("X-Trace"))
	assert.Equal(t, "<late", get(r, "/").Header("X-Trace"))
}

func TestHandleRequestConcurrent(t *testing.T) {
	t.Parallel()

	r := internal.NewRouter(internal.WithMiddleware(trace("global")))
	r.GET("/users/{id}", text("ok"))

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := get(r, fmt.Sprintf("/users/%d", i))
			assert.Equal(t, "<global", resp.Header("X-Trace"))
		}()
	}
	wg.Wait()
}

func TestRouteRename(t *testing.T) {
	t.Parallel()

	r := internal.NewRouter()
	route := r.GET("/a", text("")).Name("first")
	route.Name("second")

	_, err := r.URL("first", nil)
	require.ErrorIs(t, err, internal.ErrRouteNotFound)

	url, err := r.URL("second", nil)
	require.NoError(t, err)
	assert.Equal(t, "/a", url)
	assert.Equal(t, "second", route.RouteName())
}

func TestDispatchFallbacks(t *testing.T) {
	t.Parallel()

	t.Run("route before static before not found", func(t *testing.T) {
		t.Parallel()
		r := internal.NewRouter(
			internal.WithStatic(fakeStatic{"/app.css": "body{}", "/taken": "static"}),
			internal.WithNotFoundHandler(text("custom 404")),
		)
		r.GET("/taken", text("route"))

		assert.Equal(t, "route", string(get(r, "/taken").Body()))

		css := get(r, "/app.css")
		assert.Equal(t, 200, css.Status())
		assert.Equal(t, "body{}", string(css.Body()))
		assert.Equal(t, "text/css", css.Header("Content-Type"))

		post := r.HandleRequest(internal.NewRequest("POST", "/app.css", nil))
		assert.Equal(t, "body{}", string(post.Body()))

		assert.Equal(t, "custom 404", string(get(r, "/nothing").Body()))
	})

	t.Run("plain not found", func(t *testing.T) {
		t.Parallel()
		resp := get(internal.NewRouter(), "/nothing")
		assert.Equal(t, 404, resp.Status())
		assert.Equal(t, "Not Found", string(resp.Body()))
	})

	t.Run("not found handler returning nil keeps the default", func(t *testing.T) {
		t.Parallel()
		r := internal.NewRouter(internal.WithNotFoundHandler(func(*internal.Request, internal.Params) (*internal.Response, error) {
			return nil, nil
		}))
		assert.Equal(t, "Not Found", string(get(r, "/x").Body()))
	})

	t.Run("handler returning nil is a 404", func(t *testing.T) {
		t.Parallel()
		r := internal.NewRouter()
		r.GET("/empty", func(*internal.Request, internal.Params) (*internal.Response, error) {
			return nil, nil
		})
		assert.Equal(t, 404, get(r, "/empty").Status())
	})

	t.Run("request logger sees every resolved request", func(t *testing.T) {
		t.Parallel()
		l := &recordingLogger{}
		r := internal.NewRouter(internal.WithRequestLogger(l))
		r.GET("/", text("home"))

		get(r, "/")
		get(r, "/missing")
		r.HandleRequest(internal.NewRequest("GET", "", nil))

		assert.Equal(t, []string{"GET /", "GET /missing"}, l.seen)
	})
}

func TestDispatchErrors(t *testing.T) {
	t.Parallel()

	t.Run("http errors keep their code", func(t *testing.T) {
		t.Parallel()
		r := internal.NewRouter()
		r.GET("/forbidden", func(*internal.Request, internal.Params) (*internal.Response, error) {
			return nil, internal.ErrForbidden("no")
		})
		assert.Equal(t, 403, get(r, "/forbidden").Status())
	})

	t.Run("custom error handler", func(t *testing.T) {
		t.Parallel()
		r := internal.NewRouter(internal.WithErrorHandler(func(_ *internal.Request, err error) *internal.Response {
			return internal.String(502, "upstream: "+err.Error())
		}))
		r.GET("/fail", func(*internal.Request, internal.Params) (*internal.Response, error) {
			return nil, errors.New("boom")
		})

		resp := get(r, "/fail")
		assert.Equal(t, 502, resp.Status())
		assert.Equal(t, "upstream: boom", string(resp.Body()))
	})

	t.Run("error handler returning nil falls back to 500", func(t *testing.T) {
		t.Parallel()
		r := internal.NewRouter(internal.WithErrorHandler(func(*internal.Request, error) *internal.Response {
			return nil
		}))
		r.GET("/fail", func(*internal.Request, internal.Params) (*internal.Response, error) {
			return nil, errors.New("boom")
		})
		assert.Equal(t, 500, get(r, "/fail").Status())
	})

	t.Run("panics become 500 in pull mode", func(t *testing.T) {
		t.Parallel()
		r := internal.NewRouter()
		r.GET("/panic", func(*internal.Request, internal.Params) (*internal.Response, error) {
			panic("kaboom")
		})
		resp := get(r, "/panic")
		assert.Equal(t, 500, resp.Status())
		assert.Contains(t, string(resp.Body()), "Internal Server Error")
	})
}

func TestBlankPath(t *testing.T) {
	t.Parallel()

	r := internal.NewRouter()
	r.GET("/", text("home"))

	assert.Nil(t, r.ConnHandler()(internal.ParseRequest("garbage")))
	assert.Equal(t, 404, r.HandleRequest(internal.ParseRequest("garbage")).Status())
}

func TestStartHandlingWithoutServer(t *testing.T) {
	t.Parallel()
	err := internal.NewRouter().StartHandling(context.Background(), nil)
	require.ErrorIs(t, err, internal.ErrServerNotSet)
}
