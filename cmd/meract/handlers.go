package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/meract"
	"github.com/dmitrymomot/meract/middlewares"
	"github.com/dmitrymomot/meract/pkg/session"
	"github.com/dmitrymomot/meract/pkg/storage"
)

const adminTimeout = 5 * time.Second

const adminForm = `<!doctype html>
<html><body>
<form method="post" action="%s">
<input name="name" placeholder="name">
<input name="age" placeholder="age">
<input name="mail" placeholder="mail">
<button type="submit">Add</button>
</form>
</body></html>`

type admin struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
	Mail string `json:"mail"`
}

// adminStore keeps the admin list under a single storage key. The list
// lives for the configured storage TTL.
type adminStore struct {
	mu    sync.Mutex
	items *storage.Storage[[]admin]
}

func newAdminStore(driver storage.Driver, ttl time.Duration) *adminStore {
	return &adminStore{items: storage.New[[]admin](driver, nil,
		storage.WithPrefix("admins"),
		storage.WithDefaultTTL(ttl),
	)}
}

func (s *adminStore) all(ctx context.Context) ([]admin, error) {
	list, err := s.items.Get(ctx, "all")
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return list, err
}

func (s *adminStore) add(ctx context.Context, a admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.all(ctx)
	if err != nil {
		return err
	}
	return s.items.Set(ctx, "all", append(list, a), 0)
}

// registerRoutes installs the example routes.
func registerRoutes(r *meract.Router, driver storage.Driver, ttl time.Duration) {
	admins := newAdminStore(driver, ttl)

	r.GET("/", func(*meract.Request, meract.Params) (*meract.Response, error) {
		return meract.String(200, "hello world!"), nil
	}).Name("home")

	r.GET("/users/{id}", func(_ *meract.Request, p meract.Params) (*meract.Response, error) {
		self, err := r.URL("profile", map[string]string{"id": p.Get("id")})
		if err != nil {
			return nil, err
		}
		return meract.JSON(200, map[string]string{"id": p.Get("id"), "url": self})
	}).Name("profile")

	r.GET("/visits", func(req *meract.Request, _ meract.Params) (*meract.Response, error) {
		sess, ok := session.FromContext(req.Context())
		if !ok {
			return nil, meract.ErrInternal("session middleware is not installed")
		}
		visits := session.ValueOr(sess, "visits", float64(0)) + 1
		sess.Set("visits", visits)
		return meract.JSON(200, map[string]any{"session": sess.ID, "visits": int(visits)})
	}).Name("visits")

	r.GroupNamed("/admin", "admin.", func(r *meract.Router) {
		r.GET("/add", func(*meract.Request, meract.Params) (*meract.Response, error) {
			action, err := r.URL("admin.store", nil)
			if err != nil {
				return nil, err
			}
			return meract.HTML(200, fmt.Sprintf(adminForm, action)), nil
		}).Name("add")

		r.POST("/add", func(req *meract.Request, _ meract.Params) (*meract.Response, error) {
			a, err := parseAdmin(req)
			if err != nil {
				return nil, err
			}
			if err := admins.add(req.Context(), a); err != nil {
				return nil, meract.ErrInternal("", meract.WithError(err))
			}
			return meract.JSON(200, map[string]any{"success": "done", "model": a})
		}).Name("store")

		r.GET("/show", func(req *meract.Request, _ meract.Params) (*meract.Response, error) {
			list, err := admins.all(req.Context())
			if err != nil {
				return nil, meract.ErrInternal("", meract.WithError(err))
			}
			var b strings.Builder
			b.WriteString("<pre>")
			for _, a := range list {
				fmt.Fprintf(&b, "%s\t%d\t%s\n", html.EscapeString(a.Name), a.Age, html.EscapeString(a.Mail))
			}
			b.WriteString("</pre>")
			return meract.HTML(200, b.String()), nil
		}).Name("show")
	}, middlewares.Timeout(adminTimeout))
}

func parseAdmin(req *meract.Request) (admin, error) {
	a := admin{
		Name: strings.TrimSpace(req.Param("name")),
		Mail: strings.TrimSpace(req.Param("mail")),
	}
	if a.Name == "" || a.Mail == "" {
		return admin{}, meract.ErrBadRequest("name and mail are required")
	}
	age, err := strconv.Atoi(strings.TrimSpace(req.Param("age")))
	if err != nil || age < 0 {
		return admin{}, meract.ErrBadRequest("age must be a non-negative integer")
	}
	a.Age = age
	return a, nil
}
