package middlewares

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/meract/internal"
	"github.com/dmitrymomot/meract/pkg/session"
)

// SessionOption configures the session middleware.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	logger *slog.Logger
}

// WithSessionLogger sets where session storage failures are logged.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(cfg *sessionConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// Session returns middleware that loads the session named by the request
// cookie before the handler runs and saves it afterwards, refreshing the
// cookie. Handlers reach it with session.FromContext(req.Context()).
// A new session that ends the request without values is neither stored
// nor sent, so health checks and crawlers leave nothing behind.
// A storage failure while loading answers 503; while saving, 500.
func Session(m *session.Manager, opts ...SessionOption) internal.Middleware {
	cfg := &sessionConfig{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(cfg)
	}

	return internal.MiddlewareFunc(func(req *internal.Request, next internal.HandlerFunc, params internal.Params) (*internal.Response, error) {
		raw, _ := req.Cookie(m.CookieName())
		sess, err := m.Load(req.Context(), raw)
		if err != nil {
			cfg.logger.ErrorContext(req.Context(), "load session", slog.Any("error", err))
			return nil, internal.ErrServiceUnavailable("", internal.WithError(err))
		}

		req = req.WithContext(session.WithContext(req.Context(), sess))
		resp, err := next(req, params)
		if err != nil || resp == nil {
			return resp, err
		}

		cookieOpts := []internal.CookieOption{
			internal.WithCookiePath(m.CookiePath()),
			internal.WithCookieHTTPOnly(),
		}
		if m.CookieDomain() != "" {
			cookieOpts = append(cookieOpts, internal.WithCookieDomain(m.CookieDomain()))
		}
		if m.Secure() {
			cookieOpts = append(cookieOpts, internal.WithCookieSecure())
		}

		if sess.IsDestroyed() {
			cookieOpts = append(cookieOpts, internal.WithCookieExpires(time.Unix(1, 0)))
			return resp.SetCookie(m.CookieName(), "", cookieOpts...), nil
		}

		if sess.IsNew() && len(sess.Values) == 0 {
			return resp, nil
		}

		if err := m.Save(req.Context(), sess); err != nil {
			cfg.logger.ErrorContext(req.Context(), "save session", slog.Any("error", err))
			return nil, internal.ErrInternal("", internal.WithError(err))
		}

		cookieOpts = append(cookieOpts, internal.WithCookieMaxAge(m.TTL()))
		return resp.SetCookie(m.CookieName(), m.CookieValue(sess), cookieOpts...), nil
	})
}
