package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/meract/internal"
)

// DefaultTimeout is the default request timeout.
const DefaultTimeout = 30 * time.Second

// TimeoutConfig configures the timeout middleware.
type TimeoutConfig struct {
	Logger  *slog.Logger
	Timeout time.Duration
}

// TimeoutOption configures TimeoutConfig.
type TimeoutOption func(*TimeoutConfig)

// WithTimeoutLogger sets where timeouts are logged.
func WithTimeoutLogger(l *slog.Logger) TimeoutOption {
	return func(cfg *TimeoutConfig) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

// Timeout returns middleware that gives the handler a context deadline and
// answers with a TimeoutError (504) once it passes.
//
// The handler goroutine keeps running after a timeout; long operations
// should watch req.Context().Done(). The Request it holds stays valid after
// the response is sent in every serving mode.
func Timeout(timeout time.Duration, opts ...TimeoutOption) internal.Middleware {
	cfg := &TimeoutConfig{
		Timeout: timeout,
		Logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	type result struct {
		resp *internal.Response
		err  error
	}

	return internal.MiddlewareFunc(func(req *internal.Request, next internal.HandlerFunc, params internal.Params) (*internal.Response, error) {
		ctx, cancel := context.WithTimeout(req.Context(), cfg.Timeout)
		defer cancel()

		done := make(chan result, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- result{err: &PanicError{Value: r}}
				}
			}()
			resp, err := next(req.WithContext(ctx), params)
			done <- result{resp: resp, err: err}
		}()

		select {
		case res := <-done:
			return res.resp, res.err
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				cfg.Logger.WarnContext(req.Context(), "request timeout",
					slog.String("path", req.Path()),
					slog.Duration("timeout", cfg.Timeout),
				)
				return nil, &TimeoutError{Duration: cfg.Timeout}
			}
			return nil, ctx.Err()
		}
	})
}
