package middlewares

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/meract/internal"
	"github.com/dmitrymomot/meract/pkg/logger"
)

type requestIDKey struct{}

// DefaultRequestIDHeaders are the headers checked (in order) for an existing request ID.
var DefaultRequestIDHeaders = []string{"X-Request-ID", "X-Correlation-ID"}

// RequestIDConfig configures the request ID middleware.
type RequestIDConfig struct {
	Generator      func() string
	ResponseHeader string
	Headers        []string
}

// RequestIDOption configures RequestIDConfig.
type RequestIDOption func(*RequestIDConfig)

// WithRequestIDHeaders sets the headers to check for existing request IDs.
func WithRequestIDHeaders(headers ...string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		cfg.Headers = headers
	}
}

// WithRequestIDGenerator sets a custom ID generator function.
func WithRequestIDGenerator(gen func() string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		if gen != nil {
			cfg.Generator = gen
		}
	}
}

// WithRequestIDResponseHeader sets the response header name.
func WithRequestIDResponseHeader(header string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		cfg.ResponseHeader = header
	}
}

// RequestID returns middleware that tags each request with an ID, taken
// from the first matching request header or generated as a UUID. The ID
// is stored in the request context and echoed in the response.
func RequestID(opts ...RequestIDOption) internal.Middleware {
	cfg := &RequestIDConfig{
		Headers:        DefaultRequestIDHeaders,
		Generator:      uuid.NewString,
		ResponseHeader: "X-Request-ID",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return internal.MiddlewareFunc(func(req *internal.Request, next internal.HandlerFunc, params internal.Params) (*internal.Response, error) {
		// First match wins so upstream tracing IDs survive.
		var reqID string
		for _, header := range cfg.Headers {
			if v := req.Header(header); v != "" {
				reqID = v
				break
			}
		}
		if reqID == "" {
			reqID = cfg.Generator()
		}

		req = req.WithContext(context.WithValue(req.Context(), requestIDKey{}, reqID))
		resp, err := next(req, params)
		if resp != nil && cfg.ResponseHeader != "" {
			resp.SetHeader(cfg.ResponseHeader, reqID)
		}
		return resp, err
	})
}

// GetRequestID returns the request ID stored by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// RequestIDExtractor adds "request_id" to every log entry written with
// the request context.
func RequestIDExtractor() logger.ContextExtractor {
	return logger.StringFromContext(requestIDKey{}, "request_id")
}
