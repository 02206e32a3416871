package middlewares

import (
	"math"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dmitrymomot/meract/internal"
)

// RateLimitConfig configures the rate limit middleware.
type RateLimitConfig struct {
	// KeyFunc picks the bucket for a request. Default: client IP.
	KeyFunc func(req *internal.Request) string

	// IdleTTL drops buckets unused for this long. Default: 10 minutes.
	IdleTTL time.Duration

	RPS   float64
	Burst int
}

// RateLimitOption configures RateLimitConfig.
type RateLimitOption func(*RateLimitConfig)

// WithRateLimitKey sets how requests are grouped into buckets.
func WithRateLimitKey(fn func(req *internal.Request) string) RateLimitOption {
	return func(cfg *RateLimitConfig) {
		if fn != nil {
			cfg.KeyFunc = fn
		}
	}
}

// WithRateLimitIdleTTL sets how long an unused bucket is kept.
func WithRateLimitIdleTTL(d time.Duration) RateLimitOption {
	return func(cfg *RateLimitConfig) {
		if d > 0 {
			cfg.IdleTTL = d
		}
	}
}

// RateLimit returns middleware allowing rps requests per second with the
// given burst per key. Rejected requests get 503 with a Retry-After
// header. Non-positive rps or burst fall back to 5 and 10.
func RateLimit(rps float64, burst int, opts ...RateLimitOption) internal.Middleware {
	cfg := &RateLimitConfig{
		RPS:     rps,
		Burst:   burst,
		KeyFunc: ClientIP,
		IdleTTL: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}

	pool := &limiterPool{
		limit:   rate.Limit(cfg.RPS),
		burst:   cfg.Burst,
		idleTTL: cfg.IdleTTL,
		m:       make(map[string]*limiterEntry),
		now:     time.Now,
	}
	retryAfter := strconv.Itoa(int(math.Ceil(1 / cfg.RPS)))

	return internal.MiddlewareFunc(func(req *internal.Request, next internal.HandlerFunc, params internal.Params) (*internal.Response, error) {
		if !pool.allow(cfg.KeyFunc(req)) {
			return internal.ErrorResponse(503).SetHeader("Retry-After", retryAfter), nil
		}
		return next(req, params)
	})
}

// ClientIP returns the request's remote address without the port.
func ClientIP(req *internal.Request) string {
	addr := req.RemoteAddr()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterPool struct {
	m         map[string]*limiterEntry
	now       func() time.Time
	lastPrune time.Time
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	mu        sync.Mutex
}

func (p *limiterPool) allow(key string) bool {
	p.mu.Lock()
	now := p.now()
	p.prune(now)

	e, ok := p.m[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.m[key] = e
	}
	e.lastSeen = now
	p.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// prune drops idle buckets at most once per idleTTL. Caller holds mu.
func (p *limiterPool) prune(now time.Time) {
	if now.Sub(p.lastPrune) < p.idleTTL {
		return
	}
	p.lastPrune = now
	for key, e := range p.m {
		if now.Sub(e.lastSeen) >= p.idleTTL {
			delete(p.m, key)
		}
	}
}
