package internal

import (
	"github.com/dmitrymomot/meract/pkg/health"
)

// HealthRoutes registers GET liveness and readiness checks. Empty paths are
// skipped. The checks run through WrapHTTP, so global middleware applies.
//
// Example:
//
//	router.HealthRoutes("/health/live", "/health/ready", health.Checks{
//	    "storage": driver.Healthcheck,
//	})
func (r *Router) HealthRoutes(livenessPath, readinessPath string, checks health.Checks, opts ...health.Option) {
	if len(opts) == 0 {
		opts = []health.Option{health.WithLogger(r.logger)}
	}
	if livenessPath != "" {
		r.GET(livenessPath, WrapHTTP(health.LivenessHandler())).Name("health.live")
	}
	if readinessPath != "" {
		r.GET(readinessPath, WrapHTTP(health.ReadinessHandler(checks, opts...))).Name("health.ready")
	}
}
