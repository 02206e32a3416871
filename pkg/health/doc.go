// Package health runs named health checks and exposes them as liveness and
// readiness checks.
//
// Checks share the func(context.Context) error signature returned by the
// storage drivers and by the redis and db connectors, so they can be wired
// together directly:
//
//	checks := health.Checks{
//	    "storage": driver.Healthcheck,
//	    "redis":   redis.Healthcheck(client),
//	}
//	router.HealthRoutes("/health/live", "/health/ready", checks)
//
// Handlers answer plain text by default and JSON when the client sends
// Accept: application/json or ?format=json:
//
//	{"status":"unhealthy","checks":{"redis":{"status":"unhealthy","error":"..."}}}
//
// [Run] can also be used directly, e.g. from a CLI command, and
// [Report.Err] turns a failed report into an error.
package health
