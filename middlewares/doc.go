// Package middlewares provides stock router middleware.
//
// Each constructor returns a meract.Middleware, registered globally with
// Router.Use or per route and group:
//
//	router := meract.NewRouter(meract.WithLogger(log))
//	router.Use(
//		middlewares.RequestID(),
//		middlewares.Recover(middlewares.WithRecoverLogger(log)),
//		middlewares.CORS(middlewares.WithAllowOrigins("https://example.com")),
//		middlewares.RateLimit(10, 20),
//		middlewares.Session(sessions),
//	)
//
// # Request ID
//
// RequestID reuses an incoming X-Request-ID (or X-Correlation-ID) or
// generates a UUID, stores it in the request context and echoes it in the
// response. RequestIDExtractor adds it to every log line:
//
//	log := logger.New(logger.WithExtractors(middlewares.RequestIDExtractor()))
//
// # Recover and Timeout
//
// Recover turns handler panics into a PanicError and Timeout turns missed
// deadlines into a TimeoutError. Both reach the router's error handler;
// the default one answers 500 and 504 respectively.
//
// # CORS
//
// CORS answers preflight requests from allowed origins with 204 and adds
// the Access-Control-* headers to other responses.
//
// # Rate limiting
//
// RateLimit keeps a token bucket per client IP (or per custom key) and
// answers 503 with Retry-After when it runs dry.
//
// # Sessions
//
// Session loads the visitor's session before the handler and saves it,
// with a refreshed cookie, after.
package middlewares
