// Package logger builds log/slog loggers with context extraction and
// optional Sentry reporting.
//
// A ContextExtractor pulls a request-scoped attribute (request id, session
// id) out of a context; LogHandlerDecorator adds the extracted attributes to
// every record passed to the wrapped handler:
//
//	log := logger.New(
//	    logger.WithFormat(logger.FormatText),
//	    logger.WithExtractors(middlewares.RequestIDExtractor()),
//	)
//	log.InfoContext(req.Context(), "user loaded")
//	// time=... level=INFO msg="user loaded" request_id=...
//
// NewWithSentry fans records out to the local handler and to Sentry:
// errors become issues, warnings are kept as logs. An empty DSN falls back
// to local output only, so the same wiring works in development.
//
// NewNope discards everything and is the default for components that
// accept an optional logger.
package logger
