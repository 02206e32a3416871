package internal

import (
	"log/slog"
)

// SlogRequestLogger logs one line per dispatched request.
type SlogRequestLogger struct {
	logger *slog.Logger
	level  slog.Level
}

// NewRequestLogger returns a RequestLogger writing to l at Info level.
func NewRequestLogger(l *slog.Logger) *SlogRequestLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogRequestLogger{logger: l, level: slog.LevelInfo}
}

// WithLevel returns a copy logging at level.
func (l *SlogRequestLogger) WithLevel(level slog.Level) *SlogRequestLogger {
	return &SlogRequestLogger{logger: l.logger, level: level}
}

func (l *SlogRequestLogger) Handle(req *Request) {
	l.logger.LogAttrs(req.Context(), l.level, req.Method()+" "+req.Path(),
		slog.String("method", req.Method()),
		slog.String("path", req.Path()),
		slog.String("query", req.RawQuery()),
		slog.String("remote_addr", req.RemoteAddr()),
	)
}

var _ RequestLogger = (*SlogRequestLogger)(nil)
