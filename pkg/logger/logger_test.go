package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meract/pkg/logger"
)

type ctxKey struct{}

func TestNew_JSONWithExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithLevel(slog.LevelDebug),
		logger.WithExtractors(logger.StringFromContext(ctxKey{}, "request_id")),
	)

	ctx := context.WithValue(context.Background(), ctxKey{}, "req-1")
	log.DebugContext(ctx, "GET /", slog.String("path", "/"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "GET /", entry["msg"])
	require.Equal(t, "req-1", entry["request_id"])
	require.Equal(t, "/", entry["path"])
}

func TestNew_LevelFilter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithLevel(slog.LevelWarn))
	log.Info("hidden")
	require.Zero(t, buf.Len())

	log.Warn("shown")
	require.Contains(t, buf.String(), "shown")
}

func TestNew_TextFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithFormat(logger.FormatText))
	log.Info("hello", slog.Int("n", 1))
	require.Contains(t, buf.String(), "msg=hello")
	require.Contains(t, buf.String(), "n=1")
}

func TestStringFromContext_Missing(t *testing.T) {
	t.Parallel()

	_, ok := logger.StringFromContext(ctxKey{}, "id")(context.Background())
	require.False(t, ok)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		want  slog.Level
		valid bool
	}{
		{in: "debug", want: slog.LevelDebug, valid: true},
		{in: "", want: slog.LevelInfo, valid: true},
		{in: " INFO ", want: slog.LevelInfo, valid: true},
		{in: "warning", want: slog.LevelWarn, valid: true},
		{in: "error", want: slog.LevelError, valid: true},
		{in: "loud", want: slog.LevelInfo, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tt.want, logger.ParseLevel(tt.in))
			_, err := logger.ParseLevelStrict(tt.in)
			if tt.valid {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, logger.ErrUnknownLevel)
			}
		})
	}
}

func TestNewWithSentry_NoDSN(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewWithSentry(logger.SentryConfig{}, logger.WithOutput(&buf))
	log.Error("boom")
	require.Contains(t, buf.String(), "boom")
}

func TestNewNope(t *testing.T) {
	t.Parallel()

	require.False(t, logger.NewNope().Enabled(context.Background(), slog.LevelError))
}
