package static_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meract/pkg/static"
)

func newDir(t *testing.T, opts ...static.DirOption) *static.Dir {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "css", "app.css"), []byte("body{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<h1>hi</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "LICENSE"), []byte("MIT"), 0o644))

	d, err := static.NewDir(root, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDirResolve(t *testing.T) {
	t.Parallel()
	d := newDir(t)
	ctx := context.Background()

	t.Run("serves files with their mime type", func(t *testing.T) {
		t.Parallel()
		body, mime, err := d.Resolve(ctx, "/css/app.css")
		require.NoError(t, err)
		assert.Equal(t, "body{}", string(body))
		assert.Equal(t, "text/css", mime)

		body, mime, err = d.Resolve(ctx, "/index.html")
		require.NoError(t, err)
		assert.Equal(t, "<h1>hi</h1>", string(body))
		assert.Equal(t, "text/html", mime)

		_, mime, err = d.Resolve(ctx, "/LICENSE")
		require.NoError(t, err)
		assert.Equal(t, static.MIMEOctetStream, mime)
	})

	t.Run("missing files and directories", func(t *testing.T) {
		t.Parallel()
		for _, p := range []string{"/nope.txt", "/css", "/css/", "/"} {
			_, _, err := d.Resolve(ctx, p)
			require.ErrorIs(t, err, static.ErrNotFound, p)
		}
	})

	t.Run("traversal is rejected", func(t *testing.T) {
		t.Parallel()
		for _, p := range []string{"/../etc/passwd", "/css/../../secret", "/a\x00b"} {
			_, _, err := d.Resolve(ctx, p)
			require.ErrorIs(t, err, static.ErrInvalidPath, p)
		}
	})
}

func TestDirMaxSize(t *testing.T) {
	t.Parallel()
	d := newDir(t, static.WithMaxSize(4))

	_, _, err := d.Resolve(context.Background(), "/index.html")
	require.ErrorIs(t, err, static.ErrTooLarge)

	body, _, err := d.Resolve(context.Background(), "/LICENSE")
	require.NoError(t, err)
	assert.Equal(t, "MIT", string(body))
}

func TestNewDirMissingRoot(t *testing.T) {
	t.Parallel()
	_, err := static.NewDir(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, static.ErrInvalidConfig)
}

func TestMIMEType(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"app.JS":      "application/javascript",
		"logo.svg":    "image/svg+xml",
		"font.woff2":  "font/woff2",
		"archive":     static.MIMEOctetStream,
		"data.zzzzzz": static.MIMEOctetStream,
	}
	for name, want := range tests {
		assert.Equal(t, want, static.MIMEType(name), name)
	}
}
