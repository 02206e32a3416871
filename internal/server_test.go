package internal_test

import (
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meract/internal"
)

func startServer(t *testing.T, handler internal.ConnHandler, opts ...internal.ServerOption) *internal.Server {
	t.Helper()

	srv, err := internal.NewServer("127.0.0.1", 0, opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Listen(ctx, handler, nil) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return srv
}

func roundTrip(t *testing.T, addr, raw string) string {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	_, err = io.WriteString(conn, raw)
	require.NoError(t, err)

	out, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(out)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestServerRoundTrip(t *testing.T) {
	t.Parallel()

	r := internal.NewRouter()
	r.GET("/hello/{name}", func(_ *internal.Request, p internal.Params) (*internal.Response, error) {
		return internal.String(200, "hello "+p["name"]), nil
	})
	srv := startServer(t, r.ConnHandler())
	addr := srv.Addr().String()

	got := roundTrip(t, addr, "GET /hello/ann HTTP/1.1\r\nHost: localhost\r\n\r\n")
	assert.Equal(t,
		"HTTP/1.1 200 OK\r\nContent-Type: text/plain; charset=utf-8\r\n\r\nhello ann", got)

	got = roundTrip(t, addr, "GET /missing HTTP/1.1\n\n")
	assert.True(t, strings.HasPrefix(got, "HTTP/1.1 404 Not Found\r\n"), got)
	assert.True(t, strings.HasSuffix(got, "\r\n\r\nNot Found"), got)
}

func TestServerRemoteAddrAndContext(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		remote string
		hasCtx bool
	)
	srv := startServer(t, func(req *internal.Request) *internal.Response {
		mu.Lock()
		defer mu.Unlock()
		remote = req.RemoteAddr()
		hasCtx = req.Context() != nil
		return internal.NoContent()
	})

	got := roundTrip(t, srv.Addr().String(), "GET / HTTP/1.1\r\n\r\n")
	assert.Equal(t, "HTTP/1.1 204 No Content\r\n\r\n", got)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, strings.HasPrefix(remote, "127.0.0.1:"), remote)
	assert.True(t, hasCtx)
}

func TestServerNilResponseClosesSilently(t *testing.T) {
	t.Parallel()

	srv := startServer(t, func(*internal.Request) *internal.Response { return nil })
	assert.Empty(t, roundTrip(t, srv.Addr().String(), "GET / HTTP/1.1\r\n\r\n"))
}

func TestServerBlankRequestThroughRouter(t *testing.T) {
	t.Parallel()

	r := internal.NewRouter()
	r.GET("/", func(*internal.Request, internal.Params) (*internal.Response, error) {
		return internal.String(200, "home"), nil
	})
	srv := startServer(t, r.ConnHandler())
	assert.Empty(t, roundTrip(t, srv.Addr().String(), "\r\n\r\n"))
}

func TestServerRecoversPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := internal.NewMetrics(reg)

	calls := 0
	srv := startServer(t, func(*internal.Request) *internal.Response {
		calls++
		if calls == 1 {
			panic("first request explodes")
		}
		return internal.String(200, "fine")
	}, internal.WithServerMetrics(m))
	addr := srv.Addr().String()

	got := roundTrip(t, addr, "GET / HTTP/1.1\r\n\r\n")
	assert.True(t, strings.HasPrefix(got, "HTTP/1.1 500 Internal Server Error\r\n"), got)

	got = roundTrip(t, addr, "GET / HTTP/1.1\r\n\r\n")
	assert.True(t, strings.HasSuffix(got, "fine"), got)

	assert.Equal(t, float64(1), counterValue(t, reg, "meract_handler_panics_total"))
	assert.Equal(t, float64(2), counterValue(t, reg, "meract_connections_total"))
}

func TestServerTruncatesAtBufferSize(t *testing.T) {
	t.Parallel()

	const size = 64
	reg := prometheus.NewRegistry()
	m := internal.NewMetrics(reg)

	paths := make(chan string, 1)
	srv := startServer(t, func(req *internal.Request) *internal.Response {
		paths <- req.Path()
		return internal.String(200, "ok")
	}, internal.WithBufferSize(size), internal.WithServerMetrics(m))

	head := "GET /abc HTTP/1.1\r\nX-Pad: "
	raw := head + strings.Repeat("a", size-len(head))
	require.Len(t, raw, size)

	got := roundTrip(t, srv.Addr().String(), raw)
	assert.True(t, strings.HasSuffix(got, "ok"), got)
	assert.Equal(t, "/abc", <-paths)
	assert.Equal(t, float64(1), counterValue(t, reg, "meract_truncated_requests_total"))
}

func TestServerReadTimeout(t *testing.T) {
	t.Parallel()

	called := make(chan struct{}, 1)
	srv := startServer(t, func(*internal.Request) *internal.Response {
		called <- struct{}{}
		return internal.String(200, "late")
	}, internal.WithReadTimeout(50*time.Millisecond))

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	// Nothing is sent; the server gives up and closes without answering.
	out, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, called)
}

func TestServerAnswersPartialHeadAfterReadTimeout(t *testing.T) {
	t.Parallel()

	paths := make(chan string, 1)
	srv := startServer(t, func(req *internal.Request) *internal.Response {
		paths <- req.Path()
		return internal.String(200, "ok")
	}, internal.WithReadTimeout(50*time.Millisecond))

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	// The request line arrives without a blank line and the socket stays open.
	_, err = io.WriteString(conn, "GET /partial HTTP/1.1\r\n")
	require.NoError(t, err)

	out, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(out), "ok"), string(out))
	assert.Equal(t, "/partial", <-paths)
}

func TestServerListenLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("context cancel returns nil", func(t *testing.T) {
		t.Parallel()
		srv, err := internal.NewServer("127.0.0.1", 0)
		require.NoError(t, err)

		started := make(chan string, 1)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- srv.Listen(ctx, func(*internal.Request) *internal.Response { return nil }, func(s *internal.Server) {
				started <- s.Addr().String()
			})
		}()

		assert.Equal(t, srv.Addr().String(), <-started)
		cancel()
		require.NoError(t, <-done)
	})

	t.Run("closing the server ends Listen", func(t *testing.T) {
		t.Parallel()
		srv, err := internal.NewServer("127.0.0.1", 0)
		require.NoError(t, err)

		done := make(chan error, 1)
		go func() {
			done <- srv.Listen(context.Background(), func(*internal.Request) *internal.Response { return nil }, nil)
		}()

		require.NoError(t, srv.Close())
		require.ErrorIs(t, <-done, internal.ErrServerClosed)
	})

	t.Run("bind failure", func(t *testing.T) {
		t.Parallel()
		srv, err := internal.NewServer("127.0.0.1", 0)
		require.NoError(t, err)
		defer srv.Close()

		port := srv.Addr().(*net.TCPAddr).Port
		_, err = internal.NewServer("127.0.0.1", port)
		require.ErrorIs(t, err, internal.ErrBind)
	})

	t.Run("existing listener", func(t *testing.T) {
		t.Parallel()
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)

		srv, err := internal.NewServer("ignored", -1, internal.WithListener(ln))
		require.NoError(t, err)
		assert.Equal(t, ln.Addr(), srv.Addr())
		require.NoError(t, srv.Close())
	})
}

func TestRouterStartHandling(t *testing.T) {
	t.Parallel()

	srv, err := internal.NewServer("127.0.0.1", 0)
	require.NoError(t, err)

	r := internal.NewRouter(internal.WithServer(srv))
	r.GET("/", func(*internal.Request, internal.Params) (*internal.Response, error) {
		return internal.String(200, "hello world!"), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- r.StartHandling(ctx, func(*internal.Server) { close(ready) })
	}()
	<-ready

	got := roundTrip(t, srv.Addr().String(), "GET / HTTP/1.1\r\n\r\n")
	assert.True(t, strings.HasSuffix(got, "\r\n\r\nhello world!"), got)

	cancel()
	require.NoError(t, <-done)
}
