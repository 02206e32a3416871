package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"runtime/debug"
	"strconv"
	"time"
)

const (
	defaultBufferSize        = 1024
	defaultSocketReadTimeout = 5 * time.Second
	defaultAcceptBackoff     = 50 * time.Millisecond
	maxAcceptBackoff     = time.Second
)

var headTerminators = [][]byte{[]byte("\r\n\r\n"), []byte("\n\n")}

// Server is a single-goroutine socket server. It accepts one connection at
// a time, reads one bounded request head, answers once and closes.
// No connection N+1 is read before connection N is closed.
type Server struct {
	listener      net.Listener
	logger        *slog.Logger
	metrics       *Metrics
	bufferSize    int
	readTimeout   time.Duration
	writeTimeout  time.Duration
	acceptBackoff time.Duration
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithBufferSize sets the maximum number of bytes read per connection.
// Larger requests are truncated silently. Default: 1024.
func WithBufferSize(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.bufferSize = n
		}
	}
}

// WithReadTimeout bounds how long a client may take to send its request
// head. A client that stops before the blank line is answered with what
// arrived once the timeout passes. Default: 5 seconds.
func WithReadTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.readTimeout = d
		}
	}
}

// WithWriteTimeout bounds how long writing a response may take.
// Zero (the default) waits forever.
func WithWriteTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.writeTimeout = d
	}
}

// WithServerLogger sets the logger used for connection-level events.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithServerMetrics records connection counters on m.
func WithServerMetrics(m *Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithListener serves on an existing listener instead of binding one.
// host and port passed to NewServer are ignored.
func WithListener(ln net.Listener) ServerOption {
	return func(s *Server) {
		s.listener = ln
	}
}

// NewServer binds a TCP listener on host:port. A bind failure is returned
// wrapping ErrBind; it is not retried.
func NewServer(host string, port int, opts ...ServerOption) (*Server, error) {
	s := &Server{
		logger:        slog.New(slog.DiscardHandler),
		bufferSize:    defaultBufferSize,
		readTimeout:   defaultSocketReadTimeout,
		acceptBackoff: defaultAcceptBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.listener == nil {
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrBind, addr, err)
		}
		s.listener = ln
	}

	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Close closes the listener, which makes a running Listen return.
func (s *Server) Close() error {
	return s.listener.Close()
}

// Listen calls onStart once, then accepts connections until ctx is done.
// Accept failures are logged and the loop continues after a short backoff.
// A cancelled ctx closes the listener and Listen returns nil.
// If the listener is closed by other means ErrServerClosed is returned.
func (s *Server) Listen(ctx context.Context, handler ConnHandler, onStart func(*Server)) error {
	if onStart != nil {
		onStart(s)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = s.listener.Close()
	})
	defer stop()

	backoff := s.acceptBackoff
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}

			s.metrics.acceptFailed()
			s.logger.Warn("accept failed", slog.Any("error", err), slog.Duration("retry_in", backoff))

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxAcceptBackoff)
			continue
		}

		backoff = s.acceptBackoff
		s.metrics.connectionAccepted()
		s.serveConn(ctx, conn, handler)
	}
}

// serveConn handles exactly one request on conn and always closes it.
func (s *Server) serveConn(ctx context.Context, conn net.Conn, handler ConnHandler) {
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Debug("close connection", slog.Any("error", err))
		}
	}()

	if s.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	}

	raw, truncated, err := readHead(conn, s.bufferSize)
	if err != nil && len(raw) == 0 {
		s.logger.Debug("read request", slog.String("remote_addr", conn.RemoteAddr().String()), slog.Any("error", err))
		return
	}
	if truncated {
		s.metrics.requestTruncated()
		s.logger.Debug("request truncated", slog.Int("buffer_size", s.bufferSize))
	}

	req := ParseRequest(string(raw))
	req.remoteAddr = conn.RemoteAddr().String()
	req.ctx = ctx

	resp := s.invoke(handler, req)
	if resp == nil {
		return
	}

	if s.writeTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if _, err := resp.WriteTo(conn); err != nil {
		s.logger.Debug("write response", slog.Any("error", err))
	}
}

// invoke runs handler, turning a panic into a 500 response so the accept
// loop survives.
func (s *Server) invoke(handler ConnHandler, req *Request) (resp *Response) {
	defer func() {
		if rec := recover(); rec != nil {
			s.metrics.panicRecovered()
			s.logger.Error("handler panic",
				slog.Any("panic", rec),
				slog.String("method", req.Method()),
				slog.String("path", req.Path()),
				slog.String("stack", string(debug.Stack())),
			)
			resp = ErrorResponse(500)
		}
	}()
	return handler(req)
}

// readHead reads from r until the header terminator is seen, the buffer of
// size bytes is full, or the reader fails. truncated reports a full buffer
// without a terminator.
func readHead(r io.Reader, size int) (data []byte, truncated bool, err error) {
	buf := make([]byte, size)
	n := 0
	for n < size {
		m, rerr := r.Read(buf[n:])
		n += m
		if hasHeadTerminator(buf[:n]) {
			return buf[:n], false, nil
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return buf[:n], false, nil
			}
			return buf[:n], false, rerr
		}
	}
	return buf[:n], true, nil
}

func hasHeadTerminator(b []byte) bool {
	for _, t := range headTerminators {
		if bytes.Contains(b, t) {
			return true
		}
	}
	return false
}
