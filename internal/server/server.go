// Package server implements the mirkv key/value server: a TCP listener
// that decodes RESP-style commands, dispatches them against the shared
// store, and writes back encoded replies.
//
// Architecture:
//   - TCP server with one goroutine per connection
//   - Incremental RESP decoding over a per-connection read buffer
//   - Command dispatch table mapping uppercased command names to handlers
//   - Structured logging via zap and Prometheus instrumentation
//   - Graceful shutdown: stop accepting, close open connections, then wait
//     for their handlers to finish
package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/mirkv/mirkv/internal/metrics"
	"github.com/mirkv/mirkv/pkg/resp"
	"github.com/mirkv/mirkv/pkg/store"
)

const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 10 * time.Second
	readBufferSize      = 4096
)

// Server is a mirkv TCP server instance. It owns the store, the listener,
// and the bookkeeping needed for a graceful shutdown.
type Server struct {
	store   *store.Store
	metrics *metrics.Metrics
	log     *zap.Logger
	addr    string

	listener net.Listener

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	closing  bool
	wg       sync.WaitGroup
}

// New creates a Server that will listen on addr (e.g. ":6380") once
// Start is called.
func New(addr string, st *store.Store, m *metrics.Metrics, log *zap.Logger) *Server {
	return &Server{
		store:   st,
		metrics: m,
		log:     log,
		addr:    addr,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Start opens the listener and begins accepting connections. It blocks
// until Shutdown closes the listener, at which point it returns nil.
func (s *Server) Start() error {
	lc := net.ListenConfig{}
	listener, err := lc.Listen(context.Background(), "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.log.Info("mirkvd listening", zap.String("addr", s.addr))

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing {
				return nil
			}
			s.log.Warn("accept failed", zap.Error(err))
			continue
		}

		s.trackConn(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) trackConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrackConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

// Shutdown stops accepting new connections, closes every tracked
// connection, and waits for their handler goroutines to finish. Errors
// closing individual connections are aggregated rather than dropped.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	var result *multierror.Error
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close listener: %w", err))
		}
	}
	for conn := range s.conns {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close connection: %w", err))
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		result = multierror.Append(result, ctx.Err())
	}

	return result.ErrorOrNil()
}

// handleConnection owns one client connection end to end: it decodes
// commands incrementally off the socket, dispatches them, and writes back
// replies until the client disconnects, sends QUIT, or a protocol error
// occurs.
func (s *Server) handleConnection(conn net.Conn) {
	connID := uuid.NewString()
	log := s.log.With(zap.String("conn", connID), zap.String("remote", conn.RemoteAddr().String()))
	s.metrics.ConnectionsOpened.Inc()
	s.metrics.ConnectionsActive.Inc()

	defer func() {
		s.metrics.ConnectionsActive.Dec()
		s.untrackConn(conn)
		if err := conn.Close(); err != nil {
			log.Debug("error closing connection", zap.Error(err))
		}
		log.Info("connection closed")
	}()
	log.Info("connection opened")

	reader := bufio.NewReaderSize(conn, readBufferSize)
	buf := make([]byte, 0, readBufferSize)

	for {
		for {
			d := resp.DecodeCommand(buf)
			switch d.Outcome {
			case resp.Ready:
				buf = buf[d.Consumed:]
				shouldClose := s.dispatchAndReply(conn, log, d.Args)
				if shouldClose {
					return
				}
				continue
			case resp.ProtocolError:
				buf = buf[:0]
				s.writeReply(conn, log, resp.EncodeError(d.Err))
			}
			break // Incomplete, or just handled a ProtocolError: read more bytes
		}

		if err := conn.SetReadDeadline(time.Now().Add(defaultReadTimeout)); err != nil {
			log.Debug("set read deadline failed", zap.Error(err))
			return
		}

		chunk := make([]byte, readBufferSize)
		n, err := reader.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			if n == 0 {
				log.Debug("connection read ended", zap.Error(err))
			}
			return
		}
	}
}

// dispatchAndReply executes one already-decoded command and writes its
// reply. It returns true if the connection should be closed afterward
// (QUIT).
func (s *Server) dispatchAndReply(conn net.Conn, log *zap.Logger, args [][]byte) bool {
	start := time.Now()
	name, reply, closeAfter := s.dispatch(args)
	s.metrics.Observe(name, start, isErrorReply(reply))
	s.writeReply(conn, log, reply)
	return closeAfter
}

func (s *Server) writeReply(conn net.Conn, log *zap.Logger, reply []byte) {
	if err := conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout)); err != nil {
		log.Debug("set write deadline failed", zap.Error(err))
		return
	}
	if _, err := conn.Write(reply); err != nil {
		log.Debug("write reply failed", zap.Error(err))
	}
}

func isErrorReply(reply []byte) bool {
	return len(reply) > 0 && reply[0] == '-'
}
