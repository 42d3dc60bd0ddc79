package tcp

import (
	"chat-rooms/contract"
	"chat-rooms/runtime"
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"
)

var _ contract.Worker = (*Server)(nil)

// Server accepts TCP connections and runs one Session per connection.
// It is a supervised worker: Run blocks until the context is canceled.
type Server struct {
	log          *slog.Logger
	listener     net.Listener
	registry     contract.IRegistry
	directory    contract.IDirectory
	router       contract.IRouter
	config       runtime.SessionConfig
	bufferSize   int
	writeTimeout time.Duration

	mu    sync.Mutex
	sinks map[*ConnSink]struct{}
	wg    sync.WaitGroup
}

func NewServer(log *slog.Logger, listener net.Listener, registry contract.IRegistry, directory contract.IDirectory,
	router contract.IRouter, config runtime.SessionConfig, bufferSize int, writeTimeout time.Duration) *Server {
	return &Server{
		log:          log,
		listener:     listener,
		registry:     registry,
		directory:    directory,
		router:       router,
		config:       config,
		bufferSize:   bufferSize,
		writeTimeout: writeTimeout,
		sinks:        make(map[*ConnSink]struct{}),
	}
}

// Addr is the address the listener is bound to.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) Run(ctx context.Context) error {
	s.log.Info("Chat server listening", "address", s.listener.Addr().String())

	stop := context.AfterFunc(ctx, func() {
		_ = s.listener.Close()
	})
	defer stop()

	var delay time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.shutdown()
				return nil
			}
			// Live sessions are left alone, only accepting is delayed.
			delay = nextAcceptDelay(delay)
			s.log.Warn("Accept failed, retrying", "error", err, "retry_in", delay)
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
			continue
		}
		delay = 0
		s.serve(ctx, conn)
	}
}

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

func nextAcceptDelay(delay time.Duration) time.Duration {
	if delay == 0 {
		return minAcceptDelay
	}
	return min(delay*2, maxAcceptDelay)
}

func (s *Server) serve(ctx context.Context, conn net.Conn) {
	sink := NewConnSink(conn, s.log, s.bufferSize, s.writeTimeout)
	s.mu.Lock()
	s.sinks[sink] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			_ = sink.Close()
			s.mu.Lock()
			delete(s.sinks, sink)
			s.mu.Unlock()
		}()

		remote := conn.RemoteAddr().String()
		session := runtime.NewSession(s.log.With("remote", remote), s.registry, s.directory, s.router, conn, sink, s.config)
		s.log.Debug("Connection accepted", "remote", remote)
		if err := session.Run(ctx); err != nil {
			s.log.Debug("Session ended with error", "remote", remote, "username", session.Username(), "error", err)
			return
		}
		s.log.Debug("Session ended", "remote", remote, "username", session.Username())
	}()
}

// shutdown closes every live connection, which unblocks their reads, then
// waits for the sessions to clean up.
func (s *Server) shutdown() {
	s.mu.Lock()
	sinks := make([]*ConnSink, 0, len(s.sinks))
	for sink := range s.sinks {
		sinks = append(sinks, sink)
	}
	s.mu.Unlock()

	for _, sink := range sinks {
		_ = sink.Close()
	}
	s.wg.Wait()
	s.log.Info("Chat server stopped")
}
