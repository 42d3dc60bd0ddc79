package tcp

import (
	"bufio"
	"chat-rooms/contract"
	chaterrors "chat-rooms/errors"
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"
)

var _ contract.Sink = (*ConnSink)(nil)

// ConnSink is the write side of one connection.
// Lines are queued on a bounded channel and written by a single goroutine,
// so a slow reader never blocks the sender of a broadcast.
type ConnSink struct {
	conn         net.Conn
	log          *slog.Logger
	lines        chan string
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	once   sync.Once
}

func NewConnSink(conn net.Conn, log *slog.Logger, bufferSize int, writeTimeout time.Duration) *ConnSink {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	s := &ConnSink{
		conn:         conn,
		log:          log,
		lines:        make(chan string, bufferSize),
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

// Deliver queues one line. It never waits for the network: a full queue
// drops the line and returns ErrSinkFull.
func (s *ConnSink) Deliver(ctx context.Context, line string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return chaterrors.ErrSinkClosed
	}
	select {
	case s.lines <- line:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return chaterrors.ErrSinkFull
	}
}

// Close stops accepting lines, lets the writer flush what is already
// queued, then closes the connection. Safe to call more than once.
func (s *ConnSink) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.lines)
		s.mu.Unlock()

		<-s.done
		if closeErr := s.conn.Close(); closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
			err = closeErr
		}
	})
	return err
}

func (s *ConnSink) writeLoop() {
	defer close(s.done)
	writer := bufio.NewWriter(s.conn)
	broken := false
	for line := range s.lines {
		if broken {
			continue
		}
		if s.writeTimeout > 0 {
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		}
		if _, err := writer.WriteString(line + "\n"); err != nil {
			s.abort("Write failed", err)
			broken = true
			continue
		}
		// Only flush once the queue is drained to batch bursts.
		if len(s.lines) == 0 {
			if err := writer.Flush(); err != nil {
				s.abort("Flush failed", err)
				broken = true
			}
		}
	}
	if !broken {
		_ = writer.Flush()
	}
}

// abort closes the connection after a failed write, so the session reading
// it ends and runs its cleanup. Remaining queued lines are dropped.
func (s *ConnSink) abort(msg string, err error) {
	s.log.Debug(msg+", closing connection", "remote", s.conn.RemoteAddr(), "error", err)
	_ = s.conn.Close()
}
