package tcp

import (
	"bufio"
	"chat-rooms/domain"
	"chat-rooms/runtime"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type discardTranscript struct{}

func (discardTranscript) Open(string) error           { return nil }
func (discardTranscript) Append(string, string) error { return nil }
func (discardTranscript) Close(string) error          { return nil }

type testClient struct {
	conn   net.Conn
	reader *bufio.Reader
}

func dial(t *testing.T, addr net.Addr, username string) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	c := &testClient{conn: conn, reader: bufio.NewReader(conn)}
	c.send(t, username)
	return c
}

func (c *testClient) send(t *testing.T, line string) {
	t.Helper()
	_, err := fmt.Fprintln(c.conn, line)
	require.NoError(t, err)
}

func (c *testClient) expect(t *testing.T, want string) {
	t.Helper()
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := c.reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, want, strings.TrimSuffix(line, "\n"))
}

// flakyListener fails the Accept call number failAt once, then behaves.
type flakyListener struct {
	net.Listener
	calls  atomic.Int32
	failAt int32
}

func (l *flakyListener) Accept() (net.Conn, error) {
	if l.calls.Add(1) == l.failAt {
		return nil, errors.New("accept tcp: too many open files")
	}
	return l.Listener.Accept()
}

func startServer(t *testing.T, policy domain.DuplicatePolicy) (*Server, *runtime.Registry, context.CancelFunc, chan error) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return startServerOn(t, listener, policy)
}

func startServerOn(t *testing.T, listener net.Listener, policy domain.DuplicatePolicy) (*Server, *runtime.Registry, context.CancelFunc, chan error) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	transcript := discardTranscript{}
	registry := runtime.NewRegistry(log)
	directory := runtime.NewDirectory(log, transcript)
	router := runtime.NewRouter(log, registry, directory, transcript, nil)
	server := NewServer(log, listener, registry, directory, router,
		runtime.SessionConfig{DuplicatePolicy: policy}, 16, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()
	t.Cleanup(cancel)
	return server, registry, cancel, done
}

func TestServer_Two_Clients_Chat(t *testing.T) {
	req := require.New(t)
	server, registry, _, _ := startServer(t, domain.OverwritePolicy)

	alice := dial(t, server.Addr(), "alice")
	alice.send(t, "/create lobby")
	alice.expect(t, "You have created and joined the chat room: lobby")

	bob := dial(t, server.Addr(), "bob")
	bob.send(t, "/join lobby")
	bob.expect(t, "You have joined the chat room: lobby")
	req.Eventually(func() bool { return registry.Len() == 2 }, time.Second, 5*time.Millisecond)

	// When bob speaks, alice hears it
	bob.send(t, "hello")
	alice.expect(t, "bob (lobby): hello")

	// And bob's next reply is for his own command, not his echo
	bob.send(t, "/list")
	bob.expect(t, "Available chat rooms: lobby")

	bob.send(t, "/exit")
	bob.expect(t, "bob has left the chat.")
	req.Eventually(func() bool { return registry.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestServer_Evict_Sends_Kick_Sentinel(t *testing.T) {
	server, _, _, _ := startServer(t, domain.EvictPolicy)

	first := dial(t, server.Addr(), "alice")
	first.send(t, "/create lobby")
	first.expect(t, "You have created and joined the chat room: lobby")

	second := dial(t, server.Addr(), "alice")
	second.send(t, "/list")
	second.expect(t, "Available chat rooms: lobby")

	first.expect(t, domain.KickSentinel)
}

func TestServer_Stops_On_Context_Cancel(t *testing.T) {
	req := require.New(t)
	server, _, cancel, done := startServer(t, domain.OverwritePolicy)

	client := dial(t, server.Addr(), "alice")
	client.send(t, "/list")
	client.expect(t, domain.NoRoomsNotice)

	// When the server is stopped
	cancel()

	// Then Run returns cleanly and open connections are closed
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("Server should have stopped")
	}
	req.NoError(client.conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, err := client.reader.ReadString('\n')
	req.Error(err)
}

func TestServer_Accept_Failure_Keeps_Live_Sessions(t *testing.T) {
	req := require.New(t)
	inner, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	// The second Accept, right after alice's connection, fails once
	listener := &flakyListener{Listener: inner, failAt: 2}
	server, registry, _, done := startServerOn(t, listener, domain.OverwritePolicy)

	// Given alice is connected
	alice := dial(t, server.Addr(), "alice")
	alice.send(t, "/create lobby")
	alice.expect(t, "You have created and joined the chat room: lobby")
	req.Eventually(func() bool { return listener.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	// Then the server kept running and alice's session is untouched
	select {
	case err := <-done:
		req.Failf("server stopped", "Run returned %v", err)
	default:
	}
	alice.send(t, "/list")
	alice.expect(t, "Available chat rooms: lobby")
	req.Equal(1, registry.Len())

	// And new connections are still accepted
	bob := dial(t, server.Addr(), "bob")
	bob.send(t, "/join lobby")
	bob.expect(t, "You have joined the chat room: lobby")
}
