package chatprotocol

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockServer is a loopback TCP chat server for testing the real transport.
//
// It reads CRLF-terminated lines and answers each with whatever the handler
// returns, so every test decides how the "server" reacts to a command.
type mockServer struct {
	listener net.Listener

	// handler returns the lines to send back for a received line. If nil,
	// NICK is answered with the welcome line and JOIN/PART are echoed.
	handler func(line string) []string

	mu       sync.Mutex
	received []string
	conns    []net.Conn

	wg sync.WaitGroup
}

// startMockServer listens on an ephemeral loopback port. The server is
// closed when the test finishes.
func startMockServer(t *testing.T, handler func(line string) []string) *mockServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &mockServer{listener: listener, handler: handler}
	if s.handler == nil {
		s.handler = defaultMockHandler
	}

	s.wg.Add(1)
	go s.acceptLoop()

	t.Cleanup(s.Close)
	return s
}

func defaultMockHandler(line string) []string {
	switch {
	case strings.HasPrefix(line, "NICK "):
		nick := strings.TrimPrefix(line, "NICK ")
		return []string{":tmi.twitch.tv 001 " + nick + " :Welcome, GLHF!"}
	case strings.HasPrefix(line, "JOIN "), strings.HasPrefix(line, "PART "):
		return []string{":observer!observer@observer.tmi.twitch.tv " + line}
	}
	return nil
}

// Addr returns the host:port the server listens on.
func (s *mockServer) Addr() string {
	return s.listener.Addr().String()
}

// Received returns every line the client sent.
func (s *mockServer) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

// Broadcast writes lines to every connected client.
func (s *mockServer) Broadcast(lines ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload := strings.Join(lines, "\r\n") + "\r\n"
	for _, conn := range s.conns {
		_, _ = conn.Write([]byte(payload))
	}
}

// Close stops the server and waits for its goroutines.
func (s *mockServer) Close() {
	s.listener.Close()
	s.mu.Lock()
	for _, conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *mockServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *mockServer) serve(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		s.mu.Lock()
		s.received = append(s.received, line)
		s.mu.Unlock()

		for _, reply := range s.handler(line) {
			if _, err := conn.Write([]byte(reply + "\r\n")); err != nil {
				return
			}
		}
	}
}

func TestObserverOverTCP(t *testing.T) {
	server := startMockServer(t, nil)

	obs := New("observer", "oauth:secret",
		WithAddress(server.Addr()),
		WithPollInterval(time.Millisecond),
		WithSendInterval(10*time.Millisecond),
		WithReadTimeout(20*time.Millisecond))
	rec := &eventRecorder{}
	obs.Subscribe(rec.handle)

	require.NoError(t, obs.Start())
	require.Len(t, rec.ofKind(KindCommand), 1, "welcome is handled before Start returns")

	require.NoError(t, obs.JoinChannel("dallas"))
	require.Eventually(t, func() bool { return len(rec.ofKind(KindJoin)) == 1 }, waitFor, tick)

	server.Broadcast(PingLine, ":ronni!ronni@ronni.tmi.twitch.tv PRIVMSG #dallas :hello observer")
	require.Eventually(t, func() bool { return len(rec.ofKind(KindMessage)) == 1 }, waitFor, tick)

	require.NoError(t, obs.LeaveChannel("dallas"))
	require.NoError(t, obs.Stop(false))

	received := server.Received()
	assert.Equal(t, "PASS oauth:secret", received[0])
	assert.Equal(t, "NICK observer", received[1])
	assert.Contains(t, received, "JOIN #dallas")
	assert.Contains(t, received, PongLine)
	assert.Contains(t, received, "PART #dallas")
	assert.Empty(t, rec.ofKind(KindDisconnect))
}

func TestObserverOverTCPAuthenticationFailure(t *testing.T) {
	server := startMockServer(t, func(line string) []string {
		if strings.HasPrefix(line, "NICK ") {
			return []string{AuthFailedLine}
		}
		return nil
	})

	obs := New("observer", "oauth:wrong", WithAddress(server.Addr()))
	err := obs.Start()
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	assert.False(t, obs.IsRunning())
}

func TestObserverOverTCPServerShutdown(t *testing.T) {
	server := startMockServer(t, nil)

	obs := New("observer", "oauth:secret",
		WithAddress(server.Addr()),
		WithPollInterval(time.Millisecond),
		WithReadTimeout(20*time.Millisecond))
	require.NoError(t, obs.Start())

	server.Close()

	select {
	case <-obs.Done():
	case <-time.After(waitFor):
		t.Fatal("pumps did not exit after the server closed")
	}
	var connErr *ConnectionError
	assert.ErrorAs(t, obs.Stop(false), &connErr)
}
