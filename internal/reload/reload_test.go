package reload

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) (addr string, s *Server) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr = ln.Addr().String()
	require.NoError(t, ln.Close())

	s = NewServer(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Listen(ctx, addr)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Wait until the endpoint accepts connections.
	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 5*time.Second, 20*time.Millisecond)
	return addr, s
}

func TestReload_BroadcastsToConnectedClients(t *testing.T) {
	addr, s := startServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/livereload", nil)
	require.NoError(t, err)
	defer conn.Close()

	// Connection registration happens in the handler goroutine.
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.clients) == 1
	}, 5*time.Second, 10*time.Millisecond)

	s.Reload()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"reload"}`, string(msg))
}

func TestReload_NoClientsIsANoOp(t *testing.T) {
	s := NewServer(nil)
	// Must not block or panic without a single client.
	s.Reload()
}

func TestReload_DropsGoneClients(t *testing.T) {
	addr, s := startServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/livereload", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.clients) == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.clients) == 0
	}, 5*time.Second, 10*time.Millisecond)

	s.Reload()
}
