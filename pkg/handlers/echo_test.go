package handlers_test

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/streamd/pkg/dispatch"
	"github.com/marmos91/streamd/pkg/handlers"
)

func startServer(t *testing.T, poolSize int, handler dispatch.Handler) *dispatch.Server {
	t.Helper()

	srv, err := dispatch.New(dispatch.Config{Port: 0, PoolSize: poolSize}, handler, nil, nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = srv.Serve(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		_ = srv.Close(context.Background())
	})

	return srv
}

func dialServer(t *testing.T, srv *dispatch.Server) net.Conn {
	t.Helper()

	_, port, err := net.SplitHostPort(srv.Addr().String())
	if err != nil {
		t.Fatalf("failed to parse server address: %v", err)
	}

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", port))
	if err != nil {
		t.Fatalf("failed to dial server: %v", err)
	}

	return conn
}

func TestEchoRoundTrip(t *testing.T) {
	srv := startServer(t, 2, handlers.NewEcho(handlers.EchoConfig{}))

	conn := dialServer(t, srv)
	defer conn.Close()

	msg := []byte("hello streamd")
	if _, err := conn.Write(msg); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	reply, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if !bytes.Equal(reply, msg) {
		t.Errorf("echo returned %q, want %q", reply, msg)
	}
}

func TestEchoConcurrentClients(t *testing.T) {
	srv := startServer(t, 2, handlers.NewEcho(handlers.EchoConfig{}))

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			conn := dialServer(t, srv)
			defer conn.Close()

			msg := []byte{'c', 'l', 'i', 'e', 'n', 't', byte('0' + id)}
			if _, err := conn.Write(msg); err != nil {
				t.Errorf("client %d write failed: %v", id, err)
				return
			}

			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			reply, err := io.ReadAll(conn)
			if err != nil {
				t.Errorf("client %d read failed: %v", id, err)
				return
			}

			// Each client must get its own bytes back, never another
			// client's.
			if !bytes.Equal(reply, msg) {
				t.Errorf("client %d got %q, want %q", id, reply, msg)
			}
		}(i)
	}
	wg.Wait()
}

func TestEchoTruncatesToBufferSize(t *testing.T) {
	srv := startServer(t, 1, handlers.NewEcho(handlers.EchoConfig{BufferSize: 4}))

	conn := dialServer(t, srv)
	defer conn.Close()

	if _, err := conn.Write([]byte("overflow")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	reply, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if !bytes.Equal(reply, []byte("over")) {
		t.Errorf("echo returned %q, want %q", reply, "over")
	}
}

func TestEchoClosesOnEmptyRead(t *testing.T) {
	srv := startServer(t, 1, handlers.NewEcho(handlers.EchoConfig{}))

	conn := dialServer(t, srv)

	// Closing without sending anything makes the handler's read return
	// zero; it must close its side without echoing.
	if err := conn.(*net.TCPConn).CloseWrite(); err != nil {
		t.Fatalf("CloseWrite failed: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	reply, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(reply) != 0 {
		t.Errorf("got %q after empty send, want nothing", reply)
	}

	_ = conn.Close()
}

func TestDiscardDrainsConnection(t *testing.T) {
	srv := startServer(t, 1, handlers.NewDiscard(handlers.DiscardConfig{}))

	conn := dialServer(t, srv)
	defer conn.Close()

	for i := 0; i < 10; i++ {
		if _, err := conn.Write(make([]byte, 1024)); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}

	if err := conn.(*net.TCPConn).CloseWrite(); err != nil {
		t.Fatalf("CloseWrite failed: %v", err)
	}

	// The handler consumes everything and closes without replying.
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	reply, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(reply) != 0 {
		t.Errorf("discard handler replied with %d bytes, want 0", len(reply))
	}
}
