//go:build integration

package streamd_test

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/streamd/pkg/config"
	"github.com/marmos91/streamd/pkg/dispatch"
)

// TestStreamd_Integration exercises the full stack: configuration file,
// handler factory, dispatch server, and client round trips.
//
// Prerequisites:
//   - None (loopback TCP only, no external services needed)
//   - Run with: go test -tags=integration ./test/integration/streamd/...
func TestStreamd_Integration(t *testing.T) {
	// ========================================================================
	// Setup: Write a config file and load it back
	// ========================================================================

	tempDir, err := os.MkdirTemp("", "streamd-integration-*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configPath := filepath.Join(tempDir, "config.yaml")

	configContent := `
logging:
  level: "ERROR"

server:
  pool_size: 2
  shutdown_timeout: "5s"

handler:
  type: "echo"
  echo:
    buffer_size: 128
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	handler, err := config.CreateHandler(&cfg.Handler)
	if err != nil {
		t.Fatalf("Failed to create handler: %v", err)
	}

	// Override the configured port with 0 so the OS picks a free one and
	// parallel test runs cannot collide.
	cfg.Server.Port = 0

	srv, err := dispatch.New(cfg.Server, handler, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create dispatch server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- srv.Serve(ctx)
	}()

	_, port, err := net.SplitHostPort(srv.Addr().String())
	if err != nil {
		t.Fatalf("Failed to parse server address: %v", err)
	}
	addr := net.JoinHostPort("127.0.0.1", port)

	// ========================================================================
	// Test: Concurrent echo round trips
	// ========================================================================

	t.Run("EchoRoundTrips", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()

				conn, err := net.Dial("tcp", addr)
				if err != nil {
					t.Errorf("client %d dial failed: %v", id, err)
					return
				}
				defer conn.Close()

				msg := []byte{'p', 'i', 'n', 'g', byte('0' + id)}
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

				if !bytes.Equal(reply, msg) {
					t.Errorf("client %d got %q, want %q", id, reply, msg)
				}
			}(i)
		}
		wg.Wait()
	})

	// ========================================================================
	// Test: Graceful shutdown
	// ========================================================================

	t.Run("GracefulShutdown", func(t *testing.T) {
		if err := srv.Close(context.Background()); err != nil {
			t.Fatalf("Close returned error: %v", err)
		}

		select {
		case err := <-serveDone:
			if err != dispatch.ErrServerClosed {
				t.Errorf("Serve returned %v, want ErrServerClosed", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Serve did not return after Close")
		}

		// New connections must be refused once the listener is gone
		if _, err := net.Dial("tcp", addr); err == nil {
			t.Error("Expected dial to fail after shutdown")
		}
	})
}
