package dispatch

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// listenTCP creates the listening socket explicitly instead of going
// through net.Listen, which leaves the accept backlog to the kernel
// default. The socket is created with SO_REUSEADDR, bound to the wildcard
// address on the given port, and put into listening state with the given
// backlog, then wrapped into a net.Listener.
func listenTCP(port, backlog int) (net.Listener, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("create socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("set SO_REUSEADDR: %w", err)
	}

	sa := &unix.SockaddrInet4{Port: port}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("bind port %d: %w", port, err)
	}

	if err := unix.Listen(fd, backlog); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("listen on port %d: %w", port, err)
	}

	// net.FileListener dups the descriptor, so the os.File wrapper is
	// closed right away.
	f := os.NewFile(uintptr(fd), "streamd-listener")
	defer f.Close()

	listener, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("wrap listening socket: %w", err)
	}

	return listener, nil
}
