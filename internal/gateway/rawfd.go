// Package gateway implements the three concrete session kinds the reactor
// drives: the TCP listener, the HTTP request parser, and the WebSocket ↔
// subprocess bridge.
package gateway

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// rawFD extracts the integer file descriptor behind a net.Listener or
// net.Conn without taking ownership of it: the reactor polls it directly
// with its own poll(2) loop instead of going through the runtime's
// goroutine-per-blocking-call model, which is what makes a single-threaded
// event loop over heterogeneous sessions possible in the first place.
func rawFD(sc syscall.Conn) (int, error) {
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd int
	if err := raw.Control(func(f uintptr) {
		fd = int(f)
	}); err != nil {
		return 0, err
	}
	return fd, nil
}

// rawFileFD does the same for an *os.File (a pipe end). Fd() switches the
// file into blocking mode as a side effect, so non-blocking mode is
// restored immediately; the reactor never calls a blocking read or write
// on a descriptor it owns.
func rawFileFD(f *os.File) (int, error) {
	fd := int(f.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		return 0, err
	}
	return fd, nil
}
