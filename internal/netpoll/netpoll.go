// Package netpoll answers "which of these sockets can be read without
// blocking" for a listener or an arbitrary set of connections, using a
// single zero-timeout readiness check.
package netpoll

import (
	"errors"
	"syscall"
)

// ErrUnsupported is returned on platforms without poll(2).
var ErrUnsupported = errors.New("netpoll: readiness polling not supported on this platform")

// Pollable is satisfied by *net.TCPConn, *net.TCPListener, *net.UnixConn
// and anything else exposing its raw descriptor.
type Pollable interface {
	SyscallConn() (syscall.RawConn, error)
}

// IsReadyToRead reports whether a single socket has pending input. For a
// listener this means a connection is waiting to be accepted.
func IsReadyToRead(p Pollable) (bool, error) {
	ready, err := ReadyToRead([]Pollable{p})
	if err != nil {
		return false, err
	}
	return len(ready) == 1, nil
}
