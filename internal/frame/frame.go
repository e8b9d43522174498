// Package frame implements the length-prefixed framing used on every
// connection: a 4-byte little-endian length followed by that many bytes.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"
)

const (
	HeaderSize = 4

	// DefaultMaxSize bounds a single payload on the read side.
	DefaultMaxSize uint32 = 16 << 20
)

var (
	// ErrTimeout is returned when a frame cannot complete within its budget.
	// The connection must be discarded afterwards: no resynchronization is
	// attempted on a partially transferred frame.
	ErrTimeout = errors.New("frame: i/o deadline exceeded")

	// ErrFrameTooLarge is returned for a length field above the read limit,
	// or a payload that does not fit in 32 bits on the write side.
	ErrFrameTooLarge = errors.New("frame: payload too large")
)

// Conn is the subset of net.Conn the codec needs.
type Conn interface {
	io.Reader
	io.Writer
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// deadline converts a per-frame budget into an absolute deadline.
// A zero budget clears any previous deadline so the call blocks.
func deadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

// Write sends payload as one frame. The timeout bounds the whole frame,
// header and body together.
func Write(c Conn, payload []byte, timeout time.Duration) error {
	if uint64(len(payload)) > math.MaxUint32 {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	if err := c.SetWriteDeadline(deadline(timeout)); err != nil {
		return fmt.Errorf("frame: set write deadline: %w", err)
	}

	buf := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[HeaderSize:], payload)

	if _, err := c.Write(buf); err != nil {
		return classify("write", err)
	}
	return nil
}

// Read receives one frame using DefaultMaxSize as the limit.
func Read(c Conn, timeout time.Duration) ([]byte, error) {
	return ReadLimit(c, timeout, DefaultMaxSize)
}

// ReadLimit receives one frame, rejecting length fields above limit before
// any payload is allocated. A zero limit disables the check.
func ReadLimit(c Conn, timeout time.Duration, limit uint32) ([]byte, error) {
	if err := c.SetReadDeadline(deadline(timeout)); err != nil {
		return nil, fmt.Errorf("frame: set read deadline: %w", err)
	}

	var header [HeaderSize]byte
	if _, err := io.ReadFull(c, header[:]); err != nil {
		return nil, classify("read header", err)
	}

	n := binary.LittleEndian.Uint32(header[:])
	if limit > 0 && n > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFrameTooLarge, n, limit)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(c, payload); err != nil {
		return nil, classify("read payload", err)
	}
	return payload, nil
}

func classify(op string, err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("frame: %s: %w: %w", op, ErrTimeout, err)
	}
	return fmt.Errorf("frame: %s: %w", op, err)
}
