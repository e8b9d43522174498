// Package vrnet is the peer side of the event protocol: it dials a relay
// (or any compatible host) and sends and receives framed events.
package vrnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"vrrelay/internal/frame"
	"vrrelay/internal/netpoll"
	"vrrelay/pkg/vrevent"
)

// ErrUnexpectedType is returned by the typed receive helpers when the
// decoded event is a different variant than requested.
var ErrUnexpectedType = errors.New("vrnet: unexpected event type")

// Conn wraps one byte-stream connection carrying framed events.
// It is not safe for concurrent sends or concurrent receives.
type Conn struct {
	conn     net.Conn
	desc     string
	maxFrame uint32
}

// Dial connects to addr ("host:port") with Nagle's algorithm disabled.
func Dial(ctx context.Context, addr string) (*Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return NewConn(conn), nil
}

// NewConn adopts an established connection. The remote address is captured
// once as the connection's description.
func NewConn(conn net.Conn) *Conn {
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	desc := "unknown"
	if addr := conn.RemoteAddr(); addr != nil {
		desc = addr.String()
	}
	return &Conn{conn: conn, desc: desc, maxFrame: frame.DefaultMaxSize}
}

// SetMaxFrameSize changes the largest payload ReceiveEvent will accept.
func (c *Conn) SetMaxFrameSize(n uint32) { c.maxFrame = n }

// Description is the peer's "ip:port" as seen when the connection was made.
func (c *Conn) Description() string { return c.desc }

// NetConn exposes the underlying connection.
func (c *Conn) NetConn() net.Conn { return c.conn }

// SyscallConn lets the connection take part in readiness polling.
func (c *Conn) SyscallConn() (syscall.RawConn, error) {
	sc, ok := c.conn.(syscall.Conn)
	if !ok {
		return nil, netpoll.ErrUnsupported
	}
	return sc.SyscallConn()
}

// ReadyToRead reports whether a frame (or EOF) is waiting.
func (c *Conn) ReadyToRead() (bool, error) {
	return netpoll.IsReadyToRead(c)
}

// SendEvent encodes e and writes it as one frame. A zero timeout blocks.
func (c *Conn) SendEvent(e vrevent.Event, timeout time.Duration) error {
	payload, err := vrevent.Encode(e)
	if err != nil {
		return err
	}
	return c.SendPayload(payload, timeout)
}

// SendPayload writes an already encoded event.
func (c *Conn) SendPayload(payload []byte, timeout time.Duration) error {
	return frame.Write(c.conn, payload, timeout)
}

// ReceiveEvent reads one frame and decodes it. A decode failure leaves the
// stream in sync: the error matches vrevent.ErrDecode and the connection
// stays usable. Any other error means the connection is finished.
func (c *Conn) ReceiveEvent(timeout time.Duration) (vrevent.Event, error) {
	payload, err := frame.ReadLimit(c.conn, timeout, c.maxFrame)
	if err != nil {
		return nil, err
	}
	return vrevent.Decode(payload)
}

func (c *Conn) Close() error { return c.conn.Close() }

func receiveAs[T vrevent.Event](c *Conn, timeout time.Duration) (T, error) {
	var zero T
	e, err := c.ReceiveEvent(timeout)
	if err != nil {
		return zero, err
	}
	typed, ok := e.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %q of type %q", ErrUnexpectedType, e.Name(), e.Type())
	}
	return typed, nil
}

func (c *Conn) ReceiveInt32(timeout time.Duration) (vrevent.Int32Event, error) {
	return receiveAs[vrevent.Int32Event](c, timeout)
}

func (c *Conn) ReceiveSingle(timeout time.Duration) (vrevent.SingleEvent, error) {
	return receiveAs[vrevent.SingleEvent](c, timeout)
}

func (c *Conn) ReceiveVector2(timeout time.Duration) (vrevent.Vector2Event, error) {
	return receiveAs[vrevent.Vector2Event](c, timeout)
}

func (c *Conn) ReceiveVector3(timeout time.Duration) (vrevent.Vector3Event, error) {
	return receiveAs[vrevent.Vector3Event](c, timeout)
}

func (c *Conn) ReceiveVector4(timeout time.Duration) (vrevent.Vector4Event, error) {
	return receiveAs[vrevent.Vector4Event](c, timeout)
}

func (c *Conn) ReceiveQuaternion(timeout time.Duration) (vrevent.QuaternionEvent, error) {
	return receiveAs[vrevent.QuaternionEvent](c, timeout)
}

func (c *Conn) ReceiveString(timeout time.Duration) (vrevent.StringEvent, error) {
	return receiveAs[vrevent.StringEvent](c, timeout)
}
