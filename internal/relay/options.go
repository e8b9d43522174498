package relay

import (
	"log/slog"
	"time"

	"vrrelay/internal/frame"
)

const (
	DefaultPort            = 9034
	DefaultIOTimeout       = 500 * time.Millisecond
	DefaultIdleSleep       = 10 * time.Millisecond
	DefaultInjectQueueSize = 256
)

// Options configures a Server. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	// Addr is the TCP listen address, e.g. ":9034".
	Addr string
	// RelayToSource also sends each event back to the client that sent it.
	RelayToSource bool
	// IOTimeout bounds each frame read or write; zero blocks.
	IOTimeout time.Duration
	// IdleSleep is how long the loop naps when nobody is connected.
	IdleSleep time.Duration
	// MaxFrameSize caps inbound payloads; zero disables the cap.
	MaxFrameSize uint32
	// InjectQueueSize is the buffer for events from non-TCP sources.
	InjectQueueSize int

	Logger    *slog.Logger
	Observers []Observer
}

func DefaultOptions() Options {
	return Options{
		Addr:            ":9034",
		RelayToSource:   true,
		IOTimeout:       DefaultIOTimeout,
		IdleSleep:       DefaultIdleSleep,
		MaxFrameSize:    frame.DefaultMaxSize,
		InjectQueueSize: DefaultInjectQueueSize,
	}
}
