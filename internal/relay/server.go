package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"vrrelay/internal/frame"
	"vrrelay/internal/netpoll"
	"vrrelay/pkg/vrevent"
	"vrrelay/pkg/vrnet"
)

// Server accepts any number of TCP clients and relays every event it
// receives to all of them. One goroutine runs the whole loop:
//
//	accept pending -> relay injected -> poll clients -> read/relay -> prune
//
// An event named Shutdown (or SHUTDOWN) is relayed like any other and then
// stops the loop.
type Server struct {
	opts      Options
	registry  *Registry
	listener  *net.TCPListener
	injected  chan injectedEvent
	observers []Observer
	logger    *slog.Logger

	quitChan chan struct{}
	stopOnce sync.Once
	shutdown bool

	// rejected frames are logged at most a few times per interval
	rejectLog rate.Sometimes
}

type injectedEvent struct {
	source ClientInfo
	event  vrevent.Event
}

// NewServer creates a relay server. Call Listen to bind early, or let
// Start do it.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	queue := opts.InjectQueueSize
	if queue < 1 {
		queue = DefaultInjectQueueSize
	}
	return &Server{
		opts:      opts,
		registry:  NewRegistry(logger),
		injected:  make(chan injectedEvent, queue),
		observers: append([]Observer(nil), opts.Observers...),
		logger:    logger,
		quitChan:  make(chan struct{}),
		rejectLog: rate.Sometimes{First: 5, Interval: 10 * time.Second},
	}
}

// Observe adds observers. It must be called before Start.
func (s *Server) Observe(obs ...Observer) {
	s.observers = append(s.observers, obs...)
}

// Listen binds the listening socket. Failure here is fatal for the caller.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to start relay server on %s: %w", s.opts.Addr, err)
	}
	s.listener = ln.(*net.TCPListener)
	return nil
}

// Addr is the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start runs the relay loop until a shutdown event arrives, Stop is called
// or ctx is done. The listener and every client connection are closed
// before it returns. Only listener failures produce an error.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	defer s.closeAll()

	s.logger.Info("relay_server_started",
		"addr", s.listener.Addr().String(),
		"relay_to_source", s.opts.RelayToSource,
		"io_timeout", s.opts.IOTimeout,
	)

	for !s.shutdown {
		select {
		case <-ctx.Done():
			s.logger.Info("relay_server_stopping", "reason", "context_done")
			return nil
		case <-s.quitChan:
			s.logger.Info("relay_server_stopping", "reason", "stop_requested")
			return nil
		default:
		}

		if err := s.acceptPending(); err != nil {
			return err
		}

		s.relayInjected()
		if s.shutdown {
			break
		}

		if s.registry.Len() == 0 {
			s.idle(ctx)
			continue
		}
		s.relayCycle()
	}

	s.logger.Info("relay_server_stopping", "reason", "shutdown_event")
	return nil
}

// Stop asks the loop to exit at the start of its next iteration.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.quitChan) })
}

// Inject queues an event from a source other than a TCP client. It is
// relayed to every TCP client (source never matches one) and to observers.
// Inject never blocks; it reports false when the queue is full.
func (s *Server) Inject(source ClientInfo, e vrevent.Event) bool {
	select {
	case s.injected <- injectedEvent{source: source, event: e}:
		return true
	default:
		return false
	}
}

// Clients returns the connected TCP clients in accept order.
func (s *Server) Clients() []ClientInfo { return s.registry.Infos() }

func (s *Server) ClientCount() int { return s.registry.Len() }

// RelayToSource reports whether senders receive their own events.
func (s *Server) RelayToSource() bool { return s.opts.RelayToSource }

// acceptPending accepts until the listener reports nothing waiting.
func (s *Server) acceptPending() error {
	for {
		ready, err := netpoll.IsReadyToRead(s.listener)
		if err != nil {
			return fmt.Errorf("failed to poll listener: %w", err)
		}
		if !ready {
			return nil
		}

		conn, err := s.listener.AcceptTCP()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("listener closed: %w", err)
			}
			s.logger.Warn("accept_failed", "error", err)
			return nil
		}
		s.register(conn)
	}
}

func (s *Server) register(conn *net.TCPConn) {
	vc := vrnet.NewConn(conn)
	vc.SetMaxFrameSize(s.opts.MaxFrameSize)

	client := &Client{
		ID:          uuid.NewString(),
		Description: vc.Description(),
		ConnectedAt: time.Now(),
		conn:        vc,
	}
	s.registry.Add(client)

	info := client.Info()
	for _, o := range s.observers {
		o.ClientConnected(info)
	}
}

// relayInjected drains the inject queue without blocking.
func (s *Server) relayInjected() {
	for {
		select {
		case in := <-s.injected:
			pending := newRemovalSet()
			s.relay(in.event, in.source, s.registry.Snapshot(), pending)
			s.prune(pending)
			if vrevent.IsShutdown(in.event.Name()) {
				s.shutdown = true
				return
			}
		default:
			return
		}
	}
}

// relayCycle reads at most one event from every client that is ready and
// relays it. Failed clients are collected and pruned once at the end.
func (s *Server) relayCycle() {
	clients := s.registry.Snapshot()
	items := make([]netpoll.Pollable, len(clients))
	for i, c := range clients {
		items[i] = c.conn
	}

	ready, err := netpoll.ReadyToRead(items)
	if err != nil {
		s.logger.Error("client_poll_failed", "error", err)
		return
	}

	pending := newRemovalSet()
	for _, i := range ready {
		src := clients[i]
		if pending.has(src.ID) {
			continue
		}

		evt, err := src.conn.ReceiveEvent(s.opts.IOTimeout)
		if err != nil {
			if errors.Is(err, vrevent.ErrDecode) {
				s.rejectFrame(src, err)
				continue
			}
			if errors.Is(err, frame.ErrFrameTooLarge) {
				// the rest of the stream can't be resynchronised
				s.rejectFrame(src, err)
			}
			s.logger.Debug("client_read_failed",
				"client_id", src.ID,
				"address", src.Description,
				"error", err,
			)
			pending.add(src.ID)
			continue
		}

		s.relay(evt, src.Info(), clients, pending)
		if vrevent.IsShutdown(evt.Name()) {
			s.shutdown = true
			break
		}
	}

	s.prune(pending)
}

// relay sends e to every destination in clients, skipping the source when
// relay-to-source is off and anything already marked for removal.
func (s *Server) relay(e vrevent.Event, source ClientInfo, clients []*Client, pending *removalSet) {
	payload, err := vrevent.Encode(e)
	if err != nil {
		s.logger.Warn("event_encode_failed", "event", e.Name(), "source", source.Address, "error", err)
		return
	}

	delivered, failed := 0, 0
	for _, dst := range clients {
		if dst.ID == source.ID && !s.opts.RelayToSource {
			continue
		}
		if pending.has(dst.ID) {
			continue
		}
		if err := dst.conn.SendPayload(payload, s.opts.IOTimeout); err != nil {
			s.logger.Debug("client_write_failed",
				"client_id", dst.ID,
				"address", dst.Description,
				"error", err,
			)
			pending.add(dst.ID)
			failed++
			continue
		}
		delivered++
	}

	s.logger.Debug("event_relayed",
		"event", e.Name(),
		"type", string(e.Type()),
		"source", source.Address,
		"delivered", delivered,
		"failed", failed,
	)
	for _, o := range s.observers {
		o.EventRelayed(e, source, delivered, failed)
	}
}

func (s *Server) rejectFrame(src *Client, err error) {
	s.rejectLog.Do(func() {
		s.logger.Warn("frame_dropped",
			"client_id", src.ID,
			"address", src.Description,
			"error", err,
		)
	})
	info := src.Info()
	for _, o := range s.observers {
		o.FrameRejected(info, err)
	}
}

func (s *Server) prune(pending *removalSet) {
	for _, id := range pending.order {
		c, ok := s.registry.Remove(id)
		if !ok {
			continue
		}
		c.conn.Close()
		info := c.Info()
		for _, o := range s.observers {
			o.ClientDropped(info)
		}
	}
}

// idle naps for IdleSleep, waking early on stop or cancellation.
func (s *Server) idle(ctx context.Context) {
	if s.opts.IdleSleep <= 0 {
		return
	}
	timer := time.NewTimer(s.opts.IdleSleep)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-s.quitChan:
	}
}

func (s *Server) closeAll() {
	if s.listener != nil {
		s.listener.Close()
	}
	for _, c := range s.registry.CloseAll() {
		info := c.Info()
		for _, o := range s.observers {
			o.ClientDropped(info)
		}
	}
	s.logger.Info("relay_server_stopped")
}
