package relay

import "vrrelay/pkg/vrevent"

// Observer is notified of relay activity. Methods run on the relay loop
// goroutine and must return quickly; slow work belongs on a worker pool.
type Observer interface {
	ClientConnected(c ClientInfo)
	ClientDropped(c ClientInfo)
	// EventRelayed fires once per event after its fan-out finished.
	// delivered and failed count TCP destinations only.
	EventRelayed(e vrevent.Event, source ClientInfo, delivered, failed int)
	// FrameRejected fires for a frame that did not decode (the client is
	// kept) or whose length exceeded the limit (the client is dropped).
	FrameRejected(c ClientInfo, err error)
}

// NopObserver can be embedded to implement only some Observer methods.
type NopObserver struct{}

func (NopObserver) ClientConnected(ClientInfo)                       {}
func (NopObserver) ClientDropped(ClientInfo)                         {}
func (NopObserver) EventRelayed(vrevent.Event, ClientInfo, int, int) {}
func (NopObserver) FrameRejected(ClientInfo, error)                  {}
