// Package transport provides the interchangeable byte transports the
// simulation host speaks through: shared memory, TCP, UDP, a hybrid router,
// and WebSocket. Every variant satisfies the same non-blocking contract:
// Send reports success instead of erroring, Recv and Poll check and return
// immediately, and failures local to one send or receive never abort the
// caller's tick loop.
package transport

import "net"

// PeerID identifies a remote endpoint within one transport instance. IDs are
// assigned incrementally as peers connect or are discovered.
type PeerID int32

// PeerNone marks events and results that carry no specific peer.
const PeerNone PeerID = -1

// EventKind enumerates the readiness events Poll reports.
type EventKind uint8

const (
	EventNone EventKind = iota
	EventConnect
	EventDisconnect
	EventData
)

// String returns the event name used in logs.
func (k EventKind) String() string {
	switch k {
	case EventNone:
		return "none"
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	case EventData:
		return "data"
	default:
		return "unknown"
	}
}

// Event is one readiness notification drained through Poll.
type Event struct {
	Kind EventKind
	Peer PeerID
}

// Transport is the capability set shared by every variant. Instances are not
// safe for concurrent use from multiple goroutines; callers serialize all
// operations through one loop, typically the simulation thread.
type Transport interface {
	// Send transmits one marshalled command to the peer. It reports false
	// for unknown peers, malformed payload sizes, and transient transmit
	// failures; callers treat false as "dropped" and decide whether to retry.
	Send(peer PeerID, payload []byte) bool

	// Recv copies the next pending command into buf and reports the peer it
	// came from. It never blocks; found is false when nothing is pending.
	Recv(buf []byte) (peer PeerID, n int, found bool)

	// Poll drains pending readiness events. The slice may be empty.
	Poll() []Event

	// Accept claims the next pending inbound peer, if any.
	Accept() (PeerID, bool)

	// Connect establishes or registers an outbound peer.
	Connect(addr string) (PeerID, bool)

	// Disconnect drops the peer and releases its resources.
	Disconnect(peer PeerID)

	// Shutdown releases every resource owned by the transport.
	Shutdown()
}

// FramePublisher is the optional frame-streaming path a transport may expose
// alongside the command channel. The shared-memory transport implements it.
type FramePublisher interface {
	PublishFrame(frame uint64, timestamp float64, payload []byte) bool
}

// PeerAddresser reports the remote network address of a connected peer. The
// hybrid transport uses it to pair peers across its two paths by host.
type PeerAddresser interface {
	PeerAddr(peer PeerID) (net.Addr, bool)
}

const (
	// inboxDepth bounds buffered inbound commands per transport. Overflow is
	// dropped and counted, matching the ring policy.
	inboxDepth = 256
	// eventDepth bounds buffered readiness events between Poll calls.
	eventDepth = 64
	// acceptDepth bounds peers waiting to be claimed through Accept.
	acceptDepth = 16
)

type inbound struct {
	peer PeerID
	n    int
	data []byte
}

func drainEvents(ch chan Event) []Event {
	var events []Event
	for {
		select {
		case ev := <-ch:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func offerEvent(ch chan Event, ev Event) {
	select {
	case ch <- ev:
	default:
	}
}
