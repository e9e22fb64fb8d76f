package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/josephkirk/SandboxToyProjects-sub002/internal/proto"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/telemetry"
)

const tcpWriteWait = 10 * time.Second

// TCP carries one fixed-size command per message over a stream, with no
// additional framing. A server instance accepts any number of clients, each
// identified by an incrementing PeerID; a client instance holds the single
// upstream connection it dialed.
//
// Each connection gets a reader goroutine that frames complete commands into
// a bounded inbox, so Recv stays a non-blocking check-and-return and a
// half-received command is never surfaced. Inbox overflow drops the command
// and counts it, matching the ring policy.
type TCP struct {
	logger  telemetry.Logger
	metrics telemetry.Metrics

	listener net.Listener
	closed   atomic.Bool
	dropped  atomic.Uint64

	mu       sync.Mutex
	peers    map[PeerID]net.Conn
	nextPeer PeerID

	accepted chan PeerID
	inbox    chan inbound
	events   chan Event
}

func newTCP(logger telemetry.Logger, metrics telemetry.Metrics) *TCP {
	if metrics == nil {
		metrics = telemetry.NopMetrics{}
	}
	return &TCP{
		logger:   logger,
		metrics:  metrics,
		peers:    make(map[PeerID]net.Conn),
		accepted: make(chan PeerID, acceptDepth),
		inbox:    make(chan inbound, inboxDepth),
		events:   make(chan Event, eventDepth),
	}
}

// ListenTCP starts a server-mode transport on addr.
func ListenTCP(addr string, logger telemetry.Logger, metrics telemetry.Metrics) (*TCP, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen tcp %s: %w", addr, err)
	}
	t := newTCP(logger, metrics)
	t.listener = listener
	go t.acceptLoop()
	return t, nil
}

// NewTCPClient returns a client-mode transport; Connect dials the server.
func NewTCPClient(logger telemetry.Logger, metrics telemetry.Metrics) *TCP {
	return newTCP(logger, metrics)
}

// Addr reports the listener address, if this is a server instance.
func (t *TCP) Addr() net.Addr {
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

func (t *TCP) acceptLoop() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if !t.closed.Load() && !errors.Is(err, net.ErrClosed) && t.logger != nil {
				t.logger.Printf("[tcp] accept: %v", err)
			}
			return
		}
		id := t.register(conn)
		select {
		case t.accepted <- id:
		default:
		}
		offerEvent(t.events, Event{Kind: EventConnect, Peer: id})
		go t.readLoop(id, conn)
	}
}

func (t *TCP) register(conn net.Conn) PeerID {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextPeer
	t.nextPeer++
	t.peers[id] = conn
	return id
}

func (t *TCP) remove(peer PeerID) net.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	conn, ok := t.peers[peer]
	if !ok {
		return nil
	}
	delete(t.peers, peer)
	return conn
}

func (t *TCP) readLoop(peer PeerID, conn net.Conn) {
	frame := make([]byte, proto.CommandSize)
	for {
		if _, err := io.ReadFull(conn, frame); err != nil {
			if t.remove(peer) != nil {
				conn.Close()
				offerEvent(t.events, Event{Kind: EventDisconnect, Peer: peer})
				if err != io.EOF && !t.closed.Load() && t.logger != nil {
					t.logger.Printf("[tcp] peer %d read: %v", peer, err)
				}
			}
			return
		}
		msg := inbound{peer: peer, n: proto.CommandSize, data: make([]byte, proto.CommandSize)}
		copy(msg.data, frame)
		select {
		case t.inbox <- msg:
		default:
			t.dropped.Add(1)
			t.metrics.Add("transport_tcp_inbox_dropped_total", 1)
		}
	}
}

// Send writes one command to the peer. False means unknown peer, malformed
// size, or a transient write failure; the connection is torn down on write
// failure and a Disconnect event is queued.
func (t *TCP) Send(peer PeerID, payload []byte) bool {
	if len(payload) != proto.CommandSize {
		return false
	}
	t.mu.Lock()
	conn, ok := t.peers[peer]
	t.mu.Unlock()
	if !ok {
		return false
	}
	conn.SetWriteDeadline(time.Now().Add(tcpWriteWait))
	if _, err := conn.Write(payload); err != nil {
		if t.logger != nil {
			t.logger.Printf("[tcp] peer %d write: %v", peer, err)
		}
		if t.remove(peer) != nil {
			conn.Close()
			offerEvent(t.events, Event{Kind: EventDisconnect, Peer: peer})
		}
		return false
	}
	return true
}

// Recv returns the next framed command, if any reader goroutine has queued one.
func (t *TCP) Recv(buf []byte) (PeerID, int, bool) {
	select {
	case msg := <-t.inbox:
		n := copy(buf, msg.data[:msg.n])
		return msg.peer, n, true
	default:
		return PeerNone, 0, false
	}
}

// Poll drains queued connect/disconnect events and reports pending data.
func (t *TCP) Poll() []Event {
	events := drainEvents(t.events)
	if len(t.inbox) > 0 {
		events = append(events, Event{Kind: EventData, Peer: PeerNone})
	}
	return events
}

// Accept claims the next accepted client, if any.
func (t *TCP) Accept() (PeerID, bool) {
	select {
	case id := <-t.accepted:
		return id, true
	default:
		return PeerNone, false
	}
}

// Connect dials the upstream server. Only meaningful in client mode.
func (t *TCP) Connect(addr string) (PeerID, bool) {
	if t.listener != nil {
		return PeerNone, false
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		if t.logger != nil {
			t.logger.Printf("[tcp] dial %s: %v", addr, err)
		}
		return PeerNone, false
	}
	id := t.register(conn)
	offerEvent(t.events, Event{Kind: EventConnect, Peer: id})
	go t.readLoop(id, conn)
	return id, true
}

// Disconnect closes and forgets the peer.
func (t *TCP) Disconnect(peer PeerID) {
	if conn := t.remove(peer); conn != nil {
		conn.Close()
	}
}

// Shutdown closes the listener and every connection.
func (t *TCP) Shutdown() {
	if !t.closed.CompareAndSwap(false, true) {
		return
	}
	if t.listener != nil {
		t.listener.Close()
	}
	t.mu.Lock()
	peers := t.peers
	t.peers = make(map[PeerID]net.Conn)
	t.mu.Unlock()
	for _, conn := range peers {
		conn.Close()
	}
}

// DroppedRecvs reports commands discarded because the inbox was full.
func (t *TCP) DroppedRecvs() uint64 {
	return t.dropped.Load()
}

// PeerAddr reports the peer's remote address.
func (t *TCP) PeerAddr(peer PeerID) (net.Addr, bool) {
	t.mu.Lock()
	conn, ok := t.peers[peer]
	t.mu.Unlock()
	if !ok {
		return nil, false
	}
	return conn.RemoteAddr(), true
}

var (
	_ Transport     = (*TCP)(nil)
	_ PeerAddresser = (*TCP)(nil)
)
