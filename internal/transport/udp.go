package transport

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/josephkirk/SandboxToyProjects-sub002/internal/proto"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/telemetry"
)

// UDP carries one command per datagram with no delivery or ordering
// guarantee. Peers are discovered implicitly: the first datagram from an
// unknown remote endpoint registers it under the next PeerID and queues it
// for Accept. Send requires a peer that was discovered or pre-registered via
// Connect.
type UDP struct {
	logger  telemetry.Logger
	metrics telemetry.Metrics

	conn    *net.UDPConn
	closed  atomic.Bool
	dropped atomic.Uint64

	mu       sync.Mutex
	peers    map[PeerID]*net.UDPAddr
	byAddr   map[string]PeerID
	nextPeer PeerID

	accepted chan PeerID
	inbox    chan inbound
	events   chan Event
}

// ListenUDP binds addr and starts the datagram reader.
func ListenUDP(addr string, logger telemetry.Logger, metrics telemetry.Metrics) (*UDP, error) {
	if addr == "" {
		addr = ":0"
	}
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve udp %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("listen udp %s: %w", addr, err)
	}
	if metrics == nil {
		metrics = telemetry.NopMetrics{}
	}
	t := &UDP{
		logger:   logger,
		metrics:  metrics,
		conn:     conn,
		peers:    make(map[PeerID]*net.UDPAddr),
		byAddr:   make(map[string]PeerID),
		accepted: make(chan PeerID, acceptDepth),
		inbox:    make(chan inbound, inboxDepth),
		events:   make(chan Event, eventDepth),
	}
	go t.readLoop()
	return t, nil
}

// Addr reports the bound local address.
func (t *UDP) Addr() net.Addr {
	return t.conn.LocalAddr()
}

func (t *UDP) readLoop() {
	buf := make([]byte, proto.CommandSize+1)
	for {
		n, raddr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if !t.closed.Load() && t.logger != nil {
				t.logger.Printf("[udp] read: %v", err)
			}
			return
		}
		if n != proto.CommandSize {
			t.metrics.Add("transport_udp_malformed_total", 1)
			continue
		}
		peer, fresh := t.lookupOrRegister(raddr)
		if fresh {
			select {
			case t.accepted <- peer:
			default:
			}
			offerEvent(t.events, Event{Kind: EventConnect, Peer: peer})
		}
		msg := inbound{peer: peer, n: n, data: make([]byte, n)}
		copy(msg.data, buf[:n])
		select {
		case t.inbox <- msg:
		default:
			t.dropped.Add(1)
			t.metrics.Add("transport_udp_inbox_dropped_total", 1)
		}
	}
}

func (t *UDP) lookupOrRegister(addr *net.UDPAddr) (PeerID, bool) {
	key := addr.String()
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.byAddr[key]; ok {
		return id, false
	}
	id := t.nextPeer
	t.nextPeer++
	copied := *addr
	t.peers[id] = &copied
	t.byAddr[key] = id
	return id, true
}

// Send transmits one datagram to a known peer.
func (t *UDP) Send(peer PeerID, payload []byte) bool {
	if len(payload) != proto.CommandSize {
		return false
	}
	t.mu.Lock()
	addr, ok := t.peers[peer]
	t.mu.Unlock()
	if !ok {
		return false
	}
	if _, err := t.conn.WriteToUDP(payload, addr); err != nil {
		if t.logger != nil {
			t.logger.Printf("[udp] peer %d write: %v", peer, err)
		}
		return false
	}
	return true
}

// Recv returns the next datagram-framed command, if any.
func (t *UDP) Recv(buf []byte) (PeerID, int, bool) {
	select {
	case msg := <-t.inbox:
		n := copy(buf, msg.data[:msg.n])
		return msg.peer, n, true
	default:
		return PeerNone, 0, false
	}
}

// Poll drains discovery events and reports pending data.
func (t *UDP) Poll() []Event {
	events := drainEvents(t.events)
	if len(t.inbox) > 0 {
		events = append(events, Event{Kind: EventData, Peer: PeerNone})
	}
	return events
}

// Accept claims the next implicitly discovered peer, if any.
func (t *UDP) Accept() (PeerID, bool) {
	select {
	case id := <-t.accepted:
		return id, true
	default:
		return PeerNone, false
	}
}

// Connect pre-registers a remote endpoint so it can be addressed before it
// ever sends. Used by clients to register the server.
func (t *UDP) Connect(addr string) (PeerID, bool) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		if t.logger != nil {
			t.logger.Printf("[udp] resolve %s: %v", addr, err)
		}
		return PeerNone, false
	}
	id, _ := t.lookupOrRegister(raddr)
	return id, true
}

// Disconnect forgets the peer. In-flight datagrams from it will rediscover it.
func (t *UDP) Disconnect(peer PeerID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if addr, ok := t.peers[peer]; ok {
		delete(t.byAddr, addr.String())
		delete(t.peers, peer)
	}
}

// Shutdown closes the socket.
func (t *UDP) Shutdown() {
	if !t.closed.CompareAndSwap(false, true) {
		return
	}
	t.conn.Close()
}

// DroppedRecvs reports datagrams discarded because the inbox was full.
func (t *UDP) DroppedRecvs() uint64 {
	return t.dropped.Load()
}

// PeerAddr reports the peer's registered remote endpoint.
func (t *UDP) PeerAddr(peer PeerID) (net.Addr, bool) {
	t.mu.Lock()
	addr, ok := t.peers[peer]
	t.mu.Unlock()
	if !ok {
		return nil, false
	}
	return addr, true
}

var (
	_ Transport     = (*UDP)(nil)
	_ PeerAddresser = (*UDP)(nil)
)
