package transport

import (
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/josephkirk/SandboxToyProjects-sub002/internal/proto"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/telemetry"
)

const wsWriteWait = 10 * time.Second

type wsPeer struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (p *wsPeer) write(payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return p.conn.WriteMessage(websocket.BinaryMessage, payload)
}

// WS carries one command per binary WebSocket message. A server instance
// exposes an http.Handler that upgrades incoming requests; a client instance
// dials through Connect. Browser-hosted render clients speak this variant.
type WS struct {
	logger  telemetry.Logger
	metrics telemetry.Metrics

	upgrader websocket.Upgrader
	closed   atomic.Bool
	dropped  atomic.Uint64

	mu       sync.Mutex
	peers    map[PeerID]*wsPeer
	nextPeer PeerID

	accepted chan PeerID
	inbox    chan inbound
	events   chan Event
}

// NewWS constructs a WebSocket transport usable in either role.
func NewWS(logger telemetry.Logger, metrics telemetry.Metrics) *WS {
	if metrics == nil {
		metrics = telemetry.NopMetrics{}
	}
	return &WS{
		logger:  logger,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		peers:    make(map[PeerID]*wsPeer),
		accepted: make(chan PeerID, acceptDepth),
		inbox:    make(chan inbound, inboxDepth),
		events:   make(chan Event, eventDepth),
	}
}

// Handler returns the upgrade endpoint a server mounts on its mux.
func (t *WS) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := t.upgrader.Upgrade(w, r, nil)
		if err != nil {
			if t.logger != nil {
				t.logger.Printf("[ws] upgrade failed: %v", err)
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
	})
}

func (t *WS) register(conn *websocket.Conn) PeerID {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextPeer
	t.nextPeer++
	t.peers[id] = &wsPeer{conn: conn}
	return id
}

func (t *WS) remove(peer PeerID) *wsPeer {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[peer]
	if !ok {
		return nil
	}
	delete(t.peers, peer)
	return p
}

func (t *WS) readLoop(peer PeerID, conn *websocket.Conn) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if t.remove(peer) != nil {
				conn.Close()
				offerEvent(t.events, Event{Kind: EventDisconnect, Peer: peer})
			}
			return
		}
		if messageType != websocket.BinaryMessage || len(data) != proto.CommandSize {
			t.metrics.Add("transport_ws_malformed_total", 1)
			continue
		}
		msg := inbound{peer: peer, n: len(data), data: data}
		select {
		case t.inbox <- msg:
		default:
			t.dropped.Add(1)
			t.metrics.Add("transport_ws_inbox_dropped_total", 1)
		}
	}
}

// Send writes one binary message to the peer.
func (t *WS) Send(peer PeerID, payload []byte) bool {
	if len(payload) != proto.CommandSize {
		return false
	}
	t.mu.Lock()
	p, ok := t.peers[peer]
	t.mu.Unlock()
	if !ok {
		return false
	}
	if err := p.write(payload); err != nil {
		if t.logger != nil {
			t.logger.Printf("[ws] peer %d write: %v", peer, err)
		}
		if t.remove(peer) != nil {
			p.conn.Close()
			offerEvent(t.events, Event{Kind: EventDisconnect, Peer: peer})
		}
		return false
	}
	return true
}

// Recv returns the next inbound command, if any.
func (t *WS) Recv(buf []byte) (PeerID, int, bool) {
	select {
	case msg := <-t.inbox:
		n := copy(buf, msg.data[:msg.n])
		return msg.peer, n, true
	default:
		return PeerNone, 0, false
	}
}

// Poll drains queued connection events and reports pending data.
func (t *WS) Poll() []Event {
	events := drainEvents(t.events)
	if len(t.inbox) > 0 {
		events = append(events, Event{Kind: EventData, Peer: PeerNone})
	}
	return events
}

// Accept claims the next upgraded client, if any.
func (t *WS) Accept() (PeerID, bool) {
	select {
	case id := <-t.accepted:
		return id, true
	default:
		return PeerNone, false
	}
}

// Connect dials a ws:// or wss:// endpoint.
func (t *WS) Connect(addr string) (PeerID, bool) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		if t.logger != nil {
			t.logger.Printf("[ws] dial %s: %v", addr, err)
		}
		return PeerNone, false
	}
	id := t.register(conn)
	offerEvent(t.events, Event{Kind: EventConnect, Peer: id})
	go t.readLoop(id, conn)
	return id, true
}

// Disconnect closes and forgets the peer.
func (t *WS) Disconnect(peer PeerID) {
	if p := t.remove(peer); p != nil {
		p.conn.Close()
	}
}

// Shutdown closes every connection.
func (t *WS) Shutdown() {
	if !t.closed.CompareAndSwap(false, true) {
		return
	}
	t.mu.Lock()
	peers := t.peers
	t.peers = make(map[PeerID]*wsPeer)
	t.mu.Unlock()
	for _, p := range peers {
		p.conn.Close()
	}
}

// PeerAddr reports the peer's remote address.
func (t *WS) PeerAddr(peer PeerID) (net.Addr, bool) {
	t.mu.Lock()
	p, ok := t.peers[peer]
	t.mu.Unlock()
	if !ok {
		return nil, false
	}
	return p.conn.RemoteAddr(), true
}

var (
	_ Transport     = (*WS)(nil)
	_ PeerAddresser = (*WS)(nil)
)
