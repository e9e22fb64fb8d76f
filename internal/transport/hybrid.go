package transport

import (
	"net"

	"github.com/josephkirk/SandboxToyProjects-sub002/internal/proto"
)

// Hybrid routes traffic across a reliable and a lossy transport behind one
// interface. State-category commands travel the lossy path: snapshots are
// latency-sensitive and tolerate loss because the next one supersedes them.
// Everything else is control or input traffic and travels the reliable path.
//
// Peers are identified by the reliable transport's ids. The lossy path has
// its own peer table, so the hybrid pairs the two: a connecting side sends
// one heartbeat datagram so the remote side discovers its datagram endpoint,
// and the accepting side matches that discovery to a reliable peer by remote
// host. Until a peer's datagram path is paired, its state traffic degrades
// to the reliable path instead of being dropped.
//
// On receive the reliable path is drained first; the lossy path is consulted
// only when the reliable one yields nothing, so command delivery outranks
// best-effort state catch-up.
type Hybrid struct {
	reliable Transport
	lossy    Transport

	// pairs maps reliable peer ids to their lossy counterparts; reverse is
	// the inverse, used to translate inbound datagram peers.
	pairs   map[PeerID]PeerID
	reverse map[PeerID]PeerID
	// unpaired holds lossy discoveries with no reliable match yet; waiting
	// holds reliable peers whose datagram endpoint is still unknown.
	unpaired []PeerID
	waiting  []PeerID
}

// NewHybrid composes the two sub-transports. In the standard configuration
// reliable is TCP and lossy is UDP on the same port number.
func NewHybrid(reliable, lossy Transport) *Hybrid {
	return &Hybrid{
		reliable: reliable,
		lossy:    lossy,
		pairs:    make(map[PeerID]PeerID),
		reverse:  make(map[PeerID]PeerID),
	}
}

// Send inspects the payload's category field and routes accordingly. State
// commands for a peer without a paired datagram endpoint fall back to the
// reliable path.
func (t *Hybrid) Send(peer PeerID, payload []byte) bool {
	category, ok := proto.PeekCategory(payload)
	if !ok {
		return false
	}
	if category == proto.CategoryState {
		t.pairDiscoveries()
		if lossyID, paired := t.pairs[peer]; paired {
			return t.lossy.Send(lossyID, payload)
		}
	}
	return t.reliable.Send(peer, payload)
}

// Recv drains the reliable transport first, the lossy one as fallback.
// Datagram peers are reported under their reliable id once paired.
func (t *Hybrid) Recv(buf []byte) (PeerID, int, bool) {
	if peer, n, ok := t.reliable.Recv(buf); ok {
		return peer, n, ok
	}
	peer, n, ok := t.lossy.Recv(buf)
	if ok {
		if reliableID, paired := t.reverse[peer]; paired {
			peer = reliableID
		}
	}
	return peer, n, ok
}

// Poll reports the reliable transport's events plus pending lossy data. The
// lossy path's connect and disconnect events are pairing bookkeeping, not
// session events, and are consumed here.
func (t *Hybrid) Poll() []Event {
	t.pairDiscoveries()
	events := t.reliable.Poll()
	for _, ev := range t.lossy.Poll() {
		switch ev.Kind {
		case EventData:
			if reliableID, paired := t.reverse[ev.Peer]; paired {
				ev.Peer = reliableID
			}
			events = append(events, ev)
		case EventDisconnect:
			t.unpair(ev.Peer)
		}
	}
	return events
}

// Accept claims inbound peers from the reliable transport, which owns the
// connection lifecycle, and queues them for datagram pairing.
func (t *Hybrid) Accept() (PeerID, bool) {
	id, ok := t.reliable.Accept()
	if !ok {
		return PeerNone, false
	}
	t.waiting = append(t.waiting, id)
	t.pairDiscoveries()
	return id, true
}

// Connect dials the reliable transport and registers the same host and port
// on the lossy one, then sends a single heartbeat datagram so the remote
// side discovers this peer's datagram endpoint.
func (t *Hybrid) Connect(addr string) (PeerID, bool) {
	id, ok := t.reliable.Connect(addr)
	if !ok {
		return PeerNone, false
	}
	lossyID, ok := t.lossy.Connect(addr)
	if !ok {
		t.waiting = append(t.waiting, id)
		return id, true
	}
	t.pairs[id] = lossyID
	t.reverse[lossyID] = id
	reg := proto.Command{Category: proto.CategorySystem, Type: proto.CmdSystemSync}
	if raw, err := reg.MarshalBinary(); err == nil {
		t.lossy.Send(lossyID, raw)
	}
	return id, true
}

// Disconnect drops the peer from both sub-transports.
func (t *Hybrid) Disconnect(peer PeerID) {
	t.reliable.Disconnect(peer)
	if lossyID, ok := t.pairs[peer]; ok {
		t.lossy.Disconnect(lossyID)
		delete(t.pairs, peer)
		delete(t.reverse, lossyID)
	}
	for i, id := range t.waiting {
		if id == peer {
			t.waiting = append(t.waiting[:i], t.waiting[i+1:]...)
			break
		}
	}
}

// Shutdown releases both sub-transports.
func (t *Hybrid) Shutdown() {
	t.reliable.Shutdown()
	t.lossy.Shutdown()
}

// pairDiscoveries claims implicit lossy discoveries and matches them to
// waiting reliable peers by remote host. Co-hosted clients pair in discovery
// order.
func (t *Hybrid) pairDiscoveries() {
	for {
		lossyID, ok := t.lossy.Accept()
		if !ok {
			break
		}
		t.unpaired = append(t.unpaired, lossyID)
	}
	if len(t.unpaired) == 0 || len(t.waiting) == 0 {
		return
	}
	remaining := t.unpaired[:0]
	for _, lossyID := range t.unpaired {
		if !t.pairWithWaiting(lossyID) {
			remaining = append(remaining, lossyID)
		}
	}
	t.unpaired = remaining
}

func (t *Hybrid) pairWithWaiting(lossyID PeerID) bool {
	lossyHost, ok := peerHost(t.lossy, lossyID)
	if !ok {
		return false
	}
	for i, reliableID := range t.waiting {
		host, ok := peerHost(t.reliable, reliableID)
		if !ok || host != lossyHost {
			continue
		}
		t.pairs[reliableID] = lossyID
		t.reverse[lossyID] = reliableID
		t.waiting = append(t.waiting[:i], t.waiting[i+1:]...)
		return true
	}
	return false
}

func (t *Hybrid) unpair(lossyID PeerID) {
	if reliableID, ok := t.reverse[lossyID]; ok {
		delete(t.reverse, lossyID)
		delete(t.pairs, reliableID)
		t.waiting = append(t.waiting, reliableID)
	}
}

func peerHost(trans Transport, peer PeerID) (string, bool) {
	addressed, ok := trans.(PeerAddresser)
	if !ok {
		return "", false
	}
	addr, ok := addressed.PeerAddr(peer)
	if !ok {
		return "", false
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "", false
	}
	return host, true
}

var _ Transport = (*Hybrid)(nil)
