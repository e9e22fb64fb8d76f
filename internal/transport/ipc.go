package transport

import (
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/proto"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/shm"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/telemetry"
)

// IPCRole selects which shared-memory ring a process sends on. The server
// publishes entity updates and drains client input; a client does the
// inverse. Each ring keeps exactly one producer and one consumer that way.
type IPCRole int

const (
	IPCServer IPCRole = iota
	IPCClient
)

// IPC is the shared-memory transport. There is no handshake: both sides are
// considered connected for as long as the mapping exists, and the sole peer
// is always peer 0.
type IPC struct {
	block    *shm.Block
	sendRing *shm.Ring
	recvRing *shm.Ring
	logger   telemetry.Logger
}

// NewIPC wraps an already-mapped block. Most callers use NewIPCHost or
// NewIPCPeer instead; tests and single-process sessions hand in an in-process
// block.
func NewIPC(block *shm.Block, role IPCRole, logger telemetry.Logger) *IPC {
	ipc := &IPC{block: block, logger: logger}
	switch role {
	case IPCClient:
		ipc.sendRing = block.InputRing()
		ipc.recvRing = block.EntityRing()
	default:
		ipc.sendRing = block.EntityRing()
		ipc.recvRing = block.InputRing()
	}
	return ipc
}

// Send pushes one marshalled command onto the outbound ring. Payloads that
// are not exactly one command in size are rejected; a full ring drops the
// command per the lossy-on-overflow policy.
func (t *IPC) Send(peer PeerID, payload []byte) bool {
	if len(payload) != proto.CommandSize {
		if t.logger != nil {
			t.logger.Printf("[ipc] rejecting send of %d bytes, command is %d", len(payload), proto.CommandSize)
		}
		return false
	}
	return t.sendRing.Push(payload)
}

// Recv pops the next inbound command, if any.
func (t *IPC) Recv(buf []byte) (PeerID, int, bool) {
	if !t.recvRing.Pop(buf) {
		return PeerNone, 0, false
	}
	return 0, proto.CommandSize, true
}

// Poll reports a single Data event iff the inbound ring is non-empty. The
// shared-memory path does not distinguish finer-grained readiness.
func (t *IPC) Poll() []Event {
	if t.recvRing.IsEmpty() {
		return nil
	}
	return []Event{{Kind: EventData, Peer: 0}}
}

// Accept reports the always-connected peer.
func (t *IPC) Accept() (PeerID, bool) { return 0, true }

// Connect reports the always-connected peer; addr is ignored.
func (t *IPC) Connect(string) (PeerID, bool) { return 0, true }

// Disconnect is a no-op; the mapping has no per-peer state.
func (t *IPC) Disconnect(PeerID) {}

// Shutdown unmaps the view and closes the mapping handle.
func (t *IPC) Shutdown() {
	if err := t.block.Close(); err != nil && t.logger != nil {
		t.logger.Printf("[ipc] close mapping: %v", err)
	}
}

// PublishFrame writes a state snapshot into the frame ring and publishes it.
func (t *IPC) PublishFrame(frame uint64, timestamp float64, payload []byte) bool {
	return t.block.PublishFrame(frame, timestamp, payload)
}

// LatestFrame copies the most recently published frame into buf.
func (t *IPC) LatestFrame(buf []byte) (shm.Frame, bool) {
	return t.block.LatestFrame(buf)
}

// DroppedSends reports how many outbound commands the full ring has dropped.
func (t *IPC) DroppedSends() uint64 {
	return t.sendRing.Dropped()
}

var (
	_ Transport      = (*IPC)(nil)
	_ FramePublisher = (*IPC)(nil)
)
