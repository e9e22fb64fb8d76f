package transport

import (
	"bytes"
	"testing"

	"github.com/josephkirk/SandboxToyProjects-sub002/internal/proto"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/shm"
)

func ipcPair(t *testing.T) (*IPC, *IPC) {
	t.Helper()
	block := shm.NewInProcessBlock()
	return NewIPC(block, IPCServer, nil), NewIPC(block, IPCClient, nil)
}

func TestIPCClientInputReachesServer(t *testing.T) {
	server, client := ipcPair(t)

	cmd := proto.Command{Category: proto.CategoryInput, Type: proto.CmdInputMove, PlayerID: 1}
	cmd.TargetPos = [3]float32{1, 0, 0}
	data, err := cmd.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if !client.Send(0, data) {
		t.Fatalf("client send failed")
	}

	events := server.Poll()
	if len(events) != 1 || events[0].Kind != EventData {
		t.Fatalf("expected a data event on the server, got %+v", events)
	}

	buf := make([]byte, proto.CommandSize)
	peer, n, ok := server.Recv(buf)
	if !ok || peer != 0 || n != proto.CommandSize {
		t.Fatalf("server recv = (%d, %d, %v)", peer, n, ok)
	}
	if !bytes.Equal(buf, data) {
		t.Fatalf("command bytes changed crossing the rings")
	}

	if _, _, ok := server.Recv(buf); ok {
		t.Fatalf("expected the input ring to be drained")
	}
	if events := server.Poll(); len(events) != 0 {
		t.Fatalf("expected no events on a drained ring, got %+v", events)
	}
}

func TestIPCServerEntityUpdatesReachClient(t *testing.T) {
	server, client := ipcPair(t)

	cmd := proto.Command{Category: proto.CategoryState, Type: proto.CmdStatePlayerUpdate}
	data, err := cmd.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !server.Send(0, data) {
		t.Fatalf("server send failed")
	}

	buf := make([]byte, proto.CommandSize)
	if _, _, ok := server.Recv(buf); ok {
		t.Fatalf("server must not see its own entity updates")
	}
	if _, _, ok := client.Recv(buf); !ok {
		t.Fatalf("client should receive the entity update")
	}
	if !bytes.Equal(buf, data) {
		t.Fatalf("entity update changed in transit")
	}
}

func TestIPCSendRejectsByteLengthMismatch(t *testing.T) {
	server, _ := ipcPair(t)
	if server.Send(0, make([]byte, proto.CommandSize-1)) {
		t.Fatalf("expected undersized payload to be rejected")
	}
	if server.Send(0, make([]byte, proto.CommandSize+3)) {
		t.Fatalf("expected oversized payload to be rejected")
	}
}

func TestIPCAlwaysConnected(t *testing.T) {
	server, client := ipcPair(t)
	if peer, ok := server.Accept(); !ok || peer != 0 {
		t.Fatalf("Accept = (%d, %v), want (0, true)", peer, ok)
	}
	if peer, ok := client.Connect("ignored"); !ok || peer != 0 {
		t.Fatalf("Connect = (%d, %v), want (0, true)", peer, ok)
	}
}

func TestIPCFramePath(t *testing.T) {
	server, client := ipcPair(t)

	payload := []byte("frame sixty-four")
	if !server.PublishFrame(64, 2.5, payload) {
		t.Fatalf("publish failed")
	}
	buf := make([]byte, shm.MaxFrameSize)
	frame, ok := client.LatestFrame(buf)
	if !ok {
		t.Fatalf("client saw no frame")
	}
	if frame.Number != 64 || frame.Timestamp != 2.5 || !bytes.Equal(frame.Data, payload) {
		t.Fatalf("frame = %+v", frame)
	}
}

func TestIPCOverflowDropsSilently(t *testing.T) {
	server, client := ipcPair(t)

	cmd := proto.Command{Category: proto.CategoryInput, Type: proto.CmdInputMove}
	data, err := cmd.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// The input ring holds InputRingSlots-1 commands; the next push drops.
	for i := 0; i < shm.InputRingSlots-1; i++ {
		if !client.Send(0, data) {
			t.Fatalf("send %d failed below capacity", i)
		}
	}
	if client.Send(0, data) {
		t.Fatalf("expected overflow send to report a drop")
	}
	if client.DroppedSends() != 1 {
		t.Fatalf("DroppedSends = %d, want 1", client.DroppedSends())
	}

	// Server side is unaffected and drains the stored commands in order.
	buf := make([]byte, proto.CommandSize)
	for i := 0; i < shm.InputRingSlots-1; i++ {
		if _, _, ok := server.Recv(buf); !ok {
			t.Fatalf("recv %d failed", i)
		}
	}
	if _, _, ok := server.Recv(buf); ok {
		t.Fatalf("expected ring drained")
	}
}
