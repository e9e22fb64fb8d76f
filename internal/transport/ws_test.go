package transport

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/josephkirk/SandboxToyProjects-sub002/internal/proto"
)

func TestWSClientServerExchange(t *testing.T) {
	server := NewWS(nil, nil)
	defer server.Shutdown()

	endpoint := httptest.NewServer(server.Handler())
	defer endpoint.Close()

	client := NewWS(nil, nil)
	defer client.Shutdown()

	wsURL := "ws" + strings.TrimPrefix(endpoint.URL, "http")
	upstream, ok := client.Connect(wsURL)
	if !ok {
		t.Fatalf("connect failed")
	}

	var accepted PeerID
	waitFor(t, "upgraded client", func() bool {
		id, ok := server.Accept()
		if ok {
			accepted = id
		}
		return ok
	})

	cmd := proto.Command{Category: proto.CategoryInput, Type: proto.CmdInputMove, Sequence: 4}
	data, err := cmd.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !client.Send(upstream, data) {
		t.Fatalf("client send failed")
	}

	buf := make([]byte, proto.CommandSize)
	waitFor(t, "server recv", func() bool {
		peer, n, ok := server.Recv(buf)
		if !ok {
			return false
		}
		if peer != accepted || n != proto.CommandSize {
			t.Fatalf("recv peer=%d n=%d", peer, n)
		}
		return true
	})
	if !bytes.Equal(buf, data) {
		t.Fatalf("command bytes altered in transit")
	}

	reply := proto.Command{Category: proto.CategoryState, Type: proto.CmdStatePlayerUpdate}
	replyData, err := reply.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !server.Send(accepted, replyData) {
		t.Fatalf("server send failed")
	}
	waitFor(t, "client recv", func() bool {
		_, _, ok := client.Recv(buf)
		return ok
	})
	if !bytes.Equal(buf, replyData) {
		t.Fatalf("reply bytes altered in transit")
	}
}

func TestWSSendRejectsWrongSize(t *testing.T) {
	server := NewWS(nil, nil)
	defer server.Shutdown()
	if server.Send(0, make([]byte, 10)) {
		t.Fatalf("short payload must be rejected")
	}
}

func TestWSConnectFailsWhenUnreachable(t *testing.T) {
	client := NewWS(nil, nil)
	defer client.Shutdown()
	if _, ok := client.Connect("ws://127.0.0.1:1/ws"); ok {
		t.Fatalf("dial to a closed port must fail")
	}
}
