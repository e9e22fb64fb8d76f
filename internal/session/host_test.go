package session

import (
	"testing"

	"github.com/josephkirk/SandboxToyProjects-sub002/internal/proto"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/syncer"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/tick"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/transport"
)

// scriptedTransport queues inbound traffic for the host and records what the
// host sends back.
type scriptedTransport struct {
	inbox   [][]byte
	pending []transport.PeerID
	events  []transport.Event
	sent    map[transport.PeerID]int
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{sent: make(map[transport.PeerID]int)}
}

func (s *scriptedTransport) queue(t *testing.T, cmd *proto.Command) {
	t.Helper()
	raw, err := cmd.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s.inbox = append(s.inbox, raw)
}

func (s *scriptedTransport) Send(peer transport.PeerID, payload []byte) bool {
	if len(payload) != proto.CommandSize {
		return false
	}
	s.sent[peer]++
	return true
}

func (s *scriptedTransport) Recv(buf []byte) (transport.PeerID, int, bool) {
	if len(s.inbox) == 0 {
		return transport.PeerNone, 0, false
	}
	raw := s.inbox[0]
	s.inbox = s.inbox[1:]
	return 0, copy(buf, raw), true
}

func (s *scriptedTransport) Poll() []transport.Event {
	events := s.events
	s.events = nil
	return events
}

func (s *scriptedTransport) Accept() (transport.PeerID, bool) {
	if len(s.pending) == 0 {
		return transport.PeerNone, false
	}
	peer := s.pending[0]
	s.pending = s.pending[1:]
	return peer, true
}

func (s *scriptedTransport) Connect(string) (transport.PeerID, bool) { return transport.PeerNone, false }
func (s *scriptedTransport) Disconnect(transport.PeerID)             {}
func (s *scriptedTransport) Shutdown()                               {}

type counterState struct {
	moves int
}

func moveCommand(player uint32) *proto.Command {
	return &proto.Command{
		PlayerID: player,
		Category: proto.CategoryInput,
		Type:     proto.CmdInputMove,
	}
}

func newTestHost(cfg Config, trans transport.Transport, gate syncer.Synchronizer, clock *tick.Controller, state any) (*Host, *proto.Registry) {
	registry := proto.NewRegistry()
	host := NewHost(cfg, trans, registry, gate, clock, state, nil, nil)
	return host, registry
}

func TestPumpDispatchesThroughRegistry(t *testing.T) {
	trans := newScriptedTransport()
	state := &counterState{}
	clock := tick.NewController(tick.RealTimeContinuous, 60, 1)
	host, registry := newTestHost(Config{}, trans, syncer.NewAuthoritative(), clock, state)

	registry.Register(proto.CategoryInput, proto.CmdInputMove, func(st any, cmd *proto.Command) {
		st.(*counterState).moves++
	})

	trans.queue(t, moveCommand(0))
	trans.queue(t, moveCommand(0))

	if got := host.PumpCommands(); got != 2 {
		t.Fatalf("PumpCommands dispatched %d, want 2", got)
	}
	if state.moves != 2 {
		t.Fatalf("handler ran %d times, want 2", state.moves)
	}
}

func TestPumpSkipsUnhandledCommands(t *testing.T) {
	trans := newScriptedTransport()
	clock := tick.NewController(tick.RealTimeContinuous, 60, 1)
	host, _ := newTestHost(Config{}, trans, syncer.NewAuthoritative(), clock, nil)

	trans.queue(t, &proto.Command{Category: proto.CategoryEvent, Type: 0x55})
	if got := host.PumpCommands(); got != 0 {
		t.Fatalf("unregistered command dispatched %d, want 0", got)
	}
}

func TestPumpRateLimitsPerPlayer(t *testing.T) {
	trans := newScriptedTransport()
	state := &counterState{}
	clock := tick.NewController(tick.RealTimeContinuous, 60, 1)
	host, registry := newTestHost(Config{CommandRate: 1, CommandBurst: 2}, trans, syncer.NewAuthoritative(), clock, state)

	registry.Register(proto.CategoryInput, proto.CmdInputMove, func(st any, cmd *proto.Command) {
		st.(*counterState).moves++
	})

	for i := 0; i < 6; i++ {
		trans.queue(t, moveCommand(0))
	}
	// A second player is not throttled by the first player's spam.
	trans.queue(t, moveCommand(1))

	host.PumpCommands()
	if state.moves != 3 {
		t.Fatalf("handler ran %d times, want burst of 2 plus one from player 1", state.moves)
	}
}

func TestAdvanceGatesOnSynchronizer(t *testing.T) {
	trans := newScriptedTransport()
	clock := tick.NewController(tick.RealTimeDiscrete, 60, 2)
	gate := syncer.NewLockstep(2, nil)
	host, registry := newTestHost(Config{}, trans, gate, clock, nil)

	registry.Register(proto.CategoryInput, proto.CmdInputMove, func(any, *proto.Command) {})

	steps := 0
	step := func(uint64, float64) { steps++ }

	trans.queue(t, moveCommand(0))
	host.PumpCommands()
	if ran := host.Advance(1.0/60.0, step); ran != 0 {
		t.Fatalf("advanced %d ticks with player 1 silent", ran)
	}

	trans.queue(t, moveCommand(0))
	trans.queue(t, moveCommand(1))
	host.PumpCommands()
	if ran := host.Advance(1.0/60.0, step); ran != 1 {
		t.Fatalf("advanced %d ticks with both players ready, want 1", ran)
	}
	if steps != 1 {
		t.Fatalf("step ran %d times, want 1", steps)
	}
	// Readiness clears after the tick completes.
	if ran := host.Advance(1.0/60.0, step); ran != 0 {
		t.Fatalf("advanced %d ticks after flags cleared", ran)
	}
}

func TestAdvanceDefersGatedTicksUntilPlayersReport(t *testing.T) {
	trans := newScriptedTransport()
	clock := tick.NewController(tick.RealTimeDiscrete, 60, 2)
	gate := syncer.NewLockstep(2, nil)
	host, registry := newTestHost(Config{}, trans, gate, clock, nil)

	registry.Register(proto.CategoryInput, proto.CmdInputMove, func(any, *proto.Command) {})

	var executed []uint64
	step := func(tk uint64, _ float64) { executed = append(executed, tk) }

	// Player 1 stalls for five frames; the ticks must wait, not vanish.
	trans.queue(t, moveCommand(0))
	host.PumpCommands()
	for frame := 0; frame < 5; frame++ {
		if ran := host.Advance(1.0/60.0, step); ran != 0 {
			t.Fatalf("frame %d advanced %d ticks while gated", frame, ran)
		}
	}
	if clock.CurrentTick() != 0 {
		t.Fatalf("gated ticks consumed the clock: CurrentTick = %d", clock.CurrentTick())
	}

	// Each report round releases exactly one of the queued ticks; they run
	// in order with no gaps, at the pace of the slowest player.
	for round := uint64(1); round <= 3; round++ {
		trans.queue(t, moveCommand(0))
		trans.queue(t, moveCommand(1))
		host.PumpCommands()
		if ran := host.Advance(1.0/60.0, step); ran != 1 {
			t.Fatalf("round %d ran %d ticks, want 1", round, ran)
		}
		if clock.CurrentTick() != round {
			t.Fatalf("round %d: CurrentTick = %d", round, clock.CurrentTick())
		}
	}
	if len(executed) != 3 || executed[0] != 1 || executed[1] != 2 || executed[2] != 3 {
		t.Fatalf("executed ticks must be contiguous from 1, got %v", executed)
	}
}

func TestBroadcastStampsSequenceAndTick(t *testing.T) {
	trans := newScriptedTransport()
	trans.pending = []transport.PeerID{1, 2}
	clock := tick.NewController(tick.RealTimeContinuous, 60, 1)
	host, _ := newTestHost(Config{}, trans, syncer.NewAuthoritative(), clock, nil)

	host.PumpCommands()
	if host.Peers() != 2 {
		t.Fatalf("tracked %d peers, want 2", host.Peers())
	}

	clock.Update(0.016)
	update := &proto.Command{Category: proto.CategoryState, Type: proto.CmdStatePlayerUpdate}
	if sent := host.Broadcast(update); sent != 2 {
		t.Fatalf("broadcast reached %d peers, want 2", sent)
	}
	if update.Sequence != 1 {
		t.Fatalf("Sequence = %d, want 1", update.Sequence)
	}
	if update.Tick != 1 {
		t.Fatalf("Tick = %d, want the clock's tick", update.Tick)
	}
	if sent := host.Broadcast(update); sent != 2 {
		t.Fatalf("second broadcast reached %d peers", sent)
	}
	if update.Sequence != 2 {
		t.Fatalf("Sequence must increase monotonically, got %d", update.Sequence)
	}
}

func TestDisconnectEventDropsPeer(t *testing.T) {
	trans := newScriptedTransport()
	trans.pending = []transport.PeerID{1}
	clock := tick.NewController(tick.RealTimeContinuous, 60, 1)
	host, _ := newTestHost(Config{}, trans, syncer.NewAuthoritative(), clock, nil)

	host.PumpCommands()
	trans.events = []transport.Event{{Kind: transport.EventDisconnect, Peer: 1}}
	host.PumpCommands()
	if host.Peers() != 0 {
		t.Fatalf("tracked %d peers after disconnect, want 0", host.Peers())
	}
}

func TestExecuteTurnRotatesPlayers(t *testing.T) {
	trans := newScriptedTransport()
	clock := tick.NewController(tick.TurnBased, 60, 2)
	gate := syncer.NewTurnBased(2, nil)
	host, registry := newTestHost(Config{}, trans, gate, clock, nil)

	registry.Register(proto.CategorySystem, proto.CmdSystemSync, func(any, *proto.Command) {})

	steps := 0
	step := func(uint64, float64) { steps++ }

	if host.ExecuteTurn(step) {
		t.Fatalf("turn must not run before every player ends it")
	}

	for player := uint32(0); player < 2; player++ {
		trans.queue(t, &proto.Command{
			PlayerID:  player,
			Category:  proto.CategorySystem,
			Type:      proto.CmdSystemSync,
			TargetPos: [3]float32{-1, 0, 0},
		})
	}
	host.PumpCommands()

	if !host.ExecuteTurn(step) {
		t.Fatalf("turn must run once every player has ended it")
	}
	if steps != 1 {
		t.Fatalf("step ran %d times, want 1", steps)
	}
	if clock.CurrentPhase() != tick.PhasePlanning {
		t.Fatalf("turn must land back in planning, got %v", clock.CurrentPhase())
	}
	if clock.CurrentPlayer() != 1 {
		t.Fatalf("turn must rotate to player 1, got %d", clock.CurrentPlayer())
	}
	if host.ExecuteTurn(step) {
		t.Fatalf("end-turn flags must clear between turns")
	}
}

func TestPublishFrameRequiresCapableTransport(t *testing.T) {
	trans := newScriptedTransport()
	clock := tick.NewController(tick.RealTimeContinuous, 60, 1)
	host, _ := newTestHost(Config{}, trans, syncer.NewAuthoritative(), clock, nil)
	if host.PublishFrame(1, 0.5, []byte("state")) {
		t.Fatalf("scripted transport does not stream frames")
	}
}
