// Package session ties one transport, one synchronizer, and one tick
// controller into a running host loop. The host owns all cross-component
// traffic: it pumps inbound commands into the registry, gates tick
// advancement through the synchronizer, and pushes state back out.
package session

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/josephkirk/SandboxToyProjects-sub002/internal/proto"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/syncer"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/telemetry"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/tick"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/transport"
)

const (
	// defaultCommandRate caps how many commands per second one player may
	// submit before the host starts shedding.
	defaultCommandRate = 240
	// defaultCommandBurst absorbs short spikes above the sustained rate.
	defaultCommandBurst = 32
	// pumpBudget bounds how many inbound commands one PumpCommands call
	// drains, so a flooding peer cannot starve the tick.
	pumpBudget = 512
)

// StepFunc runs one simulation step at the given tick with the given delta.
type StepFunc func(tick uint64, dt float64)

// Config carries the session knobs not owned by a collaborator.
type Config struct {
	// CommandRate is the per-player sustained commands-per-second budget.
	// Zero selects the default.
	CommandRate float64
	// CommandBurst is the per-player burst allowance. Zero selects the
	// default.
	CommandBurst int
}

// Host is the top-level session loop. It is single-threaded: every method is
// called from the one goroutine driving the simulation.
type Host struct {
	trans    transport.Transport
	registry *proto.Registry
	gate     syncer.Synchronizer
	clock    *tick.Controller
	state    any

	logger  telemetry.Logger
	metrics telemetry.Metrics

	peers    map[transport.PeerID]struct{}
	limiters map[uint32]*rate.Limiter
	cmdRate  rate.Limit
	cmdBurst int

	sequence uint32
	recvBuf  [proto.CommandSize]byte
	sendBuf  [proto.CommandSize]byte
}

// NewHost wires a session around its collaborators. state is the opaque
// simulation state handed to every dispatched handler; it may be nil.
func NewHost(cfg Config, trans transport.Transport, registry *proto.Registry, gate syncer.Synchronizer, clock *tick.Controller, state any, logger telemetry.Logger, metrics telemetry.Metrics) *Host {
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	if metrics == nil {
		metrics = telemetry.NopMetrics{}
	}
	cmdRate := rate.Limit(cfg.CommandRate)
	if cmdRate <= 0 {
		cmdRate = defaultCommandRate
	}
	burst := cfg.CommandBurst
	if burst <= 0 {
		burst = defaultCommandBurst
	}
	return &Host{
		trans:    trans,
		registry: registry,
		gate:     gate,
		clock:    clock,
		state:    state,
		logger:   logger,
		metrics:  metrics,
		peers:    make(map[transport.PeerID]struct{}),
		limiters: make(map[uint32]*rate.Limiter),
		cmdRate:  cmdRate,
		cmdBurst: burst,
	}
}

// Peers reports how many peers the host currently tracks.
func (h *Host) Peers() int { return len(h.peers) }

// Clock exposes the tick controller for phase-driving callers.
func (h *Host) Clock() *tick.Controller { return h.clock }

// PumpCommands drains the transport: claims pending peers, applies
// connect/disconnect events, and feeds every inbound command through the
// rate limiter, the synchronizer, and the registry. It returns the number of
// commands dispatched.
func (h *Host) PumpCommands() int {
	// The shared-memory transport reports its sole peer from every Accept
	// call, so an already-tracked peer ends the drain.
	for {
		peer, ok := h.trans.Accept()
		if !ok {
			break
		}
		if _, seen := h.peers[peer]; seen {
			break
		}
		h.peers[peer] = struct{}{}
		h.logger.Printf("session: peer %d joined", peer)
	}

	for _, ev := range h.trans.Poll() {
		switch ev.Kind {
		case transport.EventConnect:
			h.peers[ev.Peer] = struct{}{}
		case transport.EventDisconnect:
			delete(h.peers, ev.Peer)
			h.logger.Printf("session: peer %d left", ev.Peer)
		}
	}

	dispatched := 0
	var cmd proto.Command
	for drained := 0; drained < pumpBudget; drained++ {
		_, n, found := h.trans.Recv(h.recvBuf[:])
		if !found {
			break
		}
		if err := cmd.UnmarshalBinary(h.recvBuf[:n]); err != nil {
			h.metrics.Add("session_malformed_total", 1)
			h.logger.Printf("session: dropping malformed command: %v", err)
			continue
		}
		if !h.limiter(cmd.PlayerID).Allow() {
			h.metrics.Add("session_rate_dropped_total", 1)
			continue
		}
		h.gate.OnCommandReceived(&cmd)
		if !h.registry.Dispatch(h.state, &cmd) {
			h.metrics.Add("session_unhandled_total", 1)
			continue
		}
		dispatched++
	}
	h.metrics.Add("session_dispatched_total", uint64(dispatched))
	return dispatched
}

func (h *Host) limiter(player uint32) *rate.Limiter {
	lim, ok := h.limiters[player]
	if !ok {
		lim = rate.NewLimiter(h.cmdRate, h.cmdBurst)
		h.limiters[player] = lim
	}
	return lim
}

// Advance converts frameDt into gated simulation steps. Each pending tick
// runs only if the synchronizer permits it; when the gate closes, the unrun
// ticks go back to the controller so they execute once every player reports,
// keeping the tick counter at the pace of the slowest player. It returns the
// number of steps run.
func (h *Host) Advance(frameDt float64, step StepFunc) int {
	ticks, dt := h.clock.Update(frameDt)
	ran := 0
	for ran < ticks {
		current := h.clock.CurrentTick() - uint64(ticks-ran) + 1
		if !h.gate.CanAdvance(current) {
			deferred := ticks - ran
			h.clock.Requeue(deferred)
			h.metrics.Add("session_deferred_ticks_total", uint64(deferred))
			break
		}
		if step != nil {
			step(current, dt)
		}
		h.gate.OnTickCompleted(current)
		ran++
	}
	return ran
}

// ExecuteTurn drives one complete turn in turn-based mode: it waits for the
// synchronizer's gate, runs the execution phase, and rotates the turn to the
// next player. It reports false while the gate is closed.
func (h *Host) ExecuteTurn(step StepFunc) bool {
	current := h.clock.CurrentTick()
	if !h.gate.CanAdvance(current) {
		return false
	}
	h.clock.AdvancePhase() // planning -> execution
	if h.clock.IsTickReady() && step != nil {
		step(current, 0)
	}
	h.gate.OnTickCompleted(current)
	h.clock.AdvancePhase() // execution -> cleanup
	h.clock.AdvancePhase() // cleanup -> planning, next player
	h.logger.Printf("session: turn %d complete, player %d to move", current, h.clock.CurrentPlayer())
	return true
}

// Broadcast marshals cmd once, stamps the next sequence number, and sends it
// to every tracked peer. It returns how many sends succeeded.
func (h *Host) Broadcast(cmd *proto.Command) int {
	h.sequence++
	cmd.Sequence = h.sequence
	cmd.Tick = h.clock.CurrentTick()
	if err := cmd.AppendTo(h.sendBuf[:]); err != nil {
		h.logger.Printf("session: broadcast marshal failed: %v", err)
		return 0
	}
	sent := 0
	for peer := range h.peers {
		if h.trans.Send(peer, h.sendBuf[:]) {
			sent++
		} else {
			h.metrics.Add("session_send_dropped_total", 1)
		}
	}
	return sent
}

// PublishFrame pushes a full-state frame through the transport when it
// supports frame streaming; other transports report false and callers fall
// back to per-command broadcast.
func (h *Host) PublishFrame(frame uint64, timestamp float64, payload []byte) bool {
	pub, ok := h.trans.(transport.FramePublisher)
	if !ok {
		return false
	}
	return pub.PublishFrame(frame, timestamp, payload)
}

// Run drives the fixed-cadence loop until stop closes: pump, advance, step.
// Turn-based sessions run their turn machine instead of the accumulator.
func (h *Host) Run(stop <-chan struct{}, step StepFunc) {
	interval := time.Second / time.Duration(h.clock.TickRate())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			h.trans.Shutdown()
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			h.PumpCommands()
			if h.clock.Mode() == tick.TurnBased {
				h.ExecuteTurn(step)
			} else {
				h.Advance(dt, step)
			}
		}
	}
}
