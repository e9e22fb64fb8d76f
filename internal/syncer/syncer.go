// Package syncer provides the pluggable tick-synchronization strategies that
// gate simulation advancement. All variants expose the same four-operation
// contract so the tick loop stays indifferent to the strategy in play.
package syncer

import "github.com/josephkirk/SandboxToyProjects-sub002/internal/proto"

// MaxPlayers bounds the per-player flag arrays carried by the gating
// strategies.
const MaxPlayers = 8

// Synchronizer decides, each tick, whether the simulation may advance.
// Implementations are single-threaded: they are mutated only from the
// command-dispatch path of the simulation loop.
type Synchronizer interface {
	// OnCommandReceived records per-player readiness derived from cmd.
	OnCommandReceived(cmd *proto.Command)

	// CanAdvance reports whether the tick controller may step tick.
	CanAdvance(tick uint64) bool

	// ConfirmedTick reports the last tick all parties agreed on.
	ConfirmedTick() uint64

	// OnTickCompleted resets per-tick state after tick ran.
	OnTickCompleted(tick uint64)
}

// Authoritative never gates: the server is the sole authority and commands
// apply as they arrive. It carries no per-player state.
type Authoritative struct {
	confirmed uint64
}

// NewAuthoritative constructs the no-op gating strategy.
func NewAuthoritative() *Authoritative {
	return &Authoritative{}
}

// OnCommandReceived is a no-op; commands apply immediately via dispatch.
func (a *Authoritative) OnCommandReceived(*proto.Command) {}

// CanAdvance always permits the step.
func (a *Authoritative) CanAdvance(uint64) bool { return true }

// ConfirmedTick reports the last completed tick.
func (a *Authoritative) ConfirmedTick() uint64 { return a.confirmed }

// OnTickCompleted records the completed tick.
func (a *Authoritative) OnTickCompleted(tick uint64) { a.confirmed = tick }
