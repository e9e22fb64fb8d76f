package syncer

import (
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/proto"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/telemetry"
)

// Lockstep advances only when every configured player has reported for the
// current tick, so the simulation moves at the pace of the slowest reporting
// player. Any command from a player counts as that player's report; readiness
// is not tied to a specific command type.
type Lockstep struct {
	playerCount int
	ready       [MaxPlayers]bool
	confirmed   uint64
	metrics     telemetry.Metrics
}

// NewLockstep constructs a lockstep gate for playerCount players, clamped to
// [1, MaxPlayers].
func NewLockstep(playerCount int, metrics telemetry.Metrics) *Lockstep {
	if playerCount < 1 {
		playerCount = 1
	}
	if playerCount > MaxPlayers {
		playerCount = MaxPlayers
	}
	if metrics == nil {
		metrics = telemetry.NopMetrics{}
	}
	return &Lockstep{playerCount: playerCount, metrics: metrics}
}

// OnCommandReceived marks the command's player ready. Player ids outside the
// configured range are counted and ignored rather than indexed.
func (l *Lockstep) OnCommandReceived(cmd *proto.Command) {
	if cmd == nil {
		return
	}
	if cmd.PlayerID >= uint32(l.playerCount) {
		l.metrics.Add("sync_lockstep_invalid_player_total", 1)
		return
	}
	l.ready[cmd.PlayerID] = true
}

// CanAdvance reports whether every configured player has reported.
func (l *Lockstep) CanAdvance(uint64) bool {
	for player := 0; player < l.playerCount; player++ {
		if !l.ready[player] {
			return false
		}
	}
	return true
}

// ConfirmedTick reports the last tick every player agreed on.
func (l *Lockstep) ConfirmedTick() uint64 { return l.confirmed }

// OnTickCompleted confirms the tick and clears all flags for the next round.
func (l *Lockstep) OnTickCompleted(tick uint64) {
	l.confirmed = tick
	for player := range l.ready {
		l.ready[player] = false
	}
}

var _ Synchronizer = (*Lockstep)(nil)
