package syncer

import (
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/proto"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/telemetry"
)

// TurnBased advances only once every player has explicitly ended their turn.
// The end-turn signal is a system sync command with a negative target_pos.x;
// the sign convention overloads the heartbeat type, so the check is strict
// about category and type. Phase gating is the tick controller's job, not
// this gate's.
type TurnBased struct {
	playerCount int
	ended       [MaxPlayers]bool
	confirmed   uint64
	metrics     telemetry.Metrics
}

// NewTurnBased constructs a turn gate for playerCount players, clamped to
// [1, MaxPlayers].
func NewTurnBased(playerCount int, metrics telemetry.Metrics) *TurnBased {
	if playerCount < 1 {
		playerCount = 1
	}
	if playerCount > MaxPlayers {
		playerCount = MaxPlayers
	}
	if metrics == nil {
		metrics = telemetry.NopMetrics{}
	}
	return &TurnBased{playerCount: playerCount, metrics: metrics}
}

// IsEndTurn reports whether cmd carries the end-turn sentinel.
func IsEndTurn(cmd *proto.Command) bool {
	return cmd != nil &&
		cmd.Category == proto.CategorySystem &&
		cmd.Type == proto.CmdSystemSync &&
		cmd.TargetPos[0] < 0
}

// OnCommandReceived marks the player's turn ended when the end-turn sentinel
// arrives. Player ids outside the configured range are counted and ignored.
func (t *TurnBased) OnCommandReceived(cmd *proto.Command) {
	if !IsEndTurn(cmd) {
		return
	}
	if cmd.PlayerID >= uint32(t.playerCount) {
		t.metrics.Add("sync_turnbased_invalid_player_total", 1)
		return
	}
	t.ended[cmd.PlayerID] = true
}

// CanAdvance reports whether every player has ended their turn.
func (t *TurnBased) CanAdvance(uint64) bool {
	for player := 0; player < t.playerCount; player++ {
		if !t.ended[player] {
			return false
		}
	}
	return true
}

// ConfirmedTick reports the last completed turn tick.
func (t *TurnBased) ConfirmedTick() uint64 { return t.confirmed }

// OnTickCompleted confirms the tick and clears every end-turn flag.
func (t *TurnBased) OnTickCompleted(tick uint64) {
	t.confirmed = tick
	for player := range t.ended {
		t.ended[player] = false
	}
}

var _ Synchronizer = (*TurnBased)(nil)
