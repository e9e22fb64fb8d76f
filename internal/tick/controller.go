// Package tick drives simulation cadence. A controller runs in one of three
// modes: variable-step continuous, fixed-step discrete with an accumulator,
// or turn-based with an explicit phase state machine.
package tick

// Mode selects how Update converts frame time into simulation ticks.
type Mode int

const (
	// RealTimeContinuous advances one tick per Update with the caller's dt.
	RealTimeContinuous Mode = iota
	// RealTimeDiscrete accumulates frame time and emits fixed-period ticks,
	// decoupling simulation rate from render cadence.
	RealTimeDiscrete
	// TurnBased emits no ticks from Update; advancement goes through
	// AdvancePhase.
	TurnBased
)

// String returns the mode name used in logs and config values.
func (m Mode) String() string {
	switch m {
	case RealTimeContinuous:
		return "continuous"
	case RealTimeDiscrete:
		return "discrete"
	case TurnBased:
		return "turnbased"
	default:
		return "unknown"
	}
}

// Phase is the turn-based state machine position.
type Phase int

const (
	PhasePlanning Phase = iota
	PhaseExecution
	PhaseCleanup
)

// String returns the phase name used in logs.
func (p Phase) String() string {
	switch p {
	case PhasePlanning:
		return "planning"
	case PhaseExecution:
		return "execution"
	case PhaseCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// maxTicksPerUpdate caps one discrete drain. A suspended or debugged process
// can park seconds of frame time in the accumulator; the excess is discarded
// and counted rather than replayed.
const maxTicksPerUpdate = 360

// Controller owns the simulation clock. It is mutated only by the simulation
// loop through Update, Requeue, and AdvancePhase.
type Controller struct {
	mode        Mode
	tickRate    int
	accumulator float64
	currentTick uint64
	skipped     uint64

	phase         Phase
	currentPlayer int
	playerCount   int
}

// NewController builds a controller. tickRate only matters in discrete mode
// and defaults to 60; playerCount only matters in turn-based mode and
// defaults to 1.
func NewController(mode Mode, tickRate, playerCount int) *Controller {
	if tickRate <= 0 {
		tickRate = 60
	}
	if playerCount < 1 {
		playerCount = 1
	}
	return &Controller{mode: mode, tickRate: tickRate, playerCount: playerCount}
}

// Mode reports the configured cadence mode.
func (c *Controller) Mode() Mode { return c.mode }

// TickRate reports the fixed simulation rate for discrete mode.
func (c *Controller) TickRate() int { return c.tickRate }

// CurrentTick reports the number of ticks emitted so far.
func (c *Controller) CurrentTick() uint64 { return c.currentTick }

// CurrentPhase reports the turn-based phase.
func (c *Controller) CurrentPhase() Phase { return c.phase }

// CurrentPlayer reports whose turn it is in turn-based mode.
func (c *Controller) CurrentPlayer() int { return c.currentPlayer }

// Update converts frame time into simulation steps. It returns how many
// steps to run and the dt to use for each. Continuous mode always emits one
// step of frameDt; discrete mode drains the accumulator in fixed periods so
// a caller may run zero, one, or several steps per frame; turn-based mode is
// inert here.
func (c *Controller) Update(frameDt float64) (int, float64) {
	switch c.mode {
	case RealTimeContinuous:
		c.currentTick++
		return 1, frameDt
	case RealTimeDiscrete:
		period := 1.0 / float64(c.tickRate)
		c.accumulator += frameDt
		ticks := 0
		for c.accumulator >= period {
			if ticks == maxTicksPerUpdate {
				for c.accumulator >= period {
					c.accumulator -= period
					c.skipped++
				}
				break
			}
			c.accumulator -= period
			c.currentTick++
			ticks++
		}
		return ticks, period
	default:
		return 0, 0
	}
}

// Requeue returns n emitted-but-unrun ticks to the controller: the tick
// counter rolls back and, in discrete mode, the periods are re-credited to
// the accumulator so the ticks run once the caller's gate opens.
func (c *Controller) Requeue(n int) {
	if n <= 0 || c.mode == TurnBased {
		return
	}
	if uint64(n) > c.currentTick {
		n = int(c.currentTick)
	}
	c.currentTick -= uint64(n)
	if c.mode == RealTimeDiscrete {
		c.accumulator += float64(n) / float64(c.tickRate)
	}
}

// Accumulator exposes the undrained remainder for diagnostics.
func (c *Controller) Accumulator() float64 { return c.accumulator }

// SkippedTicks reports ticks discarded by the per-update drain cap.
func (c *Controller) SkippedTicks() uint64 { return c.skipped }

// AdvancePhase cycles Planning → Execution → Cleanup → Planning. On the
// wraparound the turn passes to the next player and the tick counter
// increments. Only meaningful in turn-based mode.
func (c *Controller) AdvancePhase() {
	if c.mode != TurnBased {
		return
	}
	switch c.phase {
	case PhasePlanning:
		c.phase = PhaseExecution
	case PhaseExecution:
		c.phase = PhaseCleanup
	case PhaseCleanup:
		c.phase = PhasePlanning
		c.currentPlayer = (c.currentPlayer + 1) % c.playerCount
		c.currentTick++
	}
}

// IsTickReady reports whether the session loop may execute the turn's
// commands: only during the Execution phase in turn-based mode. Real-time
// modes are always ready.
func (c *Controller) IsTickReady() bool {
	if c.mode != TurnBased {
		return true
	}
	return c.phase == PhaseExecution
}
