// Package config loads host configuration from environment variables and
// validates the combinations the bootstrap supports.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/josephkirk/SandboxToyProjects-sub002/internal/shm"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/syncer"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/tick"
)

// Transport variant names accepted in HOST_TRANSPORT.
const (
	TransportSHM    = "shm"
	TransportTCP    = "tcp"
	TransportUDP    = "udp"
	TransportHybrid = "hybrid"
	TransportWS     = "ws"
)

// Sync mode names accepted in HOST_SYNC_MODE.
const (
	SyncAuthoritative = "authoritative"
	SyncLockstep      = "lockstep"
	SyncTurnBased     = "turnbased"
)

// Config is the full set of host knobs. Every field has a working default so
// a bare environment starts a local shared-memory host.
type Config struct {
	// Transport selects the wire variant: shm, tcp, udp, hybrid, or ws.
	Transport string `env:"HOST_TRANSPORT" envDefault:"shm"`
	// SyncMode selects the gating strategy: authoritative, lockstep, or
	// turnbased.
	SyncMode string `env:"HOST_SYNC_MODE" envDefault:"authoritative"`
	// TickMode selects the cadence: continuous, discrete, or turnbased.
	TickMode string `env:"HOST_TICK_MODE" envDefault:"discrete"`

	// Addr is the reliable listen address for tcp, hybrid, and ws.
	Addr string `env:"HOST_ADDR" envDefault:":7777"`
	// UDPAddr is the lossy listen address for udp and hybrid. Hybrid peers
	// register the same host and port on both paths, so the default shares
	// the reliable port.
	UDPAddr string `env:"HOST_UDP_ADDR" envDefault:":7777"`
	// SHMName names the shared-memory mapping for the shm transport.
	SHMName string `env:"HOST_SHM_NAME"`

	// TickRate is the fixed simulation rate in hz for discrete mode.
	TickRate int `env:"HOST_TICK_RATE" envDefault:"60"`
	// PlayerCount sizes the lockstep and turn-based gates.
	PlayerCount int `env:"HOST_PLAYER_COUNT" envDefault:"1"`

	// CommandRate is the per-player sustained commands-per-second budget.
	CommandRate float64 `env:"HOST_COMMAND_RATE" envDefault:"240"`
	// CommandBurst is the per-player burst allowance above CommandRate.
	CommandBurst int `env:"HOST_COMMAND_BURST" envDefault:"32"`
}

// ParseEnv loads a Config from the environment and validates it.
func ParseEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SHMName == "" {
		cfg.SHMName = shm.DefaultName
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown names and out-of-range sizes.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportSHM, TransportTCP, TransportUDP, TransportHybrid, TransportWS:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	switch c.SyncMode {
	case SyncAuthoritative, SyncLockstep, SyncTurnBased:
	default:
		return fmt.Errorf("unknown sync mode %q", c.SyncMode)
	}
	if _, err := c.ParseTickMode(); err != nil {
		return err
	}
	if c.TickRate < 1 || c.TickRate > 1000 {
		return fmt.Errorf("tick rate %d outside [1, 1000]", c.TickRate)
	}
	if c.PlayerCount < 1 || c.PlayerCount > syncer.MaxPlayers {
		return fmt.Errorf("player count %d outside [1, %d]", c.PlayerCount, syncer.MaxPlayers)
	}
	return nil
}

// ParseTickMode maps the configured name onto a controller mode.
func (c Config) ParseTickMode() (tick.Mode, error) {
	switch c.TickMode {
	case "continuous":
		return tick.RealTimeContinuous, nil
	case "discrete":
		return tick.RealTimeDiscrete, nil
	case "turnbased":
		return tick.TurnBased, nil
	default:
		return 0, fmt.Errorf("unknown tick mode %q", c.TickMode)
	}
}
