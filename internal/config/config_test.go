package config

import (
	"strings"
	"testing"

	"github.com/josephkirk/SandboxToyProjects-sub002/internal/shm"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/tick"
)

func TestParseEnvDefaults(t *testing.T) {
	cfg, err := ParseEnv()
	if err != nil {
		t.Fatalf("ParseEnv: %v", err)
	}
	if cfg.Transport != TransportSHM {
		t.Fatalf("Transport = %q, want shm default", cfg.Transport)
	}
	if cfg.SyncMode != SyncAuthoritative {
		t.Fatalf("SyncMode = %q, want authoritative default", cfg.SyncMode)
	}
	if cfg.SHMName != shm.DefaultName {
		t.Fatalf("SHMName = %q, want %q", cfg.SHMName, shm.DefaultName)
	}
	if cfg.TickRate != 60 || cfg.PlayerCount != 1 {
		t.Fatalf("unexpected defaults: rate=%d players=%d", cfg.TickRate, cfg.PlayerCount)
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("HOST_TRANSPORT", "hybrid")
	t.Setenv("HOST_SYNC_MODE", "lockstep")
	t.Setenv("HOST_TICK_MODE", "continuous")
	t.Setenv("HOST_ADDR", ":9000")
	t.Setenv("HOST_UDP_ADDR", ":9001")
	t.Setenv("HOST_SHM_NAME", "ArenaHost")
	t.Setenv("HOST_TICK_RATE", "30")
	t.Setenv("HOST_PLAYER_COUNT", "4")

	cfg, err := ParseEnv()
	if err != nil {
		t.Fatalf("ParseEnv: %v", err)
	}
	if cfg.Transport != TransportHybrid || cfg.SyncMode != SyncLockstep {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Addr != ":9000" || cfg.UDPAddr != ":9001" || cfg.SHMName != "ArenaHost" {
		t.Fatalf("address overrides not applied: %+v", cfg)
	}
	if cfg.TickRate != 30 || cfg.PlayerCount != 4 {
		t.Fatalf("numeric overrides not applied: %+v", cfg)
	}
	if mode, err := cfg.ParseTickMode(); err != nil || mode != tick.RealTimeContinuous {
		t.Fatalf("ParseTickMode = %v, %v", mode, err)
	}
}

func TestParseEnvRejectsUnknownTransport(t *testing.T) {
	t.Setenv("HOST_TRANSPORT", "carrier-pigeon")
	if _, err := ParseEnv(); err == nil || !strings.Contains(err.Error(), "unknown transport") {
		t.Fatalf("expected unknown transport error, got %v", err)
	}
}

func TestParseEnvRejectsUnknownSyncMode(t *testing.T) {
	t.Setenv("HOST_SYNC_MODE", "optimistic")
	if _, err := ParseEnv(); err == nil || !strings.Contains(err.Error(), "unknown sync mode") {
		t.Fatalf("expected unknown sync mode error, got %v", err)
	}
}

func TestParseEnvRejectsOutOfRangePlayers(t *testing.T) {
	t.Setenv("HOST_PLAYER_COUNT", "99")
	if _, err := ParseEnv(); err == nil || !strings.Contains(err.Error(), "player count") {
		t.Fatalf("expected player count error, got %v", err)
	}
}

func TestParseEnvRejectsBadTickRate(t *testing.T) {
	t.Setenv("HOST_TICK_RATE", "0")
	if _, err := ParseEnv(); err == nil || !strings.Contains(err.Error(), "tick rate") {
		t.Fatalf("expected tick rate error, got %v", err)
	}
}
