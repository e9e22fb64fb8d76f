//go:build !linux

package main

import (
	"fmt"

	"github.com/josephkirk/SandboxToyProjects-sub002/internal/telemetry"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/transport"
)

func connectSHM(string, telemetry.Logger) (transport.Transport, transport.PeerID, error) {
	return nil, transport.PeerNone, fmt.Errorf("shared-memory transport requires linux")
}
