//go:build !linux

package main

import (
	"fmt"

	"github.com/josephkirk/SandboxToyProjects-sub002/internal/telemetry"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/transport"
)

func newSHMTransport(string, telemetry.Logger) (transport.Transport, error) {
	return nil, fmt.Errorf("shared-memory transport requires linux")
}
